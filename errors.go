package stakegate

import "errors"

var (
	// ErrServerClosed 服务已关闭
	ErrServerClosed = errors.New("stakegate: server closed")

	// ErrAlreadyStarted 服务已在运行
	ErrAlreadyStarted = errors.New("stakegate: server already started")

	// ErrNotStarted 服务尚未启动
	ErrNotStarted = errors.New("stakegate: server not started")
)
