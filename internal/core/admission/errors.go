package admission

import "errors"

// 准入控制错误定义
var (
	// ErrControllerClosed 控制器已关闭
	ErrControllerClosed = errors.New("admission: controller closed")

	// ErrPerAddrLimit 单地址连接数达到上限
	ErrPerAddrLimit = errors.New("admission: per-address connection limit")

	// ErrTableFull 连接表已满且候选优先级不足以驱逐
	ErrTableFull = errors.New("admission: table full, priority too low")

	// ErrBackoff 身份处于重连退避窗口内
	ErrBackoff = errors.New("admission: peer in reject backoff window")

	// ErrUnknownConn 连接不在表中
	ErrUnknownConn = errors.New("admission: unknown connection")
)
