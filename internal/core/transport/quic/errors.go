package quic

import (
	"errors"

	"github.com/quic-go/quic-go"
)

var (
	// ErrListenerClosed 监听器已关闭
	ErrListenerClosed = errors.New("quic: listener closed")

	// ErrNoIdentity 未配置本端身份
	ErrNoIdentity = errors.New("quic: no identity configured")
)

// 连接级应用错误码，随 CloseWithError 发给对端
const (
	// CodeNormalClose 正常关闭
	CodeNormalClose quic.ApplicationErrorCode = 0x0

	// CodeRejected 准入被拒绝
	CodeRejected quic.ApplicationErrorCode = 0x10

	// CodeEvicted 被更高优先级连接驱逐
	CodeEvicted quic.ApplicationErrorCode = 0x11

	// CodeIdle 空闲超时
	CodeIdle quic.ApplicationErrorCode = 0x12

	// CodeShutdown 服务端停机
	CodeShutdown quic.ApplicationErrorCode = 0x13
)
