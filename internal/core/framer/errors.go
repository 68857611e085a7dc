package framer

import "errors"

var (
	// ErrPacketTooLarge 流负载超出单包上限
	ErrPacketTooLarge = errors.New("framer: packet exceeds max size")

	// ErrEmptyStream 流在未传输任何字节前就结束
	ErrEmptyStream = errors.New("framer: empty stream")
)
