package types

import (
	"net"
	"time"
)

// ============================================================================
//                              Packet - 数据包
// ============================================================================

// Packet 一个已成帧的入站数据包
//
// 由 framer 在流读取完成后构造，构造后不可变。
// 按值传递进入 PacketBatch，所有权随批次移交给下游消费者。
type Packet struct {
	// Payload 应用层负载（本模块不解析其内容）
	Payload []byte

	// Peer 发送方的节点标识（由 TLS 凭证公钥派生）
	Peer NodeID

	// Addr 发送方的远端地址
	Addr net.Addr

	// Weight 接收时刻发送方的质押权重
	Weight uint64

	// RecvAt 接收完成时间戳
	RecvAt time.Time
}

// Staked 检查数据包是否来自有质押的节点
func (p *Packet) Staked() bool {
	return p.Weight > 0
}

// ============================================================================
//                              PacketBatch - 数据包批次
// ============================================================================

// PacketBatch 一批按接收顺序排列的数据包
//
// 批次由 batcher 按数量或时间窗口封口，整体移交下游通道。
// 批次内保序；跨批次无顺序保证。
type PacketBatch struct {
	// Packets 批次内的数据包，接收顺序
	Packets []Packet

	// FirstAt 批次中第一个数据包的接收时间
	FirstAt time.Time
}

// Len 返回批次内数据包数量
func (b *PacketBatch) Len() int {
	return len(b.Packets)
}

// Bytes 返回批次内负载字节总数
func (b *PacketBatch) Bytes() int {
	total := 0
	for i := range b.Packets {
		total += len(b.Packets[i].Payload)
	}
	return total
}
