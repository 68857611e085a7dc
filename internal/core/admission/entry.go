package admission

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/stakegate/go-stakegate/pkg/types"
)

// CloseReason 连接被强制关闭的原因
//
// 传输层据此选择发给对端的应用错误码。
type CloseReason int

const (
	// ReasonEvicted 被更高优先级连接驱逐
	ReasonEvicted CloseReason = iota
	// ReasonIdle 空闲超时
	ReasonIdle
	// ReasonShutdown 服务端关停
	ReasonShutdown
)

// String 返回原因的字符串表示
func (r CloseReason) String() string {
	switch r {
	case ReasonEvicted:
		return "evicted"
	case ReasonIdle:
		return "idle timeout"
	case ReasonShutdown:
		return "server shutdown"
	default:
		return "unknown"
	}
}

// Entry 一条存活连接在连接表中的表项
//
// 表项由连接表独占拥有；流任务只持有指针用于回报计数与
// 检查存活状态，不持有独立副本。销毁时机：连接关闭
// （本端、远端、空闲超时或驱逐）。
type Entry struct {
	id        types.ConnID
	peer      types.NodeID
	addr      net.Addr
	addrKey   string // 远端 IP，用于单地址限额
	weight    uint64
	createdAt time.Time

	state        atomic.Int32
	lastActivity atomic.Int64 // UnixNano

	openStreams atomic.Int64
	rxBytes     atomic.Uint64
	rxPackets   atomic.Uint64

	// cancel 取消绑定到该连接的所有流任务
	cancel context.CancelFunc

	// close 带原因强制关闭底层传输连接
	close func(CloseReason)
}

// ID 返回连接标识
func (e *Entry) ID() types.ConnID { return e.id }

// Peer 返回对端节点标识
func (e *Entry) Peer() types.NodeID { return e.peer }

// Addr 返回远端地址
func (e *Entry) Addr() net.Addr { return e.addr }

// Weight 返回准入时刻的质押权重
func (e *Entry) Weight() uint64 { return e.weight }

// Staked 检查连接是否来自有质押身份
func (e *Entry) Staked() bool { return e.weight > 0 }

// CreatedAt 返回建立时间
func (e *Entry) CreatedAt() time.Time { return e.createdAt }

// Priority 返回驱逐优先级
func (e *Entry) Priority() Priority {
	return Priority{Weight: e.weight, CreatedAt: e.createdAt}
}

// State 返回当前准入状态
func (e *Entry) State() types.ConnState {
	return types.ConnState(e.state.Load())
}

// Admitted 检查连接是否处于可服务状态
func (e *Entry) Admitted() bool {
	return e.State() == types.ConnStateAdmitted
}

// Touch 记录流活动时间（空闲超时依据）
func (e *Entry) Touch(now time.Time) {
	e.lastActivity.Store(now.UnixNano())
}

// LastActivity 返回最近一次流活动时间
func (e *Entry) LastActivity() time.Time {
	return time.Unix(0, e.lastActivity.Load())
}

// StreamStarted 流任务开始时递增在途流计数
func (e *Entry) StreamStarted() { e.openStreams.Add(1) }

// StreamDone 流任务结束时递减在途流计数
func (e *Entry) StreamDone() { e.openStreams.Add(-1) }

// OpenStreams 返回在途流数量
func (e *Entry) OpenStreams() int64 { return e.openStreams.Load() }

// RecordPacket 回报一个成帧完成的数据包
func (e *Entry) RecordPacket(n int) {
	e.rxPackets.Add(1)
	e.rxBytes.Add(uint64(n))
}

// RxPackets 返回累计数据包数
func (e *Entry) RxPackets() uint64 { return e.rxPackets.Load() }

// RxBytes 返回累计负载字节数
func (e *Entry) RxBytes() uint64 { return e.rxBytes.Load() }

// setState 状态迁移（仅表内部调用，持表锁）
func (e *Entry) setState(s types.ConnState) {
	e.state.Store(int32(s))
}
