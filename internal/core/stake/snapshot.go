// Package stake 提供质押权重快照
//
// 快照由外部调用方周期性刷新（共识/账本侧计算），
// 本包只做读取：单次查询原子，跨查询允许快照更替。
package stake

import (
	"sync/atomic"

	"github.com/stakegate/go-stakegate/pkg/types"
)

// Source 质押权重查询接口
//
// WeightOf 对未知身份返回 0（"无质押"）。实现必须允许
// 高频同步调用，且不得无界阻塞调用方。
type Source interface {
	WeightOf(id types.NodeID) uint64
}

// snapshot 一次性导入的不可变权重表
type snapshot struct {
	weights    map[types.NodeID]uint64
	totalStake uint64
}

// Snapshot 质押权重快照持有者
//
// 内部用 atomic.Pointer 持有不可变 map：查询无锁，
// Store 整表替换。map 导入后绝不修改。
type Snapshot struct {
	current atomic.Pointer[snapshot]
}

// 确保实现 Source 接口
var _ Source = (*Snapshot)(nil)

// NewSnapshot 创建空快照
func NewSnapshot() *Snapshot {
	s := &Snapshot{}
	s.Store(nil)
	return s
}

// Store 整表替换权重快照
//
// weights 的所有权移交本快照，调用方此后不得修改。
func (s *Snapshot) Store(weights map[types.NodeID]uint64) {
	var total uint64
	for _, w := range weights {
		total += w
	}
	s.current.Store(&snapshot{weights: weights, totalStake: total})
}

// WeightOf 返回身份的质押权重，未知身份为 0
func (s *Snapshot) WeightOf(id types.NodeID) uint64 {
	return s.current.Load().weights[id]
}

// TotalStake 返回快照内的权重总和
func (s *Snapshot) TotalStake() uint64 {
	return s.current.Load().totalStake
}

// Len 返回快照内的身份数量
func (s *Snapshot) Len() int {
	return len(s.current.Load().weights)
}
