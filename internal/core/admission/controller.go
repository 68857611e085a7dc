// Package admission 实现质押加权的连接准入控制
//
// 准入决策：查询质押快照得到权重 → 计算优先级 → 在容量与
// 限额约束下准入/驱逐/拒绝。容量不变式由连接表保证。
package admission

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/stakegate/go-stakegate/config"
	"github.com/stakegate/go-stakegate/internal/core/metrics"
	"github.com/stakegate/go-stakegate/internal/core/stake"
	"github.com/stakegate/go-stakegate/pkg/lib/log"
	"github.com/stakegate/go-stakegate/pkg/types"
)

var logger = log.Logger("core/admission")

// Controller 连接准入控制器
//
// 在连接表之上叠加：质押权重查询、重连退避缓存、
// 驱逐后的排空计时与指标上报。
type Controller struct {
	cfg    config.AdmissionConfig
	table  *Table
	stakes stake.Source
	stats  *metrics.Stats

	// rejects 近期被拒绝/驱逐的无质押身份
	// TTL 即退避窗口；容量有界，淘汰即遗忘
	rejects *expirable.LRU[types.NodeID, struct{}]
}

// NewController 创建准入控制器
func NewController(cfg config.AdmissionConfig, stakes stake.Source, stats *metrics.Stats) *Controller {
	c := &Controller{
		cfg:    cfg,
		table:  NewTable(cfg),
		stakes: stakes,
		stats:  stats,
	}
	if cfg.RejectBackoff > 0 && cfg.RejectCacheSize > 0 {
		c.rejects = expirable.NewLRU[types.NodeID, struct{}](cfg.RejectCacheSize, nil, cfg.RejectBackoff)
	}
	return c
}

// Admit 为一条完成身份验证的连接做准入决策
//
// cancel 在驱逐时触发，用于取消连接的全部流任务；
// close 在排空超时后强制关闭底层连接。
func (c *Controller) Admit(peer types.NodeID, addr net.Addr, cancel context.CancelFunc, close func(CloseReason)) (*Entry, error) {
	weight := c.stakes.WeightOf(peer)

	// 退避检查只约束无质押身份：有质押身份的重连
	// 总是值得走完整的优先级比较
	if weight == 0 && c.rejects != nil {
		if _, ok := c.rejects.Get(peer); ok {
			c.stats.ConnectionsRejected.WithLabelValues("backoff").Inc()
			return nil, ErrBackoff
		}
	}

	result, err := c.table.Admit(AdmitRequest{
		Peer:   peer,
		Addr:   addr,
		Weight: weight,
		Cancel: cancel,
		Close:  close,
	})
	if err != nil {
		c.noteReject(peer, weight, err)
		return nil, err
	}

	if evicted := result.Evicted; evicted != nil {
		c.stats.Evictions.Inc()
		c.stats.ActiveConnections.Dec()
		c.noteEvicted(evicted)
		logger.Debug("驱逐低优先级连接",
			"evicted", evicted.Peer().ShortString(),
			"evictedWeight", evicted.Weight(),
			"admitted", peer.ShortString(),
			"weight", weight)
		// 排空计时：在途流未及时结束则强制关闭
		if evicted.close != nil {
			time.AfterFunc(c.cfg.DrainTimeout, func() {
				evicted.close(ReasonEvicted)
			})
		}
	}

	c.stats.ConnectionsAdded.WithLabelValues(metrics.ClassLabel(weight > 0)).Inc()
	c.stats.ActiveConnections.Inc()

	return result.Entry, nil
}

// Release 连接结束时移出连接表
//
// 对已被驱逐（已不在表中）的连接是无害的空操作。
func (c *Controller) Release(e *Entry) {
	if _, err := c.table.Remove(e.ID()); err != nil {
		// 已被驱逐或已关闭
		return
	}
	c.stats.ConnectionsRemoved.Inc()
	c.stats.ActiveConnections.Dec()
}

// IdleSweep 驱逐最近活动早于 cutoff 的连接
//
// 返回本轮关闭的连接数。由端点周期性调用。
func (c *Controller) IdleSweep(cutoff time.Time) int {
	idle := c.table.IdleBefore(cutoff)
	for _, e := range idle {
		if _, err := c.table.Remove(e.ID()); err != nil {
			continue
		}
		c.stats.ConnectionsRemoved.Inc()
		c.stats.ActiveConnections.Dec()
		if e.cancel != nil {
			e.cancel()
		}
		if e.close != nil {
			e.close(ReasonIdle)
		}
		logger.Debug("关闭空闲连接",
			"peer", e.Peer().ShortString(),
			"idle", time.Since(e.LastActivity()))
	}
	return len(idle)
}

// Table 返回底层连接表（测试与统计用）
func (c *Controller) Table() *Table {
	return c.table
}

// Close 关闭控制器并强制关闭所有在表连接
func (c *Controller) Close() {
	for _, e := range c.table.Close() {
		if e.close != nil {
			e.close(ReasonShutdown)
		}
	}
}

// noteReject 记录拒绝原因并更新退避缓存
func (c *Controller) noteReject(peer types.NodeID, weight uint64, err error) {
	switch {
	case errors.Is(err, ErrPerAddrLimit):
		c.stats.ConnectionsRejected.WithLabelValues("per_addr").Inc()
	case errors.Is(err, ErrTableFull):
		c.stats.ConnectionsRejected.WithLabelValues("capacity").Inc()
	default:
		c.stats.ConnectionsRejected.WithLabelValues("other").Inc()
	}
	if weight == 0 && c.rejects != nil {
		c.rejects.Add(peer, struct{}{})
	}
}

// noteEvicted 将被驱逐的无质押身份加入退避缓存
func (c *Controller) noteEvicted(e *Entry) {
	if !e.Staked() && c.rejects != nil {
		c.rejects.Add(e.Peer(), struct{}{})
	}
}
