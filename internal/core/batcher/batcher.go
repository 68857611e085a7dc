// Package batcher 将数据包聚合成批后下发
//
// 凑批条件二选一：达到包数上限，或自首包起经过聚合窗口。
// 下行通道有界，满时有界等待后整批丢弃，绝不反压到
// 流读取路径。
package batcher

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/stakegate/go-stakegate/config"
	"github.com/stakegate/go-stakegate/internal/core/metrics"
	"github.com/stakegate/go-stakegate/pkg/lib/log"
	"github.com/stakegate/go-stakegate/pkg/types"
)

var logger = log.Logger("core/batcher")

// Batcher 数据包聚合器
type Batcher struct {
	cfg   config.BatchConfig
	clk   clock.Clock
	stats *metrics.Stats

	mu      sync.Mutex
	pending []types.Packet
	firstAt time.Time
	timer   *clock.Timer
	closed  bool

	// inflight 跟踪进行中的 publish，Close 须等其归零
	// 才能安全关闭下行通道
	inflight sync.WaitGroup

	out chan types.PacketBatch
}

// New 创建聚合器
//
// clk 注入时钟以便测试；生产传 clock.New()。
func New(cfg config.BatchConfig, clk clock.Clock, stats *metrics.Stats) *Batcher {
	return &Batcher{
		cfg:   cfg,
		clk:   clk,
		stats: stats,
		out:   make(chan types.PacketBatch, cfg.ChannelDepth),
	}
}

// Batches 返回下行批次通道
//
// Close 后通道关闭。消费方读到关闭即可退出。
func (b *Batcher) Batches() <-chan types.PacketBatch {
	return b.out
}

// Submit 提交一个数据包
//
// 非阻塞：达到包数上限立即凑批下发，否则等待聚合窗口。
func (b *Batcher) Submit(p types.Packet) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}

	if len(b.pending) == 0 {
		b.firstAt = b.clk.Now()
		b.timer = b.clk.AfterFunc(b.cfg.Coalesce, b.flushOnTimer)
	}
	b.pending = append(b.pending, p)

	if len(b.pending) >= b.cfg.MaxPackets {
		batch := b.takeLocked()
		b.inflight.Add(1)
		b.mu.Unlock()
		b.publish(batch)
		b.inflight.Done()
		return
	}
	b.mu.Unlock()
}

// flushOnTimer 聚合窗口到期，下发当前批
func (b *Batcher) flushOnTimer() {
	b.mu.Lock()
	if b.closed || len(b.pending) == 0 {
		b.mu.Unlock()
		return
	}
	batch := b.takeLocked()
	b.inflight.Add(1)
	b.mu.Unlock()
	b.publish(batch)
	b.inflight.Done()
}

// takeLocked 取走当前批并复位，须持锁调用
func (b *Batcher) takeLocked() types.PacketBatch {
	batch := types.PacketBatch{
		Packets: b.pending,
		FirstAt: b.firstAt,
	}
	b.pending = nil
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	return batch
}

// publish 将批次写入下行通道
//
// 通道满时有界等待 PublishTimeout，仍满则整批丢弃并计数。
func (b *Batcher) publish(batch types.PacketBatch) {
	select {
	case b.out <- batch:
		b.stats.BatchesSent.Inc()
		b.stats.PacketsSent.Add(float64(batch.Len()))
		return
	default:
	}

	timer := b.clk.Timer(b.cfg.PublishTimeout)
	defer timer.Stop()
	select {
	case b.out <- batch:
		b.stats.BatchesSent.Inc()
		b.stats.PacketsSent.Add(float64(batch.Len()))
	case <-timer.C:
		b.stats.BatchesDropped.Inc()
		logger.Warn("下行通道拥塞，丢弃批次", "packets", batch.Len())
	}
}

// Close 下发剩余数据并关闭下行通道
func (b *Batcher) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	var last *types.PacketBatch
	if len(b.pending) > 0 {
		batch := b.takeLocked()
		last = &batch
	} else if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	// 先等在途的 publish 全部落地
	b.inflight.Wait()
	if last != nil {
		b.publish(*last)
	}
	close(b.out)
}
