package ratelimit

import (
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/stakegate/go-stakegate/config"
	"github.com/stakegate/go-stakegate/pkg/lib/log"
	"github.com/stakegate/go-stakegate/pkg/types"
)

var logger = log.Logger("core/ratelimit")

// Limiter 按权重类的令牌桶限速器
//
// 基础粒度为两个类桶（有质押/无质押）。启用 PerPeer 后，
// 每个身份独享一个桶（LRU 缓存，容量有界），参数按其类取值；
// 类桶仍然生效，作为全局上限。
type Limiter struct {
	cfg config.RateLimitConfig
	clk clock.Clock

	staked   *bucket
	unstaked *bucket

	// perPeer 按身份的令牌桶缓存（可选）
	// LRU 淘汰即桶重置；对低频身份等价于满桶冷启动
	perPeer *lru.Cache[types.NodeID, *bucket]
}

// New 创建限速器
//
// clk 注入时钟以便测试；生产传 clock.New()。
func New(cfg config.RateLimitConfig, clk clock.Clock) (*Limiter, error) {
	now := clk.Now()
	l := &Limiter{
		cfg:      cfg,
		clk:      clk,
		staked:   newBucket(cfg.StakedRPS, cfg.StakedBurst, now),
		unstaked: newBucket(cfg.UnstakedRPS, cfg.UnstakedBurst, now),
	}

	if cfg.PerPeer {
		cache, err := lru.New[types.NodeID, *bucket](cfg.PerPeerCacheSize)
		if err != nil {
			return nil, err
		}
		l.perPeer = cache
		logger.Debug("启用按身份令牌桶", "cacheSize", cfg.PerPeerCacheSize)
	}

	return l, nil
}

// Allow 尝试为一个数据包取令牌
//
// 返回 false 表示该包应当被丢弃（调用方负责计数）。
func (l *Limiter) Allow(peer types.NodeID, staked bool) bool {
	now := l.clk.Now()

	var pb *bucket
	if l.perPeer != nil {
		pb = l.peerBucket(peer, staked, now)
		if !pb.take(now, 1) {
			return false
		}
	}

	class := l.unstaked
	if staked {
		class = l.staked
	}
	if !class.take(now, 1) {
		// 类桶是全局上限：被它挡下的包不消耗个体令牌
		if pb != nil {
			pb.refund(1)
		}
		return false
	}
	return true
}

// peerBucket 取出或新建身份桶
//
// PeekOrAdd 保证并发首包不会给同一身份建出两个桶。
func (l *Limiter) peerBucket(peer types.NodeID, staked bool, now time.Time) *bucket {
	if pb, ok := l.perPeer.Get(peer); ok {
		return pb
	}
	fresh := newBucket(l.cfg.UnstakedRPS, l.cfg.UnstakedBurst, now)
	if staked {
		fresh = newBucket(l.cfg.StakedRPS, l.cfg.StakedBurst, now)
	}
	if prev, ok, _ := l.perPeer.PeekOrAdd(peer, fresh); ok {
		return prev
	}
	return fresh
}

// Available 返回指定类当前可用令牌数（用于统计与测试）
func (l *Limiter) Available(staked bool) float64 {
	now := l.clk.Now()
	if staked {
		return l.staked.available(now)
	}
	return l.unstaked.available(now)
}
