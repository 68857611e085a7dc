// Package ratelimit 提供按权重类的令牌桶限速
//
// 每个权重类（有质押/无质押）一个令牌桶；可选按身份细分。
// 限速是"丢弃不排队"：取不到令牌的数据包直接丢弃并计数，
// 保证内存有界。
package ratelimit

import (
	"sync"
	"time"
)

// bucket 令牌桶
//
// 懒补充：每次取令牌时按经过时间折算新令牌。
// 并发访问由桶内互斥锁串行化，令牌数单调一致、永不为负。
type bucket struct {
	mu         sync.Mutex
	tokens     float64   // 当前令牌数
	lastUpdate time.Time // 上次补充时间
	rps        float64   // 每秒令牌数
	burst      int       // 桶容量
}

func newBucket(rps float64, burst int, now time.Time) *bucket {
	return &bucket{
		tokens:     float64(burst),
		lastUpdate: now,
		rps:        rps,
		burst:      burst,
	}
}

// take 尝试取 cost 个令牌
func (b *bucket) take(now time.Time, cost float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	// 补充令牌
	elapsed := now.Sub(b.lastUpdate).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.rps
		if b.tokens > float64(b.burst) {
			b.tokens = float64(b.burst)
		}
		b.lastUpdate = now
	}

	// 检查是否有足够令牌
	if b.tokens < cost {
		return false
	}

	b.tokens -= cost
	return true
}

// refund 归还取走但未使用的令牌
func (b *bucket) refund(cost float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens += cost
	if b.tokens > float64(b.burst) {
		b.tokens = float64(b.burst)
	}
}

// available 返回当前可用令牌数（补充后）
func (b *bucket) available(now time.Time) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := now.Sub(b.lastUpdate).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.rps
		if b.tokens > float64(b.burst) {
			b.tokens = float64(b.burst)
		}
		b.lastUpdate = now
	}
	return b.tokens
}
