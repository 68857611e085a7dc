package ratelimit

import (
	"crypto/sha256"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakegate/go-stakegate/config"
	"github.com/stakegate/go-stakegate/pkg/types"
)

func nodeID(seed string) types.NodeID {
	return types.NodeID(sha256.Sum256([]byte(seed)))
}

func testConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		StakedRPS:     100,
		StakedBurst:   10,
		UnstakedRPS:   10,
		UnstakedBurst: 2,
	}
}

func TestLimiter_BurstThenDeny(t *testing.T) {
	mock := clock.NewMock()
	l, err := New(testConfig(), mock)
	require.NoError(t, err)

	peer := nodeID("u")

	// 耗尽无质押桶
	for i := 0; i < 2; i++ {
		assert.True(t, l.Allow(peer, false), "第 %d 个包应放行", i)
	}
	assert.False(t, l.Allow(peer, false), "桶空后应拒绝")

	// 有质押桶独立，不受影响
	assert.True(t, l.Allow(nodeID("s"), true))
}

func TestLimiter_Refill(t *testing.T) {
	mock := clock.NewMock()
	l, err := New(testConfig(), mock)
	require.NoError(t, err)

	peer := nodeID("u")
	for i := 0; i < 2; i++ {
		require.True(t, l.Allow(peer, false))
	}
	require.False(t, l.Allow(peer, false))

	// 10 rps：100ms 恰好补 1 个令牌
	mock.Add(100 * time.Millisecond)
	assert.True(t, l.Allow(peer, false))
	assert.False(t, l.Allow(peer, false))
}

func TestLimiter_RefillCapsAtBurst(t *testing.T) {
	mock := clock.NewMock()
	l, err := New(testConfig(), mock)
	require.NoError(t, err)

	// 长时间空闲不会积累超过桶容量的令牌
	mock.Add(time.Hour)
	assert.InDelta(t, 2.0, l.Available(false), 0.001)
	assert.InDelta(t, 10.0, l.Available(true), 0.001)
}

func TestLimiter_PerPeer(t *testing.T) {
	cfg := testConfig()
	cfg.PerPeer = true
	cfg.PerPeerCacheSize = 16

	mock := clock.NewMock()
	l, err := New(cfg, mock)
	require.NoError(t, err)

	a, b := nodeID("a"), nodeID("b")

	// a 耗尽个体桶与类桶
	for i := 0; i < 2; i++ {
		require.True(t, l.Allow(a, false))
	}
	assert.False(t, l.Allow(a, false))

	// b 被类桶上限挡下；个体令牌被归还，不受牵连
	assert.False(t, l.Allow(b, false))

	// 类桶补一个令牌后 b 立即放行
	mock.Add(100 * time.Millisecond)
	assert.True(t, l.Allow(b, false))
}

func TestBucket_Refund(t *testing.T) {
	now := time.Now()
	b := newBucket(10, 2, now)

	require.True(t, b.take(now, 1))
	b.refund(1)
	assert.InDelta(t, 2.0, b.available(now), 0.001)

	// 归还不会超过桶容量
	b.refund(5)
	assert.InDelta(t, 2.0, b.available(now), 0.001)
}

func TestLimiter_ClassDenialKeepsPeerToken(t *testing.T) {
	cfg := testConfig()
	cfg.PerPeer = true
	cfg.PerPeerCacheSize = 16

	mock := clock.NewMock()
	l, err := New(cfg, mock)
	require.NoError(t, err)

	// a 抽干类桶，b 的个体桶保持满额
	a, b := nodeID("a"), nodeID("b")
	for i := 0; i < 2; i++ {
		require.True(t, l.Allow(a, false))
	}

	// 类桶为空时 b 的尝试被拒绝，但不消耗 b 的个体令牌
	for i := 0; i < 4; i++ {
		require.False(t, l.Allow(b, false))
	}
	pb, ok := l.perPeer.Get(b)
	require.True(t, ok)
	assert.InDelta(t, 2.0, pb.available(mock.Now()), 0.001)
}

func TestLimiter_PerPeerClassCeiling(t *testing.T) {
	cfg := testConfig()
	cfg.PerPeer = true
	cfg.PerPeerCacheSize = 16
	cfg.UnstakedBurst = 4

	mock := clock.NewMock()
	l, err := New(cfg, mock)
	require.NoError(t, err)

	// 类桶是全局上限：多个身份合计不能超过类桶容量
	granted := 0
	for i := 0; i < 8; i++ {
		if l.Allow(nodeID(string(rune('a'+i))), false) {
			granted++
		}
	}
	assert.Equal(t, 4, granted)
}
