package framer

import (
	"go.uber.org/fx"

	"github.com/stakegate/go-stakegate/config"
	"github.com/stakegate/go-stakegate/internal/core/batcher"
	"github.com/stakegate/go-stakegate/internal/core/metrics"
	"github.com/stakegate/go-stakegate/internal/core/ratelimit"
	"github.com/stakegate/go-stakegate/internal/core/stake"
)

// Module 返回 Fx 模块
var Module = fx.Module("core/framer",
	fx.Provide(
		func(b *batcher.Batcher) PacketSink { return b },
		ProvideFramer,
	),
)

// ProvideFramer 提供流读取器
func ProvideFramer(cfg *config.Config, limiter *ratelimit.Limiter, stakes *stake.Snapshot, stats *metrics.Stats, sink PacketSink) *Framer {
	return New(cfg.Transport, limiter, stakes, stats, sink)
}
