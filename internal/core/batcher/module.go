package batcher

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/stakegate/go-stakegate/config"
	"github.com/stakegate/go-stakegate/internal/core/metrics"
)

// Module 返回 Fx 模块
var Module = fx.Module("core/batcher",
	fx.Provide(ProvideBatcher),
)

// ProvideBatcher 提供聚合器
func ProvideBatcher(cfg *config.Config, clk clock.Clock, stats *metrics.Stats) (*Batcher, error) {
	if err := cfg.Batch.Validate(); err != nil {
		return nil, err
	}
	return New(cfg.Batch, clk, stats), nil
}
