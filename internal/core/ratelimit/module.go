package ratelimit

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/stakegate/go-stakegate/config"
)

// Module 返回 Fx 模块
var Module = fx.Module("core/ratelimit",
	fx.Provide(ProvideLimiter),
)

// ProvideLimiter 提供限速器
func ProvideLimiter(cfg *config.Config, clk clock.Clock) (*Limiter, error) {
	if err := cfg.RateLimit.Validate(); err != nil {
		return nil, err
	}
	return New(cfg.RateLimit, clk)
}
