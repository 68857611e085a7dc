package endpoint

import (
	"go.uber.org/fx"

	"github.com/stakegate/go-stakegate/config"
	"github.com/stakegate/go-stakegate/internal/core/admission"
	"github.com/stakegate/go-stakegate/internal/core/framer"
	"github.com/stakegate/go-stakegate/internal/core/metrics"
	"github.com/stakegate/go-stakegate/internal/core/transport/quic"
)

// Module 返回 Fx 模块
var Module = fx.Module("core/endpoint",
	fx.Provide(ProvideEndpoint),
)

// ProvideEndpoint 提供入站端点
func ProvideEndpoint(cfg *config.Config, ep *quic.Endpoint, ctrl *admission.Controller, fr *framer.Framer, stats *metrics.Stats) *Endpoint {
	return New(cfg.Transport, ep, ctrl, fr, stats)
}
