package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Module 返回 Fx 模块
var Module = fx.Module("core/metrics",
	fx.Provide(ProvideStats),
)

// ModuleInput Fx 输入参数
type ModuleInput struct {
	fx.In
	Registry *prometheus.Registry `optional:"true"`
}

// ProvideStats 提供指标集
//
// 未注入 Registry 时指标仍然工作，只是不对外暴露。
func ProvideStats(in ModuleInput) *Stats {
	if in.Registry == nil {
		return New(nil)
	}
	return New(in.Registry)
}
