package admission

import (
	"go.uber.org/fx"

	"github.com/stakegate/go-stakegate/config"
	"github.com/stakegate/go-stakegate/internal/core/metrics"
	"github.com/stakegate/go-stakegate/internal/core/stake"
)

// Module 返回 Fx 模块
var Module = fx.Module("core/admission",
	fx.Provide(ProvideController),
)

// ModuleInput Fx 输入参数
type ModuleInput struct {
	fx.In
	Cfg    *config.Config
	Stakes stake.Source
	Stats  *metrics.Stats
}

// ProvideController 提供准入控制器
func ProvideController(in ModuleInput) (*Controller, error) {
	if err := in.Cfg.Admission.Validate(); err != nil {
		return nil, err
	}
	return NewController(in.Cfg.Admission, in.Stakes, in.Stats), nil
}
