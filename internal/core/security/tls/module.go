package tls

import "go.uber.org/fx"

// Module 返回 Fx 模块
var Module = fx.Module("core/security/tls",
	fx.Provide(NewConfigManager),
)
