package stake

import "go.uber.org/fx"

// Module 返回 Fx 模块
var Module = fx.Module("core/stake",
	fx.Provide(
		NewSnapshot,
		func(s *Snapshot) Source { return s },
	),
)
