package quic

import (
	"go.uber.org/fx"

	"github.com/stakegate/go-stakegate/config"
	stakegatetls "github.com/stakegate/go-stakegate/internal/core/security/tls"
)

// Module 返回 Fx 模块
var Module = fx.Module("core/transport/quic",
	fx.Provide(ProvideEndpoint),
)

// ProvideEndpoint 提供监听端点
//
// 构造即绑定端口；关闭由上层生命周期钩子负责。
func ProvideEndpoint(cfg *config.Config, tlsMgr *stakegatetls.ConfigManager) (*Endpoint, error) {
	if err := cfg.Transport.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Listen.Validate(); err != nil {
		return nil, err
	}
	return Listen(cfg.Listen.Addr, cfg.Transport, tlsMgr)
}
