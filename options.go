package stakegate

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/stakegate/go-stakegate/config"
	"github.com/stakegate/go-stakegate/internal/core/identity"
	"github.com/stakegate/go-stakegate/pkg/types"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	cfg *config.Config

	// 身份配置
	ident *identity.Identity

	// 初始质押权重表
	stakes map[types.NodeID]uint64

	// 指标注册表（可选）
	registry *prometheus.Registry
}

// defaultOptions 返回默认选项
func defaultOptions() *options {
	return &options{
		cfg: config.NewConfig(),
	}
}

// WithConfig 使用完整配置
//
// 与其他选项组合时，后应用的选项覆盖先应用的。
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("配置不能为空")
		}
		o.cfg = cfg
		return nil
	}
}

// WithListenAddr 设置监听地址（host:port）
func WithListenAddr(addr string) Option {
	return func(o *options) error {
		if addr == "" {
			return fmt.Errorf("监听地址不能为空")
		}
		o.cfg.Listen.Addr = addr
		return nil
	}
}

// WithIdentity 使用给定的身份私钥
//
// 未设置时启动会生成临时身份。
func WithIdentity(ident *identity.Identity) Option {
	return func(o *options) error {
		if ident == nil {
			return fmt.Errorf("身份不能为空")
		}
		o.ident = ident
		return nil
	}
}

// WithStakes 设置初始质押权重表
//
// 运行期可通过 Server.UpdateStakes 更新。
func WithStakes(weights map[types.NodeID]uint64) Option {
	return func(o *options) error {
		o.stakes = weights
		return nil
	}
}

// WithMetricsRegistry 将指标注册到给定的 Prometheus 注册表
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(o *options) error {
		if reg == nil {
			return fmt.Errorf("注册表不能为空")
		}
		o.registry = reg
		return nil
	}
}

// WithMaxConnections 设置连接表总容量
func WithMaxConnections(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("无效的连接容量: %d", n)
		}
		o.cfg.Admission.MaxConnections = n
		return nil
	}
}

// WithMaxPerAddr 设置单地址连接上限
func WithMaxPerAddr(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("无效的单地址上限: %d", n)
		}
		o.cfg.Admission.MaxPerAddr = n
		return nil
	}
}
