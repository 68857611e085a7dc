// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 调用方通过根包的 Option 函数修改配置
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Admission.MaxConnections = 4096
//	if err := cfg.Validate(); err != nil { ... }
package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig 配置无效
var ErrInvalidConfig = errors.New("config: invalid config")

// Config 是 StakeGate 的完整配置结构
//
// 配置按照功能模块组织：
//   - Listen: 监听端点
//   - Transport: QUIC 传输参数
//   - Admission: 连接准入
//   - RateLimit: 令牌桶限速
//   - Batch: 数据包批处理
type Config struct {
	// Listen 监听配置
	Listen ListenConfig `json:"listen"`

	// Transport 传输层配置
	Transport TransportConfig `json:"transport"`

	// Admission 连接准入配置
	Admission AdmissionConfig `json:"admission"`

	// RateLimit 限速配置
	RateLimit RateLimitConfig `json:"rate_limit"`

	// Batch 批处理配置
	Batch BatchConfig `json:"batch"`
}

// NewConfig 创建带默认值的配置
func NewConfig() *Config {
	return &Config{
		Listen:    DefaultListenConfig(),
		Transport: DefaultTransportConfig(),
		Admission: DefaultAdmissionConfig(),
		RateLimit: DefaultRateLimitConfig(),
		Batch:     DefaultBatchConfig(),
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	for _, v := range []interface{ Validate() error }{
		&c.Listen,
		&c.Transport,
		&c.Admission,
		&c.RateLimit,
		&c.Batch,
	} {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}
