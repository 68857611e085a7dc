package config

import (
	"errors"
	"time"
)

// ============================================================================
//                              监听配置
// ============================================================================

// ListenConfig 监听端点配置
type ListenConfig struct {
	// Addr UDP 监听地址，"host:port" 格式
	Addr string `json:"addr"`
}

// DefaultListenConfig 返回默认监听配置
func DefaultListenConfig() ListenConfig {
	return ListenConfig{
		Addr: "0.0.0.0:8009",
	}
}

// Validate 校验监听配置
func (c *ListenConfig) Validate() error {
	if c.Addr == "" {
		return errors.New("listen addr is empty")
	}
	return nil
}

// ============================================================================
//                              传输配置
// ============================================================================

// TransportConfig QUIC 传输参数
type TransportConfig struct {
	// MaxPacketBytes 单个数据包（即单条流负载）的最大字节数
	// 同时作为流和连接的接收窗口，限制单连接内存占用
	MaxPacketBytes int `json:"max_packet_bytes"`

	// HandshakeTimeout 握手必须在此时限内完成
	HandshakeTimeout time.Duration `json:"handshake_timeout"`

	// IdleTimeout 无流活动超过此时长的连接被关闭
	IdleTimeout time.Duration `json:"idle_timeout"`

	// StreamReadTimeout 单条流两次读取之间的最大间隔
	StreamReadTimeout time.Duration `json:"stream_read_timeout"`

	// MaxStreamsUnstaked 无质押连接的并发单向流上限
	MaxStreamsUnstaked int64 `json:"max_streams_unstaked"`

	// MaxStreamsStaked 有质押连接的并发单向流上限
	MaxStreamsStaked int64 `json:"max_streams_staked"`
}

// DefaultTransportConfig 返回默认传输配置
//
// 接收窗口等于最大包长：发送方想推进窗口就必须结束当前流，
// 天然限制了单流缓冲的内存上界。
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		MaxPacketBytes:     1232,
		HandshakeTimeout:   2 * time.Second,
		IdleTimeout:        2 * time.Second,
		StreamReadTimeout:  2 * time.Second,
		MaxStreamsUnstaked: 128,
		MaxStreamsStaked:   512,
	}
}

// Validate 校验传输配置
func (c *TransportConfig) Validate() error {
	if c.MaxPacketBytes <= 0 {
		return errors.New("max packet bytes must be positive")
	}
	if c.HandshakeTimeout <= 0 || c.IdleTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.MaxStreamsUnstaked <= 0 || c.MaxStreamsStaked < c.MaxStreamsUnstaked {
		return errors.New("stream limits must satisfy 0 < unstaked <= staked")
	}
	return nil
}

// ============================================================================
//                              准入配置
// ============================================================================

// AdmissionConfig 连接准入配置
type AdmissionConfig struct {
	// MaxConnections 连接表总容量
	MaxConnections int `json:"max_connections"`

	// MaxStakedConnections 有质押连接池容量
	MaxStakedConnections int `json:"max_staked_connections"`

	// MaxUnstakedConnections 无质押连接池容量
	MaxUnstakedConnections int `json:"max_unstaked_connections"`

	// MaxPerAddr 单个远端 IP 的连接数上限（与质押无关）
	MaxPerAddr int `json:"max_per_addr"`

	// DrainTimeout 被驱逐连接从 Draining 到强制关闭的时限
	DrainTimeout time.Duration `json:"drain_timeout"`

	// RejectBackoff 被拒绝/被驱逐身份的重连退避窗口
	// 为零时关闭退避缓存
	RejectBackoff time.Duration `json:"reject_backoff"`

	// RejectCacheSize 退避缓存容量
	RejectCacheSize int `json:"reject_cache_size"`
}

// DefaultAdmissionConfig 返回默认准入配置
//
// 池容量沿用验证者入口的常见配比：有质押池远大于无质押池。
func DefaultAdmissionConfig() AdmissionConfig {
	return AdmissionConfig{
		MaxConnections:         2500,
		MaxStakedConnections:   2000,
		MaxUnstakedConnections: 500,
		MaxPerAddr:             8,
		DrainTimeout:           300 * time.Millisecond,
		RejectBackoff:          10 * time.Second,
		RejectCacheSize:        1024,
	}
}

// Validate 校验准入配置
func (c *AdmissionConfig) Validate() error {
	if c.MaxConnections <= 0 {
		return errors.New("max connections must be positive")
	}
	if c.MaxStakedConnections+c.MaxUnstakedConnections > c.MaxConnections {
		return errors.New("class pools exceed max connections")
	}
	if c.MaxPerAddr <= 0 {
		return errors.New("max per addr must be positive")
	}
	if c.DrainTimeout <= 0 {
		return errors.New("drain timeout must be positive")
	}
	if c.RejectBackoff < 0 || c.RejectCacheSize < 0 {
		return errors.New("reject backoff settings must be non-negative")
	}
	return nil
}

// ============================================================================
//                              限速配置
// ============================================================================

// RateLimitConfig 令牌桶限速配置
//
// 公平性约束：StakedRPS 相对 UnstakedRPS 必须足够高，
// 使无质押洪泛打满其桶时不影响有质押吞吐。
type RateLimitConfig struct {
	// StakedRPS 有质押类每秒补充令牌数
	StakedRPS float64 `json:"staked_rps"`

	// StakedBurst 有质押类桶容量
	StakedBurst int `json:"staked_burst"`

	// UnstakedRPS 无质押类每秒补充令牌数
	UnstakedRPS float64 `json:"unstaked_rps"`

	// UnstakedBurst 无质押类桶容量
	UnstakedBurst int `json:"unstaked_burst"`

	// PerPeer 是否启用按身份细分的令牌桶
	// 启用后每个身份独享一个桶，参数按其权重类取值
	PerPeer bool `json:"per_peer"`

	// PerPeerCacheSize 按身份桶的缓存容量（仅 PerPeer 启用时有效）
	PerPeerCacheSize int `json:"per_peer_cache_size"`
}

// DefaultRateLimitConfig 返回默认限速配置
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		StakedRPS:        100000,
		StakedBurst:      20000,
		UnstakedRPS:      2000,
		UnstakedBurst:    500,
		PerPeer:          false,
		PerPeerCacheSize: 4096,
	}
}

// Validate 校验限速配置
func (c *RateLimitConfig) Validate() error {
	if c.StakedRPS <= 0 || c.UnstakedRPS <= 0 {
		return errors.New("refill rates must be positive")
	}
	if c.StakedBurst <= 0 || c.UnstakedBurst <= 0 {
		return errors.New("bursts must be positive")
	}
	if c.StakedRPS < c.UnstakedRPS {
		return errors.New("staked rate must not be below unstaked rate")
	}
	if c.PerPeer && c.PerPeerCacheSize <= 0 {
		return errors.New("per peer cache size must be positive")
	}
	return nil
}

// ============================================================================
//                              批处理配置
// ============================================================================

// BatchConfig 数据包批处理配置
type BatchConfig struct {
	// MaxPackets 单批数据包数量上限
	MaxPackets int `json:"max_packets"`

	// Coalesce 自批内首包起的最大等待时长
	Coalesce time.Duration `json:"coalesce"`

	// ChannelDepth 下游批次通道容量
	ChannelDepth int `json:"channel_depth"`

	// PublishTimeout 通道满时发布批次的有界等待；超时丢弃整批
	PublishTimeout time.Duration `json:"publish_timeout"`
}

// DefaultBatchConfig 返回默认批处理配置
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxPackets:     64,
		Coalesce:       time.Millisecond,
		ChannelDepth:   256,
		PublishTimeout: 100 * time.Millisecond,
	}
}

// Validate 校验批处理配置
func (c *BatchConfig) Validate() error {
	if c.MaxPackets <= 0 {
		return errors.New("max packets must be positive")
	}
	if c.Coalesce <= 0 || c.PublishTimeout <= 0 {
		return errors.New("batch timings must be positive")
	}
	if c.ChannelDepth <= 0 {
		return errors.New("channel depth must be positive")
	}
	return nil
}
