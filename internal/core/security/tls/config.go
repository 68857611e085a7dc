package tls

import (
	"crypto/tls"
	"fmt"
	"sync/atomic"

	"github.com/stakegate/go-stakegate/internal/core/identity"
)

// ConfigManager 持有服务端 TLS 配置并支持热更新
//
// 身份密钥轮换时重建证书与配置；正在握手/已建立的连接
// 不受影响，后续握手使用新配置。
type ConfigManager struct {
	current atomic.Pointer[tls.Config]
}

// NewConfigManager 从本地身份创建配置管理器
func NewConfigManager(ident *identity.Identity) (*ConfigManager, error) {
	m := &ConfigManager{}
	if err := m.Rotate(ident); err != nil {
		return nil, err
	}
	return m, nil
}

// ServerConfig 返回用于 QUIC 监听的 TLS 配置
//
// 通过 GetConfigForClient 间接取当前配置，使 Rotate 对
// 存活的监听器即时生效。
func (m *ConfigManager) ServerConfig() *tls.Config {
	return &tls.Config{
		GetConfigForClient: func(*tls.ClientHelloInfo) (*tls.Config, error) {
			return m.current.Load(), nil
		},
		// 下列字段仅作 ClientHello 前的占位，实际配置来自 GetConfigForClient
		MinVersion: tls.VersionTLS13,
		NextProtos: []string{ALPNProtocol},
	}
}

// Rotate 用新身份重建 TLS 配置
func (m *ConfigManager) Rotate(ident *identity.Identity) error {
	cfg, err := newServerConfig(ident)
	if err != nil {
		return err
	}
	m.current.Store(cfg)
	return nil
}

// newServerConfig 生成服务端 TLS 配置
//
// 安全说明：
//   - 不设置 ClientCAs：没有 CA 可以验证自签名证书
//   - RequireAnyClientCert + VerifyPeerCertificate 保证每个对端
//     必须出示凭证，且身份绑定由公钥派生验证
//   - 强制 TLS 1.3
func newServerConfig(ident *identity.Identity) (*tls.Config, error) {
	cert, err := GenerateCertificate(ident)
	if err != nil {
		return nil, fmt.Errorf("生成服务端证书失败: %w", err)
	}

	return &tls.Config{
		Certificates:          []tls.Certificate{*cert},
		MinVersion:            tls.VersionTLS13,
		NextProtos:            []string{ALPNProtocol},
		ClientAuth:            tls.RequireAnyClientCert,
		VerifyPeerCertificate: VerifyPeerCertificate,
	}, nil
}

// NewClientConfig 生成客户端 TLS 配置（用于测试与回环验证）
//
// InsecureSkipVerify 禁用标准 CA 验证；服务端身份由
// VerifyPeerCertificate 的公钥派生规则保证。
func NewClientConfig(ident *identity.Identity) (*tls.Config, error) {
	cert, err := GenerateCertificate(ident)
	if err != nil {
		return nil, fmt.Errorf("生成客户端证书失败: %w", err)
	}

	return &tls.Config{
		Certificates:          []tls.Certificate{*cert},
		MinVersion:            tls.VersionTLS13,
		NextProtos:            []string{ALPNProtocol},
		InsecureSkipVerify:    true,
		VerifyPeerCertificate: VerifyPeerCertificate,
	}, nil
}
