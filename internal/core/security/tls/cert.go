// Package tls 提供基于自签名证书的身份验证
//
// 对端信任不依赖任何 CA：证书由对端自己的 Ed25519 私钥签名，
// 身份（NodeID）从证书公钥派生，不可伪造。
package tls

import (
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/stakegate/go-stakegate/internal/core/identity"
)

// ALPNProtocol 入口协议的 ALPN 标识
const ALPNProtocol = "stakegate-tpu/1"

// nodeIDExtensionOID 是用于在证书扩展中存储 NodeID 的 OID
// 使用自定义 OID: 1.3.6.1.4.1.57264.1.1 (StakeGate Node ID)
// 注意：此扩展仅作为调试用途，NodeID 验证以公钥派生为准
var nodeIDExtensionOID = []int{1, 3, 6, 1, 4, 1, 57264, 1, 1}

// certValidity 自签名证书有效期
const certValidity = 180 * 24 * time.Hour

// GenerateCertificate 为本地身份生成自签名证书
//
// 证书直接使用 identity 私钥签名，NodeID 可从证书公钥派生。
// 注意：证书公钥必须与 identity 公钥一致，以保证身份不可伪造。
func GenerateCertificate(ident *identity.Identity) (*tls.Certificate, error) {
	if ident == nil {
		return nil, identity.ErrNoPrivateKey
	}

	priv := ident.PrivateKey()
	pub := ident.PublicKey()
	nodeID := ident.ID()

	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject: pkix.Name{
			Organization: []string{"StakeGate"},
			CommonName:   "StakeGate Node " + hex.EncodeToString(nodeID[:8]) + "...",
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(certValidity),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		// 在证书扩展中嵌入 NodeID（仅用于调试，验证以公钥派生为准）
		ExtraExtensions: []pkix.Extension{
			{
				Id:       nodeIDExtensionOID,
				Critical: false,
				Value:    nodeID[:],
			},
		},
	}

	// 创建自签名证书（Ed25519 直接用于 TLS 证书，Go 1.13+ 支持）
	certDER, err := x509.CreateCertificate(rand.Reader, template, template, pub, priv)
	if err != nil {
		return nil, fmt.Errorf("创建证书失败: %w", err)
	}

	leaf, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("解析证书失败: %w", err)
	}

	return &tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  priv,
		Leaf:        leaf,
	}, nil
}
