package tls

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"time"

	"github.com/stakegate/go-stakegate/pkg/types"
)

// VerifyPeerCertificate 验证对端证书并作为 tls.Config 回调使用
//
// 验证逻辑（强绑定）：
//  1. 验证证书自签名（签名必须能用证书自带的公钥验证）
//  2. 从证书公钥派生 NodeID（唯一可信来源，不可伪造）
//  3. 若证书带有 NodeID 扩展，则扩展值必须等于派生值（防止扩展被篡改）
//  4. 验证证书有效期
//
// 不做 CA 路径构建，不做吊销检查。握手的 CertificateVerify
// 只证明对端持有叶子私钥，不校验证书本身的签名，自签名
// 校验必须在这里做。所有解析失败都是可恢复错误，绝不 panic。
func VerifyPeerCertificate(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	_, err := PeerIDFromRawCerts(rawCerts)
	return err
}

// PeerIDFromRawCerts 从原始证书字节提取经验证的 NodeID
func PeerIDFromRawCerts(rawCerts [][]byte) (types.NodeID, error) {
	if len(rawCerts) == 0 {
		return types.EmptyNodeID, ErrNoCertificate
	}

	cert, err := x509.ParseCertificate(rawCerts[0])
	if err != nil {
		return types.EmptyNodeID, fmt.Errorf("%w: %v", ErrCertificateParse, err)
	}

	// 1. 自签名校验：签名必须能用证书自带的公钥验证
	if err := cert.CheckSignature(cert.SignatureAlgorithm, cert.RawTBSCertificate, cert.Signature); err != nil {
		return types.EmptyNodeID, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	// 2. 从证书公钥派生 NodeID
	derivedID, err := deriveNodeIDFromCertPublicKey(cert)
	if err != nil {
		return types.EmptyNodeID, err
	}

	// 3. 若证书带有 NodeID 扩展，扩展值必须与派生值一致
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(nodeIDExtensionOID) {
			if len(ext.Value) != 32 {
				return types.EmptyNodeID, fmt.Errorf("%w: 扩展长度 %d", ErrNodeIDMismatch, len(ext.Value))
			}
			extensionID, err := types.NodeIDFromBytes(ext.Value)
			if err != nil {
				return types.EmptyNodeID, fmt.Errorf("%w: %v", ErrNodeIDMismatch, err)
			}
			if !extensionID.Equal(derivedID) {
				return types.EmptyNodeID, fmt.Errorf("%w: 扩展 %s, 派生 %s",
					ErrNodeIDMismatch, extensionID.ShortString(), derivedID.ShortString())
			}
			break
		}
	}

	// 4. 验证证书有效期
	now := time.Now()
	if now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
		return types.EmptyNodeID, fmt.Errorf("%w: NotBefore=%v NotAfter=%v",
			ErrCertificateExpired, cert.NotBefore, cert.NotAfter)
	}

	return derivedID, nil
}

// PeerIDFromTLSState 从 TLS 连接状态提取经验证的 NodeID
func PeerIDFromTLSState(state tls.ConnectionState) (types.NodeID, error) {
	if len(state.PeerCertificates) == 0 {
		return types.EmptyNodeID, ErrNoCertificate
	}
	return deriveNodeIDFromCertPublicKey(state.PeerCertificates[0])
}

// deriveNodeIDFromCertPublicKey 从证书公钥派生 NodeID
//
// 派生规则与 identity 模块保持一致：
// NodeID = SHA256(原始 32 字节 Ed25519 公钥)。
// 仅接受 Ed25519：入口只信任质押体系使用的密钥类型。
func deriveNodeIDFromCertPublicKey(cert *x509.Certificate) (types.NodeID, error) {
	pub, ok := cert.PublicKey.(ed25519.PublicKey)
	if !ok {
		return types.EmptyNodeID, fmt.Errorf("%w: %T", ErrUnsupportedKeyType, cert.PublicKey)
	}
	hash := sha256.Sum256(pub)
	return types.NodeID(hash), nil
}
