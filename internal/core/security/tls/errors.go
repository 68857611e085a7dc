package tls

import "errors"

// 证书验证错误定义
var (
	// ErrNoCertificate 对端未提供证书
	ErrNoCertificate = errors.New("tls: no peer certificate")

	// ErrCertificateParse 证书解析失败
	ErrCertificateParse = errors.New("tls: certificate parse failed")

	// ErrUnsupportedKeyType 不支持的公钥类型
	ErrUnsupportedKeyType = errors.New("tls: unsupported public key type")

	// ErrInvalidSignature 证书自签名校验失败
	ErrInvalidSignature = errors.New("tls: certificate self-signature invalid")

	// ErrCertificateExpired 证书不在有效期内
	ErrCertificateExpired = errors.New("tls: certificate outside validity window")

	// ErrNodeIDMismatch 证书扩展与公钥派生的 NodeID 不一致
	ErrNodeIDMismatch = errors.New("tls: node ID extension mismatch")
)
