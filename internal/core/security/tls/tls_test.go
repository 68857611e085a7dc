package tls

import (
	"crypto/x509"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakegate/go-stakegate/internal/core/identity"
)

func TestGenerateCertificate(t *testing.T) {
	ident, err := identity.Generate()
	require.NoError(t, err)

	cert, err := GenerateCertificate(ident)
	require.NoError(t, err)
	require.Len(t, cert.Certificate, 1)

	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)

	// 自签名且处于有效期内
	assert.True(t, time.Now().After(parsed.NotBefore))
	assert.True(t, time.Now().Before(parsed.NotAfter))
}

func TestPeerIDFromRawCerts(t *testing.T) {
	ident, err := identity.Generate()
	require.NoError(t, err)

	cert, err := GenerateCertificate(ident)
	require.NoError(t, err)

	// 证书公钥应还原出生成者的 NodeID
	id, err := PeerIDFromRawCerts(cert.Certificate)
	require.NoError(t, err)
	assert.Equal(t, ident.ID(), id)
}

func TestPeerIDFromRawCerts_CorruptedSignature(t *testing.T) {
	ident, err := identity.Generate()
	require.NoError(t, err)

	cert, err := GenerateCertificate(ident)
	require.NoError(t, err)

	// DER 末尾落在签名 BIT STRING 内：翻转一个字节后
	// 证书仍可解析，但自签名校验必须失败
	raw := make([]byte, len(cert.Certificate[0]))
	copy(raw, cert.Certificate[0])
	raw[len(raw)-1] ^= 0xFF

	_, err = PeerIDFromRawCerts([][]byte{raw})
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Error(t, VerifyPeerCertificate([][]byte{raw}, nil))
}

func TestPeerIDFromRawCerts_Empty(t *testing.T) {
	_, err := PeerIDFromRawCerts(nil)
	assert.ErrorIs(t, err, ErrNoCertificate)
}

func TestPeerIDFromRawCerts_Garbage(t *testing.T) {
	_, err := PeerIDFromRawCerts([][]byte{{0x01, 0x02, 0x03}})
	assert.ErrorIs(t, err, ErrCertificateParse)
}

func TestVerifyPeerCertificate(t *testing.T) {
	ident, err := identity.Generate()
	require.NoError(t, err)

	cert, err := GenerateCertificate(ident)
	require.NoError(t, err)

	assert.NoError(t, VerifyPeerCertificate(cert.Certificate, nil))
	assert.Error(t, VerifyPeerCertificate(nil, nil))
}

func TestConfigManager_Rotate(t *testing.T) {
	ident, err := identity.Generate()
	require.NoError(t, err)

	mgr, err := NewConfigManager(ident)
	require.NoError(t, err)

	before := mgr.ServerConfig()
	require.NotNil(t, before)
	assert.Contains(t, before.NextProtos, ALPNProtocol)

	// 轮换后新握手拿到新证书，ServerConfig 引用保持有效
	next, err := identity.Generate()
	require.NoError(t, err)
	require.NoError(t, mgr.Rotate(next))

	inner, err := before.GetConfigForClient(nil)
	require.NoError(t, err)
	require.Len(t, inner.Certificates, 1)

	id, err := PeerIDFromRawCerts(inner.Certificates[0].Certificate)
	require.NoError(t, err)
	assert.Equal(t, next.ID(), id)
}
