// Package identity 提供本地节点身份管理
//
// 身份是一把 Ed25519 密钥对；对外标识（NodeID）由公钥派生。
// TLS 证书直接使用该私钥签名，保证证书公钥与身份公钥一致。
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/stakegate/go-stakegate/pkg/types"
)

// 错误定义
var (
	// ErrInvalidKeySize 无效的密钥大小
	ErrInvalidKeySize = errors.New("identity: invalid key size")
	// ErrNoPrivateKey 未设置私钥
	ErrNoPrivateKey = errors.New("identity: no private key")
)

// Identity 本地节点身份
type Identity struct {
	priv ed25519.PrivateKey
	id   types.NodeID
}

// Generate 生成新的随机身份
func Generate() (*Identity, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return FromPrivateKey(priv)
}

// FromPrivateKey 从已有私钥创建身份
func FromPrivateKey(priv ed25519.PrivateKey) (*Identity, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, ErrInvalidKeySize
	}
	pub := priv.Public().(ed25519.PublicKey)
	return &Identity{
		priv: priv,
		id:   NodeIDFromPublicKey(pub),
	}, nil
}

// FromSeed 从 32 字节种子创建身份（确定性，用于测试与密钥文件）
func FromSeed(seed []byte) (*Identity, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, ErrInvalidKeySize
	}
	return FromPrivateKey(ed25519.NewKeyFromSeed(seed))
}

// ID 返回节点标识
func (i *Identity) ID() types.NodeID {
	return i.id
}

// PrivateKey 返回私钥
func (i *Identity) PrivateKey() ed25519.PrivateKey {
	return i.priv
}

// PublicKey 返回公钥
func (i *Identity) PublicKey() ed25519.PublicKey {
	return i.priv.Public().(ed25519.PublicKey)
}

// NodeIDFromPublicKey 从公钥派生 NodeID
//
// 使用 SHA256(原始 32 字节公钥) 作为 NodeID。
// 这确保了 NodeID 与公钥之间的唯一对应关系，身份不可伪造。
func NodeIDFromPublicKey(pub ed25519.PublicKey) types.NodeID {
	return deriveNodeID(pub)
}
