package identity

import (
	"crypto/ed25519"
	"crypto/sha256"

	"github.com/stakegate/go-stakegate/pkg/types"
)

// deriveNodeID 从原始公钥字节派生 NodeID
//
// 派生规则在 identity 与 security/tls 两处必须保持一致：
// NodeID = SHA256(原始 32 字节 Ed25519 公钥)。
func deriveNodeID(pub ed25519.PublicKey) types.NodeID {
	hash := sha256.Sum256(pub)
	return types.NodeID(hash)
}
