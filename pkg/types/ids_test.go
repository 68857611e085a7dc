package types

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeID_String(t *testing.T) {
	sum := sha256.Sum256([]byte("peer-1"))
	id := NodeID(sum)

	s := id.String()
	assert.NotEmpty(t, s)

	// Base58 字符串应当能还原出同一个 ID
	parsed, err := NodeIDFromString(s)
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestNodeID_ShortString(t *testing.T) {
	sum := sha256.Sum256([]byte("peer-2"))
	id := NodeID(sum)

	short := id.ShortString()
	assert.Len(t, short, 8)
	assert.Equal(t, id.String()[:8], short)
}

func TestNodeIDFromBytes(t *testing.T) {
	sum := sha256.Sum256([]byte("peer-3"))

	id, err := NodeIDFromBytes(sum[:])
	require.NoError(t, err)
	assert.Equal(t, sum[:], id.Bytes())

	// 长度不对
	_, err = NodeIDFromBytes(sum[:16])
	assert.ErrorIs(t, err, ErrInvalidNodeID)
}

func TestNodeIDFromString_Invalid(t *testing.T) {
	// 非法 base58 字符
	_, err := NodeIDFromString("0OIl")
	assert.Error(t, err)

	// 合法 base58 但长度不足
	_, err = NodeIDFromString("abc")
	assert.ErrorIs(t, err, ErrInvalidNodeID)
}

func TestNodeID_IsEmpty(t *testing.T) {
	var zero NodeID
	assert.True(t, zero.IsEmpty())

	sum := sha256.Sum256([]byte("peer-4"))
	assert.False(t, NodeID(sum).IsEmpty())
}

func TestPacket_Staked(t *testing.T) {
	p := Packet{Weight: 0}
	assert.False(t, p.Staked())

	p.Weight = 1
	assert.True(t, p.Staked())
}

func TestPacketBatch_Bytes(t *testing.T) {
	batch := PacketBatch{
		Packets: []Packet{
			{Payload: make([]byte, 100)},
			{Payload: make([]byte, 232)},
		},
	}
	assert.Equal(t, 2, batch.Len())
	assert.Equal(t, 332, batch.Bytes())
}
