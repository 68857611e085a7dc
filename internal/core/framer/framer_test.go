package framer

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakegate/go-stakegate/config"
	"github.com/stakegate/go-stakegate/internal/core/admission"
	"github.com/stakegate/go-stakegate/internal/core/stake"
	"github.com/stakegate/go-stakegate/pkg/types"
)

func testEntry(t *testing.T, weight uint64) *admission.Entry {
	t.Helper()

	table := admission.NewTable(config.DefaultAdmissionConfig())

	var id types.NodeID
	id[0] = byte(weight)
	id[1] = byte(weight >> 8)

	res, err := table.Admit(admission.AdmitRequest{
		Peer:   id,
		Addr:   &net.UDPAddr{IP: net.IPv4(127, 0, 0, byte(1+weight%200)), Port: 9000},
		Weight: weight,
		Cancel: func() {},
		Close:  func(admission.CloseReason) {},
	})
	require.NoError(t, err)
	return res.Entry
}

func TestStreamLimit_Unstaked(t *testing.T) {
	cfg := config.TransportConfig{MaxStreamsUnstaked: 8, MaxStreamsStaked: 512}
	stakes := stake.NewSnapshot()
	f := New(cfg, nil, stakes, nil, nil)

	assert.Equal(t, int64(8), f.streamLimit(testEntry(t, 0)))
}

func TestStreamLimit_ScalesWithStakeShare(t *testing.T) {
	cfg := config.TransportConfig{MaxStreamsUnstaked: 8, MaxStreamsStaked: 512}
	stakes := stake.NewSnapshot()

	a := testEntry(t, 250)
	b := testEntry(t, 750)
	stakes.Store(map[types.NodeID]uint64{
		a.Peer(): a.Weight(),
		b.Peer(): b.Weight(),
	})

	f := New(cfg, nil, stakes, nil, nil)

	// 25% 份额拿到基础配额加四分之一区间
	assert.Equal(t, int64(8+126), f.streamLimit(a))
	// 75% 份额拿到四分之三区间
	assert.Equal(t, int64(8+378), f.streamLimit(b))
}

func TestStreamLimit_SoleStakerGetsCeiling(t *testing.T) {
	cfg := config.TransportConfig{MaxStreamsUnstaked: 8, MaxStreamsStaked: 512}
	stakes := stake.NewSnapshot()

	e := testEntry(t, 1000)
	stakes.Store(map[types.NodeID]uint64{e.Peer(): e.Weight()})

	f := New(cfg, nil, stakes, nil, nil)
	assert.Equal(t, int64(512), f.streamLimit(e))
}

func TestStreamLimit_EmptySnapshotFallsBackToCeiling(t *testing.T) {
	// 快照尚未加载时，已验证的质押连接按上限配给
	cfg := config.TransportConfig{MaxStreamsUnstaked: 8, MaxStreamsStaked: 512}
	f := New(cfg, nil, stake.NewSnapshot(), nil, nil)

	assert.Equal(t, int64(512), f.streamLimit(testEntry(t, 42)))
}
