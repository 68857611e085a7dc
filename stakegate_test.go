package stakegate

import (
	"context"
	"crypto/tls"
	"testing"
	"time"

	quicgo "github.com/quic-go/quic-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakegate/go-stakegate/internal/core/identity"
	stakegatetls "github.com/stakegate/go-stakegate/internal/core/security/tls"
	"github.com/stakegate/go-stakegate/pkg/types"
)

func startTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()

	opts = append([]Option{WithListenAddr("127.0.0.1:0")}, opts...)
	srv, err := New(opts...)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, srv.Start(ctx))

	t.Cleanup(func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		_ = srv.Close(closeCtx)
	})
	return srv
}

func dialTestServer(t *testing.T, srv *Server, ident *identity.Identity) *quicgo.Conn {
	t.Helper()

	tlsConf, err := stakegatetls.NewClientConfig(ident)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := quicgo.DialAddr(ctx, srv.Addr().String(), tlsConf, nil)
	require.NoError(t, err)
	return conn
}

func sendPacket(t *testing.T, conn *quicgo.Conn, payload []byte) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := conn.OpenUniStreamSync(ctx)
	require.NoError(t, err)
	_, err = stream.Write(payload)
	require.NoError(t, err)
	require.NoError(t, stream.Close())
}

// collectPackets 从批次通道凑齐 n 个数据包
func collectPackets(t *testing.T, srv *Server, n int) []types.Packet {
	t.Helper()

	var packets []types.Packet
	deadline := time.After(5 * time.Second)
	for len(packets) < n {
		select {
		case batch, ok := <-srv.Batches():
			require.True(t, ok, "批次通道提前关闭")
			packets = append(packets, batch.Packets...)
		case <-deadline:
			t.Fatalf("等待数据包超时: 收到 %d/%d", len(packets), n)
		}
	}
	return packets
}

func TestServer_StartClose(t *testing.T) {
	srv := startTestServer(t)

	assert.Equal(t, StateRunning, srv.State())
	assert.NotNil(t, srv.Addr())
	assert.False(t, srv.NodeID().IsEmpty())

	// 重复启动
	err := srv.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Close(closeCtx))
	assert.Equal(t, StateStopped, srv.State())

	// 关闭后不可重启
	err = srv.Start(context.Background())
	assert.ErrorIs(t, err, ErrServerClosed)
}

func TestServer_StakedClientEndToEnd(t *testing.T) {
	client, err := identity.Generate()
	require.NoError(t, err)

	srv := startTestServer(t, WithStakes(map[types.NodeID]uint64{
		client.ID(): 100,
	}))

	conn := dialTestServer(t, srv, client)
	defer func() { _ = conn.CloseWithError(0, "") }()

	// 三条流三个包
	payloads := [][]byte{
		{0x01, 0x01, 0x01},
		{0x02, 0x02},
		{0x03},
	}
	for _, p := range payloads {
		sendPacket(t, conn, p)
	}

	packets := collectPackets(t, srv, 3)

	seen := map[int]bool{}
	for _, p := range packets {
		// 身份与权重来自准入时刻的快照
		assert.Equal(t, client.ID(), p.Peer)
		assert.Equal(t, uint64(100), p.Weight)
		assert.True(t, p.Staked())
		seen[len(p.Payload)] = true
	}
	assert.Len(t, seen, 3, "三个不同长度的负载都应到达")

	t.Log("✅ 有质押客户端端到端收包成功")
}

func TestServer_UnstakedClientAdmitted(t *testing.T) {
	client, err := identity.Generate()
	require.NoError(t, err)

	srv := startTestServer(t)

	conn := dialTestServer(t, srv, client)
	defer func() { _ = conn.CloseWithError(0, "") }()

	sendPacket(t, conn, []byte("hello"))

	packets := collectPackets(t, srv, 1)
	assert.Equal(t, client.ID(), packets[0].Peer)
	assert.Zero(t, packets[0].Weight)
	assert.False(t, packets[0].Staked())
}

func TestServer_ClientWithoutCertRejected(t *testing.T) {
	srv := startTestServer(t)

	// 不带客户端证书的握手应失败
	tlsConf := &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{stakegatetls.ALPNProtocol},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	conn, err := quicgo.DialAddr(ctx, srv.Addr().String(), tlsConf, nil)
	if err == nil {
		// 有些栈把证书校验推迟到第一次收发，此时连接会很快被关闭
		_ = conn.CloseWithError(0, "")
	}
	assert.Error(t, err)
}

func TestServer_OversizePacketDropped(t *testing.T) {
	client, err := identity.Generate()
	require.NoError(t, err)

	srv := startTestServer(t, WithStakes(map[types.NodeID]uint64{
		client.ID(): 100,
	}))

	conn := dialTestServer(t, srv, client)
	defer func() { _ = conn.CloseWithError(0, "") }()

	// 超限包被丢弃，不影响同连接后续的流
	big := make([]byte, 4096)
	stream, err := conn.OpenUniStreamSync(context.Background())
	require.NoError(t, err)
	_, _ = stream.Write(big)
	_ = stream.Close()

	sendPacket(t, conn, []byte("ok"))

	packets := collectPackets(t, srv, 1)
	assert.Equal(t, []byte("ok"), packets[0].Payload)

	t.Log("✅ 超限流被隔离，连接保持可用")
}

func TestServer_UpdateStakes(t *testing.T) {
	client, err := identity.Generate()
	require.NoError(t, err)

	srv := startTestServer(t)

	require.NoError(t, srv.UpdateStakes(map[types.NodeID]uint64{
		client.ID(): 42,
	}))

	conn := dialTestServer(t, srv, client)
	defer func() { _ = conn.CloseWithError(0, "") }()

	sendPacket(t, conn, []byte("x"))

	packets := collectPackets(t, srv, 1)
	assert.Equal(t, uint64(42), packets[0].Weight)
}

func TestServer_UpdateIdentity(t *testing.T) {
	srv := startTestServer(t)
	before := srv.NodeID()

	next, err := identity.Generate()
	require.NoError(t, err)
	require.NoError(t, srv.UpdateIdentity(next))

	assert.Equal(t, next.ID(), srv.NodeID())
	assert.NotEqual(t, before, srv.NodeID())

	// 轮换后新客户端仍能正常握手收包
	client, err := identity.Generate()
	require.NoError(t, err)
	conn := dialTestServer(t, srv, client)
	defer func() { _ = conn.CloseWithError(0, "") }()

	sendPacket(t, conn, []byte("y"))
	packets := collectPackets(t, srv, 1)
	assert.Equal(t, client.ID(), packets[0].Peer)
}

func TestServer_ConnectionCount(t *testing.T) {
	client, err := identity.Generate()
	require.NoError(t, err)

	srv := startTestServer(t)
	assert.Zero(t, srv.ConnectionCount())

	conn := dialTestServer(t, srv, client)
	defer func() { _ = conn.CloseWithError(0, "") }()

	sendPacket(t, conn, []byte("z"))
	_ = collectPackets(t, srv, 1)

	assert.Equal(t, 1, srv.ConnectionCount())
}
