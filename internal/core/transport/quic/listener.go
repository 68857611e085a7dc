// Package quic 实现服务端 QUIC 传输
//
// 使用共享的 UDP socket 与 quic.Transport：接收窗口压到
// 单包大小，禁用双向流，这些参数共同构成对未准入对端的
// 资源防线。
package quic

import (
	"context"
	"net"
	"sync/atomic"

	"github.com/quic-go/quic-go"
	"go.uber.org/multierr"

	"github.com/stakegate/go-stakegate/config"
	stakegatetls "github.com/stakegate/go-stakegate/internal/core/security/tls"
	"github.com/stakegate/go-stakegate/pkg/lib/log"
)

var logger = log.Logger("core/transport/quic")

// Endpoint 服务端 QUIC 端点
//
// 持有 UDP socket、QUIC Transport 与监听器。TLS 配置经由
// ConfigManager 间接获取，身份轮换无需重建监听器。
type Endpoint struct {
	cfg config.TransportConfig

	udpConn       *net.UDPConn
	quicTransport *quic.Transport
	listener      *quic.Listener

	closed atomic.Bool
}

// Listen 在 addr 上创建端点并开始监听
func Listen(addr string, cfg config.TransportConfig, tlsMgr *stakegatetls.ConfigManager) (*Endpoint, error) {
	if tlsMgr == nil {
		return nil, ErrNoIdentity
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	udpConn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}

	tr := &quic.Transport{Conn: udpConn}
	ln, err := tr.Listen(tlsMgr.ServerConfig(), quicConfig(cfg))
	if err != nil {
		closeErr := udpConn.Close()
		return nil, multierr.Append(err, closeErr)
	}

	logger.Info("监听已就绪", "addr", udpConn.LocalAddr())

	return &Endpoint{
		cfg:           cfg,
		udpConn:       udpConn,
		quicTransport: tr,
		listener:      ln,
	}, nil
}

// quicConfig 由传输配置生成 QUIC 参数
//
// 接收窗口固定为单包大小：未准入的对端在握手完成前
// 最多只能压入一个包的数据。
func quicConfig(cfg config.TransportConfig) *quic.Config {
	window := uint64(cfg.MaxPacketBytes)
	return &quic.Config{
		MaxIdleTimeout:       cfg.IdleTimeout,
		HandshakeIdleTimeout: cfg.HandshakeTimeout,

		// 只接受单向流，双向流直接拒绝
		MaxIncomingStreams:    -1,
		MaxIncomingUniStreams: cfg.MaxStreamsStaked,

		InitialStreamReceiveWindow:     window,
		MaxStreamReceiveWindow:         window,
		InitialConnectionReceiveWindow: window,
		MaxConnectionReceiveWindow:     window,
	}
}

// Accept 接受一条完成握手的连接
func (e *Endpoint) Accept(ctx context.Context) (*quic.Conn, error) {
	if e.closed.Load() {
		return nil, ErrListenerClosed
	}
	conn, err := e.listener.Accept(ctx)
	if err != nil {
		if e.closed.Load() {
			return nil, ErrListenerClosed
		}
		return nil, err
	}
	return conn, nil
}

// Addr 返回实际监听地址
func (e *Endpoint) Addr() net.Addr {
	return e.udpConn.LocalAddr()
}

// Close 关闭监听器与底层 socket
func (e *Endpoint) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	var errs error
	if err := e.listener.Close(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := e.quicTransport.Close(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := e.udpConn.Close(); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}
