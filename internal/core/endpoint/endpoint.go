// Package endpoint 实现入站连接的接收与生命周期管理
//
// 每条连接的路径：TLS 握手提取身份 → 准入决策 → 流读取。
// 被拒绝的连接走完握手后立即带应用错误码关闭；被驱逐的
// 连接先取消流任务，排空超时后强制关闭。
package endpoint

import (
	"context"
	"time"

	quicgo "github.com/quic-go/quic-go"
	"golang.org/x/sync/errgroup"

	"github.com/stakegate/go-stakegate/config"
	"github.com/stakegate/go-stakegate/internal/core/admission"
	"github.com/stakegate/go-stakegate/internal/core/framer"
	"github.com/stakegate/go-stakegate/internal/core/metrics"
	stakegatetls "github.com/stakegate/go-stakegate/internal/core/security/tls"
	"github.com/stakegate/go-stakegate/internal/core/transport/quic"
	"github.com/stakegate/go-stakegate/pkg/lib/log"
)

var logger = log.Logger("core/endpoint")

// Endpoint 入站端点
type Endpoint struct {
	cfg    config.TransportConfig
	ep     *quic.Endpoint
	ctrl   *admission.Controller
	framer *framer.Framer
	stats  *metrics.Stats
}

// New 创建入站端点
func New(cfg config.TransportConfig, ep *quic.Endpoint, ctrl *admission.Controller, fr *framer.Framer, stats *metrics.Stats) *Endpoint {
	return &Endpoint{
		cfg:    cfg,
		ep:     ep,
		ctrl:   ctrl,
		framer: fr,
		stats:  stats,
	}
}

// Run 运行接收循环与空闲清扫，阻塞直到 ctx 取消
func (e *Endpoint) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return e.acceptLoop(ctx)
	})
	g.Go(func() error {
		return e.sweepLoop(ctx)
	})
	g.Go(func() error {
		return e.reportLoop(ctx)
	})

	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// acceptLoop 接受新连接
func (e *Endpoint) acceptLoop(ctx context.Context) error {
	for {
		conn, err := e.ep.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		go e.handleConn(ctx, conn)
	}
}

// handleConn 处理一条已完成握手的连接
func (e *Endpoint) handleConn(ctx context.Context, conn *quicgo.Conn) {
	peer, err := stakegatetls.PeerIDFromTLSState(conn.ConnectionState().TLS)
	if err != nil {
		e.stats.HandshakeErrors.Inc()
		logger.Debug("身份提取失败", "remote", conn.RemoteAddr(), "error", err)
		_ = conn.CloseWithError(quic.CodeRejected, "invalid identity")
		return
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	closeConn := func(reason admission.CloseReason) {
		_ = conn.CloseWithError(closeCode(reason), reason.String())
	}

	entry, err := e.ctrl.Admit(peer, conn.RemoteAddr(), cancel, closeConn)
	if err != nil {
		logger.Debug("准入被拒绝",
			"peer", peer.ShortString(),
			"remote", conn.RemoteAddr(),
			"error", err)
		_ = conn.CloseWithError(quic.CodeRejected, err.Error())
		return
	}

	logger.Debug("连接已准入",
		"peer", peer.ShortString(),
		"weight", entry.Weight(),
		"remote", conn.RemoteAddr())

	// 阻塞读流直到连接结束或被驱逐
	_ = e.framer.ServeConn(connCtx, conn, entry)

	e.ctrl.Release(entry)
	_ = conn.CloseWithError(quic.CodeNormalClose, "")
}

// reportInterval 运行状态日志的输出周期
const reportInterval = 10 * time.Second

// reportLoop 周期输出连接表概况
func (e *Endpoint) reportLoop(ctx context.Context) error {
	ticker := time.NewTicker(reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			table := e.ctrl.Table()
			total := table.Len()
			if total == 0 {
				continue
			}
			logger.Info("连接概况",
				"total", total,
				"staked", table.LenClass(true),
				"unstaked", table.LenClass(false))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// closeCode 将关闭原因映射为发给对端的应用错误码
func closeCode(reason admission.CloseReason) quicgo.ApplicationErrorCode {
	switch reason {
	case admission.ReasonIdle:
		return quic.CodeIdle
	case admission.ReasonShutdown:
		return quic.CodeShutdown
	default:
		return quic.CodeEvicted
	}
}

// sweepLoop 周期驱逐空闲连接
func (e *Endpoint) sweepLoop(ctx context.Context) error {
	interval := e.cfg.IdleTimeout / 2
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-e.cfg.IdleTimeout)
			if n := e.ctrl.IdleSweep(cutoff); n > 0 {
				logger.Debug("空闲清扫", "closed", n)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
