// Package framer 从 QUIC 单向流中还原数据包
//
// 协议约定一条单向流承载一个数据包：流结束即包结束。
// 超限、超时、空流都在本层就地处理，绝不影响同连接的
// 其他流。
package framer

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/stakegate/go-stakegate/config"
	"github.com/stakegate/go-stakegate/internal/core/admission"
	"github.com/stakegate/go-stakegate/internal/core/metrics"
	"github.com/stakegate/go-stakegate/internal/core/ratelimit"
	"github.com/stakegate/go-stakegate/internal/core/stake"
	"github.com/stakegate/go-stakegate/pkg/lib/log"
	"github.com/stakegate/go-stakegate/pkg/types"
)

var logger = log.Logger("core/framer")

// 流级应用错误码，随 CancelRead 发给对端
const (
	codeOversize    quic.StreamErrorCode = 0x1
	codeStreamLimit quic.StreamErrorCode = 0x2
)

// PacketSink 还原出的数据包的去向
type PacketSink interface {
	Submit(types.Packet)
}

// Framer 流读取器
type Framer struct {
	cfg     config.TransportConfig
	limiter *ratelimit.Limiter
	stakes  *stake.Snapshot
	stats   *metrics.Stats
	sink    PacketSink
}

// New 创建流读取器
func New(cfg config.TransportConfig, limiter *ratelimit.Limiter, stakes *stake.Snapshot, stats *metrics.Stats, sink PacketSink) *Framer {
	return &Framer{
		cfg:     cfg,
		limiter: limiter,
		stakes:  stakes,
		stats:   stats,
		sink:    sink,
	}
}

// streamLimit 返回连接的并发流配额
//
// 有质押连接在 [MaxStreamsUnstaked, MaxStreamsStaked] 区间内
// 按质押占比线性配给；权重占比越高，可用并发越多。
func (f *Framer) streamLimit(entry *admission.Entry) int64 {
	if !entry.Staked() {
		return f.cfg.MaxStreamsUnstaked
	}
	total := f.stakes.TotalStake()
	if total == 0 {
		return f.cfg.MaxStreamsStaked
	}
	base := f.cfg.MaxStreamsUnstaked
	span := f.cfg.MaxStreamsStaked - base
	limit := base + int64(float64(span)*float64(entry.Weight())/float64(total))
	if limit > f.cfg.MaxStreamsStaked {
		limit = f.cfg.MaxStreamsStaked
	}
	return limit
}

// ServeConn 循环接收连接上的单向流并逐流读取
//
// 阻塞直到 ctx 取消或连接关闭。每条流在独立协程中读取，
// 单条流的失败不影响其余流。
func (f *Framer) ServeConn(ctx context.Context, conn *quic.Conn, entry *admission.Entry) error {
	for {
		stream, err := conn.AcceptUniStream(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		if entry.OpenStreams() >= f.streamLimit(entry) {
			stream.CancelRead(codeStreamLimit)
			f.stats.InvalidStreams.WithLabelValues("stream_limit").Inc()
			continue
		}

		entry.StreamStarted()
		go func(s *quic.ReceiveStream) {
			defer entry.StreamDone()
			f.serveStream(ctx, s, entry)
		}(stream)
	}
}

// serveStream 读取一条流并还原出一个数据包
func (f *Framer) serveStream(ctx context.Context, stream *quic.ReceiveStream, entry *admission.Entry) {
	payload, err := f.readPacket(ctx, stream)
	if err != nil {
		f.countReadError(ctx, err)
		return
	}

	class := metrics.ClassLabel(entry.Staked())
	if !f.limiter.Allow(entry.Peer(), entry.Staked()) {
		f.stats.ThrottledPackets.WithLabelValues(class).Inc()
		return
	}

	now := time.Now()
	entry.Touch(now)
	entry.RecordPacket(len(payload))
	f.stats.PacketsDecoded.WithLabelValues(class).Inc()

	f.sink.Submit(types.Packet{
		Payload: payload,
		Peer:    entry.Peer(),
		Addr:    entry.Addr(),
		Weight:  entry.Weight(),
		RecvAt:  now,
	})
}

// readPacket 将整条流读成一个数据包
//
// 超限流就地取消（只影响本条流），返回 ErrPacketTooLarge；
// 空流返回 ErrEmptyStream。
func (f *Framer) readPacket(ctx context.Context, stream *quic.ReceiveStream) ([]byte, error) {
	// 多读一个字节以便区分"恰好满包"与"超限"
	buf := make([]byte, f.cfg.MaxPacketBytes+1)
	total := 0

	for {
		_ = stream.SetReadDeadline(time.Now().Add(f.cfg.StreamReadTimeout))
		n, err := stream.Read(buf[total:])
		total += n

		if total > f.cfg.MaxPacketBytes {
			stream.CancelRead(codeOversize)
			return nil, ErrPacketTooLarge
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if cerr := ctx.Err(); cerr != nil {
				return nil, cerr
			}
			return nil, err
		}
	}

	if total == 0 {
		return nil, ErrEmptyStream
	}

	payload := make([]byte, total)
	copy(payload, buf[:total])
	return payload, nil
}

// countReadError 按失败类别计数
func (f *Framer) countReadError(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	switch {
	case errors.Is(err, ErrPacketTooLarge):
		f.stats.InvalidStreams.WithLabelValues("oversize").Inc()
		return
	case errors.Is(err, ErrEmptyStream):
		f.stats.InvalidStreams.WithLabelValues("empty").Inc()
		return
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		f.stats.InvalidStreams.WithLabelValues("timeout").Inc()
		return
	}
	var serr *quic.StreamError
	if errors.As(err, &serr) {
		f.stats.InvalidStreams.WithLabelValues("reset").Inc()
		return
	}
	f.stats.StreamErrors.Inc()
	logger.Debug("流读取失败", "error", err)
}
