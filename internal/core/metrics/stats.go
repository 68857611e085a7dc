// Package metrics 提供入口管线的运行指标
//
// 指标通过 prometheus 暴露；调用方传入 Registerer
// （传 nil 时指标仍然被计数，只是不注册到任何 registry）。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// 类标签常量
const (
	ClassStaked   = "staked"
	ClassUnstaked = "unstaked"
)

// Stats 入口管线指标集
type Stats struct {
	// 连接级
	ConnectionsAdded    *prometheus.CounterVec // class
	ConnectionsRemoved  prometheus.Counter
	ConnectionsRejected *prometheus.CounterVec // reason
	Evictions           prometheus.Counter
	HandshakeErrors     prometheus.Counter
	ActiveConnections   prometheus.Gauge

	// 流/包级
	PacketsDecoded   *prometheus.CounterVec // class
	ThrottledPackets *prometheus.CounterVec // class
	InvalidStreams   *prometheus.CounterVec // reason
	StreamErrors     prometheus.Counter

	// 批次级
	BatchesSent    prometheus.Counter
	BatchesDropped prometheus.Counter
	PacketsSent    prometheus.Counter
}

// New 创建指标集并注册
func New(reg prometheus.Registerer) *Stats {
	s := &Stats{
		ConnectionsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stakegate_connections_added_total",
			Help: "Connections admitted, by stake class.",
		}, []string{"class"}),
		ConnectionsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stakegate_connections_removed_total",
			Help: "Connections removed from the table.",
		}),
		ConnectionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stakegate_connections_rejected_total",
			Help: "Connections rejected before admission, by reason.",
		}, []string{"reason"}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stakegate_evictions_total",
			Help: "Connections evicted to admit higher-priority peers.",
		}),
		HandshakeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stakegate_handshake_errors_total",
			Help: "Inbound handshakes that failed or timed out.",
		}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stakegate_active_connections",
			Help: "Current number of admitted connections.",
		}),
		PacketsDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stakegate_packets_decoded_total",
			Help: "Packets successfully framed, by stake class.",
		}, []string{"class"}),
		ThrottledPackets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stakegate_throttled_packets_total",
			Help: "Packets dropped by the rate limiter, by stake class.",
		}, []string{"class"}),
		InvalidStreams: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stakegate_invalid_streams_total",
			Help: "Streams discarded before yielding a packet, by reason.",
		}, []string{"reason"}),
		StreamErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stakegate_stream_errors_total",
			Help: "Stream-level transport errors (reset, timeout).",
		}),
		BatchesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stakegate_batches_sent_total",
			Help: "Packet batches published downstream.",
		}),
		BatchesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stakegate_batches_dropped_total",
			Help: "Packet batches dropped on downstream backpressure.",
		}),
		PacketsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stakegate_packets_sent_total",
			Help: "Packets delivered inside published batches.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			s.ConnectionsAdded,
			s.ConnectionsRemoved,
			s.ConnectionsRejected,
			s.Evictions,
			s.HandshakeErrors,
			s.ActiveConnections,
			s.PacketsDecoded,
			s.ThrottledPackets,
			s.InvalidStreams,
			s.StreamErrors,
			s.BatchesSent,
			s.BatchesDropped,
			s.PacketsSent,
		)
	}

	return s
}

// ClassLabel 返回质押类的标签值
func ClassLabel(staked bool) string {
	if staked {
		return ClassStaked
	}
	return ClassUnstaked
}

// NewNop 创建不注册到任何 registry 的指标集（测试用）
func NewNop() *Stats {
	return New(nil)
}
