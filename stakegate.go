package stakegate

import (
	"context"
	"net"
	"sync"

	"go.uber.org/fx"

	"github.com/stakegate/go-stakegate/internal/core/admission"
	"github.com/stakegate/go-stakegate/internal/core/batcher"
	"github.com/stakegate/go-stakegate/internal/core/endpoint"
	"github.com/stakegate/go-stakegate/internal/core/identity"
	"github.com/stakegate/go-stakegate/internal/core/metrics"
	stakegatetls "github.com/stakegate/go-stakegate/internal/core/security/tls"
	"github.com/stakegate/go-stakegate/internal/core/stake"
	quictransport "github.com/stakegate/go-stakegate/internal/core/transport/quic"
	"github.com/stakegate/go-stakegate/pkg/lib/log"
	"github.com/stakegate/go-stakegate/pkg/types"
)

var logger = log.Logger("stakegate")

// Version 当前版本
const Version = "v0.1.0"

// ════════════════════════════════════════════════════════════════════════════
//                              服务状态
// ════════════════════════════════════════════════════════════════════════════

// ServerState 服务状态
type ServerState int

const (
	// StateIdle 空闲状态（已创建，未启动）
	StateIdle ServerState = iota

	// StateRunning 运行中
	StateRunning

	// StateStopped 已停止
	StateStopped
)

// String 返回状态的字符串表示
func (s ServerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              服务门面
// ════════════════════════════════════════════════════════════════════════════

// Server 数据包接收服务
//
// Server 是用户与接收管线交互的主入口，聚合了准入控制、
// 限速、流读取与批次聚合。典型用法：
//
//	srv, err := stakegate.New(
//	    stakegate.WithListenAddr("0.0.0.0:8009"),
//	    stakegate.WithStakes(weights),
//	)
//	if err != nil { ... }
//	if err := srv.Start(ctx); err != nil { ... }
//	for batch := range srv.Batches() {
//	    process(batch)
//	}
type Server struct {
	opts  *options
	ident *identity.Identity

	app *fx.App

	// 由 Fx 填充
	tlsMgr    *stakegatetls.ConfigManager
	stakes    *stake.Snapshot
	batcher   *batcher.Batcher
	ctrl      *admission.Controller
	transport *quictransport.Endpoint
	endpoint  *endpoint.Endpoint
	stats     *metrics.Stats

	runCancel context.CancelFunc
	runDone   chan struct{}

	mu    sync.Mutex
	state ServerState
}

// New 创建服务
//
// 未提供身份时生成临时身份。创建不绑定端口，Start 才绑定。
func New(opts ...Option) (*Server, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}

	ident := o.ident
	if ident == nil {
		generated, err := identity.Generate()
		if err != nil {
			return nil, err
		}
		ident = generated
		logger.Info("使用临时身份", "nodeID", ident.ID().ShortString())
	}

	return &Server{
		opts:  o,
		ident: ident,
		state: StateIdle,
	}, nil
}

// Start 启动服务并开始接收连接
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateRunning:
		return ErrAlreadyStarted
	case StateStopped:
		return ErrServerClosed
	}

	s.app = s.buildFxApp()
	if err := s.app.Err(); err != nil {
		return err
	}
	if err := s.app.Start(ctx); err != nil {
		return err
	}

	s.state = StateRunning
	logger.Info("服务已启动",
		"nodeID", s.ident.ID().ShortString(),
		"addr", s.transport.Addr())
	return nil
}

// Close 停止服务并释放资源
//
// 幂等。Batches 通道在缓冲批次下发完毕后关闭。
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		s.state = StateStopped
		return nil
	}
	s.state = StateStopped

	err := s.app.Stop(ctx)
	logger.Info("服务已停止")
	return err
}

// Batches 返回聚合批次的只读通道
//
// 服务停止后通道关闭。未启动时返回 nil 通道。
func (s *Server) Batches() <-chan types.PacketBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batcher == nil {
		return nil
	}
	return s.batcher.Batches()
}

// NodeID 返回本端节点标识
func (s *Server) NodeID() types.NodeID {
	return s.ident.ID()
}

// Addr 返回实际监听地址
//
// 未启动时返回 nil。监听端口为 0 时这里是系统分配的端口。
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transport == nil {
		return nil
	}
	return s.transport.Addr()
}

// State 返回当前服务状态
func (s *Server) State() ServerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ConnectionCount 返回当前在表连接数
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	ctrl := s.ctrl
	s.mu.Unlock()
	if ctrl == nil {
		return 0
	}
	return ctrl.Table().Len()
}

// UpdateStakes 原子替换质押权重表
//
// 仅影响后续准入决策，已在表连接的权重保持快照值。
func (s *Server) UpdateStakes(weights map[types.NodeID]uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		// 未启动时暂存，Start 时应用
		s.opts.stakes = weights
		return nil
	}
	s.stakes.Store(weights)
	logger.Info("质押权重表已更新", "identities", len(weights))
	return nil
}

// UpdateIdentity 轮换本端身份
//
// 在线轮换：已建立的连接不受影响，新握手使用新证书。
func (s *Server) UpdateIdentity(ident *identity.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ident == nil {
		return identity.ErrNoPrivateKey
	}
	if s.state != StateRunning {
		s.ident = ident
		s.opts.ident = ident
		return nil
	}
	if err := s.tlsMgr.Rotate(ident); err != nil {
		return err
	}
	s.ident = ident
	logger.Info("身份已轮换", "nodeID", ident.ID().ShortString())
	return nil
}
