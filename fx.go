package stakegate

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/stakegate/go-stakegate/internal/core/admission"
	"github.com/stakegate/go-stakegate/internal/core/batcher"
	"github.com/stakegate/go-stakegate/internal/core/endpoint"
	"github.com/stakegate/go-stakegate/internal/core/framer"
	"github.com/stakegate/go-stakegate/internal/core/metrics"
	"github.com/stakegate/go-stakegate/internal/core/ratelimit"
	stakegatetls "github.com/stakegate/go-stakegate/internal/core/security/tls"
	"github.com/stakegate/go-stakegate/internal/core/stake"
	quictransport "github.com/stakegate/go-stakegate/internal/core/transport/quic"
)

// buildFxApp 组装 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 基础组件: Stats → Snapshot → Limiter → Batcher
//  2. 准入与读流: Controller → Framer
//  3. 传输: ConfigManager → Endpoint(监听) → 入站端点
func (s *Server) buildFxApp() *fx.App {
	modules := []fx.Option{
		// 配置与身份注入
		fx.Supply(s.opts.cfg),
		fx.Supply(s.ident),
		fx.Provide(func() clock.Clock { return clock.New() }),

		// 基础组件
		metrics.Module,
		stake.Module,
		ratelimit.Module,
		batcher.Module,

		// 准入与读流
		admission.Module,
		framer.Module,

		// 传输层
		stakegatetls.Module,
		quictransport.Module,
		endpoint.Module,
	}

	if s.opts.registry != nil {
		modules = append(modules, fx.Supply(s.opts.registry))
	}

	modules = append(modules,
		fx.Populate(&s.tlsMgr, &s.stakes, &s.batcher, &s.ctrl, &s.transport, &s.endpoint, &s.stats),
		fx.Invoke(s.registerLifecycle),

		// Fx 自身的日志静音，组件日志走统一的 log 门面
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	return fx.New(modules...)
}

// registerLifecycle 注册启停钩子
func (s *Server) registerLifecycle(lc fx.Lifecycle) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if len(s.opts.stakes) > 0 {
				s.stakes.Store(s.opts.stakes)
			}

			runCtx, cancel := context.WithCancel(context.Background())
			s.runCancel = cancel
			s.runDone = make(chan struct{})
			go func() {
				defer close(s.runDone)
				if err := s.endpoint.Run(runCtx); err != nil {
					logger.Error("入站端点退出", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.runCancel()
			select {
			case <-s.runDone:
			case <-ctx.Done():
			}

			// 先断连接再关监听，最后放掉缓冲中的批次
			s.ctrl.Close()
			err := s.transport.Close()
			s.batcher.Close()
			return err
		},
	})
}
