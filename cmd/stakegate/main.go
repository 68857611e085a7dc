// Package main 提供独立的 StakeGate 接收服务
//
// 监听 QUIC 端口，按质押权重做连接准入，把收到的数据包
// 聚合成批并打印统计。质押权重表从 JSON 文件加载，格式：
//
//	{"<base58 节点 ID>": <权重>, ...}
//
// 使用方法:
//
//	go run main.go -listen 0.0.0.0:8009 -stakes stakes.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	stakegate "github.com/stakegate/go-stakegate"
	"github.com/stakegate/go-stakegate/pkg/lib/log"
	"github.com/stakegate/go-stakegate/pkg/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("❌ 错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	listen := flag.String("listen", "0.0.0.0:8009", "QUIC 监听地址")
	stakesFile := flag.String("stakes", "", "质押权重表 JSON 文件")
	metricsAddr := flag.String("metrics", "127.0.0.1:9100", "Prometheus 指标地址（空则禁用）")
	verbose := flag.Bool("v", false, "输出调试日志")
	flag.Parse()

	if *verbose {
		log.SetLevel(slog.LevelDebug)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signalCh
		fmt.Printf("\n收到信号 %v，正在关闭...\n", sig)
		cancel()
	}()

	opts := []stakegate.Option{
		stakegate.WithListenAddr(*listen),
	}

	if *stakesFile != "" {
		weights, err := loadStakes(*stakesFile)
		if err != nil {
			return fmt.Errorf("加载质押权重表失败: %w", err)
		}
		fmt.Printf("已加载 %d 个质押身份\n", len(weights))
		opts = append(opts, stakegate.WithStakes(weights))
	}

	registry := prometheus.NewRegistry()
	if *metricsAddr != "" {
		opts = append(opts, stakegate.WithMetricsRegistry(registry))
		go serveMetrics(*metricsAddr, registry)
	}

	srv, err := stakegate.New(opts...)
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		_ = srv.Close(closeCtx)
	}()

	fmt.Printf("StakeGate 已启动\n")
	fmt.Printf("  节点 ID: %s\n", srv.NodeID())
	fmt.Printf("  监听:    %s\n", srv.Addr())

	go reportStats(ctx, srv)

	// 消费批次；服务关闭后通道关闭，循环退出
	var packets, batches uint64
	for batch := range srv.Batches() {
		batches++
		packets += uint64(batch.Len())
	}

	fmt.Printf("\n累计 %d 批 / %d 包，再见!\n", batches, packets)
	return nil
}

// loadStakes 从 JSON 文件加载质押权重表
func loadStakes(path string) (map[types.NodeID]uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]uint64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	weights := make(map[types.NodeID]uint64, len(raw))
	for key, weight := range raw {
		id, err := types.NodeIDFromString(key)
		if err != nil {
			return nil, fmt.Errorf("无效的节点 ID %q: %w", key, err)
		}
		weights[id] = weight
	}
	return weights, nil
}

// serveMetrics 暴露 Prometheus 指标
func serveMetrics(addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		fmt.Printf("指标服务退出: %v\n", err)
	}
}

// reportStats 周期打印连接统计
func reportStats(ctx context.Context, srv *stakegate.Server) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fmt.Printf("[stats] connections=%d\n", srv.ConnectionCount())
		case <-ctx.Done():
			return
		}
	}
}
