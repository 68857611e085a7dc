// Package stakegate 提供质押加权的 QUIC 数据包接收管线
//
// StakeGate 面向验证者入站场景：大量对端通过 QUIC 单向流推送
// 小数据包，服务端依据对端的质押权重做连接准入、驱逐与限速，
// 把存活下来的数据包聚合成批交给上层。
//
// # 核心概念
//
//   - Server: 接收服务，用户交互的主入口
//   - NodeID: 对端身份，从 TLS 证书里的 Ed25519 公钥派生
//   - 质押权重: 准入优先级的唯一来源，权重为零即无质押
//   - 批次: 按包数或聚合窗口凑齐的一组数据包
//
// # 快速开始
//
//	import "github.com/stakegate/go-stakegate"
//
//	// 1. 创建并启动服务
//	srv, err := stakegate.New(
//	    stakegate.WithListenAddr("0.0.0.0:8009"),
//	    stakegate.WithStakes(weights),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close(ctx)
//
//	// 2. 消费聚合批次
//	for batch := range srv.Batches() {
//	    process(batch.Packets)
//	}
//
// # 准入模型
//
// 每条连接在 TLS 握手完成后进入准入决策：身份查质押表得到
// 权重，权重决定优先级。连接表分有质押/无质押两个池，池满时
// 新连接只能通过驱逐一条严格更低优先级的在表连接入场，否则
// 被拒绝。无质押连接的优先级恒低于任何有质押连接。
//
// 驱逐不立即断开：被驱逐的连接先取消流任务进入排空，超时后
// 强制关闭。单次准入至多驱逐一条连接。
package stakegate
