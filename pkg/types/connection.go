package types

// ============================================================================
//                              ConnState - 连接状态
// ============================================================================

// ConnState 连接的准入状态
//
// 状态机：Connecting → Admitted → Draining → Closed
// Rejected 为 Connecting 直达的终态（准入策略拒绝）。
type ConnState int32

const (
	// ConnStateConnecting 握手完成、等待准入决策
	ConnStateConnecting ConnState = iota
	// ConnStateAdmitted 已准入，流可以被服务
	ConnStateAdmitted
	// ConnStateDraining 被驱逐，等待在途流结束或超时
	ConnStateDraining
	// ConnStateClosed 已关闭
	ConnStateClosed
	// ConnStateRejected 被准入策略拒绝（终态）
	ConnStateRejected
)

// String 返回状态的字符串表示
func (s ConnState) String() string {
	switch s {
	case ConnStateConnecting:
		return "connecting"
	case ConnStateAdmitted:
		return "admitted"
	case ConnStateDraining:
		return "draining"
	case ConnStateClosed:
		return "closed"
	case ConnStateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              ConnID - 连接标识
// ============================================================================

// ConnID 连接表内的连接标识符
//
// 由连接表单调递增分配，进程内唯一。
type ConnID uint64
