package admission

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/stakegate/go-stakegate/config"
	"github.com/stakegate/go-stakegate/pkg/types"
)

// Table 连接表
//
// 连接表是所有 Entry 的唯一拥有者，维护三个索引：
//   - entries: 连接 ID → 表项
//   - byAddr: 远端 IP → 连接数（单地址限额）
//   - staked/unstaked: 按权重类的优先级堆（驱逐选择）
//
// 所有修改在表锁下串行化。容量不变式在每次准入/驱逐后
// 恒成立：总表项 ≤ MaxConnections，每地址 ≤ MaxPerAddr，
// 各类池 ≤ 各自池容量。
type Table struct {
	mu  sync.Mutex
	cfg config.AdmissionConfig

	nextID  uint64
	entries map[types.ConnID]*Entry
	byAddr  map[string]int

	staked   *priorityHeap
	unstaked *priorityHeap

	closed bool
}

// AdmitRequest 准入请求
type AdmitRequest struct {
	// Peer 经身份验证的对端标识
	Peer types.NodeID

	// Addr 远端地址
	Addr net.Addr

	// Weight 准入时刻查得的质押权重
	Weight uint64

	// Cancel 取消该连接所有流任务的信号
	Cancel context.CancelFunc

	// Close 带原因强制关闭底层连接
	Close func(CloseReason)
}

// AdmitResult 准入结果
type AdmitResult struct {
	// Entry 新准入的表项
	Entry *Entry

	// Evicted 为腾出容量被驱逐的表项（可能为 nil）
	// 返回时已移出连接表并处于 Draining 状态，其 Cancel 已触发；
	// 调用方负责调度 DrainTimeout 后的强制关闭。
	Evicted *Entry
}

// NewTable 创建连接表
func NewTable(cfg config.AdmissionConfig) *Table {
	return &Table{
		cfg:      cfg,
		entries:  make(map[types.ConnID]*Entry),
		byAddr:   make(map[string]int),
		staked:   newPriorityHeap(),
		unstaked: newPriorityHeap(),
	}
}

// Admit 尝试准入一条完成身份验证的连接
//
// 策略（按序）：
//  1. 单地址限额（与质押无关）
//  2. 类池与全局容量有余量 → 直接准入
//  3. 已满 → 候选优先级严格高于池内最低者则驱逐其一，否则拒绝
//
// 每次准入至多驱逐一条连接。并发调用对表的效果串行化。
func (t *Table) Admit(req AdmitRequest) (AdmitResult, error) {
	now := time.Now()
	addrKey := addrKeyOf(req.Addr)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return AdmitResult{}, ErrControllerClosed
	}

	// 候选表项在决策期间处于 Connecting，拒绝直达 Rejected 终态
	t.nextID++
	e := &Entry{
		id:        types.ConnID(t.nextID),
		peer:      req.Peer,
		addr:      req.Addr,
		addrKey:   addrKey,
		weight:    req.Weight,
		createdAt: now,
		cancel:    req.Cancel,
		close:     req.Close,
	}
	e.setState(types.ConnStateConnecting)

	// 1. 单地址限额
	if t.byAddr[addrKey] >= t.cfg.MaxPerAddr {
		e.setState(types.ConnStateRejected)
		return AdmitResult{}, ErrPerAddrLimit
	}

	pool, poolCap := t.poolOf(req.Weight > 0)

	var evicted *Entry
	if pool.Len() >= poolCap || len(t.entries) >= t.cfg.MaxConnections {
		// 2. 容量不足：选出驱逐候选
		var victim *Entry
		if pool.Len() >= poolCap {
			// 类池已满：只在同类中驱逐
			victim = pool.lowest()
		} else {
			// 类池有余量但全局已满：取全局最低
			// 无质押堆顶严格低于任何有质押表项
			victim = t.unstaked.lowest()
			if victim == nil {
				victim = t.staked.lowest()
			}
		}
		if victim == nil || !victim.Priority().Less(e.Priority()) {
			e.setState(types.ConnStateRejected)
			return AdmitResult{}, ErrTableFull
		}
		t.evictLocked(victim)
		evicted = victim
	}

	e.setState(types.ConnStateAdmitted)
	e.Touch(now)

	t.entries[e.id] = e
	t.byAddr[addrKey]++
	t.heapOf(e).insert(e)

	return AdmitResult{Entry: e, Evicted: evicted}, nil
}

// Remove 将连接移出连接表并迁移到 Closed
//
// 对已被驱逐（不在表中）的连接返回 ErrUnknownConn；
// 调用方通常可以忽略该错误。
func (t *Table) Remove(id types.ConnID) (*Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return nil, ErrUnknownConn
	}
	t.deleteLocked(e)
	e.setState(types.ConnStateClosed)
	return e, nil
}

// IdleBefore 收集最近活动早于 cutoff 的已准入连接
//
// 周期性空闲扫描使用；不修改表。
func (t *Table) IdleBefore(cutoff time.Time) []*Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	var idle []*Entry
	for _, e := range t.entries {
		if e.Admitted() && e.LastActivity().Before(cutoff) {
			idle = append(idle, e)
		}
	}
	return idle
}

// Len 返回表项总数
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// LenClass 返回指定权重类的表项数
func (t *Table) LenClass(staked bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	pool, _ := t.poolOf(staked)
	return pool.Len()
}

// LenAddr 返回指定远端 IP 的连接数
func (t *Table) LenAddr(addr net.Addr) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.byAddr[addrKeyOf(addr)]
}

// Contains 检查身份是否有在表连接
func (t *Table) Contains(peer types.NodeID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		if e.peer.Equal(peer) {
			return true
		}
	}
	return false
}

// Close 关闭连接表：取消并移除所有表项
func (t *Table) Close() []*Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	all := make([]*Entry, 0, len(t.entries))
	for _, e := range t.entries {
		e.setState(types.ConnStateClosed)
		if e.cancel != nil {
			e.cancel()
		}
		all = append(all, e)
	}
	t.entries = make(map[types.ConnID]*Entry)
	t.byAddr = make(map[string]int)
	t.staked = newPriorityHeap()
	t.unstaked = newPriorityHeap()
	return all
}

// evictLocked 将表项移出表并迁移到 Draining（持锁调用）
//
// 牺牲者总是所属堆的堆顶，直接弹出。
func (t *Table) evictLocked(e *Entry) {
	t.heapOf(e).popLowest()
	t.unindexLocked(e)
	e.setState(types.ConnStateDraining)
	if e.cancel != nil {
		e.cancel()
	}
}

// deleteLocked 从所有索引删除表项（持锁调用）
func (t *Table) deleteLocked(e *Entry) {
	t.heapOf(e).remove(e.id)
	t.unindexLocked(e)
}

// unindexLocked 从 ID 与地址索引删除表项（持锁调用）
func (t *Table) unindexLocked(e *Entry) {
	delete(t.entries, e.id)
	if n := t.byAddr[e.addrKey]; n <= 1 {
		delete(t.byAddr, e.addrKey)
	} else {
		t.byAddr[e.addrKey] = n - 1
	}
}

// poolOf 返回权重类对应的堆与池容量
func (t *Table) poolOf(staked bool) (*priorityHeap, int) {
	if staked {
		return t.staked, t.cfg.MaxStakedConnections
	}
	return t.unstaked, t.cfg.MaxUnstakedConnections
}

// heapOf 返回表项所属的堆
func (t *Table) heapOf(e *Entry) *priorityHeap {
	pool, _ := t.poolOf(e.Staked())
	return pool
}

// addrKeyOf 从远端地址提取 IP 作为限额键
//
// 端口不参与限额：同一主机换端口重连仍计入同一限额。
func addrKeyOf(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
