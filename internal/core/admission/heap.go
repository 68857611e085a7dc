package admission

import (
	"container/heap"

	"github.com/stakegate/go-stakegate/pkg/types"
)

// priorityHeap 带位置索引的最小堆
//
// 堆顶是优先级最低的表项。位置索引支持按连接 ID 的
// O(log n) 删除，避免准入热路径上的全表扫描。
// 仅由持有表锁的代码访问，自身不加锁。
type priorityHeap struct {
	items []*Entry
	pos   map[types.ConnID]int
}

func newPriorityHeap() *priorityHeap {
	return &priorityHeap{pos: make(map[types.ConnID]int)}
}

// Len 实现 heap.Interface
func (h *priorityHeap) Len() int { return len(h.items) }

// Less 实现 heap.Interface（堆顶为最低优先级）
func (h *priorityHeap) Less(i, j int) bool {
	return h.items[i].Priority().Less(h.items[j].Priority())
}

// Swap 实现 heap.Interface
func (h *priorityHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.pos[h.items[i].id] = i
	h.pos[h.items[j].id] = j
}

// Push 实现 heap.Interface
func (h *priorityHeap) Push(x any) {
	e := x.(*Entry)
	h.pos[e.id] = len(h.items)
	h.items = append(h.items, e)
}

// Pop 实现 heap.Interface
func (h *priorityHeap) Pop() any {
	n := len(h.items)
	e := h.items[n-1]
	h.items[n-1] = nil
	h.items = h.items[:n-1]
	delete(h.pos, e.id)
	return e
}

// insert 插入表项
func (h *priorityHeap) insert(e *Entry) {
	heap.Push(h, e)
}

// lowest 返回最低优先级表项（不弹出）
func (h *priorityHeap) lowest() *Entry {
	if len(h.items) == 0 {
		return nil
	}
	return h.items[0]
}

// popLowest 弹出最低优先级表项
func (h *priorityHeap) popLowest() *Entry {
	if len(h.items) == 0 {
		return nil
	}
	return heap.Pop(h).(*Entry)
}

// remove 按连接 ID 删除表项
func (h *priorityHeap) remove(id types.ConnID) *Entry {
	i, ok := h.pos[id]
	if !ok {
		return nil
	}
	return heap.Remove(h, i).(*Entry)
}
