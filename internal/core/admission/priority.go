package admission

import "time"

// Priority 连接的驱逐优先级
//
// 这是一个文档化的契约，测试依赖其精确语义：
//   - 质押权重严格占优：任何 Weight > 0 的连接优先于任何
//     Weight == 0 的连接，与建立时间无关
//   - 权重相等时，建立更早的连接优先级更高（同等质押下
//     不会为新连接驱逐老连接）
type Priority struct {
	// Weight 准入时刻的质押权重
	Weight uint64

	// CreatedAt 连接建立时间
	CreatedAt time.Time
}

// Less 判断 p 是否严格低于 other
//
// "更低" 意味着先被驱逐。
func (p Priority) Less(other Priority) bool {
	if p.Weight != other.Weight {
		return p.Weight < other.Weight
	}
	// 同权重：更晚建立的优先级更低
	return p.CreatedAt.After(other.CreatedAt)
}
