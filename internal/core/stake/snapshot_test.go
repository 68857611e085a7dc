package stake

import (
	"crypto/sha256"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stakegate/go-stakegate/pkg/types"
)

func nodeID(seed string) types.NodeID {
	return types.NodeID(sha256.Sum256([]byte(seed)))
}

func TestSnapshot_Empty(t *testing.T) {
	s := NewSnapshot()

	assert.Zero(t, s.WeightOf(nodeID("a")))
	assert.Zero(t, s.TotalStake())
	assert.Zero(t, s.Len())
}

func TestSnapshot_Store(t *testing.T) {
	s := NewSnapshot()
	s.Store(map[types.NodeID]uint64{
		nodeID("a"): 100,
		nodeID("b"): 50,
	})

	assert.Equal(t, uint64(100), s.WeightOf(nodeID("a")))
	assert.Equal(t, uint64(50), s.WeightOf(nodeID("b")))
	assert.Zero(t, s.WeightOf(nodeID("c")))
	assert.Equal(t, uint64(150), s.TotalStake())
	assert.Equal(t, 2, s.Len())
}

func TestSnapshot_Replace(t *testing.T) {
	s := NewSnapshot()
	s.Store(map[types.NodeID]uint64{nodeID("a"): 100})

	// 替换是整表原子替换，不是合并
	s.Store(map[types.NodeID]uint64{nodeID("b"): 7})

	assert.Zero(t, s.WeightOf(nodeID("a")))
	assert.Equal(t, uint64(7), s.WeightOf(nodeID("b")))
	assert.Equal(t, uint64(7), s.TotalStake())
}

func TestSnapshot_ConcurrentReads(t *testing.T) {
	s := NewSnapshot()
	s.Store(map[types.NodeID]uint64{nodeID("a"): 1})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				_ = s.WeightOf(nodeID("a"))
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Store(map[types.NodeID]uint64{nodeID("a"): uint64(n)})
		}(i + 1)
	}
	wg.Wait()

	// 最终权重是某次 Store 的值
	assert.NotZero(t, s.WeightOf(nodeID("a")))
}
