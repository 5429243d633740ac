package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	t.Run("empty input scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Similarity("", ""))
		assert.Equal(t, 0.0, Similarity("", "张三"))
		assert.Equal(t, 0.0, Similarity("张三", ""))
	})

	t.Run("identical input scores one", func(t *testing.T) {
		for _, s := range []string{"a", "张三", "13912345678", "上海市浦东新区世纪大道号"} {
			assert.Equal(t, 1.0, Similarity(s, s), s)
		}
	})

	t.Run("non identical input scores below one", func(t *testing.T) {
		assert.Less(t, Similarity("张三", "张三丰"), 1.0)
		assert.Less(t, Similarity("ab", "ba"), 1.0)
	})

	t.Run("ratio of matching blocks", func(t *testing.T) {
		tests := []struct {
			a, b     string
			expected float64
		}{
			{"abcd", "bcde", 0.75},
			{"张三", "张三丰", 0.8},
			{"13912345678", "13912345679", 20.0 / 22.0},
			{"13912345678", "13912345600", 18.0 / 22.0},
			{"上海市浦东新区世纪大道号", "上海市浦东新区世纪大道号楼", 24.0 / 25.0},
			{"abc", "xyz", 0},
		}
		for _, tt := range tests {
			assert.InDelta(t, tt.expected, Similarity(tt.a, tt.b), 1e-9, "%s vs %s", tt.a, tt.b)
		}
	})

	t.Run("counts runes not bytes", func(t *testing.T) {
		// one shared ideograph out of two runes each
		assert.InDelta(t, 0.5, Similarity("张三", "张四"), 1e-9)
	})

	t.Run("symmetric", func(t *testing.T) {
		pairs := [][2]string{
			{"abcd", "bcda"},
			{"张三丰", "三丰张"},
			{"abxcd", "abcdx"},
			{"13912345678", "13812345687"},
			{"上海市浦东新区", "浦东新区上海市"},
			{"aaab", "abaa"},
			{"tide", "diet"},
		}
		for _, p := range pairs {
			assert.Equal(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]), "%s vs %s", p[0], p[1])
		}
	})

	t.Run("order dependent block search takes the better direction", func(t *testing.T) {
		// one direction finds a single block, the other finds two
		assert.InDelta(t, 0.5, Similarity("tide", "diet"), 1e-9)
		assert.InDelta(t, 0.5, Similarity("diet", "tide"), 1e-9)
	})

	t.Run("bounded", func(t *testing.T) {
		for _, p := range [][2]string{{"a", "aaaa"}, {"abc", "cba"}, {"张三", "李四"}} {
			score := Similarity(p[0], p[1])
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	})
}
