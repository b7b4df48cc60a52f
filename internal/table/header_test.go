package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHeader_Labels(t *testing.T) {
	h, err := NewHeader("Sales", "Q1")
	require.NoError(t, err)

	assert.Equal(t, []string{"Sales", "Q1"}, h.Labels())
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, "[Sales, Q1]", h.String())
	assert.False(t, h.IsZero())
}

func TestNewHeader_Invalid(t *testing.T) {
	_, err := NewHeader()
	assert.True(t, IsInvalidColumn(err))

	_, err = NewHeader("a\x00b")
	assert.True(t, IsInvalidColumn(err))

	assert.Panics(t, func() { H() })
}

func TestHeader_Comparable(t *testing.T) {
	m := map[Header]int{H("a", "b"): 1}
	assert.Equal(t, 1, m[H("a", "b")])
	assert.NotEqual(t, H("a", "b"), H("a"))
	assert.NotEqual(t, H("ab"), H("a", "b"))
}

func TestHeader_NormalizesNFC(t *testing.T) {
	composed := H("caf\u00e9")
	decomposed := H("cafe\u0301")
	assert.Equal(t, composed, decomposed)
}

func TestHeader_Compare(t *testing.T) {
	tests := []struct {
		name string
		a, b Header
		want int
	}{
		{"equal", H("a", "b"), H("a", "b"), 0},
		{"first label", H("a", "z"), H("b", "a"), -1},
		{"second label", H("a", "c"), H("a", "b"), 1},
		{"shorter pads with empty", H("a"), H("a", "b"), -1},
		{"padding equals empty label", H("a"), H("a", ""), 0},
		{"empty middle label", H("a", "", "c"), H("a", "b"), -1},
		{"label prefix", H("ab"), H("a", "b"), 1},
		{"zero against empty label", Header{}, H(""), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
			assert.Equal(t, -tt.want, tt.b.Compare(tt.a))
		})
	}
}

func TestHeader_CompareDoesNotAllocate(t *testing.T) {
	a, b := H("region", "north", "q1"), H("region", "north", "q2")
	allocs := testing.AllocsPerRun(100, func() {
		_ = a.Compare(b)
	})
	assert.Zero(t, allocs)
}

func TestHeader_Zero(t *testing.T) {
	var h Header
	assert.True(t, h.IsZero())
	assert.Nil(t, h.Labels())
	assert.Equal(t, "[]", h.String())
}
