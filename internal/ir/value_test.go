package ir

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	values := []Value{
		Null{}, String("s"), Bytes("b"), Int(1), Float(1.5), Bool(true),
		Array{Int(1)}, Object{"k": String("v")},
	}
	assert.Len(t, values, 8)
}

func TestFromAny(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  Value
	}{
		{"nil", nil, Null{}},
		{"string", "bar", String("bar")},
		{"bytes", []byte("foo"), Bytes("foo")},
		{"int", 123, Int(123)},
		{"int8", int8(-8), Int(-8)},
		{"int32", int32(32), Int(32)},
		{"uint8", uint8(255), Int(255)},
		{"uint64", uint64(64), Int(64)},
		{"float32", float32(0.5), Float(0.5)},
		{"float64", 2.25, Float(2.25)},
		{"bool", true, Bool(true)},
		{"string slice", []string{"a", "b"}, Array{String("a"), String("b")}},
		{"any slice", []any{"a", 1}, Array{String("a"), Int(1)}},
		{"map", map[string]any{"k": 1}, Object{"k": Int(1)}},
		{"value passthrough", Int(7), Int(7)},
		{"stringer", 2 * time.Second, String("2s")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromAny_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"uint64 overflow", uint64(math.MaxUint64)},
		{"NaN", math.NaN()},
		{"Inf", math.Inf(1)},
		{"struct", struct{ A int }{1}},
		{"nested unsupported", []any{1, make(chan int)}},
		{"map unsupported", map[string]any{"k": func() {}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromAny(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestObjectSortedKeys(t *testing.T) {
	obj := Object{"b": Int(1), "a": Int(2), "c": Int(3)}
	assert.Equal(t, []string{"a", "b", "c"}, obj.SortedKeys())
}

func TestCompareKeysRFC8785(t *testing.T) {
	assert.Equal(t, 0, compareKeysRFC8785("a", "a"))
	assert.Equal(t, -1, compareKeysRFC8785("a", "ab"))
	assert.Equal(t, 1, compareKeysRFC8785("b", "a"))
	assert.Equal(t, -1, compareKeysRFC8785("\U0001F600", "～"))
}
