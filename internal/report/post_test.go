package report

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"int64 passes through", int64(42), int64(42)},
		{"float64 passes through", float64(1.5), float64(1.5)},
		{"integer string", "123", int64(123)},
		{"decimal string", "12.5", float64(12.5)},
		{"trailing decimal point", "7.", float64(7)},
		{"negative integer string", "-4", int64(-4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, coerceNumber(tt.in))
		})
	}

	// Non-parseable strings become NaN, split by the same decimal
	// point rule.
	for _, s := range []string{"abc", "1.2.3", "12x"} {
		got := coerceNumber(s)
		f, ok := got.(float64)
		require.True(t, ok, "input %q", s)
		assert.True(t, math.IsNaN(f), "input %q", s)
	}
}

func TestCoerceDate(t *testing.T) {
	assert.Equal(t, []int{2020, 0, 15}, coerceDate("2020-01-15"))
	// The sentinel means "never happened", not a real day in 1900.
	assert.Nil(t, coerceDate("1900-01-01"))
	assert.Nil(t, coerceDate("garbage"))
	assert.Nil(t, coerceDate(int64(3)))
}

func TestCoerceValueByteSlices(t *testing.T) {
	assert.Equal(t, int64(9), coerceValue([]byte("9"), TypeNumber))
	assert.Equal(t, "hi", coerceValue([]byte("hi"), TypeString))
	assert.Nil(t, coerceValue(nil, TypeNumber))
}

func TestCompareCells(t *testing.T) {
	coll := collate.New(language.Und)

	// Nil sorts before everything.
	assert.Equal(t, -1, compareCells(nil, int64(0), coll))
	assert.Equal(t, 1, compareCells(int64(0), nil, coll))
	assert.Equal(t, 0, compareCells(nil, nil, coll))

	// NaN sorts before real numbers.
	assert.Equal(t, -1, compareCells(math.NaN(), float64(-1000), coll))
	assert.Equal(t, 0, compareCells(math.NaN(), math.NaN(), coll))

	// Mixed int and float compare numerically.
	assert.Equal(t, -1, compareCells(int64(1), float64(1.5), coll))
	assert.Equal(t, 1, compareCells(float64(2.5), int64(2), coll))

	assert.Equal(t, -1, compareCells("apple", "banana", coll))

	// Date triples compare lexicographically.
	assert.Equal(t, -1, compareCells([]int{2019, 11, 31}, []int{2020, 0, 1}, coll))
	assert.Equal(t, 1, compareCells([]int{2020, 1, 1}, []int{2020, 0, 28}, coll))
	assert.Equal(t, 0, compareCells([]int{2020, 0, 1}, []int{2020, 0, 1}, coll))
}

func TestAssignCountersWithoutSkipping(t *testing.T) {
	def := &Definition{
		Columns: []ColumnSpec{{Kind: KindCounter}},
	}
	rows := []rawRow{
		{actorID: 1, cells: make([]any, 1)},
		{actorID: 2, cells: make([]any, 1), bot: true},
		{actorID: 3, cells: make([]any, 1)},
	}

	out := assignCounters(def, rows, 2)

	// Without the skip flag bots are numbered like anyone else and
	// the limit is a plain prefix.
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].cells[0])
	assert.Equal(t, int64(2), out[1].cells[0])
}

func TestAssignCountersUnlimited(t *testing.T) {
	def := &Definition{Columns: []ColumnSpec{{Kind: KindCounter}}}
	rows := []rawRow{
		{actorID: 1, cells: make([]any, 1)},
		{actorID: 2, cells: make([]any, 1)},
	}
	out := assignCounters(def, rows, 0)
	require.Len(t, out, 2)
	assert.Equal(t, int64(2), out[1].cells[0])
}
