package ladder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLadder = Ladder{
	{ID: "one", Label: "One", RequiredContributions: 10, RequiredActiveDays: 2},
	{ID: "two", Label: "Two", RequiredContributions: 100, RequiredActiveDays: 5},
	{ID: "three", Label: "Three", RequiredContributions: 1000, RequiredActiveDays: 50},
}

func TestAtRequiresBothThresholdsExceeded(t *testing.T) {
	tests := []struct {
		name          string
		contributions int64
		activeDays    int64
		wantIndex     int
		wantID        string
	}{
		{"nothing", 0, 0, -1, ""},
		{"exactly at thresholds does not qualify", 10, 2, -1, ""},
		{"one above both", 11, 3, 0, "one"},
		{"contributions high but days at limit", 500, 5, 0, "one"},
		{"both above second rung", 101, 6, 1, "two"},
		{"top rung", 5000, 100, 2, "three"},
		{"days alone never qualify", 5, 100, -1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := testLadder.At(tt.contributions, tt.activeDays)
			assert.Equal(t, tt.wantIndex, res.Index)
			if tt.wantIndex >= 0 {
				require.True(t, res.HasLevel())
				assert.Equal(t, tt.wantID, res.Level.ID)
			} else {
				assert.False(t, res.HasLevel())
			}
		})
	}
}

func TestProgressIsMinOfBothFractions(t *testing.T) {
	// Holding rung one with 55 contributions and 3 active days: the
	// contribution fraction is (55-10)/(100-10)=0.5, the day fraction
	// is (3-2)/(5-2)=1/3. Progress is the smaller of the two.
	res := testLadder.At(55, 3)
	require.Equal(t, 0, res.Index)
	assert.InDelta(t, 1.0/3.0, res.NextProgress, 1e-9)
}

func TestProgressClampedToUnitInterval(t *testing.T) {
	// Contributions already past the next rung while days lag: the
	// contribution fraction clamps at 1 and days dominate.
	res := testLadder.At(5000, 3)
	require.Equal(t, 0, res.Index)
	assert.InDelta(t, 1.0/3.0, res.NextProgress, 1e-9)
}

func TestProgressAtTopRungIsOne(t *testing.T) {
	res := testLadder.At(100000, 10000)
	require.Equal(t, 2, res.Index)
	assert.Equal(t, 1.0, res.NextProgress)
}

func TestSortOrder(t *testing.T) {
	none := testLadder.At(5, 1)
	low := testLadder.At(11, 3)
	high := testLadder.At(200, 10)

	assert.Less(t, none.SortOrder(), low.SortOrder())
	assert.Less(t, low.SortOrder(), high.SortOrder())

	// A held rung always orders above any progress toward the first.
	almost := testLadder.At(9, 100)
	assert.Less(t, almost.SortOrder(), low.SortOrder())
	assert.Less(t, almost.SortOrder(), 1.0)
}

func TestByID(t *testing.T) {
	lvl, ok := testLadder.ByID("two")
	require.True(t, ok)
	assert.Equal(t, "Two", lvl.Label)

	_, ok = testLadder.ByID("missing")
	assert.False(t, ok)
}

func TestDefaultLadderAscending(t *testing.T) {
	for i := 1; i < len(Default); i++ {
		assert.Greater(t, Default[i].RequiredContributions, Default[i-1].RequiredContributions)
		assert.GreaterOrEqual(t, Default[i].RequiredActiveDays, Default[i-1].RequiredActiveDays)
	}
}
