package report

import (
	"math"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// OrderBy is one requested sort key.
type OrderBy struct {
	ColumnID  string `json:"columnId"`
	Direction string `json:"direction"` // "asc" or "desc"
}

// sortRows orders the row set by the requested keys. Comparison
// dispatches on the runtime type of the left operand and short-
// circuits to the next key only on exact equality; the final tiebreak
// is always actor name ascending, so equal rows order independently
// of their original position. Keys referencing unknown column ids are
// skipped (preserved source leniency).
func (b *Builder) sortRows(def *Definition, rows []rawRow) {
	coll := collate.New(language.Und)

	positions := make(map[string]int, len(def.Columns))
	for i, c := range def.Columns {
		positions[c.ColumnID()] = i
	}

	type sortKey struct {
		pos  int
		desc bool
	}
	var keys []sortKey
	for _, ob := range def.OrderBy {
		pos, ok := positions[ob.ColumnID]
		if !ok {
			b.logger.Debug("ignoring unknown orderBy column", zap.String("columnId", ob.ColumnID))
			continue
		}
		keys = append(keys, sortKey{pos: pos, desc: ob.Direction == "desc"})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			c := compareCells(rows[i].cells[k.pos], rows[j].cells[k.pos], coll)
			if c == 0 {
				continue
			}
			if k.desc {
				return c > 0
			}
			return c < 0
		}
		return coll.CompareString(rows[i].name, rows[j].name) < 0
	})
}

// compareCells orders two coerced cell values. Nil sorts before
// everything; NaN sorts before real numbers.
func compareCells(a, b any, coll *collate.Collator) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0
		}
		return coll.CompareString(av, bv)
	case int64, float64:
		return compareNumbers(numeric(a), numeric(b))
	case []int: // date triple
		bv, ok := b.([]int)
		if !ok {
			return 0
		}
		for i := 0; i < len(av) && i < len(bv); i++ {
			if av[i] != bv[i] {
				if av[i] < bv[i] {
					return -1
				}
				return 1
			}
		}
		return 0
	}
	return 0
}

func numeric(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return math.NaN()
}

func compareNumbers(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
