package report

import (
	"math"
	"strconv"
	"strings"

	"github.com/wikistats/tally/internal/ladder"
)

// levelsAt holds one row's computed ladder positions keyed by probe.
type levelsAt map[levelProbe]ladder.Result

// computeLevels evaluates the ladder state machine for every probe of
// every row. Contributions are the edits total plus the
// service-award log events total at the probe's instant.
func (b *Builder) computeLevels(p *queryPlan, cq *compiledQuery, rows []rawRow) []levelsAt {
	out := make([]levelsAt, len(rows))
	for i, r := range rows {
		la := make(levelsAt, len(p.probes))
		for _, pr := range p.probes {
			off := cq.probeAt[pr]
			if off+probeWidth > len(r.probes) {
				continue
			}
			edits := asInt64(r.probes[off])
			logs := asInt64(r.probes[off+1])
			days := asInt64(r.probes[off+2])
			la[pr] = b.ladder.At(edits+logs, days)
		}
		out[i] = la
	}
	return out
}

// levelCell renders a level result as [id, label], or nil when no
// rung is held.
func levelCell(res ladder.Result, ok bool) any {
	if !ok || !res.HasLevel() {
		return nil
	}
	return []any{res.Level.ID, res.Level.Label}
}

// fillComputedColumns resolves the post-processed column kinds
// (name, groups, level outputs) into each row's cells. Counters are
// assigned later, after sorting.
func fillComputedColumns(def *Definition, p *queryPlan, rows []rawRow, levels []levelsAt) {
	endProbe := levelProbe{boundary: boundaryEnd, date: p.end}
	startProbe := levelProbe{boundary: boundaryStart, date: p.start}

	for i := range rows {
		la := levels[i]
		endRes, endOK := la[endProbe]
		startRes, startOK := la[startProbe]

		for ci, c := range def.Columns {
			switch c.Kind {
			case KindUserName:
				rows[i].cells[ci] = rows[i].name
			case KindUserGroups:
				rows[i].cells[ci] = rows[i].groups
			case KindLevelAtPeriodStart:
				rows[i].cells[ci] = levelCell(startRes, startOK && p.hasStart)
			case KindLevelAtPeriodEnd:
				rows[i].cells[ci] = levelCell(endRes, endOK)
			case KindLevelAtPeriodEndWithChange:
				cell := levelCell(endRes, endOK)
				if cell == nil {
					rows[i].cells[ci] = nil
					break
				}
				changed := false
				if p.hasStart && startOK {
					changed = endRes.Index != startRes.Index
				}
				rows[i].cells[ci] = append(cell.([]any), changed)
			case KindLevelSortOrder:
				if endOK {
					rows[i].cells[ci] = endRes.SortOrder()
				}
			}
		}
	}
}

// applyLevelRequirements drops the rows failing the only requirements
// that cannot be pushed into SQL: service-award level membership. All
// SQL-side filtering has already run by the time this executes.
func applyLevelRequirements(def *Definition, p *queryPlan, rows []rawRow, levels []levelsAt) ([]rawRow, []levelsAt) {
	req := def.Requirements
	if req == nil || !req.needsLevels() {
		return rows, levels
	}

	endProbe := levelProbe{boundary: boundaryEnd, date: p.end}
	startProbe := levelProbe{boundary: boundaryStart, date: p.start}

	keptRows := rows[:0]
	keptLevels := levels[:0]
	for i := range rows {
		endRes, endOK := levels[i][endProbe]
		if !endOK || !endRes.HasLevel() {
			continue
		}
		if len(req.HasLevel) > 0 && !containsString(req.HasLevel, endRes.Level.ID) {
			continue
		}
		if req.HasLevelAndChanged && p.hasStart {
			startRes, startOK := levels[i][startProbe]
			if startOK && startRes.Index == endRes.Index {
				continue
			}
		}
		keptRows = append(keptRows, rows[i])
		keptLevels = append(keptLevels, levels[i])
	}
	return keptRows, keptLevels
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// coerceCells normalizes driver values per column type: numeric
// strings become ints or floats by presence of a decimal point
// (non-parseable ones become NaN), dates become [year, month, day]
// triples with a zero-based month, and the 1900-01-01 join sentinel
// becomes a nil cell.
func coerceCells(def *Definition, rows []rawRow) {
	for i := range rows {
		for ci, c := range def.Columns {
			vt, err := c.Kind.ValueType()
			if err != nil {
				continue
			}
			rows[i].cells[ci] = coerceValue(rows[i].cells[ci], vt)
		}
	}
}

func coerceValue(v any, vt ValueType) any {
	if v == nil {
		return nil
	}
	if bs, ok := v.([]byte); ok {
		v = string(bs)
	}
	switch vt {
	case TypeNumber, TypePercent:
		return coerceNumber(v)
	case TypeDate:
		return coerceDate(v)
	case TypeString:
		return asString(v)
	}
	return v
}

func coerceNumber(v any) any {
	switch n := v.(type) {
	case int64, float64:
		return n
	case string:
		if strings.Contains(n, ".") {
			f, err := strconv.ParseFloat(n, 64)
			if err != nil {
				return math.NaN()
			}
			return f
		}
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return math.NaN()
		}
		return i
	}
	return v
}

func coerceDate(v any) any {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	d, err := ParseDay(s)
	if err != nil || d.Equal(neverDay) {
		return nil
	}
	return d.Triple()
}

// assignCounters numbers the sorted rows and truncates to the item
// limit. With bot skipping enabled, bot rows keep an empty counter
// placeholder, stay in the list, and do not consume a number; the cut
// happens after counting, when the limit's worth of numbered rows is
// in the list.
func assignCounters(def *Definition, rows []rawRow, limit int) []rawRow {
	var out []rawRow
	counter := int64(0)
	for i := range rows {
		skip := def.SkipBotsFromCounting && rows[i].bot
		if !skip {
			counter++
		}
		for ci, c := range def.Columns {
			if c.Kind != KindCounter {
				continue
			}
			if skip {
				rows[i].cells[ci] = nil
			} else {
				rows[i].cells[ci] = counter
			}
		}
		out = append(out, rows[i])
		if limit > 0 && !skip && counter >= int64(limit) {
			break
		}
	}
	return out
}
