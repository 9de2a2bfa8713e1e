package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/wikistats/tally/internal/db"
	"go.uber.org/zap"
)

// ErrUnavailable is the single condition surfaced when the compiled
// query cannot be executed. Raw SQL, aliases and driver errors stay
// in the logs and never cross the component boundary.
var ErrUnavailable = errors.New("unable to compute statistics")

// compiledQuery is the fully assembled statement plus the positional
// layout needed to pick the raw rows apart again.
type compiledQuery struct {
	sql  string
	args []any

	population bool                  // no output columns requested; bare actor ids
	numColumns int                   // requested columns, positional
	probeAt    map[levelProbe]int    // offset of each probe's first raw input
}

// probe raw inputs are selected in this fixed order after the
// requested columns.
const probeWidth = 3 // edits total, service-award log events total, active days total

// buildQuery assembles the single SELECT for the plan: select list,
// as-of joins, requirement predicates, actor grouping and per-column
// HAVING rules, in that textual order so bound parameters line up.
func buildQuery(def *Definition, p *queryPlan, names db.TableNamer) (*compiledQuery, error) {
	g := &generator{p: p, def: def, names: names}
	w := &sqlWriter{}
	cq := &compiledQuery{
		population: len(def.Columns) == 0,
		numColumns: len(def.Columns),
		probeAt:    make(map[levelProbe]int),
	}

	w.text("SELECT actor.actor_id AS actor_id")
	if !cq.population {
		w.text(", actor.actor_name AS actor_name")
	}

	for i, c := range def.Columns {
		e, err := g.columnExpr(c)
		if err != nil {
			return nil, err
		}
		if e == nil {
			// Post-processed column; a NULL keeps positions aligned.
			e = lit("NULL")
		}
		w.text(", ")
		e.render(w)
		fmt.Fprintf(&w.sb, " AS column%d", i)
	}

	offset := 0
	for _, pr := range p.probes {
		cq.probeAt[pr] = offset
		offset += probeWidth
		actorKey := joinKey{dim: dimActor, boundary: pr.boundary, date: pr.date}
		for _, m := range []Metric{MetricEdits, MetricServiceAwardLogEvents, MetricActiveDays} {
			e, err := asOfTotal(actorKey, m)
			if err != nil {
				return nil, err
			}
			w.text(", ")
			e.render(w)
			fmt.Fprintf(&w.sb, " AS sa_%s_%s_%s", m, pr.boundary, pr.date.Compact())
		}
	}

	fmt.Fprintf(&w.sb, "\nFROM %q AS actor", names(db.TableActors))
	renderJoins(w, p, names)

	preds, err := g.predicates(def.Requirements)
	if err != nil {
		return nil, err
	}
	for i, pred := range preds {
		if i == 0 {
			w.text("\nWHERE ")
		} else {
			w.text("\nAND ")
		}
		pred.render(w)
	}

	// Rows are already unique per actor; the grouping exists so that
	// HAVING can reference output column aliases.
	w.text("\nGROUP BY actor.actor_id")

	having := false
	for i, c := range def.Columns {
		if c.FilterRule != FilterMoreThanZero {
			continue
		}
		if !having {
			w.text("\nHAVING ")
			having = true
		} else {
			w.text(" AND ")
		}
		fmt.Fprintf(&w.sb, "column%d > 0", i)
	}

	cq.sql = w.sb.String()
	cq.args = w.args
	return cq, nil
}

// rawRow is one scanned result row before post-processing.
type rawRow struct {
	actorID int64
	name    string
	cells   []any
	probes  []any // probe raw inputs, probeWidth per probe
	groups  []string
	bot     bool
}

// execute runs the compiled statement in a single round trip and
// splits each row into its positional sections.
func (b *Builder) execute(ctx context.Context, cq *compiledQuery) ([]rawRow, error) {
	b.logger.Debug("executing statistics query",
		zap.String("sql", cq.sql),
		zap.Int("args", len(cq.args)))

	rows, err := b.db.QueryxContext(ctx, cq.sql, cq.args...)
	if err != nil {
		b.logger.Error("statistics query failed", zap.Error(err), zap.String("sql", cq.sql))
		return nil, ErrUnavailable
	}
	defer rows.Close()

	fixed := 1 // actor_id
	if !cq.population {
		fixed = 2 // actor_id, actor_name
	}

	var result []rawRow
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			b.logger.Error("statistics row scan failed", zap.Error(err))
			return nil, ErrUnavailable
		}
		if len(vals) < fixed+cq.numColumns {
			b.logger.Error("statistics row narrower than select list",
				zap.Int("got", len(vals)), zap.Int("want", fixed+cq.numColumns))
			return nil, ErrUnavailable
		}
		r := rawRow{actorID: asInt64(vals[0])}
		if !cq.population {
			r.name = asString(vals[1])
		}
		r.cells = vals[fixed : fixed+cq.numColumns]
		r.probes = vals[fixed+cq.numColumns:]
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		b.logger.Error("statistics query iteration failed", zap.Error(err))
		return nil, ErrUnavailable
	}
	return result, nil
}

// attachGroups looks the group memberships up once per request with a
// single bulk query and attaches them to every row.
func (b *Builder) attachGroups(ctx context.Context, rowsOut []rawRow) error {
	if len(rowsOut) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(rowsOut))
	for _, r := range rowsOut {
		ids = append(ids, r.actorID)
	}

	query, args, err := sqlx.In(
		fmt.Sprintf("SELECT actor_id, group_name FROM %q WHERE actor_id IN (?)", b.names(db.TableActorGroups)),
		ids)
	if err != nil {
		b.logger.Error("group lookup build failed", zap.Error(err))
		return ErrUnavailable
	}

	type groupRow struct {
		ActorID   int64  `db:"actor_id"`
		GroupName string `db:"group_name"`
	}
	var memberships []groupRow
	if err := b.db.SelectContext(ctx, &memberships, b.db.Rebind(query), args...); err != nil {
		b.logger.Error("group lookup failed", zap.Error(err))
		return ErrUnavailable
	}

	byActor := make(map[int64][]string, len(rowsOut))
	for _, m := range memberships {
		byActor[m.ActorID] = append(byActor[m.ActorID], m.GroupName)
	}
	for i := range rowsOut {
		groups := byActor[rowsOut[i].actorID]
		rowsOut[i].groups = groups
		for _, grp := range groups {
			if grp == "bot" {
				rowsOut[i].bot = true
			}
		}
	}
	return nil
}

// asInt64 coerces the driver's numeric representations.
func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	}
	return 0
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if bs, ok := v.([]byte); ok {
		return string(bs)
	}
	return fmt.Sprintf("%v", v)
}
