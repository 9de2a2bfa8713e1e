// Package report compiles declarative statistics reports over a
// wiki's cumulative daily edit counters into a single relational
// query, executes it, and post-processes the raw rows into typed,
// sorted, bounded results.
//
// The pipeline is strictly forward: analyze → plan joins → generate
// selects and predicates → execute once → post-process. Every
// intermediate structure is request-scoped; nothing is cached or
// shared between invocations.
package report

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/wikistats/tally/internal/db"
	"github.com/wikistats/tally/internal/ladder"
	"go.uber.org/zap"
)

// Definition is one report request.
type Definition struct {
	Columns              []ColumnSpec  `json:"columns,omitempty"`
	Requirements         *Requirements `json:"requirements,omitempty"`
	OrderBy              []OrderBy     `json:"orderBy,omitempty"`
	ItemCount            int           `json:"itemCount,omitempty"` // 0 = unbounded
	StartDate            *Day          `json:"startDate,omitempty"` // nil = timeless list
	EndDate              Day           `json:"endDate"`
	SkipBotsFromCounting bool          `json:"skipBotsFromCounting,omitempty"`
}

// ActorResult is one qualifying actor with its positional column
// data. Dates are encoded as [year, month(0-based), day].
type ActorResult struct {
	ActorID    int64    `json:"actorId"`
	Name       string   `json:"name"`
	Groups     []string `json:"groups"`
	ColumnData []any    `json:"columnData,omitempty"`
}

// Builder compiles and runs report definitions against one wiki's
// counter store. Safe for concurrent use; every Run builds its own
// request-scoped state.
type Builder struct {
	db     *sqlx.DB
	names  db.TableNamer
	ladder ladder.Ladder
	logger *zap.Logger

	// MaxItems caps the rows any single report may return; 0 means no
	// cap beyond the definition's own itemCount.
	MaxItems int
}

// New creates a report builder for one wiki's tables.
func New(database *sqlx.DB, names db.TableNamer, lad ladder.Ladder, logger *zap.Logger) *Builder {
	if lad == nil {
		lad = ladder.Default
	}
	return &Builder{db: database, names: names, ladder: lad, logger: logger}
}

// Run compiles the definition into a single query, executes it, and
// post-processes the rows into the final ordered result list.
func (b *Builder) Run(ctx context.Context, def *Definition) ([]ActorResult, error) {
	if def.EndDate.IsZero() {
		return nil, fmt.Errorf("report definition needs an end date")
	}
	for _, c := range def.Columns {
		if !c.Kind.Valid() {
			return nil, fmt.Errorf("unknown column kind %q", c.Kind)
		}
	}

	plan, err := analyze(def)
	if err != nil {
		return nil, fmt.Errorf("analyze report: %w", err)
	}

	cq, err := buildQuery(def, plan, b.names)
	if err != nil {
		return nil, fmt.Errorf("compile report: %w", err)
	}

	rows, err := b.execute(ctx, cq)
	if err != nil {
		return nil, err
	}

	levels := b.computeLevels(plan, cq, rows)
	rows, levels = applyLevelRequirements(def, plan, rows, levels)

	if cq.population {
		// Population-counting mode: bare actor identifiers, no column
		// logic, no group attachment.
		out := make([]ActorResult, 0, len(rows))
		for _, r := range rows {
			out = append(out, ActorResult{ActorID: r.actorID})
		}
		if limit := b.limit(def); limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return out, nil
	}

	if err := b.attachGroups(ctx, rows); err != nil {
		return nil, err
	}

	fillComputedColumns(def, plan, rows, levels)
	coerceCells(def, rows)
	b.sortRows(def, rows)
	rows = assignCounters(def, rows, b.limit(def))

	out := make([]ActorResult, 0, len(rows))
	for _, r := range rows {
		out = append(out, ActorResult{
			ActorID:    r.actorID,
			Name:       r.name,
			Groups:     r.groups,
			ColumnData: r.cells,
		})
	}
	return out, nil
}

// limit resolves the effective row bound for a definition.
func (b *Builder) limit(def *Definition) int {
	limit := def.ItemCount
	if b.MaxItems > 0 && (limit == 0 || limit > b.MaxItems) {
		limit = b.MaxItems
	}
	return limit
}
