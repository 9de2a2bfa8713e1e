package report

import (
	"fmt"

	"github.com/wikistats/tally/internal/db"
)

// metricCols names the daily counter and its running total for one
// metric family within one snapshot table.
type metricCols struct {
	daily  string
	toDate string
}

// metricColumns resolves a metric within a dimension, erroring on
// combinations the snapshot store does not track.
func metricColumns(m Metric, dim dimension) (metricCols, error) {
	base := map[Metric]metricCols{
		MetricEdits:                 {"daily_edits", "edits_to_date"},
		MetricRevertedEdits:         {"daily_reverted_edits", "reverted_edits_to_date"},
		MetricCharacterChanges:      {"daily_character_changes", "character_changes_to_date"},
		MetricReceivedThanks:        {"daily_received_thanks", "received_thanks_to_date"},
		MetricSentThanks:            {"daily_sent_thanks", "sent_thanks_to_date"},
		MetricLogEvents:             {"daily_log_events", "log_events_to_date"},
		MetricServiceAwardLogEvents: {"daily_service_award_log_events", "service_award_log_events_to_date"},
		MetricActiveDays:            {"daily_active_day", "active_days_to_date"},
	}

	supported := func(metrics ...Metric) bool {
		for _, sm := range metrics {
			if sm == m {
				return true
			}
		}
		return false
	}

	switch dim {
	case dimActor, dimWiki:
		if m == MetricServiceAwardContributions {
			// Composite; callers expand it before reaching here.
			return metricCols{}, fmt.Errorf("metric %q has no single column pair", m)
		}
		return base[m], nil
	case dimNamespace:
		if !supported(MetricEdits, MetricRevertedEdits, MetricCharacterChanges) {
			return metricCols{}, fmt.Errorf("metric %q not tracked by namespace", m)
		}
		return base[m], nil
	case dimChangeTag:
		if !supported(MetricEdits, MetricCharacterChanges) {
			return metricCols{}, fmt.Errorf("metric %q not tracked by change tag", m)
		}
		return base[m], nil
	case dimLogType:
		if m != MetricLogEvents {
			return metricCols{}, fmt.Errorf("metric %q not tracked by log type", m)
		}
		return base[m], nil
	}
	return metricCols{}, fmt.Errorf("unknown dimension %q", dim)
}

// asOfTotal is the cumulative value of a metric as of an as-of join:
// IFNULL(alias.to_date + alias.daily, 0). The IFNULL runs before any
// subtraction so a missing start snapshot means "zero prior", never
// "unknown".
func asOfTotal(k joinKey, m Metric) (expr, error) {
	if m == MetricServiceAwardContributions {
		edits, err := asOfTotal(k, MetricEdits)
		if err != nil {
			return nil, err
		}
		logs, err := asOfTotal(k, MetricServiceAwardLogEvents)
		if err != nil {
			return nil, err
		}
		return add(edits, logs), nil
	}
	mc, err := metricColumns(m, k.dim)
	if err != nil {
		return nil, err
	}
	alias := k.alias()
	return ifnullZero(add(col(alias, mc.toDate), col(alias, mc.daily))), nil
}

// windowCount is the metric's value over a window against one base
// key shape: the end-of-window total, minus the start-of-window
// baseline when the window is bounded. Deltas are returned literally,
// negative values included.
func windowCount(base joinKey, m Metric, wStart, wEnd Day, bounded bool) (expr, error) {
	endK := base
	endK.boundary = boundaryEnd
	endK.date = wEnd
	e, err := asOfTotal(endK, m)
	if err != nil {
		return nil, err
	}
	if !bounded {
		return e, nil
	}
	startK := base
	startK.boundary = boundaryStart
	startK.date = wStart
	s, err := asOfTotal(startK, m)
	if err != nil {
		return nil, err
	}
	return sub(e, s), nil
}

// sumOver folds per-discriminator window counts with +, so columns
// parameterized by several namespaces, tags or log filters report one
// summed figure.
func sumOver[T any](items []T, build func(T) (expr, error)) (expr, error) {
	var total expr
	for _, item := range items {
		e, err := build(item)
		if err != nil {
			return nil, err
		}
		if total == nil {
			total = e
		} else {
			total = add(total, e)
		}
	}
	if total == nil {
		return lit("NULL"), nil
	}
	return total, nil
}

// generator renders select expressions and predicates against the
// aliases the plan's joins establish. It is a pure function of the
// plan and definition.
type generator struct {
	p     *queryPlan
	def   *Definition
	names db.TableNamer
}

// actorWindow is the request-window count of m on the plain actor
// dimension.
func (g *generator) actorWindow(m Metric) (expr, error) {
	return windowCount(joinKey{dim: dimActor}, m, g.p.start, g.p.end, g.p.hasStart)
}

// actorTotal is the since-registration count of m as of the window
// end.
func (g *generator) actorTotal(m Metric) (expr, error) {
	return asOfTotal(joinKey{dim: dimActor, boundary: boundaryEnd, date: g.p.end}, m)
}

func (g *generator) wikiWindow(m Metric) (expr, error) {
	return windowCount(joinKey{dim: dimWiki}, m, g.p.start, g.p.end, g.p.hasStart)
}

func (g *generator) wikiTotal(m Metric) (expr, error) {
	return asOfTotal(joinKey{dim: dimWiki, boundary: boundaryEnd, date: g.p.end}, m)
}

// periodPercent builds "actor window value as a share of the wiki
// window value" for the metric.
func (g *generator) periodPercent(m Metric) (expr, error) {
	num, err := g.actorWindow(m)
	if err != nil {
		return nil, err
	}
	den, err := g.wikiWindow(m)
	if err != nil {
		return nil, err
	}
	return percentage(num, den), nil
}

func (g *generator) totalPercent(m Metric) (expr, error) {
	num, err := g.actorTotal(m)
	if err != nil {
		return nil, err
	}
	den, err := g.wikiTotal(m)
	if err != nil {
		return nil, err
	}
	return percentage(num, den), nil
}

// milestoneCase builds the ordered crossing ladder: the first clause
// whose milestone is reached by endE but not by startE wins. List
// order is preserved, never sorted.
func milestoneCase(endE, startE expr, milestones []int64) expr {
	if len(milestones) == 0 {
		return lit("NULL")
	}
	var whens []whenClause
	for _, m := range milestones {
		cond := and(cmp(endE, ">=", param(m)), cmp(startE, "<", param(m)))
		whens = append(whens, whenClause{cond: cond, then: param(m)})
	}
	return caseExpr{whens: whens}
}

// reachedCase reports the first milestone reached by a single value.
func reachedCase(value expr, milestones []int64) expr {
	if len(milestones) == 0 {
		return lit("NULL")
	}
	var whens []whenClause
	for _, m := range milestones {
		whens = append(whens, whenClause{cond: cmp(value, ">=", param(m)), then: param(m)})
	}
	return caseExpr{whens: whens}
}

// activityDate is the MIN or MAX snapshot date on which the given
// daily counter was positive, bounded by the window end, with the
// "never happened" sentinel as fallback.
func (g *generator) activityDate(agg, dailyColumn string) expr {
	return ifnull(g.rawActivityDate(agg, dailyColumn), lit("'1900-01-01'"))
}

func (g *generator) rawActivityDate(agg, dailyColumn string) expr {
	return scalarSubquery{
		table:       g.names(db.TableActorStats),
		agg:         agg,
		dailyColumn: dailyColumn,
		end:         g.p.end.String(),
	}
}

// scalarSubquery renders a correlated MIN/MAX-date probe over the
// actor snapshot table.
type scalarSubquery struct {
	table       string
	agg         string
	dailyColumn string
	end         string
}

func (e scalarSubquery) render(w *sqlWriter) {
	fmt.Fprintf(&w.sb, "(SELECT %s(s.date) FROM %q s WHERE s.actor_id = actor.actor_id AND s.%s > 0 AND s.date <= ", e.agg, e.table, e.dailyColumn)
	w.param(e.end)
	w.text(")")
}

// julianday wraps sqlite's julianday().
func julianday(e expr) expr {
	return funcExpr{name: "julianday", fargs: []expr{e}}
}

// daysSinceRegistration renders the inclusive day count from the
// actor's registration to the window end. NULL registration dates
// propagate to a NULL average.
func (g *generator) daysSinceRegistration() expr {
	return add(sub(julianday(param(g.p.end.String())), julianday(col("actor", "registration_date"))), lit("1"))
}

// averageSinceRegistration is total edits per day since registration.
func (g *generator) averageSinceRegistration() (expr, error) {
	total, err := g.actorTotal(MetricEdits)
	if err != nil {
		return nil, err
	}
	return funcExpr{name: "ROUND", fargs: []expr{
		ratio(total, g.daysSinceRegistration()),
		lit("3"),
	}}, nil
}

// columnExpr emits the single select expression for one column, or
// nil for columns that are filled during post-processing.
func (g *generator) columnExpr(c ColumnSpec) (expr, error) {
	if c.Kind.computedInPost() {
		return nil, nil
	}

	switch c.Kind {
	case KindUserRegistrationDate:
		return ifnull(col("actor", "registration_date"), lit("'1900-01-01'")), nil

	case KindEditsInPeriod:
		return g.actorWindow(MetricEdits)
	case KindEditsInPeriodPercentageToWikiTotal:
		return g.periodPercent(MetricEdits)
	case KindEditsSinceRegistration:
		return g.actorTotal(MetricEdits)
	case KindEditsSinceRegistrationPercentageToWikiTotal:
		return g.totalPercent(MetricEdits)

	case KindEditsInPeriodMilestone:
		delta, err := g.actorWindow(MetricEdits)
		if err != nil {
			return nil, err
		}
		return reachedCase(delta, c.Milestones), nil
	case KindEditsSinceRegistrationMilestone:
		endE, err := g.actorTotal(MetricEdits)
		if err != nil {
			return nil, err
		}
		startE := expr(lit("0"))
		if g.p.hasStart {
			startE, err = asOfTotal(joinKey{dim: dimActor, boundary: boundaryStart, date: g.p.start}, MetricEdits)
			if err != nil {
				return nil, err
			}
		}
		return milestoneCase(endE, startE, c.Milestones), nil

	case KindAverageEditsPerDayInPeriod:
		if !g.p.hasStart {
			return g.averageSinceRegistration()
		}
		delta, err := g.actorWindow(MetricEdits)
		if err != nil {
			return nil, err
		}
		days := g.p.start.DaysUntil(g.p.end) + 1
		return funcExpr{name: "ROUND", fargs: []expr{
			ratio(delta, param(days)),
			lit("3"),
		}}, nil
	case KindAverageEditsPerDaySinceRegistration:
		return g.averageSinceRegistration()

	case KindFirstEditDate:
		return g.activityDate("MIN", "daily_edits"), nil
	case KindLastEditDate:
		return g.activityDate("MAX", "daily_edits"), nil
	case KindFirstLogEventDate:
		return g.activityDate("MIN", "daily_log_events"), nil
	case KindLastLogEventDate:
		return g.activityDate("MAX", "daily_log_events"), nil
	case KindDaysBetweenFirstAndLastEdit:
		first := g.rawActivityDate("MIN", "daily_edits")
		last := g.rawActivityDate("MAX", "daily_edits")
		return castInt{inner: sub(julianday(last), julianday(first))}, nil

	case KindEditsInNamespaceInPeriod:
		return g.namespaceWindow(c.Namespaces, MetricEdits)
	case KindEditsInNamespaceSinceRegistration:
		return g.namespaceTotal(c.Namespaces, MetricEdits)
	case KindEditsInNamespaceInPeriodPercentageToOwnTotal:
		num, err := g.namespaceWindow(c.Namespaces, MetricEdits)
		if err != nil {
			return nil, err
		}
		den, err := g.actorWindow(MetricEdits)
		if err != nil {
			return nil, err
		}
		return percentage(num, den), nil
	case KindEditsInNamespaceSinceRegistrationPercentageToOwnTotal:
		num, err := g.namespaceTotal(c.Namespaces, MetricEdits)
		if err != nil {
			return nil, err
		}
		den, err := g.actorTotal(MetricEdits)
		if err != nil {
			return nil, err
		}
		return percentage(num, den), nil

	case KindEditsWithChangeTagInPeriod:
		return sumOver(c.ChangeTags, func(ct int) (expr, error) {
			return windowCount(joinKey{dim: dimChangeTag, changeTag: ct}, MetricEdits, g.p.start, g.p.end, g.p.hasStart)
		})
	case KindEditsWithChangeTagSinceRegistration:
		return sumOver(c.ChangeTags, func(ct int) (expr, error) {
			return asOfTotal(joinKey{dim: dimChangeTag, changeTag: ct, boundary: boundaryEnd, date: g.p.end}, MetricEdits)
		})

	case KindRevertedEditsInPeriod:
		return g.actorWindow(MetricRevertedEdits)
	case KindRevertedEditsInPeriodPercentageToWikiTotal:
		return g.periodPercent(MetricRevertedEdits)
	case KindRevertedEditsInPeriodPercentageToOwnEdits:
		num, err := g.actorWindow(MetricRevertedEdits)
		if err != nil {
			return nil, err
		}
		den, err := g.actorWindow(MetricEdits)
		if err != nil {
			return nil, err
		}
		return percentage(num, den), nil
	case KindRevertedEditsSinceRegistration:
		return g.actorTotal(MetricRevertedEdits)
	case KindRevertedEditsSinceRegistrationPercentageToWikiTotal:
		return g.totalPercent(MetricRevertedEdits)
	case KindRevertedEditsSinceRegistrationPercentageToOwnEdits:
		num, err := g.actorTotal(MetricRevertedEdits)
		if err != nil {
			return nil, err
		}
		den, err := g.actorTotal(MetricEdits)
		if err != nil {
			return nil, err
		}
		return percentage(num, den), nil

	case KindCharacterChangesInPeriod:
		return g.actorWindow(MetricCharacterChanges)
	case KindCharacterChangesInPeriodPercentageToWikiTotal:
		return g.periodPercent(MetricCharacterChanges)
	case KindCharacterChangesSinceRegistration:
		return g.actorTotal(MetricCharacterChanges)
	case KindCharacterChangesSinceRegistrationPercentageToWikiTotal:
		return g.totalPercent(MetricCharacterChanges)

	case KindReceivedThanksInPeriod:
		return g.actorWindow(MetricReceivedThanks)
	case KindReceivedThanksInPeriodPercentageToWikiTotal:
		return g.periodPercent(MetricReceivedThanks)
	case KindReceivedThanksSinceRegistration:
		return g.actorTotal(MetricReceivedThanks)
	case KindReceivedThanksSinceRegistrationPercentageToWikiTotal:
		return g.totalPercent(MetricReceivedThanks)
	case KindSentThanksInPeriod:
		return g.actorWindow(MetricSentThanks)
	case KindSentThanksSinceRegistration:
		return g.actorTotal(MetricSentThanks)

	case KindLogEventsInPeriod:
		return g.actorWindow(MetricLogEvents)
	case KindLogEventsInPeriodPercentageToWikiTotal:
		return g.periodPercent(MetricLogEvents)
	case KindLogEventsSinceRegistration:
		return g.actorTotal(MetricLogEvents)
	case KindLogEventsSinceRegistrationPercentageToWikiTotal:
		return g.totalPercent(MetricLogEvents)
	case KindLogEventsWithTypeInPeriod:
		return sumOver(c.LogFilters, func(f LogFilter) (expr, error) {
			return windowCount(joinKey{dim: dimLogType, logType: f.Type, logAction: f.Action}, MetricLogEvents, g.p.start, g.p.end, g.p.hasStart)
		})
	case KindLogEventsWithTypeSinceRegistration:
		return sumOver(c.LogFilters, func(f LogFilter) (expr, error) {
			return asOfTotal(joinKey{dim: dimLogType, logType: f.Type, logAction: f.Action, boundary: boundaryEnd, date: g.p.end}, MetricLogEvents)
		})

	case KindActiveDaysInPeriod:
		return g.actorWindow(MetricActiveDays)
	case KindActiveDaysSinceRegistration:
		return g.actorTotal(MetricActiveDays)

	case KindServiceAwardContributionsInPeriod:
		return g.actorWindow(MetricServiceAwardContributions)
	case KindServiceAwardContributionsSinceRegistration:
		return g.actorTotal(MetricServiceAwardContributions)
	}

	return nil, fmt.Errorf("no select expression for column kind %q", c.Kind)
}

func (g *generator) namespaceWindow(namespaces []int, m Metric) (expr, error) {
	return sumOver(namespaces, func(ns int) (expr, error) {
		return windowCount(joinKey{dim: dimNamespace, namespace: ns}, m, g.p.start, g.p.end, g.p.hasStart)
	})
}

func (g *generator) namespaceTotal(namespaces []int, m Metric) (expr, error) {
	return sumOver(namespaces, func(ns int) (expr, error) {
		return asOfTotal(joinKey{dim: dimNamespace, namespace: ns, boundary: boundaryEnd, date: g.p.end}, m)
	})
}

// predicates emits one AND-ed predicate per requirement field that
// can be pushed into SQL. Level requirements are handled in
// post-processing and produce nothing here.
func (g *generator) predicates(req *Requirements) ([]expr, error) {
	if req == nil {
		return nil, nil
	}
	var preds []expr

	if req.RegisteredOnly {
		preds = append(preds, cmp(col("actor", "is_registered"), "=", lit("1")))
	}
	if req.RegisteredAfter != nil {
		preds = append(preds, cmp(col("actor", "registration_date"), ">=", param(req.RegisteredAfter.String())))
	}
	if req.RegisteredBefore != nil {
		preds = append(preds, cmp(col("actor", "registration_date"), "<=", param(req.RegisteredBefore.String())))
	}

	groups := g.names(db.TableActorGroups)
	if len(req.InAnyGroup) > 0 {
		preds = append(preds, membership(groups, "group_name", req.InAnyGroup, false))
	}
	for _, group := range req.InAllGroups {
		preds = append(preds, membership(groups, "group_name", []string{group}, false))
	}
	if len(req.NotInAnyGroup) > 0 {
		preds = append(preds, membership(groups, "group_name", req.NotInAnyGroup, true))
	}

	templates := g.names(db.TableTalkTemplates)
	if len(req.HasAnyTalkTemplate) > 0 {
		preds = append(preds, membership(templates, "template_name", req.HasAnyTalkTemplate, false))
	}
	for _, tpl := range req.HasAllTalkTemplates {
		preds = append(preds, membership(templates, "template_name", []string{tpl}, false))
	}

	for _, c := range req.Counts {
		wStart, wEnd, ok := c.window(g.p.start, g.p.end)
		if !ok {
			continue
		}
		value, err := countValue(c, wStart, wEnd)
		if err != nil {
			return nil, err
		}
		if c.AtLeast != nil {
			preds = append(preds, cmp(value, ">=", param(*c.AtLeast)))
		}
		if c.AtMost != nil {
			preds = append(preds, cmp(value, "<=", param(*c.AtMost)))
		}
	}

	return preds, nil
}

// countValue builds the measured quantity for one count requirement,
// mirroring the column arithmetic exactly.
func countValue(c CountRequirement, wStart, wEnd Day) (expr, error) {
	bounded := c.Scope == ScopeInPeriod && !wStart.IsZero()
	switch {
	case len(c.Namespaces) > 0:
		return sumOver(c.Namespaces, func(ns int) (expr, error) {
			return windowCount(joinKey{dim: dimNamespace, namespace: ns}, c.Metric, wStart, wEnd, bounded)
		})
	case len(c.ChangeTags) > 0:
		return sumOver(c.ChangeTags, func(ct int) (expr, error) {
			return windowCount(joinKey{dim: dimChangeTag, changeTag: ct}, c.Metric, wStart, wEnd, bounded)
		})
	case len(c.LogFilters) > 0:
		return sumOver(c.LogFilters, func(f LogFilter) (expr, error) {
			return windowCount(joinKey{dim: dimLogType, logType: f.Type, logAction: f.Action}, c.Metric, wStart, wEnd, bounded)
		})
	default:
		return windowCount(joinKey{dim: dimActor}, c.Metric, wStart, wEnd, bounded)
	}
}

// membership builds an (optionally negated) EXISTS probe against a
// per-actor attribute table.
func membership(table, column string, values []string, negate bool) expr {
	return existsExpr{table: table, column: column, values: values, not: negate}
}

type existsExpr struct {
	table  string
	column string
	values []string
	not    bool
}

func (e existsExpr) render(w *sqlWriter) {
	if e.not {
		w.text("NOT ")
	}
	fmt.Fprintf(&w.sb, "EXISTS (SELECT 1 FROM %q m WHERE m.actor_id = actor.actor_id AND m.%s IN (", e.table, e.column)
	for i, v := range e.values {
		if i > 0 {
			w.text(", ")
		}
		w.param(v)
	}
	w.text("))")
}

// castInt renders CAST(inner AS INTEGER).
type castInt struct {
	inner expr
}

func (e castInt) render(w *sqlWriter) {
	w.text("CAST(")
	e.inner.render(w)
	w.text(" AS INTEGER)")
}
