package report

import (
	"fmt"
	"strings"
)

// dimension names the snapshot family a join resolves against.
type dimension string

const (
	dimActor     dimension = "actor"
	dimWiki      dimension = "wiki"
	dimNamespace dimension = "ns"
	dimChangeTag dimension = "ct"
	dimLogType   dimension = "log"
)

// boundary distinguishes the two as-of comparators. End-of-period
// joins take the latest snapshot at or before the target date
// (INNER); start-of-period joins take the latest snapshot strictly
// before it (LEFT), because contributions made on the start date
// belong to the period, not to the baseline.
type boundary string

const (
	boundaryEnd   boundary = "asof"
	boundaryStart boundary = "from"
)

// joinKey is the deduplication unit: every distinct key becomes
// exactly one join in the compiled query no matter how many columns
// or requirement clauses reference it.
type joinKey struct {
	dim       dimension
	namespace int
	changeTag int
	logType   string
	logAction string
	boundary  boundary
	date      Day
}

// alias derives the deterministic, collision-free join alias.
func (k joinKey) alias() string {
	var sb strings.Builder
	if k.dim == dimWiki {
		sb.WriteString("wiki")
	} else {
		sb.WriteString("actor")
	}
	switch k.dim {
	case dimNamespace:
		if k.namespace < 0 {
			fmt.Fprintf(&sb, "_nsm%d", -k.namespace)
		} else {
			fmt.Fprintf(&sb, "_ns%d", k.namespace)
		}
	case dimChangeTag:
		fmt.Fprintf(&sb, "_ct%d", k.changeTag)
	case dimLogType:
		sb.WriteString("_log_")
		sb.WriteString(sanitizeAlias(k.logType))
		sb.WriteString("_")
		if k.logAction == "" {
			sb.WriteString("any")
		} else {
			sb.WriteString(sanitizeAlias(k.logAction))
		}
	}
	sb.WriteString("_")
	sb.WriteString(string(k.boundary))
	sb.WriteString("_")
	sb.WriteString(k.date.Compact())
	return sb.String()
}

// sanitizeAlias reduces a log type or action to alias-safe runes.
func sanitizeAlias(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteRune('x')
		}
	}
	return sb.String()
}

// levelProbe marks one instant at which post-processing needs the raw
// service-award ladder inputs (edits, service-award log events and
// active days totals) for every row.
type levelProbe struct {
	boundary boundary
	date     Day
}

// queryPlan is the analyzer's immutable output: the deduplicated join
// keys and level probes the rest of the pipeline renders from. Later
// stages only read it.
type queryPlan struct {
	keys     []joinKey
	keySet   map[joinKey]struct{}
	probes   []levelProbe
	probeSet map[levelProbe]struct{}

	start    Day // zero for timeless lists
	end      Day
	hasStart bool
}

func newQueryPlan(start *Day, end Day) *queryPlan {
	p := &queryPlan{
		keySet:   make(map[joinKey]struct{}),
		probeSet: make(map[levelProbe]struct{}),
		end:      end,
	}
	if start != nil {
		p.start = *start
		p.hasStart = true
	}
	return p
}

// need records a join key, deduplicating by calendar-day equality.
func (p *queryPlan) need(k joinKey) joinKey {
	if _, ok := p.keySet[k]; !ok {
		p.keySet[k] = struct{}{}
		p.keys = append(p.keys, k)
	}
	return k
}

// needProbe records a level probe plus the actor join it reads from.
func (p *queryPlan) needProbe(b boundary, date Day) {
	pr := levelProbe{boundary: b, date: date}
	if _, ok := p.probeSet[pr]; !ok {
		p.probeSet[pr] = struct{}{}
		p.probes = append(p.probes, pr)
	}
	p.need(joinKey{dim: dimActor, boundary: b, date: date})
}

// actorEnd and friends are the analyzer's shorthand for the common
// key shapes.
func (p *queryPlan) actorEnd(d Day) joinKey {
	return p.need(joinKey{dim: dimActor, boundary: boundaryEnd, date: d})
}

func (p *queryPlan) actorStart(d Day) joinKey {
	return p.need(joinKey{dim: dimActor, boundary: boundaryStart, date: d})
}

func (p *queryPlan) wikiEnd(d Day) joinKey {
	return p.need(joinKey{dim: dimWiki, boundary: boundaryEnd, date: d})
}

func (p *queryPlan) wikiStart(d Day) joinKey {
	return p.need(joinKey{dim: dimWiki, boundary: boundaryStart, date: d})
}

// analyze walks the column list and the requirement object once and
// produces the complete, deduplicated plan for the final query.
func analyze(def *Definition) (*queryPlan, error) {
	p := newQueryPlan(def.StartDate, def.EndDate)

	for _, col := range def.Columns {
		if !col.Kind.Valid() {
			return nil, fmt.Errorf("unknown column kind %q", col.Kind)
		}
		analyzeColumn(p, col)
	}

	if def.Requirements != nil {
		if err := analyzeRequirements(p, def.Requirements); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// analyzeColumn translates one column into its 0-2 required dates per
// dimension. Start-dependent keys are silently skipped on timeless
// lists.
func analyzeColumn(p *queryPlan, col ColumnSpec) {
	needStart := func() {
		if p.hasStart {
			p.actorStart(p.start)
		}
	}
	needWikiPeriod := func() {
		p.wikiEnd(p.end)
		if p.hasStart {
			p.wikiStart(p.start)
		}
	}

	switch col.Kind {
	case KindEditsInPeriod, KindRevertedEditsInPeriod,
		KindCharacterChangesInPeriod, KindReceivedThanksInPeriod,
		KindSentThanksInPeriod, KindLogEventsInPeriod,
		KindActiveDaysInPeriod, KindServiceAwardContributionsInPeriod,
		KindAverageEditsPerDayInPeriod,
		KindEditsInPeriodMilestone, KindEditsSinceRegistrationMilestone:
		p.actorEnd(p.end)
		needStart()

	case KindEditsInPeriodPercentageToWikiTotal,
		KindRevertedEditsInPeriodPercentageToWikiTotal,
		KindCharacterChangesInPeriodPercentageToWikiTotal,
		KindReceivedThanksInPeriodPercentageToWikiTotal,
		KindLogEventsInPeriodPercentageToWikiTotal:
		p.actorEnd(p.end)
		needStart()
		needWikiPeriod()

	case KindEditsSinceRegistration, KindRevertedEditsSinceRegistration,
		KindCharacterChangesSinceRegistration,
		KindReceivedThanksSinceRegistration,
		KindSentThanksSinceRegistration, KindLogEventsSinceRegistration,
		KindActiveDaysSinceRegistration,
		KindServiceAwardContributionsSinceRegistration,
		KindAverageEditsPerDaySinceRegistration:
		p.actorEnd(p.end)

	case KindEditsSinceRegistrationPercentageToWikiTotal,
		KindRevertedEditsSinceRegistrationPercentageToWikiTotal,
		KindCharacterChangesSinceRegistrationPercentageToWikiTotal,
		KindReceivedThanksSinceRegistrationPercentageToWikiTotal,
		KindLogEventsSinceRegistrationPercentageToWikiTotal:
		p.actorEnd(p.end)
		p.wikiEnd(p.end)

	case KindRevertedEditsInPeriodPercentageToOwnEdits:
		p.actorEnd(p.end)
		needStart()

	case KindRevertedEditsSinceRegistrationPercentageToOwnEdits:
		p.actorEnd(p.end)

	case KindEditsInNamespaceInPeriod:
		analyzeNamespaces(p, col.Namespaces, true)
	case KindEditsInNamespaceSinceRegistration:
		analyzeNamespaces(p, col.Namespaces, false)
	case KindEditsInNamespaceInPeriodPercentageToOwnTotal:
		analyzeNamespaces(p, col.Namespaces, true)
		p.actorEnd(p.end)
		needStart()
	case KindEditsInNamespaceSinceRegistrationPercentageToOwnTotal:
		analyzeNamespaces(p, col.Namespaces, false)
		p.actorEnd(p.end)

	case KindEditsWithChangeTagInPeriod:
		analyzeChangeTags(p, col.ChangeTags, true)
	case KindEditsWithChangeTagSinceRegistration:
		analyzeChangeTags(p, col.ChangeTags, false)

	case KindLogEventsWithTypeInPeriod:
		analyzeLogFilters(p, col.LogFilters, true)
	case KindLogEventsWithTypeSinceRegistration:
		analyzeLogFilters(p, col.LogFilters, false)

	case KindLevelAtPeriodStart:
		if p.hasStart {
			p.needProbe(boundaryStart, p.start)
		}
	case KindLevelAtPeriodEnd, KindLevelSortOrder:
		p.needProbe(boundaryEnd, p.end)
	case KindLevelAtPeriodEndWithChange:
		p.needProbe(boundaryEnd, p.end)
		if p.hasStart {
			p.needProbe(boundaryStart, p.start)
		}
	}
	// Remaining kinds (counter, userName, userGroups, registration and
	// first/last dates) need no as-of joins.
}

func analyzeNamespaces(p *queryPlan, namespaces []int, period bool) {
	for _, ns := range namespaces {
		p.need(joinKey{dim: dimNamespace, namespace: ns, boundary: boundaryEnd, date: p.end})
		if period && p.hasStart {
			p.need(joinKey{dim: dimNamespace, namespace: ns, boundary: boundaryStart, date: p.start})
		}
	}
}

func analyzeChangeTags(p *queryPlan, tags []int, period bool) {
	for _, ct := range tags {
		p.need(joinKey{dim: dimChangeTag, changeTag: ct, boundary: boundaryEnd, date: p.end})
		if period && p.hasStart {
			p.need(joinKey{dim: dimChangeTag, changeTag: ct, boundary: boundaryStart, date: p.start})
		}
	}
}

func analyzeLogFilters(p *queryPlan, filters []LogFilter, period bool) {
	for _, f := range filters {
		p.need(joinKey{dim: dimLogType, logType: f.Type, logAction: f.Action, boundary: boundaryEnd, date: p.end})
		if period && p.hasStart {
			p.need(joinKey{dim: dimLogType, logType: f.Type, logAction: f.Action, boundary: boundaryStart, date: p.start})
		}
	}
}

// analyzeRequirements resolves epoch-relative requirement windows to
// absolute dates and records their keys. Requirements that depend on
// an absent start date are skipped entirely.
func analyzeRequirements(p *queryPlan, req *Requirements) error {
	for _, c := range req.Counts {
		if err := c.validate(); err != nil {
			return err
		}
		var start *Day
		if p.hasStart {
			start = &p.start
		}
		wStart, wEnd, ok := c.window(derefOrZero(start), p.end)
		if !ok {
			continue
		}
		for _, k := range countKeys(c, wStart, wEnd) {
			p.need(k)
		}
	}

	if len(req.HasLevel) > 0 || req.HasLevelAndChanged {
		p.needProbe(boundaryEnd, p.end)
	}
	if req.HasLevelAndChanged && p.hasStart {
		p.needProbe(boundaryStart, p.start)
	}
	return nil
}

// countKeys expands one count requirement into its join keys: an end
// key at the window end and, for bounded windows, a start key.
func countKeys(c CountRequirement, wStart, wEnd Day) []joinKey {
	bounded := c.Scope == ScopeInPeriod && !wStart.IsZero()

	build := func(base joinKey) []joinKey {
		end := base
		end.boundary = boundaryEnd
		end.date = wEnd
		keys := []joinKey{end}
		if bounded {
			start := base
			start.boundary = boundaryStart
			start.date = wStart
			keys = append(keys, start)
		}
		return keys
	}

	switch {
	case len(c.Namespaces) > 0:
		var keys []joinKey
		for _, ns := range c.Namespaces {
			keys = append(keys, build(joinKey{dim: dimNamespace, namespace: ns})...)
		}
		return keys
	case len(c.ChangeTags) > 0:
		var keys []joinKey
		for _, ct := range c.ChangeTags {
			keys = append(keys, build(joinKey{dim: dimChangeTag, changeTag: ct})...)
		}
		return keys
	case len(c.LogFilters) > 0:
		var keys []joinKey
		for _, f := range c.LogFilters {
			keys = append(keys, build(joinKey{dim: dimLogType, logType: f.Type, logAction: f.Action})...)
		}
		return keys
	default:
		return build(joinKey{dim: dimActor})
	}
}

func derefOrZero(d *Day) Day {
	if d == nil {
		return Day{}
	}
	return *d
}
