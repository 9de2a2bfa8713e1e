package report

import "fmt"

// Metric names a counter family tracked by the snapshot store.
type Metric string

const (
	MetricEdits                    Metric = "edits"
	MetricRevertedEdits            Metric = "revertedEdits"
	MetricCharacterChanges         Metric = "characterChanges"
	MetricReceivedThanks           Metric = "receivedThanks"
	MetricSentThanks               Metric = "sentThanks"
	MetricLogEvents                Metric = "logEvents"
	MetricActiveDays               Metric = "activeDays"
	MetricServiceAwardLogEvents    Metric = "serviceAwardLogEvents"
	MetricServiceAwardContributions Metric = "serviceAwardContributions"
)

// CountScope decides which window a count requirement measures.
type CountScope string

const (
	// ScopeTotal counts everything up to the requirement's as-of date.
	ScopeTotal CountScope = "total"
	// ScopeInPeriod counts inside a bounded window.
	ScopeInPeriod CountScope = "inPeriod"
)

// EpochAnchor names the instant a relative requirement is measured
// against.
type EpochAnchor string

const (
	// AnchorPeriodEnd anchors at the report window's end date.
	AnchorPeriodEnd EpochAnchor = "endOfSelectedPeriod"
	// AnchorPeriodStart anchors at the instant just before the window
	// opens, modeled as startDate minus one day.
	AnchorPeriodStart EpochAnchor = "startOfSelectedPeriod"
)

// Epoch shifts a requirement's as-of date: OffsetDays days before the
// anchor. A nil Epoch means the window edge itself.
type Epoch struct {
	Anchor     EpochAnchor `json:"anchor"`
	OffsetDays int         `json:"offsetDays"`
}

// resolve turns the epoch into an absolute day. start may be zero for
// timeless lists; resolving a start-anchored epoch without a start
// date reports ok=false and the requirement is skipped.
func (e *Epoch) resolve(start, end Day) (Day, bool) {
	if e == nil {
		return end, true
	}
	switch e.Anchor {
	case AnchorPeriodStart:
		if start.IsZero() {
			return Day{}, false
		}
		return start.AddDays(-1 - e.OffsetDays), true
	default:
		return end.AddDays(-e.OffsetDays), true
	}
}

// CountRequirement is one numeric eligibility threshold. Scope, the
// optional discriminators and the optional epoch select which as-of
// snapshots it reads; AtLeast/AtMost bound the resulting count.
type CountRequirement struct {
	Metric     Metric      `json:"metric"`
	Scope      CountScope  `json:"scope"`
	AtLeast    *int64      `json:"atLeast,omitempty"`
	AtMost     *int64      `json:"atMost,omitempty"`
	Epoch      *Epoch      `json:"epoch,omitempty"`
	PeriodDays int         `json:"periodDays,omitempty"` // ScopeInPeriod with an epoch: window length
	Namespaces []int       `json:"namespaces,omitempty"`
	ChangeTags []int       `json:"changeTags,omitempty"`
	LogFilters []LogFilter `json:"logFilters,omitempty"`
}

// window resolves the requirement's measurement window. For
// ScopeTotal only the end day is meaningful. ok=false means the
// requirement cannot apply (timeless list with start-relative
// semantics) and is skipped, matching the lenient handling of
// missing start dates everywhere else.
func (r CountRequirement) window(start, end Day) (wStart, wEnd Day, ok bool) {
	anchor, ok := r.Epoch.resolve(start, end)
	if !ok {
		return Day{}, Day{}, false
	}
	if r.Scope == ScopeTotal {
		return Day{}, anchor, true
	}
	if r.Epoch != nil || r.PeriodDays > 0 {
		if r.PeriodDays <= 0 {
			return Day{}, Day{}, false
		}
		return anchor.AddDays(-r.PeriodDays), anchor, true
	}
	if start.IsZero() {
		return Day{}, Day{}, false
	}
	return start, end, true
}

// Requirements is the structured eligibility filter for a report.
// Zero-valued fields are absent. HasLevel and HasLevelAndChanged are
// the two requirements that cannot be pushed into SQL and are applied
// during post-processing.
type Requirements struct {
	RegisteredAfter  *Day `json:"registeredAfter,omitempty"`
	RegisteredBefore *Day `json:"registeredBefore,omitempty"`
	RegisteredOnly   bool `json:"registeredOnly,omitempty"`

	InAnyGroup    []string `json:"inAnyGroup,omitempty"`
	InAllGroups   []string `json:"inAllGroups,omitempty"`
	NotInAnyGroup []string `json:"notInAnyGroup,omitempty"`

	HasAnyTalkTemplate  []string `json:"hasAnyTalkTemplate,omitempty"`
	HasAllTalkTemplates []string `json:"hasAllTalkTemplates,omitempty"`

	HasLevel           []string `json:"hasLevel,omitempty"`
	HasLevelAndChanged bool     `json:"hasLevelAndChanged,omitempty"`

	Counts []CountRequirement `json:"counts,omitempty"`
}

// needsLevels reports whether post-processing must compute
// service-award levels to evaluate the requirements.
func (r *Requirements) needsLevels() bool {
	if r == nil {
		return false
	}
	return len(r.HasLevel) > 0 || r.HasLevelAndChanged
}

// validate rejects metric/discriminator combinations the snapshot
// store cannot answer. Anything else is assumed well-formed per the
// upstream-validation contract.
func (r CountRequirement) validate() error {
	switch r.Scope {
	case ScopeTotal, ScopeInPeriod:
	default:
		return fmt.Errorf("unknown count scope %q", r.Scope)
	}
	if len(r.Namespaces) > 0 {
		switch r.Metric {
		case MetricEdits, MetricRevertedEdits, MetricCharacterChanges:
		default:
			return fmt.Errorf("metric %q cannot be namespace-scoped", r.Metric)
		}
	}
	if len(r.ChangeTags) > 0 {
		switch r.Metric {
		case MetricEdits, MetricCharacterChanges:
		default:
			return fmt.Errorf("metric %q cannot be change-tag-scoped", r.Metric)
		}
	}
	if len(r.LogFilters) > 0 && r.Metric != MetricLogEvents {
		return fmt.Errorf("metric %q cannot be log-filtered", r.Metric)
	}
	return nil
}
