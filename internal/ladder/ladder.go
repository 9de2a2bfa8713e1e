// Package ladder computes service-award levels from an ordered ladder
// of contribution and active-day thresholds. All functions are pure;
// the ladder itself is loaded once per request and never mutated.
package ladder

// Level is one rung of the service-award ladder.
type Level struct {
	ID                    string `json:"id"`
	Label                 string `json:"label"`
	RequiredContributions int64  `json:"requiredContributions"`
	RequiredActiveDays    int64  `json:"requiredActiveDays"`
}

// Ladder is an ordered list of rungs with ascending thresholds.
type Ladder []Level

// Result describes an actor's position on the ladder at one instant.
type Result struct {
	// Index is the zero-based rung index, or -1 when no rung is held.
	Index int
	// Level is the held rung; only valid when Index >= 0.
	Level Level
	// NextProgress is the fractional progress toward the next rung in
	// [0, 1], or 1 when the top rung is held.
	NextProgress float64
}

// HasLevel reports whether any rung is held.
func (r Result) HasLevel() bool {
	return r.Index >= 0
}

// SortOrder collapses the result into a single monotonic scalar:
// (index+1) + progress toward the next rung. Actors on higher rungs
// always order above actors on lower ones.
func (r Result) SortOrder() float64 {
	return float64(r.Index+1) + r.NextProgress
}

// Default is a conventional five-rung ladder used when a wiki does
// not configure its own.
var Default = Ladder{
	{ID: "registered", Label: "Registered Editor", RequiredContributions: 0, RequiredActiveDays: 0},
	{ID: "novice", Label: "Novice Editor", RequiredContributions: 200, RequiredActiveDays: 30},
	{ID: "apprentice", Label: "Apprentice Editor", RequiredContributions: 1000, RequiredActiveDays: 90},
	{ID: "journeyman", Label: "Journeyman Editor", RequiredContributions: 4000, RequiredActiveDays: 365},
	{ID: "master", Label: "Master Editor", RequiredContributions: 16000, RequiredActiveDays: 730},
}

// At resolves the level held for the given cumulative contributions
// and active days: the last rung in ascending order whose thresholds
// are both strictly exceeded. No qualifying rung yields Index -1.
func (l Ladder) At(contributions, activeDays int64) Result {
	res := Result{Index: -1}
	for i, lvl := range l {
		if contributions > lvl.RequiredContributions && activeDays > lvl.RequiredActiveDays {
			res.Index = i
			res.Level = lvl
		}
	}
	res.NextProgress = l.progress(res.Index, contributions, activeDays)
	return res
}

// progress computes min(contribution progress, active day progress)
// toward the rung above index, treating the current requirement as 0
// when no rung is held.
func (l Ladder) progress(index int, contributions, activeDays int64) float64 {
	next := index + 1
	if next >= len(l) {
		return 1
	}
	var curContrib, curDays int64
	if index >= 0 {
		curContrib = l[index].RequiredContributions
		curDays = l[index].RequiredActiveDays
	}
	cp := fraction(contributions, curContrib, l[next].RequiredContributions)
	dp := fraction(activeDays, curDays, l[next].RequiredActiveDays)
	if cp < dp {
		return cp
	}
	return dp
}

func fraction(value, cur, next int64) float64 {
	if next <= cur {
		return 1
	}
	f := float64(value-cur) / float64(next-cur)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// ByID returns the rung with the given id, if present.
func (l Ladder) ByID(id string) (Level, bool) {
	for _, lvl := range l {
		if lvl.ID == id {
			return lvl, true
		}
	}
	return Level{}, false
}
