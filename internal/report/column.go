package report

import "fmt"

// ColumnKind identifies one of the closed set of output column types
// a report may request. String-valued so report definitions can name
// kinds directly in JSON.
type ColumnKind string

const (
	// Columns filled during post-processing, never SQL-computed.
	KindCounter    ColumnKind = "counter"
	KindUserName   ColumnKind = "userName"
	KindUserGroups ColumnKind = "userGroups"

	KindUserRegistrationDate ColumnKind = "userRegistrationDate"

	// Service-award level columns. SQL supplies the raw ladder inputs;
	// the level itself is computed in post-processing.
	KindLevelAtPeriodStart         ColumnKind = "levelAtPeriodStart"
	KindLevelAtPeriodEnd           ColumnKind = "levelAtPeriodEnd"
	KindLevelAtPeriodEndWithChange ColumnKind = "levelAtPeriodEndWithChange"
	KindLevelSortOrder             ColumnKind = "levelSortOrder"

	// Edits.
	KindEditsInPeriod                              ColumnKind = "editsInPeriod"
	KindEditsInPeriodPercentageToWikiTotal         ColumnKind = "editsInPeriodPercentageToWikiTotal"
	KindEditsSinceRegistration                     ColumnKind = "editsSinceRegistration"
	KindEditsSinceRegistrationPercentageToWikiTotal ColumnKind = "editsSinceRegistrationPercentageToWikiTotal"
	KindEditsInPeriodMilestone                     ColumnKind = "editsInPeriodMilestone"
	KindEditsSinceRegistrationMilestone            ColumnKind = "editsSinceRegistrationMilestone"
	KindAverageEditsPerDayInPeriod                 ColumnKind = "averageEditsPerDayInPeriod"
	KindAverageEditsPerDaySinceRegistration        ColumnKind = "averageEditsPerDaySinceRegistration"
	KindFirstEditDate                              ColumnKind = "firstEditDate"
	KindLastEditDate                               ColumnKind = "lastEditDate"
	KindDaysBetweenFirstAndLastEdit                ColumnKind = "daysBetweenFirstAndLastEdit"

	// Namespace-scoped edits. Namespaces lists one or more namespaces
	// whose contributions are summed.
	KindEditsInNamespaceInPeriod                            ColumnKind = "editsInNamespaceInPeriod"
	KindEditsInNamespaceInPeriodPercentageToOwnTotal        ColumnKind = "editsInNamespaceInPeriodPercentageToOwnTotal"
	KindEditsInNamespaceSinceRegistration                   ColumnKind = "editsInNamespaceSinceRegistration"
	KindEditsInNamespaceSinceRegistrationPercentageToOwnTotal ColumnKind = "editsInNamespaceSinceRegistrationPercentageToOwnTotal"

	// Change-tag-scoped edits.
	KindEditsWithChangeTagInPeriod          ColumnKind = "editsWithChangeTagInPeriod"
	KindEditsWithChangeTagSinceRegistration ColumnKind = "editsWithChangeTagSinceRegistration"

	// Reverted edits.
	KindRevertedEditsInPeriod                               ColumnKind = "revertedEditsInPeriod"
	KindRevertedEditsInPeriodPercentageToWikiTotal          ColumnKind = "revertedEditsInPeriodPercentageToWikiTotal"
	KindRevertedEditsInPeriodPercentageToOwnEdits           ColumnKind = "revertedEditsInPeriodPercentageToOwnEdits"
	KindRevertedEditsSinceRegistration                      ColumnKind = "revertedEditsSinceRegistration"
	KindRevertedEditsSinceRegistrationPercentageToWikiTotal ColumnKind = "revertedEditsSinceRegistrationPercentageToWikiTotal"
	KindRevertedEditsSinceRegistrationPercentageToOwnEdits  ColumnKind = "revertedEditsSinceRegistrationPercentageToOwnEdits"

	// Character changes.
	KindCharacterChangesInPeriod                               ColumnKind = "characterChangesInPeriod"
	KindCharacterChangesInPeriodPercentageToWikiTotal          ColumnKind = "characterChangesInPeriodPercentageToWikiTotal"
	KindCharacterChangesSinceRegistration                      ColumnKind = "characterChangesSinceRegistration"
	KindCharacterChangesSinceRegistrationPercentageToWikiTotal ColumnKind = "characterChangesSinceRegistrationPercentageToWikiTotal"

	// Thanks.
	KindReceivedThanksInPeriod                               ColumnKind = "receivedThanksInPeriod"
	KindReceivedThanksInPeriodPercentageToWikiTotal          ColumnKind = "receivedThanksInPeriodPercentageToWikiTotal"
	KindReceivedThanksSinceRegistration                      ColumnKind = "receivedThanksSinceRegistration"
	KindReceivedThanksSinceRegistrationPercentageToWikiTotal ColumnKind = "receivedThanksSinceRegistrationPercentageToWikiTotal"
	KindSentThanksInPeriod                                   ColumnKind = "sentThanksInPeriod"
	KindSentThanksSinceRegistration                          ColumnKind = "sentThanksSinceRegistration"

	// Log events.
	KindLogEventsInPeriod                               ColumnKind = "logEventsInPeriod"
	KindLogEventsInPeriodPercentageToWikiTotal          ColumnKind = "logEventsInPeriodPercentageToWikiTotal"
	KindLogEventsSinceRegistration                      ColumnKind = "logEventsSinceRegistration"
	KindLogEventsSinceRegistrationPercentageToWikiTotal ColumnKind = "logEventsSinceRegistrationPercentageToWikiTotal"
	KindLogEventsWithTypeInPeriod                       ColumnKind = "logEventsWithTypeInPeriod"
	KindLogEventsWithTypeSinceRegistration              ColumnKind = "logEventsWithTypeSinceRegistration"
	KindFirstLogEventDate                               ColumnKind = "firstLogEventDate"
	KindLastLogEventDate                                ColumnKind = "lastLogEventDate"

	// Active days.
	KindActiveDaysInPeriod          ColumnKind = "activeDaysInPeriod"
	KindActiveDaysSinceRegistration ColumnKind = "activeDaysSinceRegistration"

	// Service-award contributions (edits + service-award log events).
	KindServiceAwardContributionsInPeriod          ColumnKind = "serviceAwardContributionsInPeriod"
	KindServiceAwardContributionsSinceRegistration ColumnKind = "serviceAwardContributionsSinceRegistration"
)

// ValueType tags the runtime shape of a column's cells. Export and
// rendering code dispatches on it, so it is part of the contract.
type ValueType string

const (
	TypeNumber     ValueType = "number"
	TypePercent    ValueType = "percent"
	TypeString     ValueType = "string"
	TypeStringList ValueType = "stringList"
	TypeDate       ValueType = "date"
	TypeLevel      ValueType = "level"
	TypeCounter    ValueType = "counter"
)

// FilterRule is a per-column row filter applied in SQL.
type FilterRule string

const (
	// FilterNone keeps every row.
	FilterNone FilterRule = ""
	// FilterMoreThanZero drops rows where this column is not positive.
	FilterMoreThanZero FilterRule = "moreThanZero"
)

// LogFilter selects log events by type and optionally by action.
type LogFilter struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
}

// ColumnSpec is one requested output column. Kind decides which of
// the parameter fields are meaningful.
type ColumnSpec struct {
	ID         string      `json:"id,omitempty"` // referenced by orderBy; defaults to the kind name
	Kind       ColumnKind  `json:"kind"`
	Namespaces []int       `json:"namespaces,omitempty"` // namespace-parameterized kinds
	ChangeTags []int       `json:"changeTags,omitempty"` // change-tag-parameterized kinds
	LogFilters []LogFilter `json:"logFilters,omitempty"` // log-parameterized kinds
	Milestones []int64     `json:"milestones,omitempty"` // milestone kinds; order is significant
	FilterRule FilterRule  `json:"filterByRule,omitempty"`
}

// ColumnID returns the identifier orderBy entries use for this
// column.
func (c ColumnSpec) ColumnID() string {
	if c.ID != "" {
		return c.ID
	}
	return string(c.Kind)
}

var columnValueTypes = map[ColumnKind]ValueType{
	KindCounter:    TypeCounter,
	KindUserName:   TypeString,
	KindUserGroups: TypeStringList,

	KindUserRegistrationDate: TypeDate,

	KindLevelAtPeriodStart:         TypeLevel,
	KindLevelAtPeriodEnd:           TypeLevel,
	KindLevelAtPeriodEndWithChange: TypeLevel,
	KindLevelSortOrder:             TypeNumber,

	KindEditsInPeriod:                               TypeNumber,
	KindEditsInPeriodPercentageToWikiTotal:          TypePercent,
	KindEditsSinceRegistration:                      TypeNumber,
	KindEditsSinceRegistrationPercentageToWikiTotal: TypePercent,
	KindEditsInPeriodMilestone:                      TypeNumber,
	KindEditsSinceRegistrationMilestone:             TypeNumber,
	KindAverageEditsPerDayInPeriod:                  TypeNumber,
	KindAverageEditsPerDaySinceRegistration:         TypeNumber,
	KindFirstEditDate:                               TypeDate,
	KindLastEditDate:                                TypeDate,
	KindDaysBetweenFirstAndLastEdit:                 TypeNumber,

	KindEditsInNamespaceInPeriod:                              TypeNumber,
	KindEditsInNamespaceInPeriodPercentageToOwnTotal:          TypePercent,
	KindEditsInNamespaceSinceRegistration:                     TypeNumber,
	KindEditsInNamespaceSinceRegistrationPercentageToOwnTotal: TypePercent,

	KindEditsWithChangeTagInPeriod:          TypeNumber,
	KindEditsWithChangeTagSinceRegistration: TypeNumber,

	KindRevertedEditsInPeriod:                               TypeNumber,
	KindRevertedEditsInPeriodPercentageToWikiTotal:          TypePercent,
	KindRevertedEditsInPeriodPercentageToOwnEdits:           TypePercent,
	KindRevertedEditsSinceRegistration:                      TypeNumber,
	KindRevertedEditsSinceRegistrationPercentageToWikiTotal: TypePercent,
	KindRevertedEditsSinceRegistrationPercentageToOwnEdits:  TypePercent,

	KindCharacterChangesInPeriod:                               TypeNumber,
	KindCharacterChangesInPeriodPercentageToWikiTotal:          TypePercent,
	KindCharacterChangesSinceRegistration:                      TypeNumber,
	KindCharacterChangesSinceRegistrationPercentageToWikiTotal: TypePercent,

	KindReceivedThanksInPeriod:                               TypeNumber,
	KindReceivedThanksInPeriodPercentageToWikiTotal:          TypePercent,
	KindReceivedThanksSinceRegistration:                      TypeNumber,
	KindReceivedThanksSinceRegistrationPercentageToWikiTotal: TypePercent,
	KindSentThanksInPeriod:                                   TypeNumber,
	KindSentThanksSinceRegistration:                          TypeNumber,

	KindLogEventsInPeriod:                               TypeNumber,
	KindLogEventsInPeriodPercentageToWikiTotal:          TypePercent,
	KindLogEventsSinceRegistration:                      TypeNumber,
	KindLogEventsSinceRegistrationPercentageToWikiTotal: TypePercent,
	KindLogEventsWithTypeInPeriod:                       TypeNumber,
	KindLogEventsWithTypeSinceRegistration:              TypeNumber,
	KindFirstLogEventDate:                               TypeDate,
	KindLastLogEventDate:                                TypeDate,

	KindActiveDaysInPeriod:          TypeNumber,
	KindActiveDaysSinceRegistration: TypeNumber,

	KindServiceAwardContributionsInPeriod:          TypeNumber,
	KindServiceAwardContributionsSinceRegistration: TypeNumber,
}

// ValueType returns the runtime value tag for the kind.
func (k ColumnKind) ValueType() (ValueType, error) {
	vt, ok := columnValueTypes[k]
	if !ok {
		return "", fmt.Errorf("unknown column kind %q", k)
	}
	return vt, nil
}

// Valid reports whether the kind belongs to the closed set.
func (k ColumnKind) Valid() bool {
	_, ok := columnValueTypes[k]
	return ok
}

// computedInPost reports whether the column has no SQL select
// expression at all and is filled entirely during post-processing.
func (k ColumnKind) computedInPost() bool {
	switch k {
	case KindCounter, KindUserName, KindUserGroups,
		KindLevelAtPeriodStart, KindLevelAtPeriodEnd,
		KindLevelAtPeriodEndWithChange, KindLevelSortOrder:
		return true
	}
	return false
}
