// Package fixture turns logical per-day activity into the cumulative
// snapshot rows the counter store holds, standing in for the external
// cache writer during tests and local development. Rows are sparse
// (one per day with activity) and every *_to_date column is the
// running total through the previous row, which is the invariant the
// query compiler depends on.
package fixture

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/wikistats/tally/internal/db"
)

// Actor describes one account to seed.
type Actor struct {
	ID               int64    `json:"id"`
	Name             string   `json:"name"`
	Registered       bool     `json:"registered"`
	RegistrationDate string   `json:"registrationDate,omitempty"` // YYYY-MM-DD
	Groups           []string `json:"groups,omitempty"`
	TalkTemplates    []string `json:"talkTemplates,omitempty"`
}

// NamespaceActivity is one day's activity inside one namespace.
type NamespaceActivity struct {
	Namespace        int   `json:"namespace"`
	Edits            int64 `json:"edits,omitempty"`
	RevertedEdits    int64 `json:"revertedEdits,omitempty"`
	CharacterChanges int64 `json:"characterChanges,omitempty"`
}

// ChangeTagActivity is one day's activity under one change tag.
type ChangeTagActivity struct {
	Tag              int   `json:"tag"`
	Edits            int64 `json:"edits,omitempty"`
	CharacterChanges int64 `json:"characterChanges,omitempty"`
}

// LogActivity is one day's log events of one type and action.
type LogActivity struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
	Count  int64  `json:"count"`
}

// DayActivity bundles everything one actor did on one day.
type DayActivity struct {
	ActorID               int64               `json:"actorId"`
	Date                  string              `json:"date"` // YYYY-MM-DD
	Edits                 int64               `json:"edits,omitempty"`
	RevertedEdits         int64               `json:"revertedEdits,omitempty"`
	CharacterChanges      int64               `json:"characterChanges,omitempty"`
	ReceivedThanks        int64               `json:"receivedThanks,omitempty"`
	SentThanks            int64               `json:"sentThanks,omitempty"`
	LogEvents             int64               `json:"logEvents,omitempty"`
	ServiceAwardLogEvents int64               `json:"serviceAwardLogEvents,omitempty"`
	Namespaces            []NamespaceActivity `json:"namespaces,omitempty"`
	ChangeTags            []ChangeTagActivity `json:"changeTags,omitempty"`
	Logs                  []LogActivity       `json:"logs,omitempty"`
}

// Set is a complete seedable fixture.
type Set struct {
	Actors   []Actor       `json:"actors"`
	Activity []DayActivity `json:"activity"`
}

// Load reads a fixture set from a JSON file.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	var s Set
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse fixture file: %w", err)
	}
	return &s, nil
}

// counters is one metric bundle accumulated for a single day.
type counters struct {
	edits            int64
	revertedEdits    int64
	characterChanges int64
	receivedThanks   int64
	sentThanks       int64
	logEvents        int64
	serviceAwardLogs int64
	activeDay        int64
}

func (c *counters) addFrom(a DayActivity) {
	c.edits += a.Edits
	c.revertedEdits += a.RevertedEdits
	c.characterChanges += a.CharacterChanges
	c.receivedThanks += a.ReceivedThanks
	c.sentThanks += a.SentThanks
	c.logEvents += a.LogEvents
	c.serviceAwardLogs += a.ServiceAwardLogEvents
	if a.Edits > 0 || a.LogEvents > 0 {
		c.activeDay = 1
	}
}

// Insert writes the whole set into the counter store, computing the
// running totals per grain as it goes.
func (s *Set) Insert(database *sqlx.DB, names db.TableNamer) error {
	if err := s.insertActors(database, names); err != nil {
		return err
	}
	if err := s.insertActorStats(database, names); err != nil {
		return err
	}
	if err := s.insertWikiStats(database, names); err != nil {
		return err
	}
	if err := s.insertNamespaceStats(database, names); err != nil {
		return err
	}
	if err := s.insertChangeTagStats(database, names); err != nil {
		return err
	}
	return s.insertLogStats(database, names)
}

func (s *Set) insertActors(database *sqlx.DB, names db.TableNamer) error {
	actorTable := names(db.TableActors)
	groupTable := names(db.TableActorGroups)
	templateTable := names(db.TableTalkTemplates)

	for _, a := range s.Actors {
		registered := 0
		if a.Registered {
			registered = 1
		}
		var regDate any
		if a.RegistrationDate != "" {
			regDate = a.RegistrationDate
		}
		_, err := database.Exec(
			fmt.Sprintf("INSERT INTO %q (actor_id, actor_name, is_registered, registration_date) VALUES (?, ?, ?, ?)", actorTable),
			a.ID, a.Name, registered, regDate,
		)
		if err != nil {
			return fmt.Errorf("failed to seed actor %d: %w", a.ID, err)
		}
		for _, g := range a.Groups {
			if _, err := database.Exec(
				fmt.Sprintf("INSERT INTO %q (actor_id, group_name) VALUES (?, ?)", groupTable), a.ID, g,
			); err != nil {
				return fmt.Errorf("failed to seed group for actor %d: %w", a.ID, err)
			}
		}
		for _, tpl := range a.TalkTemplates {
			if _, err := database.Exec(
				fmt.Sprintf("INSERT INTO %q (actor_id, template_name) VALUES (?, ?)", templateTable), a.ID, tpl,
			); err != nil {
				return fmt.Errorf("failed to seed talk template for actor %d: %w", a.ID, err)
			}
		}
	}
	return nil
}

type actorDay struct {
	actorID int64
	date    string
}

// accumulate folds the activity list into per-key daily counters and
// returns the keys in (actor, date) order so running totals can be
// computed in one pass per actor.
func accumulate[K comparable](activity []DayActivity, keysOf func(DayActivity) map[K]counters) (map[K]*counters, []K) {
	acc := make(map[K]*counters)
	for _, a := range activity {
		for k, c := range keysOf(a) {
			cur, ok := acc[k]
			if !ok {
				cur = &counters{}
				acc[k] = cur
			}
			cur.edits += c.edits
			cur.revertedEdits += c.revertedEdits
			cur.characterChanges += c.characterChanges
			cur.receivedThanks += c.receivedThanks
			cur.sentThanks += c.sentThanks
			cur.logEvents += c.logEvents
			cur.serviceAwardLogs += c.serviceAwardLogs
			if c.activeDay > 0 {
				cur.activeDay = 1
			}
		}
	}
	keys := make([]K, 0, len(acc))
	for k := range acc {
		keys = append(keys, k)
	}
	return acc, keys
}

func (s *Set) insertActorStats(database *sqlx.DB, names db.TableNamer) error {
	acc, keys := accumulate(s.Activity, func(a DayActivity) map[actorDay]counters {
		var c counters
		c.addFrom(a)
		return map[actorDay]counters{{a.ActorID, a.Date}: c}
	})
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].actorID != keys[j].actorID {
			return keys[i].actorID < keys[j].actorID
		}
		return keys[i].date < keys[j].date
	})

	table := names(db.TableActorStats)
	stmt := fmt.Sprintf(`INSERT INTO %q (
		actor_id, date,
		daily_edits, edits_to_date,
		daily_reverted_edits, reverted_edits_to_date,
		daily_character_changes, character_changes_to_date,
		daily_received_thanks, received_thanks_to_date,
		daily_sent_thanks, sent_thanks_to_date,
		daily_log_events, log_events_to_date,
		daily_service_award_log_events, service_award_log_events_to_date,
		daily_active_day, active_days_to_date
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, table)

	running := make(map[int64]*counters)
	for _, k := range keys {
		c := acc[k]
		r, ok := running[k.actorID]
		if !ok {
			r = &counters{}
			running[k.actorID] = r
		}
		_, err := database.Exec(stmt,
			k.actorID, k.date,
			c.edits, r.edits,
			c.revertedEdits, r.revertedEdits,
			c.characterChanges, r.characterChanges,
			c.receivedThanks, r.receivedThanks,
			c.sentThanks, r.sentThanks,
			c.logEvents, r.logEvents,
			c.serviceAwardLogs, r.serviceAwardLogs,
			c.activeDay, r.activeDay,
		)
		if err != nil {
			return fmt.Errorf("failed to seed actor stats: %w", err)
		}
		r.edits += c.edits
		r.revertedEdits += c.revertedEdits
		r.characterChanges += c.characterChanges
		r.receivedThanks += c.receivedThanks
		r.sentThanks += c.sentThanks
		r.logEvents += c.logEvents
		r.serviceAwardLogs += c.serviceAwardLogs
		r.activeDay += c.activeDay
	}
	return nil
}

func (s *Set) insertWikiStats(database *sqlx.DB, names db.TableNamer) error {
	acc, keys := accumulate(s.Activity, func(a DayActivity) map[string]counters {
		var c counters
		c.addFrom(a)
		return map[string]counters{a.Date: c}
	})
	sort.Strings(keys)

	table := names(db.TableWikiStats)
	stmt := fmt.Sprintf(`INSERT INTO %q (
		date,
		daily_edits, edits_to_date,
		daily_reverted_edits, reverted_edits_to_date,
		daily_character_changes, character_changes_to_date,
		daily_received_thanks, received_thanks_to_date,
		daily_sent_thanks, sent_thanks_to_date,
		daily_log_events, log_events_to_date,
		daily_service_award_log_events, service_award_log_events_to_date,
		daily_active_day, active_days_to_date
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, table)

	var r counters
	for _, date := range keys {
		c := acc[date]
		_, err := database.Exec(stmt,
			date,
			c.edits, r.edits,
			c.revertedEdits, r.revertedEdits,
			c.characterChanges, r.characterChanges,
			c.receivedThanks, r.receivedThanks,
			c.sentThanks, r.sentThanks,
			c.logEvents, r.logEvents,
			c.serviceAwardLogs, r.serviceAwardLogs,
			c.activeDay, r.activeDay,
		)
		if err != nil {
			return fmt.Errorf("failed to seed wiki stats: %w", err)
		}
		r.edits += c.edits
		r.revertedEdits += c.revertedEdits
		r.characterChanges += c.characterChanges
		r.receivedThanks += c.receivedThanks
		r.sentThanks += c.sentThanks
		r.logEvents += c.logEvents
		r.serviceAwardLogs += c.serviceAwardLogs
		r.activeDay += c.activeDay
	}
	return nil
}

type actorNsDay struct {
	actorID   int64
	namespace int
	date      string
}

func (s *Set) insertNamespaceStats(database *sqlx.DB, names db.TableNamer) error {
	acc, keys := accumulate(s.Activity, func(a DayActivity) map[actorNsDay]counters {
		out := make(map[actorNsDay]counters, len(a.Namespaces))
		for _, ns := range a.Namespaces {
			out[actorNsDay{a.ActorID, ns.Namespace, a.Date}] = counters{
				edits:            ns.Edits,
				revertedEdits:    ns.RevertedEdits,
				characterChanges: ns.CharacterChanges,
			}
		}
		return out
	})
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.actorID != b.actorID {
			return a.actorID < b.actorID
		}
		if a.namespace != b.namespace {
			return a.namespace < b.namespace
		}
		return a.date < b.date
	})

	table := names(db.TableNamespaceStats)
	stmt := fmt.Sprintf(`INSERT INTO %q (
		actor_id, namespace, date,
		daily_edits, edits_to_date,
		daily_reverted_edits, reverted_edits_to_date,
		daily_character_changes, character_changes_to_date
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, table)

	type grain struct {
		actorID   int64
		namespace int
	}
	running := make(map[grain]*counters)
	for _, k := range keys {
		c := acc[k]
		gk := grain{k.actorID, k.namespace}
		r, ok := running[gk]
		if !ok {
			r = &counters{}
			running[gk] = r
		}
		_, err := database.Exec(stmt,
			k.actorID, k.namespace, k.date,
			c.edits, r.edits,
			c.revertedEdits, r.revertedEdits,
			c.characterChanges, r.characterChanges,
		)
		if err != nil {
			return fmt.Errorf("failed to seed namespace stats: %w", err)
		}
		r.edits += c.edits
		r.revertedEdits += c.revertedEdits
		r.characterChanges += c.characterChanges
	}
	return nil
}

type actorCtDay struct {
	actorID int64
	tag     int
	date    string
}

func (s *Set) insertChangeTagStats(database *sqlx.DB, names db.TableNamer) error {
	acc, keys := accumulate(s.Activity, func(a DayActivity) map[actorCtDay]counters {
		out := make(map[actorCtDay]counters, len(a.ChangeTags))
		for _, ct := range a.ChangeTags {
			out[actorCtDay{a.ActorID, ct.Tag, a.Date}] = counters{
				edits:            ct.Edits,
				characterChanges: ct.CharacterChanges,
			}
		}
		return out
	})
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.actorID != b.actorID {
			return a.actorID < b.actorID
		}
		if a.tag != b.tag {
			return a.tag < b.tag
		}
		return a.date < b.date
	})

	table := names(db.TableChangeTagStats)
	stmt := fmt.Sprintf(`INSERT INTO %q (
		actor_id, change_tag_id, date,
		daily_edits, edits_to_date,
		daily_character_changes, character_changes_to_date
	) VALUES (?, ?, ?, ?, ?, ?, ?)`, table)

	type grain struct {
		actorID int64
		tag     int
	}
	running := make(map[grain]*counters)
	for _, k := range keys {
		c := acc[k]
		gk := grain{k.actorID, k.tag}
		r, ok := running[gk]
		if !ok {
			r = &counters{}
			running[gk] = r
		}
		_, err := database.Exec(stmt,
			k.actorID, k.tag, k.date,
			c.edits, r.edits,
			c.characterChanges, r.characterChanges,
		)
		if err != nil {
			return fmt.Errorf("failed to seed change tag stats: %w", err)
		}
		r.edits += c.edits
		r.characterChanges += c.characterChanges
	}
	return nil
}

type actorLogDay struct {
	actorID int64
	logType string
	action  string
	date    string
}

// insertLogStats writes two grains per typed log activity: the exact
// (type, action) rows, and type-level rows with an empty action that
// aggregate every action of the type. Log filters without an action
// join the type-level rows.
func (s *Set) insertLogStats(database *sqlx.DB, names db.TableNamer) error {
	acc, keys := accumulate(s.Activity, func(a DayActivity) map[actorLogDay]counters {
		out := make(map[actorLogDay]counters)
		for _, l := range a.Logs {
			exact := actorLogDay{a.ActorID, l.Type, l.Action, a.Date}
			c := out[exact]
			c.logEvents += l.Count
			out[exact] = c
			if l.Action != "" {
				typeLevel := actorLogDay{a.ActorID, l.Type, "", a.Date}
				tc := out[typeLevel]
				tc.logEvents += l.Count
				out[typeLevel] = tc
			}
		}
		return out
	})
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.actorID != b.actorID {
			return a.actorID < b.actorID
		}
		if a.logType != b.logType {
			return a.logType < b.logType
		}
		if a.action != b.action {
			return a.action < b.action
		}
		return a.date < b.date
	})

	table := names(db.TableLogTypeStats)
	stmt := fmt.Sprintf(`INSERT INTO %q (
		actor_id, log_type, log_action, date,
		daily_log_events, log_events_to_date
	) VALUES (?, ?, ?, ?, ?, ?)`, table)

	type grain struct {
		actorID int64
		logType string
		action  string
	}
	running := make(map[grain]int64)
	for _, k := range keys {
		c := acc[k]
		gk := grain{k.actorID, k.logType, k.action}
		_, err := database.Exec(stmt,
			k.actorID, k.logType, k.action, k.date,
			c.logEvents, running[gk],
		)
		if err != nil {
			return fmt.Errorf("failed to seed log stats: %w", err)
		}
		running[gk] += c.logEvents
	}
	return nil
}
