package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Table is the logical name of one counter-store table. Physical
// names are produced by a TableNamer, because the store is
// multi-tenant: every wiki owns its own set of tables.
type Table string

const (
	// TableActors holds one row per actor: identity, registration and
	// the registered/anonymous flag.
	TableActors Table = "actor"
	// TableActorGroups holds one row per (actor, user group).
	TableActorGroups Table = "actor_groups"
	// TableTalkTemplates holds one row per template present on an
	// actor's talk page.
	TableTalkTemplates Table = "actor_talk_templates"
	// TableActorStats holds the per-actor daily cumulative counters.
	TableActorStats Table = "actor_daily_stats"
	// TableWikiStats holds the wiki-wide daily cumulative counters.
	TableWikiStats Table = "wiki_daily_stats"
	// TableNamespaceStats scopes the actor counters by namespace.
	TableNamespaceStats Table = "actor_daily_stats_by_ns"
	// TableChangeTagStats scopes the actor counters by change tag.
	TableChangeTagStats Table = "actor_daily_stats_by_ct"
	// TableLogTypeStats scopes the actor log counters by log type and
	// action.
	TableLogTypeStats Table = "actor_daily_stats_by_log"
)

// TableNamer resolves a logical table to its physical, per-wiki name.
// The query compiler only ever sees physical names through this.
type TableNamer func(Table) string

// DefaultNamer prefixes every table with the wiki id.
func DefaultNamer(wiki string) TableNamer {
	return func(t Table) string {
		return wiki + "_" + string(t)
	}
}

// schemaTemplates are rendered once per wiki with the physical table
// name substituted for %[1]s. Snapshot tables are sparse (a row only
// on days with activity) and cumulative: every *_to_date column holds
// the running total through the previous row, so the total as of a
// row's own day is *_to_date + daily_*.
var schemaTemplates = []struct {
	table Table
	ddl   []string
}{
	{TableActors, []string{`
CREATE TABLE IF NOT EXISTS "%[1]s" (
    actor_id          INTEGER PRIMARY KEY,
    actor_name        TEXT    NOT NULL,
    is_registered     INTEGER NOT NULL DEFAULT 1,
    registration_date TEXT
)`}},
	{TableActorGroups, []string{`
CREATE TABLE IF NOT EXISTS "%[1]s" (
    actor_id   INTEGER NOT NULL,
    group_name TEXT    NOT NULL,
    PRIMARY KEY (actor_id, group_name)
)`}},
	{TableTalkTemplates, []string{`
CREATE TABLE IF NOT EXISTS "%[1]s" (
    actor_id      INTEGER NOT NULL,
    template_name TEXT    NOT NULL,
    PRIMARY KEY (actor_id, template_name)
)`}},
	{TableActorStats, []string{`
CREATE TABLE IF NOT EXISTS "%[1]s" (
    actor_id                         INTEGER NOT NULL,
    date                             TEXT    NOT NULL,
    daily_edits                      INTEGER NOT NULL DEFAULT 0,
    edits_to_date                    INTEGER NOT NULL DEFAULT 0,
    daily_reverted_edits             INTEGER NOT NULL DEFAULT 0,
    reverted_edits_to_date           INTEGER NOT NULL DEFAULT 0,
    daily_character_changes          INTEGER NOT NULL DEFAULT 0,
    character_changes_to_date        INTEGER NOT NULL DEFAULT 0,
    daily_received_thanks            INTEGER NOT NULL DEFAULT 0,
    received_thanks_to_date          INTEGER NOT NULL DEFAULT 0,
    daily_sent_thanks                INTEGER NOT NULL DEFAULT 0,
    sent_thanks_to_date              INTEGER NOT NULL DEFAULT 0,
    daily_log_events                 INTEGER NOT NULL DEFAULT 0,
    log_events_to_date               INTEGER NOT NULL DEFAULT 0,
    daily_service_award_log_events   INTEGER NOT NULL DEFAULT 0,
    service_award_log_events_to_date INTEGER NOT NULL DEFAULT 0,
    daily_active_day                 INTEGER NOT NULL DEFAULT 0,
    active_days_to_date              INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (actor_id, date)
)`,
		`CREATE INDEX IF NOT EXISTS "idx_%[1]s_date" ON "%[1]s"(date)`}},
	{TableWikiStats, []string{`
CREATE TABLE IF NOT EXISTS "%[1]s" (
    date                             TEXT PRIMARY KEY,
    daily_edits                      INTEGER NOT NULL DEFAULT 0,
    edits_to_date                    INTEGER NOT NULL DEFAULT 0,
    daily_reverted_edits             INTEGER NOT NULL DEFAULT 0,
    reverted_edits_to_date           INTEGER NOT NULL DEFAULT 0,
    daily_character_changes          INTEGER NOT NULL DEFAULT 0,
    character_changes_to_date        INTEGER NOT NULL DEFAULT 0,
    daily_received_thanks            INTEGER NOT NULL DEFAULT 0,
    received_thanks_to_date          INTEGER NOT NULL DEFAULT 0,
    daily_sent_thanks                INTEGER NOT NULL DEFAULT 0,
    sent_thanks_to_date              INTEGER NOT NULL DEFAULT 0,
    daily_log_events                 INTEGER NOT NULL DEFAULT 0,
    log_events_to_date               INTEGER NOT NULL DEFAULT 0,
    daily_service_award_log_events   INTEGER NOT NULL DEFAULT 0,
    service_award_log_events_to_date INTEGER NOT NULL DEFAULT 0,
    daily_active_day                 INTEGER NOT NULL DEFAULT 0,
    active_days_to_date              INTEGER NOT NULL DEFAULT 0
)`}},
	{TableNamespaceStats, []string{`
CREATE TABLE IF NOT EXISTS "%[1]s" (
    actor_id                  INTEGER NOT NULL,
    namespace                 INTEGER NOT NULL,
    date                      TEXT    NOT NULL,
    daily_edits               INTEGER NOT NULL DEFAULT 0,
    edits_to_date             INTEGER NOT NULL DEFAULT 0,
    daily_reverted_edits      INTEGER NOT NULL DEFAULT 0,
    reverted_edits_to_date    INTEGER NOT NULL DEFAULT 0,
    daily_character_changes   INTEGER NOT NULL DEFAULT 0,
    character_changes_to_date INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (actor_id, namespace, date)
)`,
		`CREATE INDEX IF NOT EXISTS "idx_%[1]s_date" ON "%[1]s"(date)`}},
	{TableChangeTagStats, []string{`
CREATE TABLE IF NOT EXISTS "%[1]s" (
    actor_id                  INTEGER NOT NULL,
    change_tag_id             INTEGER NOT NULL,
    date                      TEXT    NOT NULL,
    daily_edits               INTEGER NOT NULL DEFAULT 0,
    edits_to_date             INTEGER NOT NULL DEFAULT 0,
    daily_character_changes   INTEGER NOT NULL DEFAULT 0,
    character_changes_to_date INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (actor_id, change_tag_id, date)
)`,
		`CREATE INDEX IF NOT EXISTS "idx_%[1]s_date" ON "%[1]s"(date)`}},
	{TableLogTypeStats, []string{`
CREATE TABLE IF NOT EXISTS "%[1]s" (
    actor_id           INTEGER NOT NULL,
    log_type           TEXT    NOT NULL,
    log_action         TEXT    NOT NULL,
    date               TEXT    NOT NULL,
    daily_log_events   INTEGER NOT NULL DEFAULT 0,
    log_events_to_date INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (actor_id, log_type, log_action, date)
)`,
		`CREATE INDEX IF NOT EXISTS "idx_%[1]s_date" ON "%[1]s"(date)`}},
}

// EnsureSchema creates all counter-store tables and indexes for one
// wiki if they don't exist. The compiler itself never writes these
// tables; the schema exists for tests and local seeding.
func EnsureSchema(database *sqlx.DB, namer TableNamer) error {
	for _, s := range schemaTemplates {
		name := namer(s.table)
		for _, ddl := range s.ddl {
			if _, err := database.Exec(fmt.Sprintf(ddl, name)); err != nil {
				return fmt.Errorf("schema creation failed for %s: %w", name, err)
			}
		}
	}
	return nil
}
