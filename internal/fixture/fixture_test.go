package fixture

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikistats/tally/internal/db"
)

func testStore(t *testing.T) (*sqlx.DB, db.TableNamer) {
	t.Helper()
	database, err := db.Open(":memory:", "testwiki")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database, db.DefaultNamer("testwiki")
}

type statRow struct {
	Date        string `db:"date"`
	DailyEdits  int64  `db:"daily_edits"`
	EditsToDate int64  `db:"edits_to_date"`
	DailyActive int64  `db:"daily_active_day"`
	ActiveDays  int64  `db:"active_days_to_date"`
}

func TestInsertMaintainsRunningTotals(t *testing.T) {
	database, names := testStore(t)

	set := &Set{
		Actors: []Actor{{ID: 1, Name: "alice", Registered: true}},
		Activity: []DayActivity{
			{ActorID: 1, Date: "2020-01-05", Edits: 10},
			{ActorID: 1, Date: "2020-01-20", Edits: 5},
			{ActorID: 1, Date: "2020-02-10", Edits: 7},
		},
	}
	require.NoError(t, set.Insert(database, names))

	var rows []statRow
	require.NoError(t, database.Select(&rows,
		`SELECT date, daily_edits, edits_to_date, daily_active_day, active_days_to_date
		 FROM "testwiki_actor_daily_stats" WHERE actor_id = 1 ORDER BY date`))

	require.Len(t, rows, 3)
	// Each running total covers everything through the previous row.
	assert.Equal(t, statRow{"2020-01-05", 10, 0, 1, 0}, rows[0])
	assert.Equal(t, statRow{"2020-01-20", 5, 10, 1, 1}, rows[1])
	assert.Equal(t, statRow{"2020-02-10", 7, 15, 1, 2}, rows[2])
}

func TestInsertAggregatesWikiAcrossActors(t *testing.T) {
	database, names := testStore(t)

	set := &Set{
		Actors: []Actor{
			{ID: 1, Name: "alice", Registered: true},
			{ID: 2, Name: "bob", Registered: true},
		},
		Activity: []DayActivity{
			{ActorID: 1, Date: "2020-01-05", Edits: 10},
			{ActorID: 2, Date: "2020-01-05", Edits: 4},
			{ActorID: 2, Date: "2020-01-15", Edits: 6},
		},
	}
	require.NoError(t, set.Insert(database, names))

	var rows []statRow
	require.NoError(t, database.Select(&rows,
		`SELECT date, daily_edits, edits_to_date, daily_active_day, active_days_to_date
		 FROM "testwiki_wiki_daily_stats" ORDER BY date`))

	require.Len(t, rows, 2)
	assert.Equal(t, int64(14), rows[0].DailyEdits)
	assert.Equal(t, int64(0), rows[0].EditsToDate)
	assert.Equal(t, int64(6), rows[1].DailyEdits)
	assert.Equal(t, int64(14), rows[1].EditsToDate)
}

func TestInsertWritesTypeLevelLogRows(t *testing.T) {
	database, names := testStore(t)

	set := &Set{
		Actors: []Actor{{ID: 1, Name: "alice", Registered: true}},
		Activity: []DayActivity{
			{ActorID: 1, Date: "2020-01-05", Logs: []LogActivity{
				{Type: "thanks", Action: "thank", Count: 2},
				{Type: "thanks", Action: "revoke", Count: 1},
			}},
		},
	}
	require.NoError(t, set.Insert(database, names))

	type logRow struct {
		Action string `db:"log_action"`
		Daily  int64  `db:"daily_log_events"`
	}
	var rows []logRow
	require.NoError(t, database.Select(&rows,
		`SELECT log_action, daily_log_events FROM "testwiki_actor_daily_stats_by_log"
		 WHERE actor_id = 1 AND log_type = 'thanks' ORDER BY log_action`))

	// One row per exact action plus the empty-action aggregate that
	// type-only filters join.
	require.Len(t, rows, 3)
	assert.Equal(t, logRow{"", 3}, rows[0])
	assert.Equal(t, logRow{"revoke", 1}, rows[1])
	assert.Equal(t, logRow{"thank", 2}, rows[2])
}

func TestInsertNamespaceRunningTotalsPerNamespace(t *testing.T) {
	database, names := testStore(t)

	set := &Set{
		Actors: []Actor{{ID: 1, Name: "alice", Registered: true}},
		Activity: []DayActivity{
			{ActorID: 1, Date: "2020-01-05", Namespaces: []NamespaceActivity{
				{Namespace: 0, Edits: 5},
				{Namespace: 4, Edits: 2},
			}},
			{ActorID: 1, Date: "2020-01-20", Namespaces: []NamespaceActivity{
				{Namespace: 0, Edits: 3},
			}},
		},
	}
	require.NoError(t, set.Insert(database, names))

	type nsRow struct {
		Namespace   int    `db:"namespace"`
		Date        string `db:"date"`
		EditsToDate int64  `db:"edits_to_date"`
	}
	var rows []nsRow
	require.NoError(t, database.Select(&rows,
		`SELECT namespace, date, edits_to_date FROM "testwiki_actor_daily_stats_by_ns"
		 WHERE actor_id = 1 ORDER BY namespace, date`))

	require.Len(t, rows, 3)
	// Totals accumulate per namespace, independently.
	assert.Equal(t, nsRow{0, "2020-01-05", 0}, rows[0])
	assert.Equal(t, nsRow{0, "2020-01-20", 5}, rows[1])
	assert.Equal(t, nsRow{4, "2020-01-05", 0}, rows[2])
}

func TestLoad(t *testing.T) {
	set := &Set{
		Actors:   []Actor{{ID: 1, Name: "alice", Registered: true, Groups: []string{"sysop"}}},
		Activity: []DayActivity{{ActorID: 1, Date: "2020-01-05", Edits: 3}},
	}
	data, err := json.Marshal(set)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, os.WriteFile(path, data, 0644))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, set, loaded)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
