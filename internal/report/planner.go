package report

import (
	"fmt"

	"github.com/wikistats/tally/internal/db"
)

// snapshotTable resolves the snapshot table a key joins against.
func (k joinKey) snapshotTable(names db.TableNamer) string {
	switch k.dim {
	case dimWiki:
		return names(db.TableWikiStats)
	case dimNamespace:
		return names(db.TableNamespaceStats)
	case dimChangeTag:
		return names(db.TableChangeTagStats)
	case dimLogType:
		return names(db.TableLogTypeStats)
	default:
		return names(db.TableActorStats)
	}
}

// renderJoin writes one as-of join clause for the key.
//
// End-boundary joins are INNER with date <= target: an actor with no
// snapshot at or before the target has zero cumulative activity and
// is excluded by the join. Start-boundary joins are LEFT with the
// strict date < target, so an actor with no prior activity survives
// with NULLs that IFNULL resolves to zero downstream.
func renderJoin(w *sqlWriter, k joinKey, names db.TableNamer) {
	table := k.snapshotTable(names)
	alias := k.alias()

	if k.boundary == boundaryStart {
		w.text("LEFT JOIN ")
	} else {
		w.text("INNER JOIN ")
	}
	fmt.Fprintf(&w.sb, "%q AS %s ON ", table, alias)

	if k.dim != dimWiki {
		fmt.Fprintf(&w.sb, "%s.actor_id = actor.actor_id AND ", alias)
	}
	renderDiscriminator(w, alias, k)

	fmt.Fprintf(&w.sb, "%s.date = (SELECT MAX(s.date) FROM %q s WHERE ", alias, table)
	if k.dim != dimWiki {
		w.text("s.actor_id = actor.actor_id AND ")
	}
	renderDiscriminator(w, "s", k)
	if k.boundary == boundaryStart {
		w.text("s.date < ")
	} else {
		w.text("s.date <= ")
	}
	w.param(k.date.String())
	w.text(")")
}

// renderDiscriminator writes the secondary-dimension equality
// conditions (with a trailing AND) for the given alias.
func renderDiscriminator(w *sqlWriter, alias string, k joinKey) {
	switch k.dim {
	case dimNamespace:
		w.text(alias + ".namespace = ")
		w.param(k.namespace)
		w.text(" AND ")
	case dimChangeTag:
		w.text(alias + ".change_tag_id = ")
		w.param(k.changeTag)
		w.text(" AND ")
	case dimLogType:
		w.text(alias + ".log_type = ")
		w.param(k.logType)
		w.text(" AND " + alias + ".log_action = ")
		w.param(k.logAction)
		w.text(" AND ")
	}
}

// renderJoins writes every planned join in deterministic plan order.
func renderJoins(w *sqlWriter, p *queryPlan, names db.TableNamer) {
	for _, k := range p.keys {
		w.text("\n")
		renderJoin(w, k, names)
	}
}
