/*
dialect.go - Per-engine SQL adapters

PURPOSE:
  The Dao is polymorphic over a tagged set of query providers, one per
  supported database flavor, selected when the store opens. Most queries
  are shared; a dialect overrides only what genuinely differs:
  - the upsert statements (MySQL ON DUPLICATE KEY UPDATE vs SQLite
    ON CONFLICT DO UPDATE)
  - the table-existence probe (information_schema vs sqlite_master)
  - the driver name and the bundled schema script

PREFIX PLACEHOLDER:
  Every table reference in a query is written as {}name. The store
  substitutes the configured prefix before execution and memoizes the
  result per raw query string.

DIALECT SELECTION:
  The connection URL's scheme names the dialect: mysql://<dsn> or
  sqlite://<path>. The driver has to be chosen before a connection exists,
  so the scheme stands in for probing the live connection's product name;
  an unknown scheme fails with UnsupportedDialectError at open.
*/
package sqlstore

// queries is the contractually required statement set, with {} marking
// each table reference for prefix substitution.
type queries struct {
	selectGlobalParameter string
	upsertGlobalParameter string
	deleteGlobalParameter string

	selectSubjectByID    string
	selectSubjectByName  string
	insertSubject        string
	deleteSubjectByID    string
	deleteSubjectByName  string
	selectIdentifiers    string
	selectSubjectTypes   string
	selectAllSubjects    string

	selectSegmentsBySubject string
	insertSegment           string
	deleteSegmentByID       string
	updateSegmentDefault    string

	selectContextsBySegment string
	insertContext           string
	deleteContextsBySegment string

	selectPermissionsBySegment string
	upsertPermission           string
	deletePermissionKey        string
	deletePermissionsBySegment string

	selectOptionsBySegment string
	upsertOption           string
	deleteOptionKey        string
	deleteOptionsBySegment string

	selectParentsBySegment string
	insertParent           string
	deleteParent           string
	deleteParentsBySegment string

	selectContextInheritance      string
	insertContextInheritance      string
	deleteContextInheritanceChild string

	selectRankLadder      string
	testRankLadderExists  string
	insertRankLadder      string
	deleteRankLadder      string
	selectRankLadderNames string
}

// dialect ties a query set to a driver and its schema script.
type dialect struct {
	name     string // matches deploy/<name>.sql
	driver   string // database/sql driver name
	hasTable string // probe, takes the prefixed table name
	queries  queries
}

// dialects are the supported database flavors, keyed by URL scheme.
var dialects = map[string]*dialect{
	"mysql":  mysqlDialect(),
	"sqlite": sqliteDialect(),
}

// baseQueries is everything the engines agree on.
func baseQueries() queries {
	return queries{
		selectGlobalParameter: "SELECT `value` FROM {}global WHERE `key`=?",
		deleteGlobalParameter: "DELETE FROM {}global WHERE `key`=?",

		selectSubjectByID:   "SELECT type, identifier FROM {}subjects WHERE id=?",
		selectSubjectByName: "SELECT id FROM {}subjects WHERE type=? AND identifier=?",
		insertSubject:       "INSERT INTO {}subjects (type, identifier) VALUES (?, ?)",
		deleteSubjectByID:   "DELETE FROM {}subjects WHERE id=?",
		deleteSubjectByName: "DELETE FROM {}subjects WHERE type=? AND identifier=?",
		selectIdentifiers:   "SELECT identifier FROM {}subjects WHERE type=?",
		selectSubjectTypes:  "SELECT DISTINCT type FROM {}subjects",
		selectAllSubjects:   "SELECT id, type, identifier FROM {}subjects",

		selectSegmentsBySubject: "SELECT id, perm_default FROM {}segments WHERE subject=?",
		insertSegment:           "INSERT INTO {}segments (subject, perm_default) VALUES (?, ?)",
		deleteSegmentByID:       "DELETE FROM {}segments WHERE id=?",
		updateSegmentDefault:    "UPDATE {}segments SET perm_default=? WHERE id=?",

		selectContextsBySegment: "SELECT `key`, `value` FROM {}contexts WHERE segment=?",
		insertContext:           "INSERT INTO {}contexts (segment, `key`, `value`) VALUES (?, ?, ?)",
		deleteContextsBySegment: "DELETE FROM {}contexts WHERE segment=?",

		selectPermissionsBySegment: "SELECT `key`, `value` FROM {}permissions WHERE segment=?",
		deletePermissionKey:        "DELETE FROM {}permissions WHERE segment=? AND `key`=?",
		deletePermissionsBySegment: "DELETE FROM {}permissions WHERE segment=?",

		selectOptionsBySegment: "SELECT `key`, `value` FROM {}options WHERE segment=?",
		deleteOptionKey:        "DELETE FROM {}options WHERE segment=? AND `key`=?",
		deleteOptionsBySegment: "DELETE FROM {}options WHERE segment=?",

		selectParentsBySegment: "SELECT {}inheritance.parent, {}subjects.type, {}subjects.identifier " +
			"FROM {}inheritance LEFT JOIN {}subjects ON {}inheritance.parent={}subjects.id WHERE segment=?",
		insertParent:           "INSERT INTO {}inheritance (segment, parent) VALUES (?, ?)",
		deleteParent:           "DELETE FROM {}inheritance WHERE segment=? AND parent=?",
		deleteParentsBySegment: "DELETE FROM {}inheritance WHERE segment=?",

		selectContextInheritance: "SELECT child_key, child_value, parent_key, parent_value " +
			"FROM {}context_inheritance ORDER BY id ASC",
		insertContextInheritance: "INSERT INTO {}context_inheritance " +
			"(child_key, child_value, parent_key, parent_value) VALUES (?, ?, ?, ?)",
		deleteContextInheritanceChild: "DELETE FROM {}context_inheritance WHERE child_key=? AND child_value=?",

		selectRankLadder: "SELECT {}rank_ladders.subject, {}subjects.type, {}subjects.identifier " +
			"FROM {}rank_ladders LEFT JOIN {}subjects ON {}rank_ladders.subject={}subjects.id " +
			"WHERE name=? ORDER BY {}rank_ladders.id ASC",
		testRankLadderExists:  "SELECT id FROM {}rank_ladders WHERE name=? LIMIT 1",
		insertRankLadder:      "INSERT INTO {}rank_ladders (name, subject) VALUES (?, ?)",
		deleteRankLadder:      "DELETE FROM {}rank_ladders WHERE name=?",
		selectRankLadderNames: "SELECT DISTINCT name FROM {}rank_ladders",
	}
}

func mysqlDialect() *dialect {
	q := baseQueries()
	q.upsertGlobalParameter = "INSERT INTO {}global (`key`, `value`) VALUES (?, ?) " +
		"ON DUPLICATE KEY UPDATE `value`=VALUES(`value`)"
	q.upsertPermission = "INSERT INTO {}permissions (segment, `key`, `value`) VALUES (?, ?, ?) " +
		"ON DUPLICATE KEY UPDATE `value`=VALUES(`value`)"
	q.upsertOption = "INSERT INTO {}options (segment, `key`, `value`) VALUES (?, ?, ?) " +
		"ON DUPLICATE KEY UPDATE `value`=VALUES(`value`)"
	return &dialect{
		name:     "mysql",
		driver:   "mysql",
		hasTable: "SELECT table_name FROM information_schema.tables WHERE table_schema=DATABASE() AND table_name=?",
		queries:  q,
	}
}

func sqliteDialect() *dialect {
	q := baseQueries()
	q.upsertGlobalParameter = "INSERT INTO {}global (`key`, `value`) VALUES (?, ?) " +
		"ON CONFLICT(`key`) DO UPDATE SET `value`=excluded.`value`"
	q.upsertPermission = "INSERT INTO {}permissions (segment, `key`, `value`) VALUES (?, ?, ?) " +
		"ON CONFLICT(segment, `key`) DO UPDATE SET `value`=excluded.`value`"
	q.upsertOption = "INSERT INTO {}options (segment, `key`, `value`) VALUES (?, ?, ?) " +
		"ON CONFLICT(segment, `key`) DO UPDATE SET `value`=excluded.`value`"
	return &dialect{
		name:     "sqlite",
		driver:   "sqlite3",
		hasTable: "SELECT name FROM sqlite_master WHERE type='table' AND name=?",
		queries:  q,
	}
}
