package sqlstore

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queryStrings flattens every statement a dialect carries.
func queryStrings(t *testing.T, d *dialect) []string {
	t.Helper()
	value := reflect.ValueOf(d.queries)
	var all []string
	for i := 0; i < value.NumField(); i++ {
		q := value.Field(i).String()
		require.NotEmpty(t, q, "dialect %s leaves %s undefined", d.name, value.Type().Field(i).Name)
		all = append(all, q)
	}
	return all
}

// =============================================================================
// QUERY SET COMPLETENESS / UPSERT DIVERGENCE
// =============================================================================

func TestDialects_DefineEveryQuery(t *testing.T) {
	for name, d := range dialects {
		queryStrings(t, d)
		assert.NotEmpty(t, d.hasTable, "dialect %s has no table probe", name)
		assert.NotEmpty(t, d.driver)
	}
}

func TestDialects_UpsertsDiffer(t *testing.T) {
	mysql := dialects["mysql"]
	sqlite := dialects["sqlite"]

	assert.Contains(t, mysql.queries.upsertPermission, "ON DUPLICATE KEY UPDATE")
	assert.Contains(t, mysql.queries.upsertOption, "ON DUPLICATE KEY UPDATE")
	assert.Contains(t, mysql.queries.upsertGlobalParameter, "ON DUPLICATE KEY UPDATE")

	assert.Contains(t, sqlite.queries.upsertPermission, "ON CONFLICT")
	assert.Contains(t, sqlite.queries.upsertOption, "ON CONFLICT")
	assert.Contains(t, sqlite.queries.upsertGlobalParameter, "ON CONFLICT")
}

// =============================================================================
// PREFIX SUBSTITUTION
// =============================================================================

func TestInsertPrefix_SubstitutesEveryPlaceholder(t *testing.T) {
	store := newTestStore(t)

	for _, d := range dialects {
		for _, raw := range queryStrings(t, d) {
			substituted := store.insertPrefix(raw)
			assert.NotContains(t, substituted, "{}", "unsubstituted placeholder in %q", raw)
			assert.Equal(t, strings.Count(raw, "{}"),
				strings.Count(substituted, "pex_")-strings.Count(raw, "pex_"),
				"each placeholder becomes exactly one prefix in %q", raw)
		}
	}
}

func TestInsertPrefix_Memoized(t *testing.T) {
	store := newTestStore(t)

	first := store.insertPrefix("SELECT * FROM {}subjects")
	second := store.insertPrefix("SELECT * FROM {}subjects")

	assert.Equal(t, "SELECT * FROM pex_subjects", first)
	assert.Equal(t, first, second)
	_, cached := store.prefixCache.Load("SELECT * FROM {}subjects")
	assert.True(t, cached)
}

func TestInsertPrefix_EmptyPrefix(t *testing.T) {
	store := newTestStore(t)
	store.realPrefix = ""
	store.prefixCache.Delete("SELECT * FROM {}subjects")

	assert.Equal(t, "SELECT * FROM subjects", store.insertPrefix("SELECT * FROM {}subjects"))
}

// =============================================================================
// SCHEMA SCRIPT PARSING
// =============================================================================

func TestSplitStatements(t *testing.T) {
	script := "-- a comment\nCREATE TABLE a (\n  id INT\n);\n\n-- another\nCREATE TABLE b (id INT);\n"

	statements := splitStatements(script)
	require.Len(t, statements, 2)
	assert.Equal(t, "CREATE TABLE a (\n  id INT\n)", statements[0])
	assert.Equal(t, "CREATE TABLE b (id INT)", statements[1])
}

func TestSplitStatements_EmptyAndCommentOnly(t *testing.T) {
	assert.Empty(t, splitStatements(""))
	assert.Empty(t, splitStatements("-- nothing here\n-- at all\n"))
}

func TestDeployScripts_ExistForEveryDialect(t *testing.T) {
	for name := range dialects {
		script, err := deployScripts.ReadFile("deploy/" + name + ".sql")
		require.NoError(t, err, "no bundled schema for %s", name)
		assert.NotEmpty(t, splitStatements(string(script)))
	}
}
