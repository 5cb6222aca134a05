package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/permission-engine/data"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), Config{URL: "sqlite://:memory:", Prefix: "pex"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestDao(t *testing.T, store *Store) *Dao {
	t.Helper()
	dao, err := newDao(context.Background(), store)
	require.NoError(t, err)
	t.Cleanup(func() { dao.Close() })
	return dao
}

// =============================================================================
// SUBJECT REFS
// =============================================================================

func TestDao_GetSubjectRef_AbsentBeforeCreation(t *testing.T) {
	store := newTestStore(t)
	dao := newTestDao(t, store)
	ctx := context.Background()

	ref, err := dao.GetSubjectRef(ctx, "group", "admin")
	require.NoError(t, err)
	assert.Nil(t, ref)

	byID, err := dao.GetSubjectRefByID(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, byID)
}

func TestDao_GetOrCreateSubjectRef_Idempotent(t *testing.T) {
	// GIVEN: no subject ("group", "admin")
	// WHEN:  creating it, re-creating it, and fetching it back
	// THEN:  every path yields the same allocated id

	store := newTestStore(t)
	dao := newTestDao(t, store)
	ctx := context.Background()

	created, err := dao.GetOrCreateSubjectRef(ctx, "group", "admin")
	require.NoError(t, err)
	createdID, err := created.ID()
	require.NoError(t, err)

	fetched, err := dao.GetSubjectRef(ctx, "group", "admin")
	require.NoError(t, err)
	require.NotNil(t, fetched)
	fetchedID, err := fetched.ID()
	require.NoError(t, err)
	assert.Equal(t, createdID, fetchedID)

	again, err := dao.GetOrCreateSubjectRef(ctx, "group", "admin")
	require.NoError(t, err)
	againID, err := again.ID()
	require.NoError(t, err)
	assert.Equal(t, createdID, againID)

	byID, err := dao.GetSubjectRefByID(ctx, createdID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.True(t, created.Equal(byID))
}

func TestDao_UnallocatedRefIDFails(t *testing.T) {
	ref := UnresolvedRef("group", "admin")

	_, err := ref.ID()
	assert.ErrorIs(t, err, data.ErrUnallocated)
	assert.True(t, ref.IsUnallocated())
}

func TestDao_RefEqualityIgnoresID(t *testing.T) {
	allocated := newSubjectRef(42, "group", "admin")
	unresolved := UnresolvedRef("group", "admin")

	assert.True(t, allocated.Equal(unresolved))
	assert.False(t, allocated.Equal(UnresolvedRef("group", "mods")))
}

func TestDao_RemoveSubject(t *testing.T) {
	store := newTestStore(t)
	dao := newTestDao(t, store)
	ctx := context.Background()

	_, err := dao.GetOrCreateSubjectRef(ctx, "group", "one")
	require.NoError(t, err)
	second, err := dao.GetOrCreateSubjectRef(ctx, "group", "two")
	require.NoError(t, err)

	removed, err := dao.RemoveSubjectByName(ctx, "group", "one")
	require.NoError(t, err)
	assert.True(t, removed)

	gone, err := dao.GetSubjectRef(ctx, "group", "one")
	require.NoError(t, err)
	assert.Nil(t, gone)

	// Removing again affects nothing.
	removed, err = dao.RemoveSubjectByName(ctx, "group", "one")
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = dao.RemoveSubject(ctx, second)
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestDao_RegisteredTypesAndIdentifiers(t *testing.T) {
	store := newTestStore(t)
	dao := newTestDao(t, store)
	ctx := context.Background()

	for _, pair := range [][2]string{{"group", "admin"}, {"group", "mods"}, {"user", "alice"}} {
		_, err := dao.GetOrCreateSubjectRef(ctx, pair[0], pair[1])
		require.NoError(t, err)
	}

	types, err := dao.GetRegisteredTypes(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"group", "user"}, types)

	groups, err := dao.GetAllIdentifiers(ctx, "group")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"admin", "mods"}, groups)

	refs, err := dao.GetAllSubjectRefs(ctx)
	require.NoError(t, err)
	assert.Len(t, refs, 3)
}

// =============================================================================
// GLOBAL PARAMETERS
// =============================================================================

func TestDao_GlobalParameterLifecycle(t *testing.T) {
	store := newTestStore(t)
	dao := newTestDao(t, store)
	ctx := context.Background()

	_, found, err := dao.GetGlobalParameter(ctx, "schema-version")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, dao.SetGlobalParameter(ctx, "schema-version", "3"))

	value, found, err := dao.GetGlobalParameter(ctx, "schema-version")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "3", value)

	// Upsert updates in place.
	require.NoError(t, dao.SetGlobalParameter(ctx, "schema-version", "4"))
	value, _, err = dao.GetGlobalParameter(ctx, "schema-version")
	require.NoError(t, err)
	assert.Equal(t, "4", value)

	// Unsetting deletes the row.
	require.NoError(t, dao.DeleteGlobalParameter(ctx, "schema-version"))
	_, found, err = dao.GetGlobalParameter(ctx, "schema-version")
	require.NoError(t, err)
	assert.False(t, found)
}

// =============================================================================
// NESTED TRANSACTIONS
// =============================================================================

func TestDao_NestedTransaction_CommitsOnce(t *testing.T) {
	store := newTestStore(t)
	dao := newTestDao(t, store)
	ctx := context.Background()

	err := dao.ExecuteInTransaction(ctx, func() error {
		return dao.ExecuteInTransaction(ctx, func() error {
			return dao.SetGlobalParameter(ctx, "nested", "yes")
		})
	})
	require.NoError(t, err)

	value, found, err := dao.GetGlobalParameter(ctx, "nested")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "yes", value)
}

func TestDao_NestedTransaction_InnerFailureRollsBack(t *testing.T) {
	store := newTestStore(t)
	dao := newTestDao(t, store)
	ctx := context.Background()

	boom := errors.New("boom")
	err := dao.ExecuteInTransaction(ctx, func() error {
		if err := dao.SetGlobalParameter(ctx, "doomed", "value"); err != nil {
			return err
		}
		return dao.ExecuteInTransaction(ctx, func() error {
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)

	_, found, err := dao.GetGlobalParameter(ctx, "doomed")
	require.NoError(t, err)
	assert.False(t, found, "rolled-back write must not be visible")
}

// =============================================================================
// SCHEMA BOOTSTRAP
// =============================================================================

func TestDao_InitializeTables_CreatesSchema(t *testing.T) {
	store := newTestStore(t)
	dao := newTestDao(t, store)
	ctx := context.Background()

	tables := []string{
		"{}global", "{}subjects", "{}segments", "{}permissions", "{}options",
		"{}contexts", "{}inheritance", "{}rank_ladders", "{}context_inheritance",
	}
	for _, table := range tables {
		present, err := dao.hasTable(ctx, table)
		require.NoError(t, err)
		assert.True(t, present, "table %s should exist after init", table)
	}
}

func TestDao_InitializeTables_SecondRunIsNoOp(t *testing.T) {
	store := newTestStore(t)
	dao := newTestDao(t, store)
	ctx := context.Background()

	require.NoError(t, dao.SetGlobalParameter(ctx, "marker", "kept"))
	require.NoError(t, dao.InitializeTables(ctx))

	value, found, err := dao.GetGlobalParameter(ctx, "marker")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "kept", value, "re-init must not recreate tables")
}

// =============================================================================
// SEGMENT CRUD
// =============================================================================

func TestDao_AddAndRemoveSegment(t *testing.T) {
	store := newTestStore(t)
	dao := newTestDao(t, store)
	ctx := context.Background()

	ref, err := dao.GetOrCreateSubjectRef(ctx, "user", "alice")
	require.NoError(t, err)

	seg, err := dao.AddSegment(ctx, ref)
	require.NoError(t, err)
	assert.False(t, seg.IsUnallocated())

	segments, err := dao.GetSegments(ctx, ref)
	require.NoError(t, err)
	require.Len(t, segments, 1)

	removed, err := dao.RemoveSegment(ctx, seg)
	require.NoError(t, err)
	assert.True(t, removed)

	segments, err = dao.GetSegments(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestDao_DefaultValueNullRoundTrip(t *testing.T) {
	store := newTestStore(t)
	dao := newTestDao(t, store)
	ctx := context.Background()

	ref, err := dao.GetOrCreateSubjectRef(ctx, "user", "bob")
	require.NoError(t, err)
	seg, err := dao.AddSegment(ctx, ref)
	require.NoError(t, err)

	value := -1
	require.NoError(t, dao.SetDefaultValue(ctx, seg, &value))

	segments, err := dao.GetSegments(ctx, ref)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	require.NotNil(t, segments[0].DefaultValue())
	assert.Equal(t, -1, *segments[0].DefaultValue())

	// An absent default is stored as NULL, not zero.
	require.NoError(t, dao.SetDefaultValue(ctx, seg, nil))
	segments, err = dao.GetSegments(ctx, ref)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Nil(t, segments[0].DefaultValue())
}
