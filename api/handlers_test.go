package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/permission-engine/api"
	"github.com/warp/permission-engine/store/sqlstore"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := sqlstore.Open(context.Background(), sqlstore.Config{URL: "sqlite://:memory:", Prefix: "pex"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return api.NewRouter(api.NewHandler(store))
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), into))
}

// =============================================================================
// SUBJECT ENDPOINTS
// =============================================================================

func TestAPI_SetPermissionAndFetchSubject(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPut, "/api/subjects/user/alice/permissions", api.SetPermissionRequest{
		Contexts:   []api.ContextDTO{{Key: "world", Value: "nether"}},
		Permission: "build",
		Value:      1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/subjects/user/alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var subject api.SubjectDTO
	decodeJSON(t, rec, &subject)
	require.Len(t, subject.Segments, 1)
	assert.Equal(t, map[string]int{"build": 1}, subject.Segments[0].Permissions)
	assert.Equal(t, []api.ContextDTO{{Key: "world", Value: "nether"}}, subject.Segments[0].Contexts)
}

func TestAPI_ZeroValueClearsPermission(t *testing.T) {
	router := newTestRouter(t)

	set := api.SetPermissionRequest{Permission: "build", Value: 1}
	require.Equal(t, http.StatusOK,
		doJSON(t, router, http.MethodPut, "/api/subjects/user/alice/permissions", set).Code)

	set.Value = 0
	require.Equal(t, http.StatusOK,
		doJSON(t, router, http.MethodPut, "/api/subjects/user/alice/permissions", set).Code)

	rec := doJSON(t, router, http.MethodGet, "/api/subjects/user/alice", nil)
	var subject api.SubjectDTO
	decodeJSON(t, rec, &subject)
	assert.Empty(t, subject.Segments, "cleared segment leaves no stored state")
}

func TestAPI_ListTypesAndIdentifiers(t *testing.T) {
	router := newTestRouter(t)

	require.Equal(t, http.StatusOK,
		doJSON(t, router, http.MethodPut, "/api/subjects/group/admin/permissions",
			api.SetPermissionRequest{Permission: "admin", Value: 1}).Code)

	var types []string
	decodeJSON(t, doJSON(t, router, http.MethodGet, "/api/subjects", nil), &types)
	assert.Contains(t, types, "group")

	var identifiers []string
	decodeJSON(t, doJSON(t, router, http.MethodGet, "/api/subjects/group", nil), &identifiers)
	assert.Equal(t, []string{"admin"}, identifiers)
}

func TestAPI_ParentsEndpoints(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPut, "/api/subjects/user/alice/parents", api.SetParentsRequest{
		Parents: []api.SubjectRefDTO{
			{Type: "group", Identifier: "a"},
			{Type: "group", Identifier: "b"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/subjects/user/alice/parents", api.ParentRequest{
		Type: "group", Identifier: "a",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var subject api.SubjectDTO
	decodeJSON(t, doJSON(t, router, http.MethodGet, "/api/subjects/user/alice", nil), &subject)
	require.Len(t, subject.Segments, 1)
	assert.Equal(t, []api.SubjectRefDTO{{Type: "group", Identifier: "b"}}, subject.Segments[0].Parents)
}

func TestAPI_DeleteSubject(t *testing.T) {
	router := newTestRouter(t)

	require.Equal(t, http.StatusOK,
		doJSON(t, router, http.MethodPut, "/api/subjects/user/alice/permissions",
			api.SetPermissionRequest{Permission: "chat", Value: 1}).Code)

	rec := doJSON(t, router, http.MethodDelete, "/api/subjects/user/alice", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	var identifiers []string
	decodeJSON(t, doJSON(t, router, http.MethodGet, "/api/subjects/user", nil), &identifiers)
	assert.Empty(t, identifiers)
}

// =============================================================================
// LADDER ENDPOINTS
// =============================================================================

func TestAPI_LadderRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	put := api.LadderDTO{Ranks: []api.SubjectRefDTO{
		{Type: "group", Identifier: "member"},
		{Type: "group", Identifier: "admin"},
	}}
	require.Equal(t, http.StatusNoContent,
		doJSON(t, router, http.MethodPut, "/api/ladders/staff", put).Code)

	var ladder api.LadderDTO
	decodeJSON(t, doJSON(t, router, http.MethodGet, "/api/ladders/staff", nil), &ladder)
	assert.Equal(t, "staff", ladder.Name)
	assert.Equal(t, put.Ranks, ladder.Ranks)

	var names []string
	decodeJSON(t, doJSON(t, router, http.MethodGet, "/api/ladders", nil), &names)
	assert.Equal(t, []string{"staff"}, names)

	require.Equal(t, http.StatusNoContent,
		doJSON(t, router, http.MethodDelete, "/api/ladders/staff", nil).Code)
	decodeJSON(t, doJSON(t, router, http.MethodGet, "/api/ladders", nil), &names)
	assert.Empty(t, names)
}

// =============================================================================
// CONTEXT INHERITANCE / GLOBALS
// =============================================================================

func TestAPI_ContextInheritance(t *testing.T) {
	router := newTestRouter(t)

	entry := api.InheritanceEntryDTO{
		Child: api.ContextDTO{Key: "world", Value: "nether"},
		Parents: []api.ContextDTO{
			{Key: "world", Value: "overworld"},
		},
	}
	require.Equal(t, http.StatusNoContent,
		doJSON(t, router, http.MethodPut, "/api/context-inheritance", entry).Code)

	var entries []api.InheritanceEntryDTO
	decodeJSON(t, doJSON(t, router, http.MethodGet, "/api/context-inheritance", nil), &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, entry, entries[0])
}

func TestAPI_Globals(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/globals/motd", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.Equal(t, http.StatusNoContent,
		doJSON(t, router, http.MethodPut, "/api/globals/motd", api.GlobalParameterDTO{Value: "hi"}).Code)

	var got api.GlobalParameterDTO
	decodeJSON(t, doJSON(t, router, http.MethodGet, "/api/globals/motd", nil), &got)
	assert.Equal(t, api.GlobalParameterDTO{Key: "motd", Value: "hi"}, got)

	require.Equal(t, http.StatusNoContent,
		doJSON(t, router, http.MethodDelete, "/api/globals/motd", nil).Code)
	assert.Equal(t, http.StatusNotFound,
		doJSON(t, router, http.MethodGet, "/api/globals/motd", nil).Code)
}
