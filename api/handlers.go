/*
handlers.go - HTTP API handlers for the permissions engine

PURPOSE:
  Exposes the SQL-backed permissions store via REST. Handles HTTP
  request/response, JSON serialization, and delegates to the store.

ENDPOINTS:
  Subjects:
    GET    /api/subjects                         List subject types
    GET    /api/subjects/{type}                  List identifiers of a type
    GET    /api/subjects/{type}/{id}             Full stored state
    DELETE /api/subjects/{type}/{id}             Remove subject
    PUT    /api/subjects/{type}/{id}/permissions Set one permission (0 clears)
    PUT    /api/subjects/{type}/{id}/options     Set one option (null clears)
    POST   /api/subjects/{type}/{id}/parents     Add a parent
    DELETE /api/subjects/{type}/{id}/parents     Remove a parent
    PUT    /api/subjects/{type}/{id}/parents     Replace the parent list
    PUT    /api/subjects/{type}/{id}/default     Set the fallback value

  Rank ladders:
    GET    /api/ladders            List ladder names
    GET    /api/ladders/{name}     Get a ladder
    PUT    /api/ladders/{name}     Replace a ladder
    DELETE /api/ladders/{name}     Remove a ladder

  Context inheritance:
    GET    /api/context-inheritance   Full child -> parents mapping
    PUT    /api/context-inheritance   Replace one child's parents

  Globals:
    GET    /api/globals/{key}      Read a global parameter
    PUT    /api/globals/{key}      Set a global parameter
    DELETE /api/globals/{key}      Unset a global parameter

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed input
  - 404: Missing global parameter (subjects are created on first read)
  - 500: Storage errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warp/permission-engine/data"
	"github.com/warp/permission-engine/store/sqlstore"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlstore.Store
}

// NewHandler creates a new handler over the given store.
func NewHandler(store *sqlstore.Store) *Handler {
	return &Handler{Store: store}
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, ErrorResponse{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

// =============================================================================
// SUBJECTS
// =============================================================================

// ListTypes returns the distinct subject types.
func (h *Handler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types := h.Store.GetRegisteredTypes(r.Context())
	if types == nil {
		types = []string{}
	}
	respondJSON(w, http.StatusOK, types)
}

// ListIdentifiers returns the identifiers registered under a type.
func (h *Handler) ListIdentifiers(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	identifiers := h.Store.GetAllIdentifiers(r.Context(), typ)
	if identifiers == nil {
		identifiers = []string{}
	}
	respondJSON(w, http.StatusOK, identifiers)
}

// GetSubject returns a subject's full stored state.
func (h *Handler) GetSubject(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	identifier := chi.URLParam(r, "identifier")

	sd, err := h.Store.GetData(r.Context(), typ, identifier)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, subjectToDTO(typ, identifier, sd))
}

// DeleteSubject removes a subject and everything it owns.
func (h *Handler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	identifier := chi.URLParam(r, "identifier")

	if err := h.Store.RemoveSubject(r.Context(), typ, identifier).Wait(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// mutate loads a subject snapshot, applies fn, and persists the result.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, fn func(sd data.SubjectData) data.SubjectData) {
	typ := chi.URLParam(r, "type")
	identifier := chi.URLParam(r, "identifier")

	sd, err := h.Store.GetData(r.Context(), typ, identifier)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	updated := fn(sd)
	if err := h.Store.SetData(r.Context(), typ, identifier, updated).Wait(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, subjectToDTO(typ, identifier, updated))
}

// SetPermission sets one permission; a value of 0 clears it.
func (h *Handler) SetPermission(w http.ResponseWriter, r *http.Request) {
	var req SetPermissionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.mutate(w, r, func(sd data.SubjectData) data.SubjectData {
		return sd.SetPermission(toContextSet(req.Contexts), req.Permission, req.Value)
	})
}

// SetOption sets one option; a null value clears it.
func (h *Handler) SetOption(w http.ResponseWriter, r *http.Request) {
	var req SetOptionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.mutate(w, r, func(sd data.SubjectData) data.SubjectData {
		set := toContextSet(req.Contexts)
		if req.Value == nil {
			return sd.ClearOption(set, req.Key)
		}
		return sd.SetOption(set, req.Key, *req.Value)
	})
}

// AddParent appends one parent.
func (h *Handler) AddParent(w http.ResponseWriter, r *http.Request) {
	var req ParentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.mutate(w, r, func(sd data.SubjectData) data.SubjectData {
		return sd.AddParent(toContextSet(req.Contexts), req.Type, req.Identifier)
	})
}

// RemoveParent removes one parent; removing an absent parent is a no-op.
func (h *Handler) RemoveParent(w http.ResponseWriter, r *http.Request) {
	var req ParentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.mutate(w, r, func(sd data.SubjectData) data.SubjectData {
		return sd.RemoveParent(toContextSet(req.Contexts), req.Type, req.Identifier)
	})
}

// SetParents replaces the full parent list in order.
func (h *Handler) SetParents(w http.ResponseWriter, r *http.Request) {
	var req SetParentsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.mutate(w, r, func(sd data.SubjectData) data.SubjectData {
		parents := make([]data.SubjectID, len(req.Parents))
		for i, parent := range req.Parents {
			parents[i] = data.SubjectID{Type: parent.Type, Identifier: parent.Identifier}
		}
		return sd.SetParents(toContextSet(req.Contexts), parents)
	})
}

// SetDefault sets the segment's fallback value.
func (h *Handler) SetDefault(w http.ResponseWriter, r *http.Request) {
	var req SetDefaultRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.mutate(w, r, func(sd data.SubjectData) data.SubjectData {
		return sd.SetDefaultValue(toContextSet(req.Contexts), req.Value)
	})
}

// =============================================================================
// RANK LADDERS
// =============================================================================

// ListLadders returns the known ladder names.
func (h *Handler) ListLadders(w http.ResponseWriter, r *http.Request) {
	names := h.Store.GetAllRankLadderNames(r.Context())
	if names == nil {
		names = []string{}
	}
	respondJSON(w, http.StatusOK, names)
}

// GetLadder returns a ladder; unknown names yield an empty ladder.
func (h *Handler) GetLadder(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ladder, err := h.Store.GetRankLadder(r.Context(), name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	dto := LadderDTO{Name: name, Ranks: []SubjectRefDTO{}}
	for _, rank := range ladder.Ranks() {
		dto.Ranks = append(dto.Ranks, SubjectRefDTO{Type: rank.Type, Identifier: rank.Identifier})
	}
	respondJSON(w, http.StatusOK, dto)
}

// PutLadder replaces a ladder with the supplied ranks, in order.
func (h *Handler) PutLadder(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req LadderDTO
	if !decodeBody(w, r, &req) {
		return
	}

	ranks := make([]data.SubjectID, len(req.Ranks))
	for i, rank := range req.Ranks {
		ranks[i] = data.SubjectID{Type: rank.Type, Identifier: rank.Identifier}
	}
	ladder := data.Ladder{LadderName: name, Subjects: ranks}

	if err := h.Store.SetRankLadder(r.Context(), name, ladder).Wait(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteLadder removes a ladder entirely.
func (h *Handler) DeleteLadder(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.Store.SetRankLadder(r.Context(), name, nil).Wait(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CONTEXT INHERITANCE
// =============================================================================

// GetContextInheritance returns the full child -> parents mapping.
func (h *Handler) GetContextInheritance(w http.ResponseWriter, r *http.Request) {
	inheritance, err := h.Store.GetContextInheritance(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	entries := []InheritanceEntryDTO{}
	for child, parents := range inheritance.AllParents() {
		entry := InheritanceEntryDTO{Child: ContextDTO{Key: child.Key, Value: child.Value}}
		for _, parent := range parents {
			entry.Parents = append(entry.Parents, ContextDTO{Key: parent.Key, Value: parent.Value})
		}
		entries = append(entries, entry)
	}
	respondJSON(w, http.StatusOK, entries)
}

// PutContextInheritance replaces one child's ordered parents.
func (h *Handler) PutContextInheritance(w http.ResponseWriter, r *http.Request) {
	var req InheritanceEntryDTO
	if !decodeBody(w, r, &req) {
		return
	}

	inheritance, err := h.Store.GetContextInheritance(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	parents := make([]data.Context, len(req.Parents))
	for i, parent := range req.Parents {
		parents[i] = data.NewContext(parent.Key, parent.Value)
	}
	updated := inheritance.SetParents(data.NewContext(req.Child.Key, req.Child.Value), parents)

	if err := h.Store.SetContextInheritance(r.Context(), updated).Wait(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// GLOBAL PARAMETERS
// =============================================================================

// GetGlobal reads a global parameter.
func (h *Handler) GetGlobal(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, found, err := h.Store.GetGlobalParameter(r.Context(), key)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if !found {
		respondJSON(w, http.StatusNotFound, ErrorResponse{Error: "no such parameter"})
		return
	}
	respondJSON(w, http.StatusOK, GlobalParameterDTO{Key: key, Value: value})
}

// PutGlobal sets a global parameter.
func (h *Handler) PutGlobal(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req GlobalParameterDTO
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Store.SetGlobalParameter(r.Context(), key, req.Value).Wait(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteGlobal unsets a global parameter.
func (h *Handler) DeleteGlobal(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.Store.DeleteGlobalParameter(r.Context(), key).Wait(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
