/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the storage
  model from the external contract. Context sets travel as lists of
  key/value pairs and are canonicalized server-side.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/permission-engine/data"
)

// =============================================================================
// CONTEXT ENCODING
// =============================================================================

// ContextDTO is one scoping pair on the wire.
type ContextDTO struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func toContextSet(pairs []ContextDTO) data.ContextSet {
	contexts := make([]data.Context, len(pairs))
	for i, pair := range pairs {
		contexts[i] = data.NewContext(pair.Key, pair.Value)
	}
	return data.NewContextSet(contexts...)
}

func fromContextSet(set data.ContextSet) []ContextDTO {
	contexts := set.Contexts()
	pairs := make([]ContextDTO, len(contexts))
	for i, c := range contexts {
		pairs[i] = ContextDTO{Key: c.Key, Value: c.Value}
	}
	return pairs
}

// =============================================================================
// SUBJECT RESPONSES
// =============================================================================

// SubjectDTO is a subject's full stored state, one segment per context set.
type SubjectDTO struct {
	Type       string       `json:"type"`
	Identifier string       `json:"identifier"`
	Segments   []SegmentDTO `json:"segments"`
}

// SegmentDTO is the stored state under one context set.
type SegmentDTO struct {
	Contexts     []ContextDTO      `json:"contexts"`
	Permissions  map[string]int    `json:"permissions,omitempty"`
	Options      map[string]string `json:"options,omitempty"`
	Parents      []SubjectRefDTO   `json:"parents,omitempty"`
	DefaultValue *int              `json:"defaultValue,omitempty"`
}

// SubjectRefDTO names another subject.
type SubjectRefDTO struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

func subjectToDTO(typ, identifier string, sd data.SubjectData) SubjectDTO {
	dto := SubjectDTO{Type: typ, Identifier: identifier}
	defaults := sd.AllDefaultValues()
	for _, set := range sd.ActiveContexts() {
		seg := SegmentDTO{
			Contexts:    fromContextSet(set),
			Permissions: sd.Permissions(set),
			Options:     sd.Options(set),
		}
		for _, parent := range sd.Parents(set) {
			seg.Parents = append(seg.Parents, SubjectRefDTO{Type: parent.Type, Identifier: parent.Identifier})
		}
		if v, ok := defaults[set]; ok {
			value := v
			seg.DefaultValue = &value
		}
		dto.Segments = append(dto.Segments, seg)
	}
	return dto
}

// =============================================================================
// MUTATION REQUESTS
// =============================================================================

// SetPermissionRequest sets one permission. A value of 0 clears it.
type SetPermissionRequest struct {
	Contexts   []ContextDTO `json:"contexts"`
	Permission string       `json:"permission"`
	Value      int          `json:"value"`
}

// SetOptionRequest sets one option; a null value clears it.
type SetOptionRequest struct {
	Contexts []ContextDTO `json:"contexts"`
	Key      string       `json:"key"`
	Value    *string      `json:"value"`
}

// ParentRequest adds or removes one parent.
type ParentRequest struct {
	Contexts   []ContextDTO `json:"contexts"`
	Type       string       `json:"type"`
	Identifier string       `json:"identifier"`
}

// SetParentsRequest replaces the full parent list, in order.
type SetParentsRequest struct {
	Contexts []ContextDTO    `json:"contexts"`
	Parents  []SubjectRefDTO `json:"parents"`
}

// SetDefaultRequest sets the segment's fallback value.
type SetDefaultRequest struct {
	Contexts []ContextDTO `json:"contexts"`
	Value    int          `json:"value"`
}

// =============================================================================
// LADDERS / INHERITANCE / GLOBALS
// =============================================================================

// LadderDTO is a rank ladder, ranks in ladder order.
type LadderDTO struct {
	Name  string          `json:"name"`
	Ranks []SubjectRefDTO `json:"ranks"`
}

// InheritanceEntryDTO is one child context and its ordered parents.
type InheritanceEntryDTO struct {
	Child   ContextDTO   `json:"child"`
	Parents []ContextDTO `json:"parents"`
}

// GlobalParameterDTO is one global key/value row.
type GlobalParameterDTO struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
