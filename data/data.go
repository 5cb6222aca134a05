/*
data.go - Backend-agnostic contracts for subject data

PURPOSE:
  Defines the immutable snapshot interfaces served by every storage backend.
  The permission-evaluation engine consumes these; the SQL engine in
  store/sqlstore produces them. A snapshot is never modified in place: every
  mutator returns a new snapshot carrying the change, and persisting the
  change is the backend's concern.

KEY INTERFACES:
  SubjectData:        One subject's permission state, segmented by ContextSet
  ContextInheritance: The global child-context -> parent-contexts mapping
  RankLadder:         A named, ordered list of subjects

VALUE CONVENTIONS:
  - A permission value of 0 means "not set" and is never stored.
  - Absent data reads as the empty map / empty list / zero default.

CROSS-BACKEND TRANSFER:
  Transfer copies the semantic content of one SubjectData into another,
  regardless of backing store. Used when a snapshot produced by a different
  backend is handed to the SQL engine for persistence.

SEE ALSO:
  - memory.go: plain in-memory implementation
  - store/sqlstore/subjectdata.go: the SQL-backed implementation
*/
package data

// =============================================================================
// SUBJECT IDENTITY
// =============================================================================

// SubjectID names an access-control entity by (type, identifier),
// e.g. {group admin} or {user alice}.
type SubjectID struct {
	Type       string
	Identifier string
}

func (s SubjectID) String() string {
	return s.Type + ":" + s.Identifier
}

// =============================================================================
// SUBJECT DATA - Immutable snapshot of one subject's state
// =============================================================================

// SubjectData is an immutable view of one subject's permission state. All
// mutators return a new snapshot; implementations queue the corresponding
// storage writes for a later flush.
type SubjectData interface {
	// Options
	AllOptions() map[ContextSet]map[string]string
	Options(set ContextSet) map[string]string
	SetOption(set ContextSet, key, value string) SubjectData
	ClearOption(set ContextSet, key string) SubjectData
	SetOptions(set ContextSet, options map[string]string) SubjectData
	ClearOptions(set ContextSet) SubjectData
	ClearAllOptions() SubjectData

	// Permissions. Setting a value of 0 clears the permission.
	AllPermissions() map[ContextSet]map[string]int
	Permissions(set ContextSet) map[string]int
	SetPermission(set ContextSet, permission string, value int) SubjectData
	SetPermissions(set ContextSet, permissions map[string]int) SubjectData
	ClearPermissions(set ContextSet) SubjectData
	ClearAllPermissions() SubjectData

	// Parents. Order is significant.
	AllParents() map[ContextSet][]SubjectID
	Parents(set ContextSet) []SubjectID
	AddParent(set ContextSet, typ, identifier string) SubjectData
	RemoveParent(set ContextSet, typ, identifier string) SubjectData
	SetParents(set ContextSet, parents []SubjectID) SubjectData
	ClearParents(set ContextSet) SubjectData
	ClearAllParents() SubjectData

	// Fallback permission value for a segment. 0 reads as "none set".
	DefaultValue(set ContextSet) int
	SetDefaultValue(set ContextSet, value int) SubjectData
	AllDefaultValues() map[ContextSet]int

	// ActiveContexts lists every context set with stored data.
	ActiveContexts() []ContextSet
}

// =============================================================================
// CONTEXT INHERITANCE - Global context fallback mapping
// =============================================================================

// ContextInheritance maps a child context pair to its ordered parent pairs.
// Immutable; SetParents returns a new snapshot.
type ContextInheritance interface {
	AllParents() map[Context][]Context
	Parents(child Context) []Context
	SetParents(child Context, parents []Context) ContextInheritance
}

// =============================================================================
// RANK LADDER - Named ordered subject list
// =============================================================================

// RankLadder is a named ordered list of subjects. Position in the list is
// the ladder rank.
type RankLadder interface {
	Name() string
	Ranks() []SubjectID
}

// Ladder is the plain value implementation of RankLadder.
type Ladder struct {
	LadderName string
	Subjects   []SubjectID
}

func (l Ladder) Name() string {
	return l.LadderName
}

func (l Ladder) Ranks() []SubjectID {
	out := make([]SubjectID, len(l.Subjects))
	copy(out, l.Subjects)
	return out
}

// =============================================================================
// TRANSFER - Cross-backend conversion
// =============================================================================

// Transfer copies the semantic content of from into to and returns the
// resulting snapshot. Only non-empty segments in from are visited.
func Transfer(from, to SubjectData) SubjectData {
	for set, permissions := range from.AllPermissions() {
		to = to.SetPermissions(set, permissions)
	}
	for set, options := range from.AllOptions() {
		to = to.SetOptions(set, options)
	}
	for set, parents := range from.AllParents() {
		to = to.SetParents(set, parents)
	}
	for set, value := range from.AllDefaultValues() {
		to = to.SetDefaultValue(set, value)
	}
	return to
}
