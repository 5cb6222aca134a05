/*
context.go - Context pairs and context sets

PURPOSE:
  Defines the scoping vocabulary of the permissions engine. A Context is a
  single (key, value) pair such as world=nether. A ContextSet is an
  order-insensitive set of such pairs and identifies one segment of a
  subject's data. The empty set is the global segment.

CANONICAL ENCODING:
  ContextSet is a defined string type holding a canonical encoding:
  percent-escaped key=value pairs, sorted, joined by commas. This makes
  context sets comparable, usable as map keys, and structurally equal
  regardless of construction order.

USAGE:
  set := data.NewContextSet(data.NewContext("world", "nether"))
  set.IsGlobal()        // false
  set.Contexts()        // []Context{{world nether}}

SEE ALSO:
  - data.go: SubjectData, keyed by ContextSet
  - store/sqlstore: persists one row per context pair per segment
*/
package data

import (
	"net/url"
	"sort"
	"strings"
)

// =============================================================================
// CONTEXT - A single scoping pair
// =============================================================================

// Context is one (key, value) scoping pair. Comparable; usable as a map key.
type Context struct {
	Key   string
	Value string
}

// NewContext creates a context pair.
func NewContext(key, value string) Context {
	return Context{Key: key, Value: value}
}

func (c Context) String() string {
	return c.Key + "=" + c.Value
}

// =============================================================================
// CONTEXT SET - Order-insensitive set of context pairs
// =============================================================================

// ContextSet identifies a segment within a subject. It is the canonical
// encoding of its member pairs, so two sets built from the same pairs in any
// order compare equal. The zero value is the global (empty) set.
type ContextSet string

// GlobalContext is the empty context set, scoping the global segment.
const GlobalContext ContextSet = ""

// NewContextSet builds a canonical set from the given pairs. Duplicate pairs
// collapse; ordering of the input does not matter.
func NewContextSet(contexts ...Context) ContextSet {
	if len(contexts) == 0 {
		return GlobalContext
	}

	seen := make(map[Context]bool, len(contexts))
	encoded := make([]string, 0, len(contexts))
	for _, c := range contexts {
		if seen[c] {
			continue
		}
		seen[c] = true
		encoded = append(encoded, url.QueryEscape(c.Key)+"="+url.QueryEscape(c.Value))
	}
	sort.Strings(encoded)
	return ContextSet(strings.Join(encoded, ","))
}

// Contexts returns the member pairs of the set.
func (cs ContextSet) Contexts() []Context {
	if cs == "" {
		return nil
	}

	parts := strings.Split(string(cs), ",")
	result := make([]Context, 0, len(parts))
	for _, part := range parts {
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			continue
		}
		key, kerr := url.QueryUnescape(part[:eq])
		value, verr := url.QueryUnescape(part[eq+1:])
		if kerr != nil || verr != nil {
			continue
		}
		result = append(result, Context{Key: key, Value: value})
	}
	return result
}

// IsGlobal reports whether the set is empty.
func (cs ContextSet) IsGlobal() bool {
	return cs == ""
}

// Len returns the number of pairs in the set.
func (cs ContextSet) Len() int {
	if cs == "" {
		return 0
	}
	return strings.Count(string(cs), ",") + 1
}

// Contains reports whether the set holds the given pair.
func (cs ContextSet) Contains(c Context) bool {
	for _, member := range cs.Contexts() {
		if member == c {
			return true
		}
	}
	return false
}
