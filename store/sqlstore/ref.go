/*
ref.go - Database identity for subjects

PURPOSE:
  SubjectRef pairs a logical subject identity (type, identifier) with its
  integer primary key in the subjects table. The key is allocated lazily:
  refs are constructed unresolved, and the Dao writes the id back in place
  the first time the ref is used on a write path.

IDENTITY:
  Equality considers only (type, identifier). The id is an implementation
  optimization, never part of the subject's identity. Two refs naming the
  same subject are interchangeable whether or not either has an id yet.

CONCURRENCY:
  The id slot is written once, inside the allocating transaction, and may be
  read from any goroutine holding a snapshot. It is stored atomically so the
  write-back is observed by every snapshot sharing the ref.
*/
package sqlstore

import (
	"math"
	"sync/atomic"

	"github.com/warp/permission-engine/data"
)

// unallocated marks a ref or segment with no database row yet.
const unallocated = math.MinInt32

// SubjectRef identifies one row of the subjects table. Always used by
// pointer; the id slot is shared between snapshots referring to the same
// subject.
type SubjectRef struct {
	id         atomic.Int64
	typ        string
	identifier string
}

// UnresolvedRef constructs a ref with no allocated id.
func UnresolvedRef(typ, identifier string) *SubjectRef {
	return newSubjectRef(unallocated, typ, identifier)
}

func newSubjectRef(id int, typ, identifier string) *SubjectRef {
	ref := &SubjectRef{typ: typ, identifier: identifier}
	ref.id.Store(int64(id))
	return ref
}

// ID returns the allocated primary key, or data.ErrUnallocated if the ref
// has not been written to the database yet.
func (r *SubjectRef) ID() (int, error) {
	id := r.id.Load()
	if id == unallocated {
		return 0, data.ErrUnallocated
	}
	return int(id), nil
}

// setID records the allocated key. Called once, by the Dao allocator.
func (r *SubjectRef) setID(id int) {
	r.id.Store(int64(id))
}

// IsUnallocated reports whether the ref has no database row yet.
func (r *SubjectRef) IsUnallocated() bool {
	return r.id.Load() == unallocated
}

func (r *SubjectRef) Type() string {
	return r.typ
}

func (r *SubjectRef) Identifier() string {
	return r.identifier
}

// SubjectID returns the backend-agnostic identity of the ref.
func (r *SubjectRef) SubjectID() data.SubjectID {
	return data.SubjectID{Type: r.typ, Identifier: r.identifier}
}

// Equal compares refs by (type, identifier) only.
func (r *SubjectRef) Equal(other *SubjectRef) bool {
	if other == nil {
		return false
	}
	return r.typ == other.typ && r.identifier == other.identifier
}
