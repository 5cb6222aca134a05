/*
segment.go - One context-scoped block of stored permission state

PURPOSE:
  A Segment holds the permissions, options, parents, and default value a
  subject has under one context set. Segments are immutable: every mutator
  returns a new Segment reflecting the change AND carrying an appended
  update operation that replays the change against the database when the
  owning snapshot flushes.

UPDATE QUEUE:
  The queue accumulates per-field operations (upsert permission row, delete
  option row, replace all parents, ...). An unallocated Segment performs no
  database work until the Dao inserts it with UpdateFullSegment, at which
  point the full payload is written and the queue becomes redundant.

VALUE RULES:
  - A permission value of 0 means "not set"; mutators route 0 to removal
    and bulk setters filter zeroes out.
  - IsEmpty looks only at the payload; IsUnallocated looks only at the id.
    An empty Segment's row is deleted on flush.
*/
package sqlstore

import (
	"context"
	"sync/atomic"

	"github.com/warp/permission-engine/data"
)

// segmentUpdate replays one queued change against the database. The segment
// argument is the one being flushed, whose id is allocated by then.
type segmentUpdate func(ctx context.Context, dao *Dao, seg *Segment) error

// Segment is an immutable context-scoped block of permission state plus its
// pending update queue. Always used by pointer so the id write-back during
// allocation is shared between snapshots holding the same segment.
type Segment struct {
	id           atomic.Int64
	contexts     data.ContextSet
	permissions  map[string]int
	options      map[string]string
	parents      []*SubjectRef
	defaultValue *int
	updates      []segmentUpdate
}

// UnallocatedSegment creates an empty segment with no database row, scoped
// to the given context set.
func UnallocatedSegment(contexts data.ContextSet) *Segment {
	return newSegment(unallocated, contexts, nil, nil, nil, nil, nil)
}

func newSegment(id int, contexts data.ContextSet, permissions map[string]int,
	options map[string]string, parents []*SubjectRef, defaultValue *int,
	updates []segmentUpdate) *Segment {
	seg := &Segment{
		contexts:     contexts,
		permissions:  permissions,
		options:      options,
		parents:      parents,
		defaultValue: defaultValue,
		updates:      updates,
	}
	seg.id.Store(int64(id))
	return seg
}

// derive builds the successor segment: same identity slot value, new
// payload, one more queued update.
func (s *Segment) derive(permissions map[string]int, options map[string]string,
	parents []*SubjectRef, defaultValue *int, update segmentUpdate) *Segment {
	updates := make([]segmentUpdate, len(s.updates), len(s.updates)+1)
	copy(updates, s.updates)
	updates = append(updates, update)
	return newSegment(int(s.id.Load()), s.contexts, permissions, options, parents, defaultValue, updates)
}

// =============================================================================
// ACCESSORS
// =============================================================================

// ID returns the allocated segment row id, or data.ErrUnallocated.
func (s *Segment) ID() (int, error) {
	id := s.id.Load()
	if id == unallocated {
		return 0, data.ErrUnallocated
	}
	return int(id), nil
}

func (s *Segment) setID(id int) {
	s.id.Store(int64(id))
}

// IsUnallocated reports whether the segment has no database row. Looks only
// at the id.
func (s *Segment) IsUnallocated() bool {
	return s.id.Load() == unallocated
}

// IsEmpty reports whether the segment carries no payload at all. Ignores
// the id; an empty allocated segment's row is removed on flush.
func (s *Segment) IsEmpty() bool {
	return len(s.permissions) == 0 && len(s.options) == 0 &&
		len(s.parents) == 0 && s.defaultValue == nil
}

func (s *Segment) Contexts() data.ContextSet {
	return s.contexts
}

func (s *Segment) Permissions() map[string]int {
	return s.permissions
}

func (s *Segment) Options() map[string]string {
	return s.options
}

func (s *Segment) Parents() []*SubjectRef {
	return s.parents
}

// DefaultValue returns the fallback permission value, or nil when none is
// set.
func (s *Segment) DefaultValue() *int {
	return s.defaultValue
}

// =============================================================================
// MUTATORS - each returns a new Segment with a queued replay operation
// =============================================================================

// WithPermission sets one permission. A value of 0 clears it instead.
func (s *Segment) WithPermission(permission string, value int) *Segment {
	if value == 0 {
		return s.WithoutPermission(permission)
	}
	permissions := copyIntMap(s.permissions)
	permissions[permission] = value
	return s.derive(permissions, s.options, s.parents, s.defaultValue,
		func(ctx context.Context, dao *Dao, seg *Segment) error {
			return dao.SetPermission(ctx, seg, permission, value)
		})
}

// WithoutPermission clears one permission.
func (s *Segment) WithoutPermission(permission string) *Segment {
	permissions := copyIntMap(s.permissions)
	delete(permissions, permission)
	return s.derive(permissions, s.options, s.parents, s.defaultValue,
		func(ctx context.Context, dao *Dao, seg *Segment) error {
			return dao.ClearPermission(ctx, seg, permission)
		})
}

// WithPermissions replaces all permissions. Flushed as delete-all then
// insert-all. Zero values are dropped.
func (s *Segment) WithPermissions(permissions map[string]int) *Segment {
	filtered := make(map[string]int, len(permissions))
	for k, v := range permissions {
		if v != 0 {
			filtered[k] = v
		}
	}
	return s.derive(filtered, s.options, s.parents, s.defaultValue,
		func(ctx context.Context, dao *Dao, seg *Segment) error {
			return dao.SetPermissions(ctx, seg, seg.permissions)
		})
}

// WithoutPermissions clears every permission.
func (s *Segment) WithoutPermissions() *Segment {
	return s.derive(nil, s.options, s.parents, s.defaultValue,
		func(ctx context.Context, dao *Dao, seg *Segment) error {
			return dao.SetPermissions(ctx, seg, nil)
		})
}

// WithOption sets one option.
func (s *Segment) WithOption(key, value string) *Segment {
	options := copyStringMap(s.options)
	options[key] = value
	return s.derive(s.permissions, options, s.parents, s.defaultValue,
		func(ctx context.Context, dao *Dao, seg *Segment) error {
			return dao.SetOption(ctx, seg, key, value)
		})
}

// WithoutOption clears one option.
func (s *Segment) WithoutOption(key string) *Segment {
	options := copyStringMap(s.options)
	delete(options, key)
	return s.derive(s.permissions, options, s.parents, s.defaultValue,
		func(ctx context.Context, dao *Dao, seg *Segment) error {
			return dao.ClearOption(ctx, seg, key)
		})
}

// WithOptions replaces all options. Flushed as delete-all then insert-all.
func (s *Segment) WithOptions(options map[string]string) *Segment {
	replaced := copyStringMap(options)
	return s.derive(s.permissions, replaced, s.parents, s.defaultValue,
		func(ctx context.Context, dao *Dao, seg *Segment) error {
			return dao.SetOptions(ctx, seg, seg.options)
		})
}

// WithoutOptions clears every option.
func (s *Segment) WithoutOptions() *Segment {
	return s.derive(s.permissions, nil, s.parents, s.defaultValue,
		func(ctx context.Context, dao *Dao, seg *Segment) error {
			return dao.SetOptions(ctx, seg, nil)
		})
}

// WithAddedParent appends a parent.
func (s *Segment) WithAddedParent(parent *SubjectRef) *Segment {
	parents := make([]*SubjectRef, 0, len(s.parents)+1)
	parents = append(parents, s.parents...)
	parents = append(parents, parent)
	return s.derive(s.permissions, s.options, parents, s.defaultValue,
		func(ctx context.Context, dao *Dao, seg *Segment) error {
			return dao.AddParent(ctx, seg, parent)
		})
}

// WithRemovedParent removes a parent by identity.
func (s *Segment) WithRemovedParent(parent *SubjectRef) *Segment {
	parents := make([]*SubjectRef, 0, len(s.parents))
	for _, existing := range s.parents {
		if !existing.Equal(parent) {
			parents = append(parents, existing)
		}
	}
	return s.derive(s.permissions, s.options, parents, s.defaultValue,
		func(ctx context.Context, dao *Dao, seg *Segment) error {
			return dao.RemoveParent(ctx, seg, parent)
		})
}

// WithParents replaces all parents. Flushed as delete-all then insert in
// list order.
func (s *Segment) WithParents(parents []*SubjectRef) *Segment {
	replaced := make([]*SubjectRef, len(parents))
	copy(replaced, parents)
	return s.derive(s.permissions, s.options, replaced, s.defaultValue,
		func(ctx context.Context, dao *Dao, seg *Segment) error {
			return dao.SetParents(ctx, seg, seg.parents)
		})
}

// WithoutParents clears every parent.
func (s *Segment) WithoutParents() *Segment {
	return s.derive(s.permissions, s.options, nil, s.defaultValue,
		func(ctx context.Context, dao *Dao, seg *Segment) error {
			return dao.SetParents(ctx, seg, nil)
		})
}

// WithDefaultValue sets the fallback permission value. Pass nil to unset;
// an absent default round-trips as SQL NULL.
func (s *Segment) WithDefaultValue(value *int) *Segment {
	var copied *int
	if value != nil {
		v := *value
		copied = &v
	}
	return s.derive(s.permissions, s.options, s.parents, copied,
		func(ctx context.Context, dao *Dao, seg *Segment) error {
			return dao.SetDefaultValue(ctx, seg, seg.defaultValue)
		})
}

// =============================================================================
// FLUSH SUPPORT
// =============================================================================

// popUpdates discards the queued operations. Called just before the Dao
// writes the full payload with UpdateFullSegment, which makes the queue
// redundant.
func (s *Segment) popUpdates() {
	s.updates = nil
}

// doUpdates replays the queued operations in append order.
func (s *Segment) doUpdates(ctx context.Context, dao *Dao) error {
	for _, update := range s.updates {
		if err := update(ctx, dao, s); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// COPY HELPERS
// =============================================================================

func copyIntMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
