/*
subjectdata.go - SQL-backed immutable subject snapshot

PURPOSE:
  Implements the data.SubjectData contract over a map of ContextSet to
  Segment. Every mutator returns a new snapshot whose update queue has one
  more entry; nothing touches the database until Flush drains the queue
  inside a single transaction.

FLUSH STATE MACHINE (per mutated segment):
  empty, allocated      -> delete the segment row
  empty, unallocated    -> nothing to do
  unallocated, nonempty -> insert the full segment payload; its queue is
                           discarded, the full write already covers it
  allocated, nonempty   -> replay the segment's own queue

DOUBLE-FLUSH GUARD:
  The queue lives behind an atomically-swapped pointer. The first flusher
  takes the whole queue and leaves nil; a concurrent flusher sees nil and
  does nothing.
*/
package sqlstore

import (
	"context"
	"sync/atomic"

	"github.com/warp/permission-engine/data"
)

// updateFunc replays one queued snapshot-level change. It receives the
// snapshot being flushed so bulk operations can see the final segment map.
type updateFunc func(ctx context.Context, dao *Dao, sd *SubjectData) error

// SubjectData is the SQL-backed immutable snapshot of one subject.
type SubjectData struct {
	subject  *SubjectRef
	segments map[data.ContextSet]*Segment
	updates  atomic.Pointer[[]updateFunc]
}

func newSubjectData(subject *SubjectRef, segments map[data.ContextSet]*Segment, updates []updateFunc) *SubjectData {
	sd := &SubjectData{subject: subject, segments: segments}
	if updates != nil {
		sd.updates.Store(&updates)
	}
	return sd
}

// Subject returns the ref this snapshot belongs to.
func (sd *SubjectData) Subject() *SubjectRef {
	return sd.subject
}

// =============================================================================
// SNAPSHOT DERIVATION
// =============================================================================

// newWithUpdate returns the successor snapshot with one more queued update.
func (sd *SubjectData) newWithUpdate(segments map[data.ContextSet]*Segment, update updateFunc) *SubjectData {
	var updates []updateFunc
	if prev := sd.updates.Load(); prev != nil {
		updates = make([]updateFunc, len(*prev), len(*prev)+1)
		copy(updates, *prev)
	}
	updates = append(updates, update)
	return newSubjectData(sd.subject, segments, updates)
}

// newWithUpdated installs one mutated segment and queues the flush action
// chosen by the segment's state transition.
func (sd *SubjectData) newWithUpdated(key data.ContextSet, seg *Segment) *SubjectData {
	var update updateFunc
	switch {
	case seg.IsEmpty() && seg.IsUnallocated():
		// Never written; nothing to remove.
		update = func(ctx context.Context, dao *Dao, _ *SubjectData) error {
			return nil
		}
	case seg.IsEmpty():
		update = func(ctx context.Context, dao *Dao, _ *SubjectData) error {
			_, err := dao.RemoveSegment(ctx, seg)
			return err
		}
	case seg.IsUnallocated():
		update = func(ctx context.Context, dao *Dao, flushing *SubjectData) error {
			current := flushing.segments[key]
			if current == nil {
				return nil
			}
			if current.IsEmpty() {
				// Emptied again by a later mutation in the same snapshot
				// chain; an empty segment must never reach the database.
				if current.IsUnallocated() {
					return nil
				}
				_, err := dao.RemoveSegment(ctx, current)
				return err
			}
			if current.IsUnallocated() {
				current.popUpdates()
				return dao.UpdateFullSegment(ctx, flushing.subject, current)
			}
			return current.doUpdates(ctx, dao)
		}
	default:
		update = func(ctx context.Context, dao *Dao, _ *SubjectData) error {
			return seg.doUpdates(ctx, dao)
		}
	}

	segments := make(map[data.ContextSet]*Segment, len(sd.segments)+1)
	for k, v := range sd.segments {
		segments[k] = v
	}
	segments[key] = seg
	return sd.newWithUpdate(segments, update)
}

// segmentOrNew returns the stored segment for a context set, or a fresh
// unallocated one scoped to it.
func (sd *SubjectData) segmentOrNew(key data.ContextSet) *Segment {
	if seg, ok := sd.segments[key]; ok {
		return seg
	}
	return UnallocatedSegment(key)
}

// bulkUpdateFunc flushes every named segment: empty allocated segments are
// deleted, the rest replay their queues.
func bulkUpdateFunc(keys []data.ContextSet) updateFunc {
	return func(ctx context.Context, dao *Dao, flushing *SubjectData) error {
		for _, key := range keys {
			seg := flushing.segments[key]
			if seg == nil {
				continue
			}
			if seg.IsEmpty() {
				if !seg.IsUnallocated() {
					if _, err := dao.RemoveSegment(ctx, seg); err != nil {
						return err
					}
				}
				continue
			}
			if err := seg.doUpdates(ctx, dao); err != nil {
				return err
			}
		}
		return nil
	}
}

// transformAll applies fn to every stored segment and queues one bulk flush.
func (sd *SubjectData) transformAll(fn func(*Segment) *Segment) *SubjectData {
	if len(sd.segments) == 0 {
		return sd
	}
	segments := make(map[data.ContextSet]*Segment, len(sd.segments))
	keys := make([]data.ContextSet, 0, len(sd.segments))
	for key, seg := range sd.segments {
		segments[key] = fn(seg)
		keys = append(keys, key)
	}
	return sd.newWithUpdate(segments, bulkUpdateFunc(keys))
}

// =============================================================================
// OPTIONS
// =============================================================================

func (sd *SubjectData) AllOptions() map[data.ContextSet]map[string]string {
	result := make(map[data.ContextSet]map[string]string)
	for key, seg := range sd.segments {
		if len(seg.Options()) > 0 {
			result[key] = seg.Options()
		}
	}
	return result
}

func (sd *SubjectData) Options(set data.ContextSet) map[string]string {
	if seg, ok := sd.segments[set]; ok && seg.Options() != nil {
		return seg.Options()
	}
	return map[string]string{}
}

func (sd *SubjectData) SetOption(set data.ContextSet, key, value string) data.SubjectData {
	return sd.newWithUpdated(set, sd.segmentOrNew(set).WithOption(key, value))
}

func (sd *SubjectData) ClearOption(set data.ContextSet, key string) data.SubjectData {
	seg, ok := sd.segments[set]
	if !ok {
		return sd
	}
	if _, present := seg.Options()[key]; !present {
		return sd
	}
	return sd.newWithUpdated(set, seg.WithoutOption(key))
}

func (sd *SubjectData) SetOptions(set data.ContextSet, options map[string]string) data.SubjectData {
	return sd.newWithUpdated(set, sd.segmentOrNew(set).WithOptions(options))
}

func (sd *SubjectData) ClearOptions(set data.ContextSet) data.SubjectData {
	if _, ok := sd.segments[set]; !ok {
		return sd
	}
	return sd.newWithUpdated(set, sd.segmentOrNew(set).WithoutOptions())
}

func (sd *SubjectData) ClearAllOptions() data.SubjectData {
	return sd.transformAll((*Segment).WithoutOptions)
}

// =============================================================================
// PERMISSIONS
// =============================================================================

func (sd *SubjectData) AllPermissions() map[data.ContextSet]map[string]int {
	result := make(map[data.ContextSet]map[string]int)
	for key, seg := range sd.segments {
		if len(seg.Permissions()) > 0 {
			result[key] = seg.Permissions()
		}
	}
	return result
}

func (sd *SubjectData) Permissions(set data.ContextSet) map[string]int {
	if seg, ok := sd.segments[set]; ok && seg.Permissions() != nil {
		return seg.Permissions()
	}
	return map[string]int{}
}

func (sd *SubjectData) SetPermission(set data.ContextSet, permission string, value int) data.SubjectData {
	if value == 0 {
		return sd.newWithUpdated(set, sd.segmentOrNew(set).WithoutPermission(permission))
	}
	return sd.newWithUpdated(set, sd.segmentOrNew(set).WithPermission(permission, value))
}

func (sd *SubjectData) SetPermissions(set data.ContextSet, permissions map[string]int) data.SubjectData {
	return sd.newWithUpdated(set, sd.segmentOrNew(set).WithPermissions(permissions))
}

func (sd *SubjectData) ClearPermissions(set data.ContextSet) data.SubjectData {
	if _, ok := sd.segments[set]; !ok {
		return sd
	}
	return sd.newWithUpdated(set, sd.segmentOrNew(set).WithoutPermissions())
}

func (sd *SubjectData) ClearAllPermissions() data.SubjectData {
	return sd.transformAll((*Segment).WithoutPermissions)
}

// =============================================================================
// PARENTS
// =============================================================================

func (sd *SubjectData) AllParents() map[data.ContextSet][]data.SubjectID {
	result := make(map[data.ContextSet][]data.SubjectID)
	for key, seg := range sd.segments {
		if len(seg.Parents()) > 0 {
			result[key] = refsToIDs(seg.Parents())
		}
	}
	return result
}

func (sd *SubjectData) Parents(set data.ContextSet) []data.SubjectID {
	if seg, ok := sd.segments[set]; ok {
		return refsToIDs(seg.Parents())
	}
	return nil
}

func (sd *SubjectData) AddParent(set data.ContextSet, typ, identifier string) data.SubjectData {
	seg := sd.segmentOrNew(set)
	parent := UnresolvedRef(typ, identifier)
	for _, existing := range seg.Parents() {
		if existing.Equal(parent) {
			return sd
		}
	}
	return sd.newWithUpdated(set, seg.WithAddedParent(parent))
}

func (sd *SubjectData) RemoveParent(set data.ContextSet, typ, identifier string) data.SubjectData {
	seg, ok := sd.segments[set]
	if !ok {
		return sd
	}
	parent := UnresolvedRef(typ, identifier)
	found := false
	for _, existing := range seg.Parents() {
		if existing.Equal(parent) {
			found = true
			break
		}
	}
	if !found {
		return sd
	}
	return sd.newWithUpdated(set, seg.WithRemovedParent(parent))
}

func (sd *SubjectData) SetParents(set data.ContextSet, parents []data.SubjectID) data.SubjectData {
	refs := make([]*SubjectRef, len(parents))
	for i, parent := range parents {
		refs[i] = UnresolvedRef(parent.Type, parent.Identifier)
	}
	return sd.newWithUpdated(set, sd.segmentOrNew(set).WithParents(refs))
}

func (sd *SubjectData) ClearParents(set data.ContextSet) data.SubjectData {
	if _, ok := sd.segments[set]; !ok {
		return sd
	}
	return sd.newWithUpdated(set, sd.segmentOrNew(set).WithoutParents())
}

func (sd *SubjectData) ClearAllParents() data.SubjectData {
	return sd.transformAll((*Segment).WithoutParents)
}

// =============================================================================
// DEFAULT VALUE
// =============================================================================

func (sd *SubjectData) DefaultValue(set data.ContextSet) int {
	if seg, ok := sd.segments[set]; ok && seg.DefaultValue() != nil {
		return *seg.DefaultValue()
	}
	return 0
}

func (sd *SubjectData) SetDefaultValue(set data.ContextSet, value int) data.SubjectData {
	return sd.newWithUpdated(set, sd.segmentOrNew(set).WithDefaultValue(&value))
}

func (sd *SubjectData) AllDefaultValues() map[data.ContextSet]int {
	result := make(map[data.ContextSet]int)
	for key, seg := range sd.segments {
		if seg.DefaultValue() != nil {
			result[key] = *seg.DefaultValue()
		}
	}
	return result
}

// =============================================================================
// CONTEXTS / FLUSH
// =============================================================================

func (sd *SubjectData) ActiveContexts() []data.ContextSet {
	result := make([]data.ContextSet, 0, len(sd.segments))
	for key, seg := range sd.segments {
		if seg.IsEmpty() {
			continue
		}
		result = append(result, key)
	}
	return result
}

// Flush drains the update queue inside one transaction. The queue is taken
// atomically up front so that exactly one flusher replays it.
func (sd *SubjectData) Flush(ctx context.Context, dao *Dao) error {
	updates := sd.updates.Swap(nil)
	if updates == nil {
		return nil
	}
	return dao.ExecuteInTransaction(ctx, func() error {
		for _, update := range *updates {
			if err := update(ctx, dao, sd); err != nil {
				return err
			}
		}
		return nil
	})
}

func refsToIDs(refs []*SubjectRef) []data.SubjectID {
	if refs == nil {
		return nil
	}
	ids := make([]data.SubjectID, len(refs))
	for i, ref := range refs {
		ids[i] = ref.SubjectID()
	}
	return ids
}
