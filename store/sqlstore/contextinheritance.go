/*
contextinheritance.go - SQL-backed context inheritance snapshot

PURPOSE:
  Implements data.ContextInheritance with the same deferred-update shape as
  the subject snapshot: an immutable child-context -> parent-contexts map
  plus an atomically-drained queue of pending writes. SetParents queues a
  delete-by-child followed by inserts in list order.
*/
package sqlstore

import (
	"context"
	"sync/atomic"

	"github.com/warp/permission-engine/data"
)

type inheritanceUpdate func(ctx context.Context, dao *Dao, ci *ContextInheritance) error

// ContextInheritance is the SQL-backed immutable context inheritance
// snapshot.
type ContextInheritance struct {
	parents map[data.Context][]data.Context
	updates atomic.Pointer[[]inheritanceUpdate]
}

func newContextInheritance(parents map[data.Context][]data.Context, updates []inheritanceUpdate) *ContextInheritance {
	ci := &ContextInheritance{parents: parents}
	if updates != nil {
		ci.updates.Store(&updates)
	}
	return ci
}

func (ci *ContextInheritance) AllParents() map[data.Context][]data.Context {
	result := make(map[data.Context][]data.Context, len(ci.parents))
	for child, parents := range ci.parents {
		copied := make([]data.Context, len(parents))
		copy(copied, parents)
		result[child] = copied
	}
	return result
}

func (ci *ContextInheritance) Parents(child data.Context) []data.Context {
	parents := ci.parents[child]
	if parents == nil {
		return nil
	}
	copied := make([]data.Context, len(parents))
	copy(copied, parents)
	return copied
}

// SetParents returns a new snapshot with the child's parents replaced and a
// delete-then-insert write queued.
func (ci *ContextInheritance) SetParents(child data.Context, parents []data.Context) data.ContextInheritance {
	replaced := make([]data.Context, len(parents))
	copy(replaced, parents)

	next := make(map[data.Context][]data.Context, len(ci.parents)+1)
	for k, v := range ci.parents {
		next[k] = v
	}
	if len(replaced) == 0 {
		delete(next, child)
	} else {
		next[child] = replaced
	}

	var updates []inheritanceUpdate
	if prev := ci.updates.Load(); prev != nil {
		updates = make([]inheritanceUpdate, len(*prev), len(*prev)+1)
		copy(updates, *prev)
	}
	updates = append(updates, func(ctx context.Context, dao *Dao, _ *ContextInheritance) error {
		return dao.SetContextInheritance(ctx, child, replaced)
	})
	return newContextInheritance(next, updates)
}

// Flush drains the queue inside one transaction; exactly one flusher wins.
func (ci *ContextInheritance) Flush(ctx context.Context, dao *Dao) error {
	updates := ci.updates.Swap(nil)
	if updates == nil {
		return nil
	}
	return dao.ExecuteInTransaction(ctx, func() error {
		for _, update := range *updates {
			if err := update(ctx, dao, ci); err != nil {
				return err
			}
		}
		return nil
	})
}
