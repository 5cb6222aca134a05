/*
dao.go - Database access object

PURPOSE:
  A Dao wraps one checked-out database connection and speaks the dialect's
  query set. It is the only component that executes SQL. Instances are NOT
  safe to share across goroutines; the normal pattern is one Dao per
  operation, with bulk operations pinning a single Dao for their duration.

TRANSACTIONS:
  ExecuteInTransaction nests by counter. The first entry issues BEGIN, a
  successful exit of the outermost frame issues COMMIT, and an error
  propagating out of the outer frame issues ROLLBACK. Inner frames neither commit nor roll
  back, so every nested body joins the same transaction.

ID ALLOCATION:
  Subject and segment ids are allocated lazily: the first write path that
  needs an id inserts the row and writes the generated key back into the
  ref or segment in place.

CONNECTION LIFETIME:
  holdOpen is a reference count. Close decrements it and releases the
  underlying connection when it reaches zero, which lets the store hand the
  same Dao to every operation inside a bulk scope.

SEE ALSO:
  - dialect.go: the query set
  - schema.go: initial deployment
  - store.go: Dao lifecycle and pinning
*/
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/permission-engine/data"
)

// Dao executes the dialect's query set over one connection. Not safe for
// concurrent use.
type Dao struct {
	store    *Store
	conn     *sql.Conn
	dialect  *dialect
	holdOpen int
	txLevel  int
}

func newDao(ctx context.Context, store *Store) (*Dao, error) {
	conn, err := store.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking out connection: %w: %v", data.ErrQueryFailure, err)
	}
	return &Dao{store: store, conn: conn, dialect: store.dialect, holdOpen: 1}, nil
}

// Close releases one hold on the Dao; the connection returns to the pool
// when the last hold is released.
func (d *Dao) Close() error {
	d.holdOpen--
	if d.holdOpen > 0 {
		return nil
	}
	return d.conn.Close()
}

// =============================================================================
// EXECUTION HELPERS
// =============================================================================

func (d *Dao) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := d.conn.ExecContext(ctx, d.store.insertPrefix(query), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", data.ErrQueryFailure, err)
	}
	return res, nil
}

func (d *Dao) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := d.conn.QueryContext(ctx, d.store.insertPrefix(query), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", data.ErrQueryFailure, err)
	}
	return rows, nil
}

// insertReturningID runs an insert and yields the generated key.
func (d *Dao) insertReturningID(ctx context.Context, query string, args ...any) (int, error) {
	res, err := d.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("no generated key after insert: %w: %v", data.ErrConsistency, err)
	}
	return int(id), nil
}

// ExecuteInTransaction runs body inside the connection's transaction,
// nesting by counter: BEGIN on first entry, COMMIT when the outermost frame
// exits successfully, ROLLBACK when an error leaves the outer frame.
func (d *Dao) ExecuteInTransaction(ctx context.Context, body func() error) error {
	d.txLevel++
	if d.txLevel == 1 {
		if _, err := d.conn.ExecContext(ctx, "BEGIN"); err != nil {
			d.txLevel--
			return fmt.Errorf("starting transaction: %w: %v", data.ErrQueryFailure, err)
		}
	}

	err := body()

	d.txLevel--
	if d.txLevel > 0 {
		return err
	}
	if err != nil {
		// Best effort; the error that matters is the body's.
		d.conn.ExecContext(ctx, "ROLLBACK")
		return err
	}
	if _, cerr := d.conn.ExecContext(ctx, "COMMIT"); cerr != nil {
		return fmt.Errorf("committing transaction: %w: %v", data.ErrQueryFailure, cerr)
	}
	return nil
}

// =============================================================================
// GLOBAL PARAMETERS
// =============================================================================

// GetGlobalParameter returns the value for key and whether it was present.
func (d *Dao) GetGlobalParameter(ctx context.Context, key string) (string, bool, error) {
	rows, err := d.query(ctx, d.dialect.queries.selectGlobalParameter, key)
	if err != nil {
		return "", false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return "", false, rows.Err()
	}
	var value string
	if err := rows.Scan(&value); err != nil {
		return "", false, fmt.Errorf("%w: %v", data.ErrQueryFailure, err)
	}
	return value, true, nil
}

// SetGlobalParameter upserts the value for key.
func (d *Dao) SetGlobalParameter(ctx context.Context, key, value string) error {
	_, err := d.exec(ctx, d.dialect.queries.upsertGlobalParameter, key, value)
	return err
}

// DeleteGlobalParameter removes the key. Unsetting a parameter deletes its
// row rather than storing an empty value.
func (d *Dao) DeleteGlobalParameter(ctx context.Context, key string) error {
	_, err := d.exec(ctx, d.dialect.queries.deleteGlobalParameter, key)
	return err
}

// =============================================================================
// SUBJECTS
// =============================================================================

// GetSubjectRefByID resolves a subject by primary key; nil when absent.
func (d *Dao) GetSubjectRefByID(ctx context.Context, id int) (*SubjectRef, error) {
	rows, err := d.query(ctx, d.dialect.queries.selectSubjectByID, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var typ, identifier string
	if err := rows.Scan(&typ, &identifier); err != nil {
		return nil, fmt.Errorf("%w: %v", data.ErrQueryFailure, err)
	}
	return newSubjectRef(id, typ, identifier), nil
}

// GetSubjectRef resolves a subject by (type, identifier); nil when absent.
func (d *Dao) GetSubjectRef(ctx context.Context, typ, identifier string) (*SubjectRef, error) {
	rows, err := d.query(ctx, d.dialect.queries.selectSubjectByName, typ, identifier)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var id int
	if err := rows.Scan(&id); err != nil {
		return nil, fmt.Errorf("%w: %v", data.ErrQueryFailure, err)
	}
	return newSubjectRef(id, typ, identifier), nil
}

// RemoveSubject deletes a subject row by allocated id.
func (d *Dao) RemoveSubject(ctx context.Context, ref *SubjectRef) (bool, error) {
	id, err := ref.ID()
	if err != nil {
		return false, err
	}
	res, err := d.exec(ctx, d.dialect.queries.deleteSubjectByID, id)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// RemoveSubjectByName deletes a subject row by (type, identifier).
func (d *Dao) RemoveSubjectByName(ctx context.Context, typ, identifier string) (bool, error) {
	res, err := d.exec(ctx, d.dialect.queries.deleteSubjectByName, typ, identifier)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// GetOrCreateSubjectRef returns an allocated ref for (type, identifier),
// inserting the row if needed. Idempotent: repeated calls yield the same id.
func (d *Dao) GetOrCreateSubjectRef(ctx context.Context, typ, identifier string) (*SubjectRef, error) {
	ref := UnresolvedRef(typ, identifier)
	if err := d.AllocateSubjectRef(ctx, ref); err != nil {
		return nil, err
	}
	return ref, nil
}

// AllocateSubjectRef ensures the ref has a database row, writing the id
// back into the ref.
func (d *Dao) AllocateSubjectRef(ctx context.Context, ref *SubjectRef) error {
	return d.ExecuteInTransaction(ctx, func() error {
		existing, err := d.GetSubjectRef(ctx, ref.Type(), ref.Identifier())
		if err != nil {
			return err
		}
		if existing != nil {
			id, err := existing.ID()
			if err != nil {
				return err
			}
			ref.setID(id)
			return nil
		}

		id, err := d.insertReturningID(ctx, d.dialect.queries.insertSubject, ref.Type(), ref.Identifier())
		if err != nil {
			return err
		}
		ref.setID(id)
		return nil
	})
}

// IDAllocating returns the ref's id, allocating a row first when needed.
func (d *Dao) IDAllocating(ctx context.Context, ref *SubjectRef) (int, error) {
	if ref.IsUnallocated() {
		if err := d.AllocateSubjectRef(ctx, ref); err != nil {
			return 0, err
		}
	}
	return ref.ID()
}

// GetAllIdentifiers lists the identifiers registered under a type.
func (d *Dao) GetAllIdentifiers(ctx context.Context, typ string) ([]string, error) {
	return d.stringColumn(ctx, d.dialect.queries.selectIdentifiers, typ)
}

// GetRegisteredTypes lists the distinct subject types.
func (d *Dao) GetRegisteredTypes(ctx context.Context) ([]string, error) {
	return d.stringColumn(ctx, d.dialect.queries.selectSubjectTypes)
}

// GetAllSubjectRefs lists every subject.
func (d *Dao) GetAllSubjectRefs(ctx context.Context) ([]*SubjectRef, error) {
	rows, err := d.query(ctx, d.dialect.queries.selectAllSubjects)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []*SubjectRef
	for rows.Next() {
		var id int
		var typ, identifier string
		if err := rows.Scan(&id, &typ, &identifier); err != nil {
			return nil, fmt.Errorf("%w: %v", data.ErrQueryFailure, err)
		}
		refs = append(refs, newSubjectRef(id, typ, identifier))
	}
	return refs, rows.Err()
}

func (d *Dao) stringColumn(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := d.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("%w: %v", data.ErrQueryFailure, err)
		}
		values = append(values, value)
	}
	return values, rows.Err()
}

// =============================================================================
// SEGMENTS
// =============================================================================

// getSegmentContexts loads the context pairs defining one segment's scope.
func (d *Dao) getSegmentContexts(ctx context.Context, segmentID int) (data.ContextSet, error) {
	rows, err := d.query(ctx, d.dialect.queries.selectContextsBySegment, segmentID)
	if err != nil {
		return data.GlobalContext, err
	}
	defer rows.Close()

	var contexts []data.Context
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return data.GlobalContext, fmt.Errorf("%w: %v", data.ErrQueryFailure, err)
		}
		contexts = append(contexts, data.NewContext(key, value))
	}
	return data.NewContextSet(contexts...), rows.Err()
}

// GetSegments loads every segment stored for the subject, allocating the
// subject row if it does not exist yet.
func (d *Dao) GetSegments(ctx context.Context, ref *SubjectRef) ([]*Segment, error) {
	subjectID, err := d.IDAllocating(ctx, ref)
	if err != nil {
		return nil, err
	}

	rows, err := d.query(ctx, d.dialect.queries.selectSegmentsBySubject, subjectID)
	if err != nil {
		return nil, err
	}

	type segmentRow struct {
		id          int
		permDefault sql.NullInt64
	}
	var heads []segmentRow
	for rows.Next() {
		var head segmentRow
		if err := rows.Scan(&head.id, &head.permDefault); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: %v", data.ErrQueryFailure, err)
		}
		heads = append(heads, head)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	segments := make([]*Segment, 0, len(heads))
	for _, head := range heads {
		contexts, err := d.getSegmentContexts(ctx, head.id)
		if err != nil {
			return nil, err
		}
		permissions, err := d.segmentIntMap(ctx, d.dialect.queries.selectPermissionsBySegment, head.id)
		if err != nil {
			return nil, err
		}
		options, err := d.segmentStringMap(ctx, d.dialect.queries.selectOptionsBySegment, head.id)
		if err != nil {
			return nil, err
		}
		parents, err := d.segmentParents(ctx, head.id)
		if err != nil {
			return nil, err
		}

		var defaultValue *int
		if head.permDefault.Valid {
			v := int(head.permDefault.Int64)
			defaultValue = &v
		}
		segments = append(segments, newSegment(head.id, contexts, permissions, options, parents, defaultValue, nil))
	}
	return segments, nil
}

func (d *Dao) segmentIntMap(ctx context.Context, query string, segmentID int) (map[string]int, error) {
	rows, err := d.query(ctx, query, segmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := map[string]int{}
	for rows.Next() {
		var key string
		var value int
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("%w: %v", data.ErrQueryFailure, err)
		}
		result[key] = value
	}
	return result, rows.Err()
}

func (d *Dao) segmentStringMap(ctx context.Context, query string, segmentID int) (map[string]string, error) {
	rows, err := d.query(ctx, query, segmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("%w: %v", data.ErrQueryFailure, err)
		}
		result[key] = value
	}
	return result, rows.Err()
}

func (d *Dao) segmentParents(ctx context.Context, segmentID int) ([]*SubjectRef, error) {
	rows, err := d.query(ctx, d.dialect.queries.selectParentsBySegment, segmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parents []*SubjectRef
	for rows.Next() {
		var id int
		var typ, identifier string
		if err := rows.Scan(&id, &typ, &identifier); err != nil {
			return nil, fmt.Errorf("%w: %v", data.ErrQueryFailure, err)
		}
		parents = append(parents, newSubjectRef(id, typ, identifier))
	}
	return parents, rows.Err()
}

// AddSegment creates and allocates an empty global segment for the subject.
func (d *Dao) AddSegment(ctx context.Context, ref *SubjectRef) (*Segment, error) {
	seg := UnallocatedSegment(data.GlobalContext)
	if err := d.AllocateSegment(ctx, ref, seg); err != nil {
		return nil, err
	}
	return seg, nil
}

// UpdateFullSegment writes the segment's entire payload: allocate the row,
// then replace contexts, options, parents, permissions, and the default.
func (d *Dao) UpdateFullSegment(ctx context.Context, ref *SubjectRef, seg *Segment) error {
	return d.ExecuteInTransaction(ctx, func() error {
		if err := d.AllocateSegment(ctx, ref, seg); err != nil {
			return err
		}
		if err := d.SetContexts(ctx, seg, seg.Contexts()); err != nil {
			return err
		}
		if err := d.SetOptions(ctx, seg, seg.Options()); err != nil {
			return err
		}
		if err := d.SetParents(ctx, seg, seg.Parents()); err != nil {
			return err
		}
		if err := d.SetPermissions(ctx, seg, seg.Permissions()); err != nil {
			return err
		}
		return d.SetDefaultValue(ctx, seg, seg.DefaultValue())
	})
}

// AllocateSegment inserts the segment row (capturing the default value),
// writes the id back, and materializes the context rows defining its scope.
func (d *Dao) AllocateSegment(ctx context.Context, subject *SubjectRef, seg *Segment) error {
	if !seg.IsUnallocated() {
		return nil
	}

	subjectID, err := d.IDAllocating(ctx, subject)
	if err != nil {
		return err
	}

	var permDefault any
	if seg.DefaultValue() != nil {
		permDefault = *seg.DefaultValue()
	}
	id, err := d.insertReturningID(ctx, d.dialect.queries.insertSegment, subjectID, permDefault)
	if err != nil {
		return err
	}
	seg.setID(id)
	return d.SetContexts(ctx, seg, seg.Contexts())
}

// RemoveSegment deletes the segment row; child rows cascade.
func (d *Dao) RemoveSegment(ctx context.Context, seg *Segment) (bool, error) {
	id, err := seg.ID()
	if err != nil {
		return false, err
	}
	res, err := d.exec(ctx, d.dialect.queries.deleteSegmentByID, id)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// SetContexts replaces the context rows scoping the segment.
func (d *Dao) SetContexts(ctx context.Context, seg *Segment, contexts data.ContextSet) error {
	return d.ExecuteInTransaction(ctx, func() error {
		id, err := seg.ID()
		if err != nil {
			return err
		}
		if _, err := d.exec(ctx, d.dialect.queries.deleteContextsBySegment, id); err != nil {
			return err
		}
		for _, pair := range contexts.Contexts() {
			if _, err := d.exec(ctx, d.dialect.queries.insertContext, id, pair.Key, pair.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

// =============================================================================
// PERMISSIONS / OPTIONS / DEFAULTS
// =============================================================================

// SetPermission upserts one permission row.
func (d *Dao) SetPermission(ctx context.Context, seg *Segment, permission string, value int) error {
	id, err := seg.ID()
	if err != nil {
		return err
	}
	_, err = d.exec(ctx, d.dialect.queries.upsertPermission, id, permission, value)
	return err
}

// ClearPermission deletes one permission row.
func (d *Dao) ClearPermission(ctx context.Context, seg *Segment, permission string) error {
	id, err := seg.ID()
	if err != nil {
		return err
	}
	_, err = d.exec(ctx, d.dialect.queries.deletePermissionKey, id, permission)
	return err
}

// SetPermissions replaces every permission row for the segment.
func (d *Dao) SetPermissions(ctx context.Context, seg *Segment, permissions map[string]int) error {
	return d.ExecuteInTransaction(ctx, func() error {
		id, err := seg.ID()
		if err != nil {
			return err
		}
		if _, err := d.exec(ctx, d.dialect.queries.deletePermissionsBySegment, id); err != nil {
			return err
		}
		for key, value := range permissions {
			if _, err := d.exec(ctx, d.dialect.queries.upsertPermission, id, key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetOption upserts one option row.
func (d *Dao) SetOption(ctx context.Context, seg *Segment, key, value string) error {
	id, err := seg.ID()
	if err != nil {
		return err
	}
	_, err = d.exec(ctx, d.dialect.queries.upsertOption, id, key, value)
	return err
}

// ClearOption deletes one option row.
func (d *Dao) ClearOption(ctx context.Context, seg *Segment, key string) error {
	id, err := seg.ID()
	if err != nil {
		return err
	}
	_, err = d.exec(ctx, d.dialect.queries.deleteOptionKey, id, key)
	return err
}

// SetOptions replaces every option row for the segment.
func (d *Dao) SetOptions(ctx context.Context, seg *Segment, options map[string]string) error {
	return d.ExecuteInTransaction(ctx, func() error {
		id, err := seg.ID()
		if err != nil {
			return err
		}
		if _, err := d.exec(ctx, d.dialect.queries.deleteOptionsBySegment, id); err != nil {
			return err
		}
		for key, value := range options {
			if _, err := d.exec(ctx, d.dialect.queries.upsertOption, id, key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetDefaultValue updates the segment's fallback value; nil writes SQL NULL
// so an absent default round-trips as absent.
func (d *Dao) SetDefaultValue(ctx context.Context, seg *Segment, value *int) error {
	id, err := seg.ID()
	if err != nil {
		return err
	}
	var stored any
	if value != nil {
		stored = *value
	}
	_, err = d.exec(ctx, d.dialect.queries.updateSegmentDefault, stored, id)
	return err
}

// =============================================================================
// PARENTS
// =============================================================================

// AddParent inserts one inheritance row, allocating the parent if needed.
func (d *Dao) AddParent(ctx context.Context, seg *Segment, parent *SubjectRef) error {
	id, err := seg.ID()
	if err != nil {
		return err
	}
	parentID, err := d.IDAllocating(ctx, parent)
	if err != nil {
		return err
	}
	_, err = d.exec(ctx, d.dialect.queries.insertParent, id, parentID)
	return err
}

// RemoveParent deletes one inheritance row.
func (d *Dao) RemoveParent(ctx context.Context, seg *Segment, parent *SubjectRef) error {
	id, err := seg.ID()
	if err != nil {
		return err
	}
	parentID, err := d.IDAllocating(ctx, parent)
	if err != nil {
		return err
	}
	_, err = d.exec(ctx, d.dialect.queries.deleteParent, id, parentID)
	return err
}

// SetParents replaces every inheritance row for the segment, inserting in
// list order.
func (d *Dao) SetParents(ctx context.Context, seg *Segment, parents []*SubjectRef) error {
	return d.ExecuteInTransaction(ctx, func() error {
		id, err := seg.ID()
		if err != nil {
			return err
		}
		if _, err := d.exec(ctx, d.dialect.queries.deleteParentsBySegment, id); err != nil {
			return err
		}
		for _, parent := range parents {
			parentID, err := d.IDAllocating(ctx, parent)
			if err != nil {
				return err
			}
			if _, err := d.exec(ctx, d.dialect.queries.insertParent, id, parentID); err != nil {
				return err
			}
		}
		return nil
	})
}

// =============================================================================
// CONTEXT INHERITANCE
// =============================================================================

// GetContextInheritance loads the full child -> parents mapping, parent
// order following insert id.
func (d *Dao) GetContextInheritance(ctx context.Context) (*ContextInheritance, error) {
	rows, err := d.query(ctx, d.dialect.queries.selectContextInheritance)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	parents := map[data.Context][]data.Context{}
	for rows.Next() {
		var childKey, childValue, parentKey, parentValue string
		if err := rows.Scan(&childKey, &childValue, &parentKey, &parentValue); err != nil {
			return nil, fmt.Errorf("%w: %v", data.ErrQueryFailure, err)
		}
		child := data.NewContext(childKey, childValue)
		parents[child] = append(parents[child], data.NewContext(parentKey, parentValue))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return newContextInheritance(parents, nil), nil
}

// SetContextInheritance replaces one child's parent list: delete-by-child,
// then insert in list order.
func (d *Dao) SetContextInheritance(ctx context.Context, child data.Context, parents []data.Context) error {
	return d.ExecuteInTransaction(ctx, func() error {
		if _, err := d.exec(ctx, d.dialect.queries.deleteContextInheritanceChild, child.Key, child.Value); err != nil {
			return err
		}
		for _, parent := range parents {
			if _, err := d.exec(ctx, d.dialect.queries.insertContextInheritance,
				child.Key, child.Value, parent.Key, parent.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

// =============================================================================
// RANK LADDERS
// =============================================================================

// GetRankLadder loads a ladder by name; the ladder exists even when empty.
func (d *Dao) GetRankLadder(ctx context.Context, name string) (*RankLadder, error) {
	rows, err := d.query(ctx, d.dialect.queries.selectRankLadder, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ranks []*SubjectRef
	for rows.Next() {
		var id int
		var typ, identifier string
		if err := rows.Scan(&id, &typ, &identifier); err != nil {
			return nil, fmt.Errorf("%w: %v", data.ErrQueryFailure, err)
		}
		ranks = append(ranks, newSubjectRef(id, typ, identifier))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return newRankLadder(name, ranks), nil
}

// HasEntriesForRankLadder reports whether any row exists under the name.
func (d *Dao) HasEntriesForRankLadder(ctx context.Context, name string) (bool, error) {
	rows, err := d.query(ctx, d.dialect.queries.testRankLadderExists, name)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	return rows.Next(), rows.Err()
}

// SetRankLadder replaces the ladder: delete-all then insert in rank order,
// so position round-trips through the insert id. A nil ladder deletes it.
func (d *Dao) SetRankLadder(ctx context.Context, name string, ladder data.RankLadder) error {
	return d.ExecuteInTransaction(ctx, func() error {
		var ranks []*SubjectRef
		switch l := ladder.(type) {
		case nil:
		case *RankLadder:
			ranks = l.RankRefs()
		default:
			for _, id := range l.Ranks() {
				ranks = append(ranks, UnresolvedRef(id.Type, id.Identifier))
			}
		}

		if _, err := d.exec(ctx, d.dialect.queries.deleteRankLadder, name); err != nil {
			return err
		}
		for _, ref := range ranks {
			subjectID, err := d.IDAllocating(ctx, ref)
			if err != nil {
				return err
			}
			if _, err := d.exec(ctx, d.dialect.queries.insertRankLadder, name, subjectID); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetAllRankLadderNames lists the distinct ladder names.
func (d *Dao) GetAllRankLadderNames(ctx context.Context) ([]string, error) {
	return d.stringColumn(ctx, d.dialect.queries.selectRankLadderNames)
}
