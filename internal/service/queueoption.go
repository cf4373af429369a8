package service

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/therciotr/TrMultichat-sub001/internal/dbexec"
	"github.com/therciotr/TrMultichat-sub001/internal/entity"
	"github.com/therciotr/TrMultichat-sub001/internal/legacy"
	"github.com/therciotr/TrMultichat-sub001/internal/sqlutil"
	"github.com/therciotr/TrMultichat-sub001/internal/store"
	"github.com/therciotr/TrMultichat-sub001/internal/tenant"
)

var queueOptionColumns = [][]string{
	{"id"},
	{"title"},
	{"message"},
	{"option"},
	{"queueId", "queue_id"},
	{"parentId", "parent_id"},
	{"companyId", "company_id"},
	{"createdAt", "created_at"},
	{"updatedAt", "updated_at"},
}

// QueueOptionInput carries the writable fields of a chatbot queue option.
type QueueOptionInput struct {
	Title    string
	Message  string
	Option   string
	QueueID  int64
	ParentID *int64
}

// QueueOptionService serves the chatbot options attached to a queue. Options
// tables often predate tenant columns, so ownership is enforced through the
// owning queue: every client-supplied queueId is validated against the
// authenticated tenant before it is bound into a statement.
type QueueOptionService struct {
	store  *store.Store
	queues *QueueService
}

func NewQueueOptionService(st *store.Store) *QueueOptionService {
	return &QueueOptionService{store: st, queues: NewQueueService(st)}
}

// validateQueue confirms the queue belongs to the tenant. A queue outside the
// tenant's scope is indistinguishable from a missing one.
func (s *QueueOptionService) validateQueue(ctx context.Context, tc tenant.Context, queueID int64) error {
	_, err := s.queues.Get(ctx, tc, queueID)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: queue %d", ErrOwnership, queueID)
	}
	return err
}

// ListByQueue returns the options of one queue, ownership-validated.
func (s *QueueOptionService) ListByQueue(ctx context.Context, tc tenant.Context, queueID int64) ([]map[string]any, error) {
	if err := s.validateQueue(ctx, tc, queueID); err != nil {
		return nil, err
	}

	cols, filter, scoped, err := scopeEntity(ctx, s.store, tc, entity.QueueOption)
	if err != nil {
		return nil, err
	}

	proj := projection(cols, queueOptionColumns)
	queueCol, ok := pickPresent(cols, "queueId", "queue_id")
	if !ok {
		return nil, fmt.Errorf("%w: options table has no queue reference", sqlutil.ErrNotImplemented)
	}
	orderCol, _ := pickPresent(cols, "option", "id")

	stmt, err := toStatement(store.StatementQuery, func(ident string) sq.Sqlizer {
		q := sq.Select(proj...).From(ident).PlaceholderFormat(sq.Dollar).
			Where(sq.Eq{sqlutil.QuoteIdentifier(queueCol): queueID})
		if scoped {
			q = q.Where(filter)
		}
		return q.OrderBy(sqlutil.QuoteIdentifier(orderCol) + " ASC")
	})
	if err != nil {
		return nil, err
	}
	stmt.Unscoped = !scoped
	stmt.Fallback = func(ctx context.Context, adapter *legacy.Adapter, tc tenant.Context) (store.Outcome, error) {
		rows, err := adapter.FindAll(ctx, entity.QueueOption.String(), tc, sq.Eq{`"queue_id"`: queueID})
		if err != nil {
			return store.Outcome{}, err
		}
		return store.RowsOutcome(rows), nil
	}

	out, err := s.store.ResolveAndExecute(ctx, entity.QueueOption, stmt, tc)
	if err != nil {
		return nil, err
	}
	return out.Rows, nil
}

// Create inserts a new option under a queue the tenant owns.
func (s *QueueOptionService) Create(ctx context.Context, tc tenant.Context, in QueueOptionInput) (map[string]any, error) {
	if err := s.validateQueue(ctx, tc, in.QueueID); err != nil {
		return nil, err
	}

	cols, _, scoped, err := scopeEntity(ctx, s.store, tc, entity.QueueOption)
	if err != nil {
		return nil, err
	}

	queueCol, ok := pickPresent(cols, "queueId", "queue_id")
	if !ok {
		return nil, fmt.Errorf("%w: options table has no queue reference", sqlutil.ErrNotImplemented)
	}

	names := []string{}
	values := []any{}
	add := func(spellings []string, v any) {
		if name, ok := pickPresent(cols, spellings...); ok {
			names = append(names, sqlutil.QuoteIdentifier(name))
			values = append(values, v)
		}
	}
	add([]string{"title"}, in.Title)
	add([]string{"message"}, in.Message)
	add([]string{"option"}, in.Option)
	names = append(names, sqlutil.QuoteIdentifier(queueCol))
	values = append(values, in.QueueID)
	if in.ParentID != nil {
		add([]string{"parentId", "parent_id"}, *in.ParentID)
	}
	if scoped {
		d, _ := entity.Lookup(entity.QueueOption)
		col := cols.Pick(d.TenantColumns[0], d.TenantColumns...)
		names = append(names, sqlutil.QuoteIdentifier(col))
		values = append(values, tc.CompanyID)
	}

	proj := projection(cols, queueOptionColumns)
	stmt, err := toStatement(store.StatementQueryRow, func(ident string) sq.Sqlizer {
		return sq.Insert(ident).Columns(names...).Values(values...).
			PlaceholderFormat(sq.Dollar).
			Suffix("RETURNING " + joinIdents(proj))
	})
	if err != nil {
		return nil, err
	}
	stmt.Unscoped = !scoped
	stmt.Fallback = func(ctx context.Context, adapter *legacy.Adapter, tc tenant.Context) (store.Outcome, error) {
		vals := map[string]any{
			"title":    in.Title,
			"message":  in.Message,
			"option":   in.Option,
			"queue_id": in.QueueID,
		}
		if in.ParentID != nil {
			vals["parent_id"] = *in.ParentID
		}
		id, err := adapter.Create(ctx, entity.QueueOption.String(), tc, vals)
		if err != nil {
			return store.Outcome{}, err
		}
		return store.RowOutcome(map[string]any{"id": id, "title": in.Title}), nil
	}

	out, err := s.store.ResolveAndExecute(ctx, entity.QueueOption, stmt, tc)
	if err != nil {
		return nil, err
	}
	return out.Row, nil
}

// Update rewrites an option's fields after validating that its queue belongs
// to the tenant.
func (s *QueueOptionService) Update(ctx context.Context, tc tenant.Context, id int64, in QueueOptionInput) (int64, error) {
	if err := s.validateQueue(ctx, tc, in.QueueID); err != nil {
		return 0, err
	}
	if err := s.validateOwnership(ctx, tc, id); err != nil {
		return 0, err
	}

	cols, filter, scoped, err := scopeEntity(ctx, s.store, tc, entity.QueueOption)
	if err != nil {
		return 0, err
	}

	sets := map[string]any{}
	set := func(spellings []string, v any) {
		if name, ok := pickPresent(cols, spellings...); ok {
			sets[sqlutil.QuoteIdentifier(name)] = v
		}
	}
	set([]string{"title"}, in.Title)
	set([]string{"message"}, in.Message)
	set([]string{"option"}, in.Option)
	set([]string{"queueId", "queue_id"}, in.QueueID)
	if in.ParentID != nil {
		set([]string{"parentId", "parent_id"}, *in.ParentID)
	}
	if cols.Has("updatedAt") || cols.Has("updated_at") {
		name, _ := pickPresent(cols, "updatedAt", "updated_at")
		sets[sqlutil.QuoteIdentifier(name)] = sq.Expr("NOW()")
	}

	idCol, _ := pickPresent(cols, "id")
	stmt, err := toStatement(store.StatementExec, func(ident string) sq.Sqlizer {
		q := sq.Update(ident).PlaceholderFormat(sq.Dollar).
			SetMap(sets).
			Where(sq.Eq{sqlutil.QuoteIdentifier(idCol): id})
		if scoped {
			q = q.Where(filter)
		}
		return q
	})
	if err != nil {
		return 0, err
	}
	stmt.Unscoped = !scoped
	stmt.Fallback = func(ctx context.Context, adapter *legacy.Adapter, tc tenant.Context) (store.Outcome, error) {
		n, err := adapter.Update(ctx, entity.QueueOption.String(), tc, id, map[string]any{
			"title":    in.Title,
			"message":  in.Message,
			"option":   in.Option,
			"queue_id": in.QueueID,
		})
		if err != nil {
			return store.Outcome{}, err
		}
		return store.AffectedOutcome(n), nil
	}

	out, err := s.store.ResolveAndExecute(ctx, entity.QueueOption, stmt, tc)
	if err != nil {
		return 0, err
	}
	if out.Affected == 0 {
		return 0, ErrNotFound
	}
	return out.Affected, nil
}

// Delete removes an option after validating that its queue belongs to the
// tenant.
func (s *QueueOptionService) Delete(ctx context.Context, tc tenant.Context, id int64) error {
	if err := s.validateOwnership(ctx, tc, id); err != nil {
		return err
	}

	cols, filter, scoped, err := scopeEntity(ctx, s.store, tc, entity.QueueOption)
	if err != nil {
		return err
	}

	idCol, _ := pickPresent(cols, "id")
	stmt, err := toStatement(store.StatementExec, func(ident string) sq.Sqlizer {
		q := sq.Delete(ident).PlaceholderFormat(sq.Dollar).
			Where(sq.Eq{sqlutil.QuoteIdentifier(idCol): id})
		if scoped {
			q = q.Where(filter)
		}
		return q
	})
	if err != nil {
		return err
	}
	stmt.Unscoped = !scoped
	stmt.Fallback = func(ctx context.Context, adapter *legacy.Adapter, tc tenant.Context) (store.Outcome, error) {
		n, err := adapter.Destroy(ctx, entity.QueueOption.String(), tc, id)
		if err != nil {
			return store.Outcome{}, err
		}
		return store.AffectedOutcome(n), nil
	}

	out, err := s.store.ResolveAndExecute(ctx, entity.QueueOption, stmt, tc)
	if err != nil {
		return err
	}
	if out.Affected == 0 {
		return ErrNotFound
	}
	return nil
}

// validateOwnership loads an existing option and checks its queue against the
// tenant. Needed for updates and deletes addressed by option id, where the
// options table itself may carry no tenant column.
func (s *QueueOptionService) validateOwnership(ctx context.Context, tc tenant.Context, id int64) error {
	cols, filter, scoped, err := scopeEntity(ctx, s.store, tc, entity.QueueOption)
	if err != nil {
		return err
	}

	queueCol, ok := pickPresent(cols, "queueId", "queue_id")
	if !ok {
		return fmt.Errorf("%w: options table has no queue reference", sqlutil.ErrNotImplemented)
	}
	idCol, _ := pickPresent(cols, "id")

	stmt, err := toStatement(store.StatementQueryRow, func(ident string) sq.Sqlizer {
		q := sq.Select(sqlutil.QuoteIdentifier(queueCol)).From(ident).
			PlaceholderFormat(sq.Dollar).
			Where(sq.Eq{sqlutil.QuoteIdentifier(idCol): id})
		if scoped {
			q = q.Where(filter)
		}
		return q.Limit(1)
	})
	if err != nil {
		return err
	}
	stmt.Unscoped = !scoped
	stmt.Fallback = func(ctx context.Context, adapter *legacy.Adapter, tc tenant.Context) (store.Outcome, error) {
		row, err := adapter.FindByPk(ctx, entity.QueueOption.String(), tc, id)
		if err != nil {
			return store.Outcome{}, err
		}
		return store.RowOutcome(row), nil
	}

	out, err := s.store.ResolveAndExecute(ctx, entity.QueueOption, stmt, tc)
	if err != nil {
		return err
	}
	if out.Row == nil {
		return ErrNotFound
	}
	queueID := dbexec.ToInt64(out.Row[queueCol], out.Row["queue_id"], out.Row["queueId"])
	if queueID == 0 {
		return fmt.Errorf("%w: option %d has no owner", ErrOwnership, id)
	}
	return s.validateQueue(ctx, tc, queueID)
}
