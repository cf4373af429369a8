package service

import (
	"context"
	"encoding/json"

	sq "github.com/Masterminds/squirrel"

	"github.com/therciotr/TrMultichat-sub001/internal/entity"
	"github.com/therciotr/TrMultichat-sub001/internal/introspection"
	"github.com/therciotr/TrMultichat-sub001/internal/jsonutil"
	"github.com/therciotr/TrMultichat-sub001/internal/legacy"
	"github.com/therciotr/TrMultichat-sub001/internal/sqlutil"
	"github.com/therciotr/TrMultichat-sub001/internal/store"
	"github.com/therciotr/TrMultichat-sub001/internal/tenant"
)

// queueColumns lists the logical queue columns with their accepted physical
// spellings, canonical first.
var queueColumns = [][]string{
	{"id"},
	{"name"},
	{"color"},
	{"greetingMessage", "greeting_message"},
	{"outOfHoursMessage", "out_of_hours_message"},
	{"schedules"},
	{"orderQueue", "order_queue"},
	{"companyId", "company_id"},
	{"createdAt", "created_at"},
	{"updatedAt", "updated_at"},
}

// QueueInput carries the writable fields for creating a queue.
type QueueInput struct {
	Name              string
	Color             string
	GreetingMessage   string
	OutOfHoursMessage string
	OrderQueue        int
	// Schedules is the JSONB opening-hours document. Strings pass through
	// verbatim; other values are marshalled.
	Schedules any
}

// QueuePatch carries partial updates; nil fields are left unchanged.
type QueuePatch struct {
	Name              *string
	Color             *string
	GreetingMessage   *string
	OutOfHoursMessage *string
	OrderQueue        *int
	Schedules         json.RawMessage
}

// QueueService serves the tenant's support queues.
type QueueService struct {
	store *store.Store
}

func NewQueueService(st *store.Store) *QueueService {
	return &QueueService{store: st}
}

// scope resolves the binding and column map and builds the tenant filter.
func (s *QueueService) scope(ctx context.Context, tc tenant.Context, ent entity.Entity) (introspection.ColumnMap, sq.Eq, bool, error) {
	return scopeEntity(ctx, s.store, tc, ent)
}

// List returns all queues of the tenant, ordered for display.
func (s *QueueService) List(ctx context.Context, tc tenant.Context) ([]map[string]any, error) {
	cols, filter, scoped, err := s.scope(ctx, tc, entity.Queue)
	if err != nil {
		return nil, err
	}

	proj := projection(cols, queueColumns)
	order, ok := pickPresent(cols, "orderQueue", "order_queue")
	if !ok {
		order, _ = pickPresent(cols, "name")
	}

	stmt, err := toStatement(store.StatementQuery, func(ident string) sq.Sqlizer {
		q := sq.Select(proj...).From(ident).PlaceholderFormat(sq.Dollar)
		if scoped {
			q = q.Where(filter)
		}
		return q.OrderBy(sqlutil.QuoteIdentifier(order) + " ASC")
	})
	if err != nil {
		return nil, err
	}
	stmt.Unscoped = !scoped
	stmt.Fallback = func(ctx context.Context, adapter *legacy.Adapter, tc tenant.Context) (store.Outcome, error) {
		rows, err := adapter.FindAll(ctx, entity.Queue.String(), tc, nil)
		if err != nil {
			return store.Outcome{}, err
		}
		return store.RowsOutcome(rows), nil
	}

	out, err := s.store.ResolveAndExecute(ctx, entity.Queue, stmt, tc)
	if err != nil {
		return nil, err
	}
	return out.Rows, nil
}

// Get returns one queue by id within the tenant's scope.
func (s *QueueService) Get(ctx context.Context, tc tenant.Context, id int64) (map[string]any, error) {
	cols, filter, scoped, err := s.scope(ctx, tc, entity.Queue)
	if err != nil {
		return nil, err
	}

	proj := projection(cols, queueColumns)
	idCol, _ := pickPresent(cols, "id")

	stmt, err := toStatement(store.StatementQueryRow, func(ident string) sq.Sqlizer {
		q := sq.Select(proj...).From(ident).PlaceholderFormat(sq.Dollar).
			Where(sq.Eq{sqlutil.QuoteIdentifier(idCol): id})
		if scoped {
			q = q.Where(filter)
		}
		return q.Limit(1)
	})
	if err != nil {
		return nil, err
	}
	stmt.Unscoped = !scoped
	stmt.Fallback = func(ctx context.Context, adapter *legacy.Adapter, tc tenant.Context) (store.Outcome, error) {
		row, err := adapter.FindByPk(ctx, entity.Queue.String(), tc, id)
		if err != nil {
			return store.Outcome{}, err
		}
		return store.RowOutcome(row), nil
	}

	out, err := s.store.ResolveAndExecute(ctx, entity.Queue, stmt, tc)
	if err != nil {
		return nil, err
	}
	if out.Row == nil {
		return nil, ErrNotFound
	}
	return out.Row, nil
}

// Create inserts a queue owned by the tenant and returns the stored row.
func (s *QueueService) Create(ctx context.Context, tc tenant.Context, in QueueInput) (map[string]any, error) {
	cols, _, scoped, err := s.scope(ctx, tc, entity.Queue)
	if err != nil {
		return nil, err
	}

	names := []string{}
	values := []any{}
	add := func(spellings []string, v any) {
		if name, ok := pickPresent(cols, spellings...); ok {
			names = append(names, sqlutil.QuoteIdentifier(name))
			values = append(values, v)
		}
	}

	add([]string{"name"}, in.Name)
	add([]string{"color"}, in.Color)
	add([]string{"greetingMessage", "greeting_message"}, in.GreetingMessage)
	add([]string{"outOfHoursMessage", "out_of_hours_message"}, in.OutOfHoursMessage)
	add([]string{"orderQueue", "order_queue"}, in.OrderQueue)
	add([]string{"schedules"}, jsonutil.NormalizeParam(in.Schedules))
	if scoped {
		// Ownership is always bound from the authenticated context.
		d, _ := entity.Lookup(entity.Queue)
		col := cols.Pick(d.TenantColumns[0], d.TenantColumns...)
		names = append(names, sqlutil.QuoteIdentifier(col))
		values = append(values, tc.CompanyID)
	}

	proj := projection(cols, queueColumns)
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
		id, err := adapter.Create(ctx, entity.Queue.String(), tc, map[string]any{
			"name":             in.Name,
			"color":            in.Color,
			"greeting_message": in.GreetingMessage,
			"schedules":        jsonutil.NormalizeParam(in.Schedules),
		})
		if err != nil {
			return store.Outcome{}, err
		}
		return store.RowOutcome(map[string]any{"id": id, "name": in.Name}), nil
	}

	out, err := s.store.ResolveAndExecute(ctx, entity.Queue, stmt, tc)
	if err != nil {
		return nil, err
	}
	return out.Row, nil
}

// Update applies a partial update to a queue. The "updatedAt" fragment is
// included only when the column exists on the physical table.
func (s *QueueService) Update(ctx context.Context, tc tenant.Context, id int64, patch QueuePatch) (int64, error) {
	cols, filter, scoped, err := s.scope(ctx, tc, entity.Queue)
	if err != nil {
		return 0, err
	}

	sets := map[string]any{}
	set := func(spellings []string, v any) {
		if name, ok := pickPresent(cols, spellings...); ok {
			sets[sqlutil.QuoteIdentifier(name)] = v
		}
	}
	if patch.Name != nil {
		set([]string{"name"}, *patch.Name)
	}
	if patch.Color != nil {
		set([]string{"color"}, *patch.Color)
	}
	if patch.GreetingMessage != nil {
		set([]string{"greetingMessage", "greeting_message"}, *patch.GreetingMessage)
	}
	if patch.OutOfHoursMessage != nil {
		set([]string{"outOfHoursMessage", "out_of_hours_message"}, *patch.OutOfHoursMessage)
	}
	if patch.OrderQueue != nil {
		set([]string{"orderQueue", "order_queue"}, *patch.OrderQueue)
	}
	if patch.Schedules != nil {
		set([]string{"schedules"}, jsonutil.NormalizeParam(patch.Schedules))
	}
	if len(sets) == 0 {
		return 0, nil
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
		values := map[string]any{}
		if patch.Name != nil {
			values["name"] = *patch.Name
		}
		if patch.Color != nil {
			values["color"] = *patch.Color
		}
		if patch.GreetingMessage != nil {
			values["greeting_message"] = *patch.GreetingMessage
		}
		if patch.Schedules != nil {
			values["schedules"] = jsonutil.NormalizeParam(patch.Schedules)
		}
		n, err := adapter.Update(ctx, entity.Queue.String(), tc, id, values)
		if err != nil {
			return store.Outcome{}, err
		}
		return store.AffectedOutcome(n), nil
	}

	out, err := s.store.ResolveAndExecute(ctx, entity.Queue, stmt, tc)
	if err != nil {
		return 0, err
	}
	if out.Affected == 0 {
		return 0, ErrNotFound
	}
	return out.Affected, nil
}

// Delete removes a queue within the tenant's scope.
func (s *QueueService) Delete(ctx context.Context, tc tenant.Context, id int64) error {
	cols, filter, scoped, err := s.scope(ctx, tc, entity.Queue)
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
		n, err := adapter.Destroy(ctx, entity.Queue.String(), tc, id)
		if err != nil {
			return store.Outcome{}, err
		}
		return store.AffectedOutcome(n), nil
	}

	out, err := s.store.ResolveAndExecute(ctx, entity.Queue, stmt, tc)
	if err != nil {
		return err
	}
	if out.Affected == 0 {
		return ErrNotFound
	}
	return nil
}
