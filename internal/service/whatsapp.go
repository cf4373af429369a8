package service

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/therciotr/TrMultichat-sub001/internal/entity"
	"github.com/therciotr/TrMultichat-sub001/internal/legacy"
	"github.com/therciotr/TrMultichat-sub001/internal/sqlutil"
	"github.com/therciotr/TrMultichat-sub001/internal/store"
	"github.com/therciotr/TrMultichat-sub001/internal/tenant"
)

var whatsappColumns = [][]string{
	{"id"},
	{"name"},
	{"session"},
	{"status"},
	{"isDefault", "is_default"},
	{"greetingMessage", "greeting_message"},
	{"queueId", "queue_id"},
	{"companyId", "company_id"},
	{"createdAt", "created_at"},
	{"updatedAt", "updated_at"},
}

// WhatsappService serves the tenant's WhatsApp connections.
type WhatsappService struct {
	store  *store.Store
	queues *QueueService
}

func NewWhatsappService(st *store.Store) *WhatsappService {
	return &WhatsappService{store: st, queues: NewQueueService(st)}
}

// List returns the tenant's connections, default connection first.
func (s *WhatsappService) List(ctx context.Context, tc tenant.Context) ([]map[string]any, error) {
	cols, filter, scoped, err := scopeEntity(ctx, s.store, tc, entity.WhatsappConnection)
	if err != nil {
		return nil, err
	}

	proj := projection(cols, whatsappColumns)
	order := []string{}
	if name, ok := pickPresent(cols, "isDefault", "is_default"); ok {
		order = append(order, sqlutil.QuoteIdentifier(name)+" DESC")
	}
	if name, ok := pickPresent(cols, "name"); ok {
		order = append(order, sqlutil.QuoteIdentifier(name)+" ASC")
	}

	stmt, err := toStatement(store.StatementQuery, func(ident string) sq.Sqlizer {
		q := sq.Select(proj...).From(ident).PlaceholderFormat(sq.Dollar)
		if scoped {
			q = q.Where(filter)
		}
		return q.OrderBy(order...)
	})
	if err != nil {
		return nil, err
	}
	stmt.Unscoped = !scoped
	stmt.Fallback = func(ctx context.Context, adapter *legacy.Adapter, tc tenant.Context) (store.Outcome, error) {
		rows, err := adapter.FindAll(ctx, entity.WhatsappConnection.String(), tc, nil)
		if err != nil {
			return store.Outcome{}, err
		}
		return store.RowsOutcome(rows), nil
	}

	out, err := s.store.ResolveAndExecute(ctx, entity.WhatsappConnection, stmt, tc)
	if err != nil {
		return nil, err
	}
	return out.Rows, nil
}

// Get returns one connection by id within the tenant's scope.
func (s *WhatsappService) Get(ctx context.Context, tc tenant.Context, id int64) (map[string]any, error) {
	cols, filter, scoped, err := scopeEntity(ctx, s.store, tc, entity.WhatsappConnection)
	if err != nil {
		return nil, err
	}

	proj := projection(cols, whatsappColumns)
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
		row, err := adapter.FindByPk(ctx, entity.WhatsappConnection.String(), tc, id)
		if err != nil {
			return store.Outcome{}, err
		}
		return store.RowOutcome(row), nil
	}

	out, err := s.store.ResolveAndExecute(ctx, entity.WhatsappConnection, stmt, tc)
	if err != nil {
		return nil, err
	}
	if out.Row == nil {
		return nil, ErrNotFound
	}
	return out.Row, nil
}

// AssignQueue points a connection at a queue. The client-supplied queue id is
// validated against the authenticated tenant before it is bound.
func (s *WhatsappService) AssignQueue(ctx context.Context, tc tenant.Context, whatsappID, queueID int64) error {
	if _, err := s.queues.Get(ctx, tc, queueID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: queue %d", ErrOwnership, queueID)
		}
		return err
	}

	cols, filter, scoped, err := scopeEntity(ctx, s.store, tc, entity.WhatsappConnection)
	if err != nil {
		return err
	}

	queueCol, ok := pickPresent(cols, "queueId", "queue_id")
	if !ok {
		return fmt.Errorf("%w: connections table has no queue reference", sqlutil.ErrNotImplemented)
	}
	idCol, _ := pickPresent(cols, "id")

	sets := map[string]any{sqlutil.QuoteIdentifier(queueCol): queueID}
	if cols.Has("updatedAt") || cols.Has("updated_at") {
		name, _ := pickPresent(cols, "updatedAt", "updated_at")
		sets[sqlutil.QuoteIdentifier(name)] = sq.Expr("NOW()")
	}

	stmt, err := toStatement(store.StatementExec, func(ident string) sq.Sqlizer {
		q := sq.Update(ident).PlaceholderFormat(sq.Dollar).
			SetMap(sets).
			Where(sq.Eq{sqlutil.QuoteIdentifier(idCol): whatsappID})
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
		n, err := adapter.Update(ctx, entity.WhatsappConnection.String(), tc, whatsappID, map[string]any{
			"queue_id": queueID,
		})
		if err != nil {
			return store.Outcome{}, err
		}
		return store.AffectedOutcome(n), nil
	}

	out, err := s.store.ResolveAndExecute(ctx, entity.WhatsappConnection, stmt, tc)
	if err != nil {
		return err
	}
	if out.Affected == 0 {
		return ErrNotFound
	}
	return nil
}
