package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/therciotr/TrMultichat-sub001/internal/dbexec"
	"github.com/therciotr/TrMultichat-sub001/internal/entity"
	"github.com/therciotr/TrMultichat-sub001/internal/legacy"
	"github.com/therciotr/TrMultichat-sub001/internal/sqlutil"
	"github.com/therciotr/TrMultichat-sub001/internal/tenant"
)

// FallbackFunc reroutes a statement to the legacy mapping adapter after every
// raw-SQL candidate failed with an undefined-table outcome.
type FallbackFunc func(ctx context.Context, adapter *legacy.Adapter, tc tenant.Context) (Outcome, error)

// Statement describes one schema-adaptive operation. Template receives the
// resolved table identifier, already quote-escaped where quoting applies;
// Args are bound parameters and must carry every value, including the tenant
// id produced by the scope guard.
type Statement struct {
	Kind     StatementKind
	Template dbexec.TemplateFunc
	Args     []any
	// Unscoped marks statements against entities that are not tenant-owned.
	// Tenant-scoped statements (the default) refuse to run without a valid
	// tenant context.
	Unscoped bool
	// Fallback, when set, is invoked on candidate exhaustion. When nil, the
	// exhaustion error propagates (ErrNotImplemented if no mapping is
	// registered for the entity either).
	Fallback FallbackFunc
}

// ResolveAndExecute is the single entry point route handlers use. It resolves
// the entity's physical binding, runs the templated statement through the
// candidate iteration executor, and defers to the legacy mapping adapter when
// no relation exists. Raw identifiers and unescaped SQL fragments never leak
// back to callers.
func (s *Store) ResolveAndExecute(ctx context.Context, ent entity.Entity, stmt Statement, tc tenant.Context) (Outcome, error) {
	if !stmt.Unscoped && !tc.Valid() {
		return Outcome{}, fmt.Errorf("%w: entity %s", sqlutil.ErrScopeViolation, ent)
	}

	callID := uuid.NewString()
	logger := s.log(ctx).WithFields(
		slog.String("call_id", callID),
		slog.String("entity", ent.String()),
	)

	idents, err := s.CandidateIdents(ctx, ent)
	if err != nil {
		return Outcome{}, err
	}

	start := time.Now()
	outcome, winner, err := s.run(ctx, idents, stmt)
	s.metrics.RecordStatement(ctx, ent.String(), time.Since(start))

	if err == nil {
		if winner != idents[0] {
			logger.Info("statement succeeded against fallback candidate",
				slog.String("winner", winner),
			)
		}
		return outcome, nil
	}

	if !errors.Is(err, sqlutil.ErrNoRelation) {
		return Outcome{}, err
	}

	if stmt.Fallback == nil {
		if _, ok := s.legacy.Registry().Lookup(ent.String()); !ok {
			return Outcome{}, fmt.Errorf("%w: %s", sqlutil.ErrNotImplemented, ent)
		}
		return Outcome{}, err
	}

	s.metrics.RecordLegacyFallback(ctx, ent.String())
	logger.Warn("all candidates exhausted, deferring to legacy mapping")
	return stmt.Fallback(ctx, s.legacy, tc)
}

func (s *Store) run(ctx context.Context, idents []string, stmt Statement) (Outcome, string, error) {
	switch stmt.Kind {
	case StatementExec:
		res, winner, err := dbexec.ExecCandidates(ctx, s.exec, idents, stmt.Template, stmt.Args...)
		if err != nil {
			return Outcome{}, winner, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return Outcome{}, winner, err
		}
		return AffectedOutcome(n), winner, nil

	case StatementQueryRow:
		rows, winner, err := dbexec.QueryCandidates(ctx, s.exec, idents, stmt.Template, stmt.Args...)
		if err != nil {
			return Outcome{}, winner, err
		}
		all, err := dbexec.ScanAll(rows)
		if err != nil {
			return Outcome{}, winner, err
		}
		if len(all) == 0 {
			return RowOutcome(nil), winner, nil
		}
		return RowOutcome(all[0]), winner, nil

	default:
		rows, winner, err := dbexec.QueryCandidates(ctx, s.exec, idents, stmt.Template, stmt.Args...)
		if err != nil {
			return Outcome{}, winner, err
		}
		all, err := dbexec.ScanAll(rows)
		if err != nil {
			return Outcome{}, winner, err
		}
		return RowsOutcome(all), winner, nil
	}
}
