package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/therciotr/TrMultichat-sub001/internal/entity"
	"github.com/therciotr/TrMultichat-sub001/internal/introspection"
	"github.com/therciotr/TrMultichat-sub001/internal/sqlutil"
)

// ResolveTable returns the physical binding for a logical entity, consulting
// the process cache first. Resolution is idempotent: repeated calls return
// the identical binding and introspect the catalog at most once.
//
// Catalog errors are swallowed and degrade to the first-candidate best guess:
// introspection is an optimization, the candidate iteration executor provides
// the actual correctness guarantee through real query attempts.
func (s *Store) ResolveTable(ctx context.Context, ent entity.Entity) (*introspection.Binding, error) {
	if b, ok := s.cache.Binding(ent.String()); ok {
		s.metrics.RecordCacheHit(ctx, ent.String())
		return b, nil
	}

	d, ok := entity.Lookup(ent)
	if !ok {
		return nil, fmt.Errorf("%w: %s", sqlutil.ErrNotImplemented, ent)
	}
	s.metrics.RecordCacheMiss(ctx, ent.String())

	candidates := d.Candidates()
	b := s.resolveAgainstCatalog(ctx, d, candidates)
	s.cache.StoreBinding(b)
	return b, nil
}

func (s *Store) resolveAgainstCatalog(ctx context.Context, d entity.Descriptor, candidates []string) *introspection.Binding {
	actual, found, err := introspection.FindTable(ctx, s.db, s.schema, candidates)
	if err != nil {
		s.log(ctx).Warn("catalog lookup failed, will fall back to candidate guessing",
			slog.String("entity", d.Entity.String()),
			slog.String("error", err.Error()),
		)
	}

	if !found && err == nil && len(d.Pattern) > 0 {
		actual, found, err = introspection.FindTableLike(ctx, s.db, s.schema, d.Pattern...)
		if err != nil {
			s.log(ctx).Warn("catalog pattern lookup failed",
				slog.String("entity", d.Entity.String()),
				slog.String("error", err.Error()),
			)
			found = false
		}
	}

	if found {
		return &introspection.Binding{
			Entity: d.Entity.String(),
			Table:  actual,
			Ident:  sqlutil.QuoteIdentifier(actual),
		}
	}

	// No catalog confirmation: bind the highest-priority candidate verbatim so
	// the next query attempt fails fast with a clear undefined-table error
	// instead of an earlier ambiguous one.
	first := candidates[0]
	s.metrics.RecordBestGuess(ctx, d.Entity.String())
	s.log(ctx).Warn("no catalog match for entity, using best-guess identifier",
		slog.String("entity", d.Entity.String()),
		slog.String("identifier", first),
	)
	return &introspection.Binding{
		Entity:    d.Entity.String(),
		Table:     sqlutil.Unquote(first),
		Ident:     first,
		BestGuess: true,
	}
}

// Columns returns the column map for a binding's physical table, introspected
// once per table per process. A degraded (empty) map is returned on catalog
// failure without being cached, so a later request can retry.
func (s *Store) Columns(ctx context.Context, b *introspection.Binding) introspection.ColumnMap {
	if cols, ok := s.cache.Columns(s.schema, b.Table); ok {
		return cols
	}

	cols, err := introspection.TableColumns(ctx, s.db, s.schema, b.Table)
	if err != nil {
		s.log(ctx).Warn("column introspection failed, treating all columns as absent",
			slog.String("table", b.Table),
			slog.String("error", err.Error()),
		)
		return introspection.ColumnMap{}
	}

	s.cache.StoreColumns(s.schema, b.Table, cols)
	return cols
}

// CandidateIdents returns the ordered identifier candidates for an entity,
// starting with the cached binding when one exists. A confirmed binding is
// the only candidate; a best-guess binding keeps the remaining candidates so
// the executor can still fall through.
func (s *Store) CandidateIdents(ctx context.Context, ent entity.Entity) ([]string, error) {
	b, err := s.ResolveTable(ctx, ent)
	if err != nil {
		return nil, err
	}

	d, _ := entity.Lookup(ent)
	if !b.BestGuess {
		return []string{b.Ident}, nil
	}

	idents := []string{b.Ident}
	for _, cand := range d.Candidates() {
		if cand != b.Ident {
			idents = append(idents, cand)
		}
	}
	return idents, nil
}
