package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ResolutionMetrics holds custom metrics for schema-adaptive query resolution.
type ResolutionMetrics struct {
	cacheHits        metric.Int64Counter
	cacheMisses      metric.Int64Counter
	bestGuess        metric.Int64Counter
	legacyFallbacks  metric.Int64Counter
	unscopedRuns     metric.Int64Counter
	statementLatency metric.Float64Histogram
}

// InitResolutionMetrics initializes resolution-specific metrics.
func InitResolutionMetrics() (*ResolutionMetrics, error) {
	meter := otel.Meter("trmultichat-data")

	cacheHits, err := meter.Int64Counter(
		"schema.resolution.cache_hits",
		metric.WithDescription("Table bindings served from the process cache"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache hits counter: %w", err)
	}

	cacheMisses, err := meter.Int64Counter(
		"schema.resolution.cache_misses",
		metric.WithDescription("Table bindings resolved via catalog introspection"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache misses counter: %w", err)
	}

	bestGuess, err := meter.Int64Counter(
		"schema.resolution.best_guess",
		metric.WithDescription("Resolutions that fell back to the first candidate without catalog confirmation"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create best guess counter: %w", err)
	}

	legacyFallbacks, err := meter.Int64Counter(
		"schema.resolution.legacy_fallbacks",
		metric.WithDescription("Statements deferred to the legacy mapping adapter"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create legacy fallback counter: %w", err)
	}

	unscopedRuns, err := meter.Int64Counter(
		"schema.resolution.unscoped_runs",
		metric.WithDescription("Statements permitted to run without a tenant filter (table has no tenant column)"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create unscoped runs counter: %w", err)
	}

	statementLatency, err := meter.Float64Histogram(
		"schema.statement.duration",
		metric.WithDescription("Duration of resolved statements in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create statement duration histogram: %w", err)
	}

	return &ResolutionMetrics{
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		bestGuess:        bestGuess,
		legacyFallbacks:  legacyFallbacks,
		unscopedRuns:     unscopedRuns,
		statementLatency: statementLatency,
	}, nil
}

// RecordCacheHit records a binding served from cache.
func (m *ResolutionMetrics) RecordCacheHit(ctx context.Context, entityName string) {
	if m == nil {
		return
	}
	m.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("entity", entityName)))
}

// RecordCacheMiss records a binding resolved through the catalog.
func (m *ResolutionMetrics) RecordCacheMiss(ctx context.Context, entityName string) {
	if m == nil {
		return
	}
	m.cacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("entity", entityName)))
}

// RecordBestGuess records a resolution with no catalog confirmation.
func (m *ResolutionMetrics) RecordBestGuess(ctx context.Context, entityName string) {
	if m == nil {
		return
	}
	m.bestGuess.Add(ctx, 1, metric.WithAttributes(attribute.String("entity", entityName)))
}

// RecordLegacyFallback records a statement deferred to the mapping adapter.
func (m *ResolutionMetrics) RecordLegacyFallback(ctx context.Context, entityName string) {
	if m == nil {
		return
	}
	m.legacyFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("entity", entityName)))
}

// RecordUnscoped records an explicitly permitted unscoped statement.
func (m *ResolutionMetrics) RecordUnscoped(ctx context.Context, entityName string) {
	if m == nil {
		return
	}
	m.unscopedRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("entity", entityName)))
}

// RecordStatement records the duration of one resolved statement.
func (m *ResolutionMetrics) RecordStatement(ctx context.Context, entityName string, d time.Duration) {
	if m == nil {
		return
	}
	m.statementLatency.Record(ctx, float64(d.Milliseconds()),
		metric.WithAttributes(attribute.String("entity", entityName)))
}
