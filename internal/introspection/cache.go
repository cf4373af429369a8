package introspection

import (
	"strings"
	"sync"
)

// ColumnMap maps lowercase column names to their actual-cased identifiers for
// one physical table.
type ColumnMap map[string]string

// Has reports whether the table carries a column with the given name,
// compared case-insensitively. Used to gate optional SQL fragments.
func (m ColumnMap) Has(name string) bool {
	_, ok := m[strings.ToLower(name)]
	return ok
}

// Pick returns the actual casing of the first candidate spelling present in
// the map, or fallback when none is. When two candidate spellings both exist
// as distinct columns, the first listed wins and the others are omitted so a
// statement never targets duplicate columns.
func (m ColumnMap) Pick(fallback string, candidates ...string) string {
	for _, cand := range candidates {
		if actual, ok := m[strings.ToLower(cand)]; ok {
			return actual
		}
	}
	return fallback
}

// Binding is the cached outcome of table resolution for one logical entity
// within one process lifetime. Never invalidated once set; a schema change
// under a running process leaves the binding stale until restart.
type Binding struct {
	// Entity is the logical entity name the binding was resolved for.
	Entity string
	// Table is the actual-cased physical table name, unquoted.
	Table string
	// Ident is the quote-escaped identifier ready for SQL interpolation.
	Ident string
	// BestGuess marks a binding that fell back to the first candidate because
	// the catalog had no match. Queries against it may still fail fast with a
	// clear undefined-table error, which is preferable to guessing silently.
	BestGuess bool
}

// Cache holds process-lifetime resolution state. It is constructed once at
// startup and injected into the data-access component; tests instantiate an
// isolated cache per case. Concurrent first-time writes are permitted to race:
// both writers compute the same answer for an unchanged schema, so
// last-writer-wins needs no lock beyond what sync.Map provides.
type Cache struct {
	bindings sync.Map // entity name -> *Binding
	columns  sync.Map // schema-qualified table key -> ColumnMap
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Binding returns the cached binding for an entity, if any.
func (c *Cache) Binding(entity string) (*Binding, bool) {
	v, ok := c.bindings.Load(entity)
	if !ok {
		return nil, false
	}
	return v.(*Binding), true
}

// StoreBinding caches a resolved binding for an entity.
func (c *Cache) StoreBinding(b *Binding) {
	c.bindings.Store(b.Entity, b)
}

// Columns returns the cached column map for a physical table, if any.
// Maps are keyed by schema and table so equally named tables in different
// schemas never share an entry.
func (c *Cache) Columns(schema, table string) (ColumnMap, bool) {
	v, ok := c.columns.Load(columnKey(schema, table))
	if !ok {
		return nil, false
	}
	return v.(ColumnMap), true
}

// StoreColumns caches the column map for a physical table.
func (c *Cache) StoreColumns(schema, table string, cols ColumnMap) {
	c.columns.Store(columnKey(schema, table), cols)
}

func columnKey(schema, table string) string {
	return schema + "\x00" + table
}
