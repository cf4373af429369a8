// Package legacy provides the declarative object-mapping fallback data path.
// It is consulted only after the candidate iteration executor has exhausted
// every raw-SQL candidate with undefined-table outcomes; some long-lived
// tenants still run schemas only the mapping era knows how to address.
package legacy

import (
	"sort"
)

// Mapping declaratively describes the legacy data path for one logical
// entity: its physical table, selectable columns, primary key, and the
// column the mapping layer's own filter mechanism scopes tenants by.
type Mapping struct {
	Entity     string
	Table      string
	PrimaryKey string
	// TenantColumn is empty for tables that are not tenant-owned.
	TenantColumn string
	Columns      []string
}

// Registry looks mappings up by logical entity name.
type Registry struct {
	mappings map[string]Mapping
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{mappings: map[string]Mapping{}}
}

// Register adds or replaces the mapping for an entity.
func (r *Registry) Register(m Mapping) {
	r.mappings[m.Entity] = m
}

// Lookup returns the mapping registered for an entity.
func (r *Registry) Lookup(entity string) (Mapping, bool) {
	m, ok := r.mappings[entity]
	return m, ok
}

// Entities returns the registered entity names, sorted.
func (r *Registry) Entities() []string {
	out := make([]string, 0, len(r.mappings))
	for name := range r.mappings {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry returns the mappings for the legacy-era schema the platform
// still encounters in the oldest tenant databases.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Mapping{
		Entity:       "Queue",
		Table:        "queues",
		PrimaryKey:   "id",
		TenantColumn: "company_id",
		Columns:      []string{"id", "name", "color", "greeting_message", "schedules", "company_id", "created_at", "updated_at"},
	})
	r.Register(Mapping{
		Entity:       "QueueOption",
		Table:        "queue_options",
		PrimaryKey:   "id",
		TenantColumn: "company_id",
		Columns:      []string{"id", "title", "message", "option", "queue_id", "parent_id", "company_id"},
	})
	r.Register(Mapping{
		Entity:       "WhatsappConnection",
		Table:        "whatsapps",
		PrimaryKey:   "id",
		TenantColumn: "company_id",
		Columns:      []string{"id", "name", "session", "status", "is_default", "queue_id", "company_id", "created_at", "updated_at"},
	})
	return r
}
