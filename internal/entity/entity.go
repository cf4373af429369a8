// Package entity defines the logical entities of the support platform and the
// ordered physical-name candidates used to locate them in drifted tenant
// schemas.
package entity

import (
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"

	"github.com/therciotr/TrMultichat-sub001/internal/sqlutil"
)

// Entity is an application-level name for a business concept, independent of
// its physical storage name. Defined at compile time, immutable.
type Entity string

const (
	Queue              Entity = "Queue"
	QueueOption        Entity = "QueueOption"
	WhatsappConnection Entity = "WhatsappConnection"
	Tag                Entity = "Tag"
	ContactQueue       Entity = "ContactQueue"
)

func (e Entity) String() string { return string(e) }

// Descriptor describes how a logical entity maps onto physical storage
// guesses. Candidate order encodes priority: the canonical quoted name is
// always tried first, legacy spellings last.
type Descriptor struct {
	Entity Entity
	// Canonical is the actual-cased table name of the canonical schema.
	Canonical string
	// Legacy holds extra physical-name guesses from older naming conventions.
	Legacy []string
	// TenantColumns are the accepted spellings of the tenant id column,
	// in preference order.
	TenantColumns []string
	// Pattern holds substrings for fuzzy catalog lookup when no listed
	// candidate matches.
	Pattern []string
}

var catalog = map[Entity]Descriptor{
	Queue: {
		Entity:        Queue,
		Canonical:     "Queues",
		TenantColumns: []string{"companyId", "company_id", "tenantId"},
		Pattern:       []string{"queue"},
	},
	QueueOption: {
		Entity:        QueueOption,
		Canonical:     "QueueOptions",
		Legacy:        []string{"chatbot_options"},
		TenantColumns: []string{"companyId", "company_id"},
		Pattern:       []string{"queue", "option"},
	},
	WhatsappConnection: {
		Entity:        WhatsappConnection,
		Canonical:     "Whatsapps",
		Legacy:        []string{"whatsapp_sessions"},
		TenantColumns: []string{"companyId", "company_id", "tenantId"},
		Pattern:       []string{"whatsapp"},
	},
	Tag: {
		Entity:        Tag,
		Canonical:     "Tags",
		TenantColumns: []string{"companyId", "company_id"},
		Pattern:       []string{"tag"},
	},
	ContactQueue: {
		Entity:        ContactQueue,
		Canonical:     "ContactQueues",
		Legacy:        []string{"contact_queue"},
		TenantColumns: []string{"companyId", "company_id"},
		Pattern:       []string{"contact", "queue"},
	},
}

// Lookup returns the descriptor for a logical entity.
func Lookup(e Entity) (Descriptor, bool) {
	d, ok := catalog[e]
	return d, ok
}

// All returns every registered descriptor in a stable order.
func All() []Descriptor {
	order := []Entity{Queue, QueueOption, WhatsappConnection, Tag, ContactQueue}
	out := make([]Descriptor, 0, len(order))
	for _, e := range order {
		out = append(out, catalog[e])
	}
	return out
}

// Candidates returns the ordered physical identifier guesses for the entity.
// Each element is ready for direct interpolation into SQL: the canonical name
// is quoted to preserve its casing, the rest are unquoted lowercase variants
// that the database folds itself.
func (d Descriptor) Candidates() []string {
	lower := strings.ToLower(d.Canonical)
	singular := inflection.Singular(lower)

	cands := []string{
		sqlutil.QuoteIdentifier(d.Canonical),
		lower,
		singular,
		SnakeCase(d.Canonical),
	}
	cands = append(cands, d.Legacy...)

	seen := make(map[string]struct{}, len(cands))
	out := cands[:0]
	for _, c := range cands {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// SnakeCase converts a CamelCase physical name to the snake_case convention
// used by the oldest tenant schemas.
func SnakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
