package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidatesOrder(t *testing.T) {
	d, ok := Lookup(Queue)
	require.True(t, ok)

	cands := d.Candidates()
	require.NotEmpty(t, cands)

	// The canonical quoted name always leads; the first match wins downstream,
	// so this ordering is the tie-break between coexisting same-purpose tables.
	assert.Equal(t, `"Queues"`, cands[0])
	assert.Equal(t, "queues", cands[1])
	assert.Contains(t, cands, "queue")
}

func TestCandidatesIncludeLegacyLast(t *testing.T) {
	d, ok := Lookup(QueueOption)
	require.True(t, ok)

	cands := d.Candidates()
	assert.Equal(t, `"QueueOptions"`, cands[0])
	assert.Equal(t, "chatbot_options", cands[len(cands)-1])
	assert.Contains(t, cands, "queue_options")
}

func TestCandidatesDeduplicated(t *testing.T) {
	for _, d := range All() {
		seen := map[string]int{}
		for _, c := range d.Candidates() {
			seen[c]++
		}
		for c, n := range seen {
			assert.Equalf(t, 1, n, "entity %s candidate %q repeated", d.Entity, c)
		}
	}
}

func TestSnakeCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Queues", "queues"},
		{"QueueOptions", "queue_options"},
		{"ContactQueues", "contact_queues"},
		{"already_snake", "already_snake"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SnakeCase(tt.in), tt.in)
	}
}

func TestAllHaveTenantColumns(t *testing.T) {
	for _, d := range All() {
		assert.NotEmptyf(t, d.TenantColumns, "entity %s has no tenant column candidates", d.Entity)
		assert.Equalf(t, "companyId", d.TenantColumns[0], "entity %s should prefer the canonical tenant column", d.Entity)
	}
}
