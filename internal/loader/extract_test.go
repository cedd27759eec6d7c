package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractReferencedTables(t *testing.T) {
	cat := newTestCatalog(t, "energy_daily", "gas_usage", "water")
	ldr := New(cat, newFakeEngine(), Config{}, nil)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "single table",
			query: "SELECT * FROM energy_daily",
			want:  []string{"energy_daily"},
		},
		{
			name:  "case insensitive",
			query: "SELECT * FROM Energy_Daily JOIN WATER USING (source_id)",
			want:  []string{"energy_daily", "water"},
		},
		{
			name:  "whole token only",
			query: "SELECT * FROM energy_daily_v2",
			want:  nil,
		},
		{
			name:  "repeated reference deduplicated",
			query: "SELECT * FROM water w1 JOIN water w2 ON w1.source_id = w2.source_id",
			want:  []string{"water"},
		},
		{
			name:  "no known tables",
			query: "SELECT 1",
			want:  nil,
		},
		{
			// Documented over-selection: a table name inside a string
			// literal still counts as a reference.
			name:  "name inside string literal over-selects",
			query: "SELECT 'gas_usage' AS label",
			want:  []string{"gas_usage"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ldr.ExtractReferencedTables(tt.query))
		})
	}
}
