package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindParams(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		params map[string]any
		want   string
	}{
		{
			name:  "no placeholders",
			query: "SELECT 1",
			want:  "SELECT 1",
		},
		{
			name:   "string parameter quoted and escaped",
			query:  "SELECT * FROM a WHERE source_id = :src",
			params: map[string]any{"src": "o'brien"},
			want:   "SELECT * FROM a WHERE source_id = 'o''brien'",
		},
		{
			name:   "numeric parameters unquoted",
			query:  "SELECT * FROM a WHERE value > :min AND value < :max",
			params: map[string]any{"min": 10, "max": 99.5},
			want:   "SELECT * FROM a WHERE value > 10 AND value < 99.5",
		},
		{
			name:   "nil becomes NULL",
			query:  "SELECT * FROM a WHERE unit = :u",
			params: map[string]any{"u": nil},
			want:   "SELECT * FROM a WHERE unit = NULL",
		},
		{
			name:   "bool",
			query:  "SELECT :flag",
			params: map[string]any{"flag": true},
			want:   "SELECT TRUE",
		},
		{
			name:   "time renders as timestamp literal",
			query:  "SELECT * FROM a WHERE period_start >= :since",
			params: map[string]any{"since": time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)},
			want:   "SELECT * FROM a WHERE period_start >= TIMESTAMP '2026-02-01 12:00:00'",
		},
		{
			name:  "double colon cast is not a placeholder",
			query: "SELECT value::INTEGER FROM a",
			want:  "SELECT value::INTEGER FROM a",
		},
		{
			name:   "repeated placeholder",
			query:  "SELECT :x + :x",
			params: map[string]any{"x": 2},
			want:   "SELECT 2 + 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BindParams(tt.query, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBindParamsMissing(t *testing.T) {
	_, err := BindParams("SELECT * FROM a WHERE source_id = :src", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "src")
}
