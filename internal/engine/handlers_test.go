package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHandlers(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr string
	}{
		{
			name:  "sequence",
			input: "- Compile\n- Cook\n",
			want:  []string{"Compile", "Cook"},
		},
		{
			name:  "mapping",
			input: "handlers:\n  - Compile\n  - ' Cook '\n",
			want:  []string{"Compile", "Cook"},
		},
		{
			name:  "empty document",
			input: "",
			want:  nil,
		},
		{
			name:    "scalar",
			input:   "Compile",
			wantErr: "handler table must be a list",
		},
		{
			name:    "blank entry",
			input:   "- Compile\n- ''\n",
			wantErr: "handler 1 is empty",
		},
		{
			name:    "invalid yaml",
			input:   "- [",
			wantErr: "failed to parse handler table",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHandlers([]byte(tt.input))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadHandlers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handlers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- Compile\n- Cook\n"), 0o600))

	got, err := LoadHandlers(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Compile", "Cook"}, got)

	_, err = LoadHandlers(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read handler table")
}
