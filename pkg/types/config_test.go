package types

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigValidate(t *testing.T) {
	dataDir := filepath.Join("home", "cook", ".mealbook", "data")
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{"meal store in data dir", Config{Backend: BackendSQLite, DataDir: dataDir}, nil},
		{"data dir left to the caller", Config{Backend: BackendSQLite}, nil},
		{"data dir without backend", Config{DataDir: dataDir}, ErrBackendEmpty},
		{"browser storage is not a backend", Config{Backend: "localStorage", DataDir: dataDir}, ErrBackendUnknown},
		{"backend names are case sensitive", Config{Backend: "SQLite", DataDir: dataDir}, ErrBackendUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConfigUnknownBackendNamed(t *testing.T) {
	err := Config{Backend: "localStorage"}.Validate()
	require.ErrorIs(t, err, ErrBackendUnknown)
	assert.Contains(t, err.Error(), `"localStorage"`)
}

func TestConfigFromYAML(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte("backend: sqlite\ndata_dir: /var/lib/mealbook\n"), &cfg))
	assert.Equal(t, Config{Backend: BackendSQLite, DataDir: "/var/lib/mealbook"}, cfg)
	assert.NoError(t, cfg.Validate())
}
