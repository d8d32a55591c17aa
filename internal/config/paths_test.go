package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaths_HomeOverride(t *testing.T) {
	t.Setenv("LEADGRID_HOME", "/tmp/leadgrid-test")

	paths, err := ResolvePaths()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/leadgrid-test", paths.Base)
	assert.Equal(t, filepath.Join("/tmp/leadgrid-test", "config.yaml"), paths.Config)
	assert.Equal(t, filepath.Join("/tmp/leadgrid-test", "data"), paths.Data)
	assert.Equal(t, filepath.Join("/tmp/leadgrid-test", "logs"), paths.Logs)
}

func TestDatabasePath(t *testing.T) {
	paths := Paths{Data: "/var/lib/leadgrid"}

	cfg := Defaults()
	assert.Equal(t, filepath.Join("/var/lib/leadgrid", "leadgrid.db"), paths.DatabasePath(&cfg))

	cfg.Database.Path = "/custom/db.sqlite"
	assert.Equal(t, "/custom/db.sqlite", paths.DatabasePath(&cfg))
}

func TestEnsureDirs(t *testing.T) {
	base := t.TempDir()
	paths := Paths{
		Base:        base,
		Credentials: filepath.Join(base, "credentials"),
		Logs:        filepath.Join(base, "logs"),
		Data:        filepath.Join(base, "data"),
	}

	require.NoError(t, paths.EnsureDirs())
	assert.DirExists(t, paths.Credentials)
	assert.DirExists(t, paths.Logs)
	assert.DirExists(t, paths.Data)
}

// --- ParseConfigPath tests ---

func TestParseConfigPath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"single segment", "server", []string{"server"}, false},
		{"two segments", "server.port", []string{"server", "port"}, false},
		{"three segments", "server.auth.mode", []string{"server", "auth", "mode"}, false},
		{"empty", "", nil, true},
		{"empty segment", "server..port", nil, true},
		{"leading dot", ".server", nil, true},
		{"trailing dot", "server.", nil, true},
		{"blocked __proto__", "foo.__proto__.bar", nil, true},
		{"blocked prototype", "prototype.x", nil, true},
		{"blocked constructor", "constructor", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfigPath(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				var ce *ConfigError
				assert.ErrorAs(t, err, &ce)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// --- GetValueAtPath tests ---

func TestGetValueAtPath(t *testing.T) {
	root := map[string]any{
		"server": map[string]any{
			"port": 18600,
			"auth": map[string]any{
				"mode": "token",
			},
		},
		"simple": "value",
	}

	tests := []struct {
		name string
		path []string
		want any
		ok   bool
	}{
		{"nested value", []string{"server", "port"}, 18600, true},
		{"deeply nested", []string{"server", "auth", "mode"}, "token", true},
		{"top level", []string{"simple"}, "value", true},
		{"missing key", []string{"nonexistent"}, nil, false},
		{"missing nested", []string{"server", "nonexistent"}, nil, false},
		{"non-map intermediate", []string{"simple", "sub"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, ok := GetValueAtPath(root, tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, val)
			}
		})
	}
}

// --- SetValueAtPath tests ---

func TestSetValueAtPath(t *testing.T) {
	root := map[string]any{}

	SetValueAtPath(root, []string{"server", "port"}, 9000)
	val, ok := GetValueAtPath(root, []string{"server", "port"})
	require.True(t, ok)
	assert.Equal(t, 9000, val)

	// Overwrite existing
	SetValueAtPath(root, []string{"server", "port"}, 9001)
	val, _ = GetValueAtPath(root, []string{"server", "port"})
	assert.Equal(t, 9001, val)

	// Non-map intermediate gets replaced
	SetValueAtPath(root, []string{"server", "port", "sub"}, "x")
	val, ok = GetValueAtPath(root, []string{"server", "port", "sub"})
	require.True(t, ok)
	assert.Equal(t, "x", val)
}

// --- UnsetValueAtPath tests ---

func TestUnsetValueAtPath(t *testing.T) {
	root := map[string]any{
		"server": map[string]any{
			"port": 9000,
			"bind": "lan",
		},
	}

	assert.True(t, UnsetValueAtPath(root, []string{"server", "port"}))
	_, ok := GetValueAtPath(root, []string{"server", "port"})
	assert.False(t, ok)

	// Sibling untouched
	val, ok := GetValueAtPath(root, []string{"server", "bind"})
	require.True(t, ok)
	assert.Equal(t, "lan", val)

	assert.False(t, UnsetValueAtPath(root, []string{"server", "missing"}))
	assert.False(t, UnsetValueAtPath(root, []string{"missing", "key"}))
}
