package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}

func TestNewConfig_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	req := require.New(t)

	cfg, err := NewConfig("")
	req.NoError(err)
	req.Equal(&Config{
		ServerAddress:     DefaultServerAddress,
		ServerPort:        DefaultServerPort,
		Backend:           BackendMemory,
		DataDir:           filepath.Join(home, ".litetable", "data"),
		SQLDriver:         DefaultSQLDriver,
		SQLDSN:            DefaultSQLDSN,
		DefaultBatchHint:  DefaultBatchHint,
		MaxParallelTables: DefaultMaxParallelTable,
		SweepInterval:     DefaultSweepInterval,
		SweepRetain:       DefaultSweepRetain,
	}, cfg)
}

func TestNewConfig_Files(t *testing.T) {
	tests := map[string]struct {
		name     string
		contents string
		check    func(req *require.Assertions, cfg *Config)
	}{
		"litetable.conf": {
			name: configFileName,
			contents: `# server
server_address = 0.0.0.0
server_port = 7000
backend = leveldb
sweep_interval = 5m
debug = true
tables = events, users
`,
			check: func(req *require.Assertions, cfg *Config) {
				req.Equal("0.0.0.0", cfg.ServerAddress)
				req.Equal(7000, cfg.ServerPort)
				req.Equal(BackendLevelDB, cfg.Backend)
				req.Equal(5*time.Minute, cfg.SweepInterval)
				req.True(cfg.Debug)
				req.Equal([]string{"events", "users"}, cfg.Tables)
			},
		},
		"yaml": {
			name: "litetable.yaml",
			contents: `backend: sql
sql_dsn: shared
default_batch_hint: 25
verbose_cell_logging: true
tables:
  - events
`,
			check: func(req *require.Assertions, cfg *Config) {
				req.Equal(BackendSQL, cfg.Backend)
				req.Equal("shared", cfg.SQLDSN)
				req.Equal(25, cfg.DefaultBatchHint)
				req.True(cfg.VerboseCellLogging)
				req.Equal([]string{"events"}, cfg.Tables)
				req.Equal(DefaultServerPort, cfg.ServerPort)
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			req := require.New(t)
			path := writeFile(t, t.TempDir(), tc.name, tc.contents)

			cfg, err := NewConfig(path)
			req.NoError(err)
			tc.check(req, cfg)
		})
	}
}

func TestNewConfig_HomeFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".litetable")
	require.NoError(t, os.MkdirAll(dir, 0750))
	writeFile(t, dir, configFileName, "backend = badger\n")

	cfg, err := NewConfig("")
	require.NoError(t, err)
	require.Equal(t, BackendBadger, cfg.Backend)
}

func TestNewConfig_Environment(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LITETABLE_BACKEND", BackendBadger)
	t.Setenv("LITETABLE_SERVER_PORT", "7443")
	req := require.New(t)

	path := writeFile(t, t.TempDir(), configFileName, "server_address = 10.0.0.1\n")
	cfg, err := NewConfig(path)
	req.NoError(err)
	req.Equal(BackendBadger, cfg.Backend)
	req.Equal(7443, cfg.ServerPort)
	req.Equal("10.0.0.1", cfg.ServerAddress)
}

func TestNewConfig_Invalid(t *testing.T) {
	tests := map[string]struct {
		contents    string
		missing     bool
		expectedErr string
	}{
		"missing file": {
			missing:     true,
			expectedErr: "failed to read config file",
		},
		"unknown backend": {
			contents:    "backend = mongo\n",
			expectedErr: `unknown backend "mongo"`,
		},
		"bad port": {
			contents:    "server_port = 70000\n",
			expectedErr: "invalid server port 70000",
		},
		"negative hint": {
			contents:    "default_batch_hint = -1\n",
			expectedErr: "default_batch_hint cannot be negative",
		},
		"half a key pair": {
			contents:    "tls_cert_file = server.crt\n",
			expectedErr: "tls_cert_file and tls_key_file go together",
		},
		"zero sweep interval": {
			contents:    "sweep_interval = 0s\n",
			expectedErr: "sweep_interval must be positive",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			req := require.New(t)

			path := filepath.Join(t.TempDir(), configFileName)
			if !tc.missing {
				path = writeFile(t, filepath.Dir(path), configFileName, tc.contents)
			}
			cfg, err := NewConfig(path)
			req.Error(err)
			req.Nil(cfg)
			req.Contains(err.Error(), tc.expectedErr)
		})
	}
}
