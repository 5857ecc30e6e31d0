package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/litetable/litetable-kvs/internal/litetable"
	"github.com/spf13/viper"
)

const (
	configFileName = "litetable.conf"
	envPrefix      = "LITETABLE"
)

// Backends a server can run on.
const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
	BackendBadger  = "badger"
	BackendSQL     = "sql"
)

// default settings
const (
	DefaultServerAddress    = "127.0.0.1"
	DefaultServerPort       = 9443
	DefaultBackend          = BackendMemory
	DefaultSQLDriver        = "mysql"
	DefaultSQLDSN           = "litetable:litetable@tcp(127.0.0.1:3306)/litetable"
	DefaultBatchHint        = 100
	DefaultSweepInterval    = 10 * time.Minute
	DefaultSweepRetain      = time.Hour
	DefaultMaxParallelTable = 8
)

type Config struct {
	ServerAddress string `mapstructure:"server_address"`
	ServerPort    int    `mapstructure:"server_port"`
	// MetricsPort of the /metrics endpoint. Zero disables it.
	MetricsPort int `mapstructure:"metrics_port"`
	// QueryPort of the text query endpoint. Zero disables it.
	QueryPort int `mapstructure:"query_port"`
	// TLSCertFile and TLSKeyFile enable TLS on the query endpoint.
	TLSCertFile string `mapstructure:"tls_cert_file"`
	TLSKeyFile  string `mapstructure:"tls_key_file"`

	Backend string `mapstructure:"backend"`
	// DataDir holds the WAL, the on-disk databases and the sweep log.
	DataDir   string `mapstructure:"data_dir"`
	SQLDriver string `mapstructure:"sql_driver"`
	SQLDSN    string `mapstructure:"sql_dsn"`

	DefaultBatchHint  int `mapstructure:"default_batch_hint"`
	MaxParallelTables int `mapstructure:"max_parallel_tables"`

	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	SweepRetain   time.Duration `mapstructure:"sweep_retain"`

	VerboseCellLogging bool     `mapstructure:"verbose_cell_logging"`
	Debug              bool     `mapstructure:"debug"`
	Tables             []string `mapstructure:"tables"`
}

// NewConfig loads the configuration in path. An empty path reads litetable.conf from the
// LiteTable directory when it exists; settings missing from the file come from LITETABLE_*
// environment variables and then the defaults.
func NewConfig(path string) (*Config, error) {
	dir, err := litetable.GetLitetableDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get LiteTable directory: %w", err)
	}

	v := viper.New()
	setDefaults(v, dir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		// litetable.conf is plain key=value lines
		if filepath.Ext(path) == ".conf" {
			v.SetConfigType("properties")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Tables = splitTables(cfg.Tables)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("server_address", DefaultServerAddress)
	v.SetDefault("server_port", DefaultServerPort)
	v.SetDefault("metrics_port", 0)
	v.SetDefault("query_port", 0)
	v.SetDefault("tls_cert_file", "")
	v.SetDefault("tls_key_file", "")
	v.SetDefault("backend", DefaultBackend)
	v.SetDefault("data_dir", filepath.Join(dir, "data"))
	v.SetDefault("sql_driver", DefaultSQLDriver)
	v.SetDefault("sql_dsn", DefaultSQLDSN)
	v.SetDefault("default_batch_hint", DefaultBatchHint)
	v.SetDefault("max_parallel_tables", DefaultMaxParallelTable)
	v.SetDefault("sweep_interval", DefaultSweepInterval)
	v.SetDefault("sweep_retain", DefaultSweepRetain)
	v.SetDefault("verbose_cell_logging", false)
	v.SetDefault("debug", false)
	v.SetDefault("tables", []string{})
}

func (c *Config) validate() error {
	var errGrp []error
	switch c.Backend {
	case BackendMemory, BackendLevelDB, BackendBadger, BackendSQL:
	default:
		errGrp = append(errGrp, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		errGrp = append(errGrp, fmt.Errorf("invalid server port %d", c.ServerPort))
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		errGrp = append(errGrp, fmt.Errorf("invalid metrics port %d", c.MetricsPort))
	}
	if c.QueryPort < 0 || c.QueryPort > 65535 {
		errGrp = append(errGrp, fmt.Errorf("invalid query port %d", c.QueryPort))
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		errGrp = append(errGrp, errors.New("tls_cert_file and tls_key_file go together"))
	}
	if c.DataDir == "" && c.Backend != BackendSQL {
		errGrp = append(errGrp, errors.New("data_dir required"))
	}
	if c.Backend == BackendSQL && c.SQLDSN == "" {
		errGrp = append(errGrp, errors.New("sql_dsn required for the sql backend"))
	}
	if c.DefaultBatchHint < 0 {
		errGrp = append(errGrp, errors.New("default_batch_hint cannot be negative"))
	}
	if c.MaxParallelTables < 0 {
		errGrp = append(errGrp, errors.New("max_parallel_tables cannot be negative"))
	}
	if c.SweepInterval <= 0 {
		errGrp = append(errGrp, errors.New("sweep_interval must be positive"))
	}
	if c.SweepRetain < 0 {
		errGrp = append(errGrp, errors.New("sweep_retain cannot be negative"))
	}
	return errors.Join(errGrp...)
}

// splitTables accepts both list values and a single comma separated value.
func splitTables(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, t := range strings.Split(entry, ",") {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}
