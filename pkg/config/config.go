package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ledgerworks/closeflow/pkg/telemetry"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CLOSEFLOW_"

// DefaultDotEnv is read when no explicit env file is given.
const DefaultDotEnv = ".env"

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: StoreSQLite,
			SQLite: SQLiteConfig{
				Path:            "closeflow.db",
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Telemetry: TelemetryConfig{
			Environment:     "development",
			LogLevel:        "info",
			LogFormat:       "console",
			TracingExporter: "none",
			SamplingRate:    1.0,
		},
		Server: ServerConfig{
			ListenAddr:     "127.0.0.1:8080",
			RequestTimeout: 60 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, an
// optional env file and CLOSEFLOW_* environment variables, in that order.
// A missing explicit file is an error; a missing default .env is not.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := loadDotEnv(envFile); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadDotEnv(envFile string) error {
	explicit := envFile != ""
	if !explicit {
		envFile = DefaultDotEnv
	}

	if err := godotenv.Load(envFile); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}
	return nil
}

// applyEnv overlays environment variables. LOG_LEVEL is honoured unprefixed.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str(EnvPrefix+"STORE_DRIVER", &c.Store.Driver)
	str(EnvPrefix+"SQLITE_PATH", &c.Store.SQLite.Path)
	str(EnvPrefix+"API_URL", &c.Store.HTTP.APIURL)
	str(EnvPrefix+"API_TOKEN", &c.Store.HTTP.APIToken)
	str(EnvPrefix+"WORKSPACE_ID", &c.Store.HTTP.WorkspaceID)
	str(EnvPrefix+"STF_ID", &c.Store.HTTP.STFID)
	str(EnvPrefix+"CATALOG", &c.Catalog.Path)
	str(EnvPrefix+"LISTEN_ADDR", &c.Server.ListenAddr)
	str(EnvPrefix+"ENVIRONMENT", &c.Telemetry.Environment)
	str("LOG_LEVEL", &c.Telemetry.LogLevel)
	str(EnvPrefix+"LOG_LEVEL", &c.Telemetry.LogLevel)
	str(EnvPrefix+"LOG_FORMAT", &c.Telemetry.LogFormat)
	str(EnvPrefix+"TRACING_EXPORTER", &c.Telemetry.TracingExporter)
	str(EnvPrefix+"TRACING_ENDPOINT", &c.Telemetry.TracingEndpoint)

	if v, ok := lookup(EnvPrefix + "POLICY_PATHS"); ok && v != "" {
		c.Policy.Paths = splitList(v)
		c.Policy.Enabled = true
	}

	bools := map[string]*bool{
		EnvPrefix + "POLICY_ENABLED":  &c.Policy.Enabled,
		EnvPrefix + "POLICY_WATCH":    &c.Policy.Watch,
		EnvPrefix + "METRICS_ENABLED": &c.Telemetry.MetricsEnabled,
		EnvPrefix + "EVENTS_ENABLED":  &c.Telemetry.EventsEnabled,
	}
	for key, dst := range bools {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = b
		}
	}

	if v, ok := lookup(EnvPrefix + "HTTP_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sHTTP_TIMEOUT: %w", EnvPrefix, err)
		}
		c.Store.HTTP.Timeout = d
	}

	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks struct tags and the cross-field store requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	switch c.Store.Driver {
	case StoreSQLite:
		if c.Store.SQLite.Path == "" {
			return fmt.Errorf("invalid configuration: store.sqlite.path is required for the sqlite driver")
		}
	case StoreHTTP:
		if c.Store.HTTP.APIURL == "" || c.Store.HTTP.WorkspaceID == "" {
			return fmt.Errorf("invalid configuration: store.http.api_url and store.http.workspace_id are required for the http driver")
		}
	}

	if c.Telemetry.TracingExporter == "otlp" && c.Telemetry.TracingEndpoint == "" {
		return fmt.Errorf("invalid configuration: telemetry.tracing_endpoint is required for the otlp exporter")
	}

	return nil
}

// ToTelemetry maps the file settings onto a telemetry configuration.
func (c *Config) ToTelemetry(version string) *telemetry.Config {
	tc := telemetry.DefaultConfig()
	if version != "" {
		tc.ServiceVersion = version
	}

	t := c.Telemetry
	if t.Environment != "" {
		tc.Environment = t.Environment
	}
	if t.LogLevel != "" {
		tc.Logging.Level = t.LogLevel
	}
	if t.LogFormat != "" {
		tc.Logging.Format = t.LogFormat
	}
	if t.TracingExporter != "" && t.TracingExporter != "none" {
		tc.Tracing.Enabled = true
		tc.Tracing.Exporter = t.TracingExporter
		tc.Tracing.Endpoint = t.TracingEndpoint
	}
	if t.SamplingRate > 0 {
		tc.Tracing.SamplingRate = t.SamplingRate
	}
	tc.Metrics.Enabled = t.MetricsEnabled
	tc.Events.Enabled = t.EventsEnabled

	return tc
}
