package config

import (
	"fmt"
	"strings"
	"time"
)

// Store drivers.
const (
	StoreSQLite = "sqlite"
	StoreHTTP   = "http"
)

// Config is the closeflow runtime configuration.
type Config struct {
	// Store selects and configures the task store.
	Store StoreConfig `yaml:"store" validate:"required"`

	// Catalog points at an optional custom task template catalog.
	Catalog CatalogConfig `yaml:"catalog"`

	// Policy configures close-control policies.
	Policy PolicyConfig `yaml:"policy"`

	// Telemetry configures logging, tracing and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Server configures the HTTP operation surface.
	Server ServerConfig `yaml:"server"`
}

// StoreConfig configures the task store.
type StoreConfig struct {
	// Driver is "sqlite" for a local database or "http" for the workspace SQL API.
	Driver string `yaml:"driver" validate:"required,oneof=sqlite http"`

	// SQLite configures the local database.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// HTTP configures the workspace SQL API client.
	HTTP HTTPStoreConfig `yaml:"http"`
}

// SQLiteConfig configures the local SQLite store.
type SQLiteConfig struct {
	Path            string        `yaml:"path"`
	MaxOpenConns    int           `yaml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `yaml:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// HTTPStoreConfig configures the workspace SQL API client.
type HTTPStoreConfig struct {
	APIURL          string        `yaml:"api_url" validate:"omitempty,url"`
	APIToken        string        `yaml:"api_token"`
	WorkspaceID     string        `yaml:"workspace_id"`
	STFID           string        `yaml:"stf_id"`
	Timeout         time.Duration `yaml:"timeout" validate:"gte=0"`
	MaxAttempts     uint          `yaml:"max_attempts" validate:"lte=10"`
	InitialInterval time.Duration `yaml:"initial_interval" validate:"gte=0"`
	MaxInterval     time.Duration `yaml:"max_interval" validate:"gte=0"`
}

// CatalogConfig configures the task template catalog.
type CatalogConfig struct {
	// Path is a .cue, .yaml or .json catalog file. Empty uses the built-in catalog.
	Path string `yaml:"path"`
}

// PolicyConfig configures close-control policies.
type PolicyConfig struct {
	// Enabled turns policy evaluation on.
	Enabled bool `yaml:"enabled"`

	// Paths are policy files or directories loaded on top of the built-in controls.
	Paths []string `yaml:"paths" validate:"dive,required"`

	// Watch reloads Paths on change while serving.
	Watch bool `yaml:"watch"`
}

// TelemetryConfig is the file form of the telemetry settings.
type TelemetryConfig struct {
	Environment     string  `yaml:"environment"`
	LogLevel        string  `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error fatal"`
	LogFormat       string  `yaml:"log_format" validate:"omitempty,oneof=console json"`
	TracingExporter string  `yaml:"tracing_exporter" validate:"omitempty,oneof=otlp stdout none"`
	TracingEndpoint string  `yaml:"tracing_endpoint"`
	SamplingRate    float64 `yaml:"sampling_rate" validate:"gte=0,lte=1"`
	MetricsEnabled  bool    `yaml:"metrics_enabled"`
	EventsEnabled   bool    `yaml:"events_enabled"`
}

// ServerConfig configures `closeflow serve`.
type ServerConfig struct {
	ListenAddr     string        `yaml:"listen_addr" validate:"required,hostname_port"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gte=0"`
}

// CatalogFile is the on-disk form of a task template catalog.
type CatalogFile struct {
	// Version is an optional catalog version label.
	Version string `json:"version,omitempty" yaml:"version"`

	// Templates are the task templates in declaration order.
	Templates []TemplateConfig `json:"templates" yaml:"templates" validate:"required,min=1,dive"`
}

// TemplateConfig is one task template in a catalog file.
type TemplateConfig struct {
	Name         string   `json:"name" yaml:"name" validate:"required"`
	Category     string   `json:"category" yaml:"category" validate:"required,uppercase"`
	Day          int      `json:"day" yaml:"day" validate:"min=1"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies" validate:"dive,required"`
}

// ValidationError represents a validation error with location information.
type ValidationError struct {
	// File is the source file path.
	File string `json:"file,omitempty"`

	// Line is the line number (1-indexed).
	Line int `json:"line,omitempty"`

	// Column is the column number (1-indexed).
	Column int `json:"column,omitempty"`

	// Path is the field path to the error (e.g., "templates[3].day").
	Path string `json:"path,omitempty"`

	// Message is the error message.
	Message string `json:"message"`
}

// Error implements the error interface.
func (v ValidationError) Error() string {
	var loc string
	switch {
	case v.File != "" && v.Line > 0:
		loc = fmt.Sprintf("%s:%d:%d: ", v.File, v.Line, v.Column)
	case v.File != "":
		loc = v.File + ": "
	}
	if v.Path != "" {
		return fmt.Sprintf("%s%s: %s", loc, v.Path, v.Message)
	}
	return loc + v.Message
}

// ValidationErrors is a list of catalog validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i := range v {
		msgs[i] = v[i].Error()
	}
	return strings.Join(msgs, "; ")
}
