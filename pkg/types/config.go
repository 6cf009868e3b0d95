package types

import "errors"

// Config holds backend selection and parameters for opening a store.
type Config struct {
	Backend       string `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir       string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	ImportWorkers int    `json:"import_workers,omitempty" yaml:"import_workers,omitempty" mapstructure:"import_workers"`
	LogLevel      string `json:"log_level,omitempty" yaml:"log_level,omitempty" mapstructure:"log_level"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
	BackendMemDB  = "memdb"
	BackendPebble = "pebble"
)

// DefaultImportWorkers bounds the bulk import pool when Config leaves it unset.
const DefaultImportWorkers = 8

// Config validation errors.
var (
	ErrBackendEmpty         = errors.New("backend must not be empty")
	ErrBackendUnknown       = errors.New("unknown backend")
	ErrImportWorkersInvalid = errors.New("import workers must not be negative")
	ErrLogLevelUnknown      = errors.New("unknown log level")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
	BackendMemDB:  true,
	BackendPebble: true,
}

var knownLogLevels = map[string]bool{
	"":      true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.ImportWorkers < 0 {
		return ErrImportWorkersInvalid
	}
	if !knownLogLevels[c.LogLevel] {
		return ErrLogLevelUnknown
	}
	return nil
}

// Workers returns the effective bulk import pool size.
func (c Config) Workers() int {
	if c.ImportWorkers <= 0 {
		return DefaultImportWorkers
	}
	return c.ImportWorkers
}
