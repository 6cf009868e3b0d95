package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/assetstore/internal/paths"
	"github.com/mesh-intelligence/assetstore/pkg/asset"
	"github.com/mesh-intelligence/assetstore/pkg/types"
)

// Config keys.
const (
	cfgKeyBackend       = "backend"
	cfgKeyDataDir       = "data_dir"
	cfgKeyLogLevel      = "log_level"
	cfgKeyImportWorkers = "import_workers"
	cfgKeyOrganization  = "organization"
	cfgKeyProperties    = "properties"
)

// defaultOrganization is the organization a fresh config names.
const defaultOrganization = "mh_default_org"

// fileConfig is the content of config.yaml.
type fileConfig struct {
	Backend       string           `mapstructure:"backend" yaml:"backend"`
	DataDir       string           `mapstructure:"data_dir" yaml:"data_dir,omitempty"`
	LogLevel      string           `mapstructure:"log_level" yaml:"log_level,omitempty"`
	ImportWorkers int              `mapstructure:"import_workers" yaml:"import_workers,omitempty"`
	Organization  string           `mapstructure:"organization" yaml:"organization,omitempty"`
	Properties    []propertyConfig `mapstructure:"properties" yaml:"properties,omitempty"`
}

// propertyConfig declares one property definition for the registry.
type propertyConfig struct {
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
	Name      string `mapstructure:"name" yaml:"name"`
	Type      string `mapstructure:"type" yaml:"type"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Backend:      types.BackendSQLite,
		LogLevel:     "info",
		Organization: defaultOrganization,
	}
}

// loadConfig reads config.yaml from configDir, writing a default file first
// when none exists.
func loadConfig(configDir string) (fileConfig, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fileConfig{}, fmt.Errorf("create config dir: %w", err)
	}
	if err := writeConfigIfMissing(paths.ConfigFile(configDir), defaultFileConfig()); err != nil {
		return fileConfig{}, fmt.Errorf("write default config: %w", err)
	}

	def := defaultFileConfig()
	v := viper.New()
	v.SetDefault(cfgKeyBackend, def.Backend)
	v.SetDefault(cfgKeyLogLevel, def.LogLevel)
	v.SetDefault(cfgKeyOrganization, def.Organization)
	v.SetDefault(cfgKeyImportWorkers, 0)
	v.SetConfigFile(paths.ConfigFile(configDir))
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ASSETSTORE")
	for _, k := range []string{cfgKeyBackend, cfgKeyLogLevel, cfgKeyOrganization, cfgKeyImportWorkers} {
		if err := v.BindEnv(k); err != nil {
			return fileConfig{}, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fileConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg fileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return fileConfig{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// writeConfigIfMissing creates path with cfg unless it exists.
func writeConfigIfMissing(path string, cfg fileConfig) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# assetstore configuration\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}

// storeConfig returns the backend parameters of the configuration.
func (c fileConfig) storeConfig() types.Config {
	return types.Config{
		Backend:       c.Backend,
		DataDir:       c.DataDir,
		ImportWorkers: c.ImportWorkers,
		LogLevel:      c.LogLevel,
	}
}

// registry builds the property registry from the declared definitions.
func (c fileConfig) registry() (*asset.Registry, error) {
	defs := make([]types.PropertyDefinition, 0, len(c.Properties))
	for _, p := range c.Properties {
		vt, err := types.ParseValueType(p.Type)
		if err != nil {
			return nil, fmt.Errorf("property %s:%s: %w", p.Namespace, p.Name, err)
		}
		defs = append(defs, types.PropertyDefinition{Namespace: p.Namespace, Name: p.Name, ValueType: vt})
	}
	return asset.NewRegistry(defs...)
}
