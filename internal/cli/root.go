// Package cli implements the assetstore command-line interface.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/assetstore/internal/logging"
	"github.com/mesh-intelligence/assetstore/internal/metrics"
	"github.com/mesh-intelligence/assetstore/internal/paths"
	"github.com/mesh-intelligence/assetstore/pkg/asset"
	"github.com/mesh-intelligence/assetstore/pkg/backends"
	"github.com/mesh-intelligence/assetstore/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds the global flag values.
type rootFlags struct {
	configDir   string
	dataDir     string
	backend     string
	org         string
	admin       bool
	logLevel    string
	pretty      bool
	metricsFile string
}

// app carries the state shared by the subcommands of one invocation.
type app struct {
	flags   rootFlags
	config  fileConfig
	logger  zerolog.Logger
	metrics *metrics.Metrics
	gather  *prometheus.Registry
}

// NewRootCmd creates the "assetstore" command with global flags and all
// subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "assetstore",
		Short:         "A versioned store for media package snapshots and properties",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.writeMetrics()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/"+paths.DefaultDataDirName+")")
	pf.StringVar(&a.flags.backend, "backend", "", "storage backend: sqlite, memdb or pebble (overrides config)")
	pf.StringVar(&a.flags.org, "org", "", "organization id (overrides config)")
	pf.BoolVar(&a.flags.admin, "admin", false, "run queries in an administrative scope across organizations")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	pf.BoolVar(&a.flags.pretty, "pretty", false, "human-readable log output")
	pf.StringVar(&a.flags.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newSnapshotCmd(a),
		newPropertyCmd(a),
		newSelectCmd(a),
		newDeleteCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newRestoreCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the matching code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps storage failures to exitSysError and everything else to
// exitUserError.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, types.ErrStoreUnavailable), errors.Is(err, os.ErrPermission):
		return exitSysError
	default:
		return exitUserError
	}
}

// load resolves directories, reads the configuration and builds the logger.
func (a *app) load(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	if a.flags.backend != "" {
		cfg.Backend = a.flags.backend
	}
	if a.flags.org != "" {
		cfg.Organization = a.flags.org
	}
	if a.flags.logLevel != "" {
		cfg.LogLevel = a.flags.logLevel
	}
	cfg.DataDir, err = paths.ResolveDataDir(a.flags.dataDir, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	a.config = cfg
	a.logger = logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: a.flags.pretty,
		Output: cmd.ErrOrStderr(),
	})
	a.gather = prometheus.NewRegistry()
	a.metrics = metrics.New(a.gather)
	return nil
}

// openStore opens the configured backend and wraps it in a Store with the
// configured registry, logging and metrics. The caller must Close it.
func (a *app) openStore() (*asset.Store, error) {
	storeConfig := a.config.storeConfig()
	b, err := backends.Open(storeConfig)
	if err != nil {
		return nil, err
	}
	registry, err := a.config.registry()
	if err != nil {
		b.Close()
		return nil, err
	}
	opts := []asset.Option{
		asset.WithLogger(logging.Component(a.logger, "store")),
		asset.WithRegistry(registry),
		asset.WithImportWorkers(storeConfig.Workers()),
	}
	opts = append(opts, a.metrics.Options()...)
	return asset.New(a.metrics.Backend(b), opts...), nil
}

// scope returns the handle commands run against.
func (a *app) scope(store *asset.Store) (*asset.Scoped, error) {
	if a.flags.admin {
		return store.WithScope(types.AdministrativeScope(a.owner())), nil
	}
	if a.config.Organization == "" {
		return nil, errors.New("no organization: pass --org or set organization in config.yaml")
	}
	return store.ForOrganization(a.config.Organization), nil
}

// owner is the identity destructive operations run under.
func (a *app) owner() string {
	if a.config.Organization != "" {
		return a.config.Organization
	}
	return "admin"
}

func (a *app) writeMetrics() error {
	if a.flags.metricsFile == "" || a.gather == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.flags.metricsFile, a.gather); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
