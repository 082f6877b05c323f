package cli

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/kbukum/fuisce/app"
	"github.com/kbukum/fuisce/config"
	"github.com/kbukum/fuisce/database"
	"github.com/kbukum/fuisce/database/migration"
)

const defaultName = "fuisce"

// Option configures the root command.
type Option func(*options)

type options struct {
	name          string
	loaderOpts    []config.LoaderOption
	migrations    fs.FS
	migrationsDir string
	migrationOpts []migration.Option
}

// WithName sets the executable name, which is also the app name used to
// find the configuration files.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLoaderOptions adds options for loading the configuration.
func WithLoaderOptions(opts ...config.LoaderOption) Option {
	return func(o *options) { o.loaderOpts = append(o.loaderOpts, opts...) }
}

// WithMigrations adds the migrate command, which applies the SQL migrations
// found in dir of fsys.
func WithMigrations(fsys fs.FS, dir string, opts ...migration.Option) Option {
	return func(o *options) {
		o.migrations = fsys
		o.migrationsDir = dir
		o.migrationOpts = opts
	}
}

// environment is what every subcommand needs to build the app.
type environment struct {
	factory    app.Factory
	opts       *options
	configFile string
	envFile    string
}

// NewRootCommand returns the command line of an application built by
// factory: init-db, serve, version and, with WithMigrations, migrate.
func NewRootCommand(factory app.Factory, opts ...Option) *cobra.Command {
	o := &options{name: defaultName}
	for _, opt := range opts {
		opt(o)
	}
	env := &environment{factory: factory, opts: o}

	cmd := &cobra.Command{
		Use:   o.name,
		Short: fmt.Sprintf("Manage the %s application", o.name),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.SilenceUsage = true
	cmd.SuggestionsMinimumDistance = 1

	cmd.PersistentFlags().StringVarP(&env.configFile, "config", "c", "", "Configuration file path")
	cmd.PersistentFlags().StringVar(&env.envFile, "env-file", "", "Environment file path")

	cmd.AddCommand(newInitDBCommand(env))
	cmd.AddCommand(newServeCommand(env))
	cmd.AddCommand(newVersionCommand(o.name))
	if o.migrations != nil {
		cmd.AddCommand(newMigrateCommand(env))
	}
	return cmd
}

// loadConfig loads the configuration and applies overrides before validation.
func (e *environment) loadConfig(override func(*config.Config)) (*config.Config, error) {
	loaderOpts := append([]config.LoaderOption(nil), e.opts.loaderOpts...)
	if e.configFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(e.configFile))
	}
	if e.envFile != "" {
		loaderOpts = append(loaderOpts, config.WithEnvFile(e.envFile))
	}

	cfg := &config.Config{Name: e.opts.name}
	if err := config.LoadConfig(e.opts.name, cfg, loaderOpts...); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = e.opts.name
	}
	if override != nil {
		override(cfg)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openApp builds the app. A non-testing app needs the default interface, so
// it is created from the configuration when the program has not done so.
func (e *environment) openApp(ctx context.Context, override func(*config.Config)) (*app.App, error) {
	cfg, err := e.loadConfig(override)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if !cfg.Testing && database.DefaultInterface() == nil {
		database.CreateDefaultInterface(database.WithConfig(cfg.Database.Config))
	}
	a, err := e.factory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create app: %w", err)
	}
	if a.DB() == nil {
		_ = a.Close()
		return nil, fmt.Errorf("create app: %w", database.ErrNotSetUp)
	}
	return a, nil
}
