package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kbukum/fuisce/config"
	"github.com/kbukum/fuisce/version"
)

func newInitDBCommand(env *environment) *cobra.Command {
	var dropViews bool
	cmd := &cobra.Command{
		Use:   "init-db",
		Short: "Create the tables and views and run the initializers",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			a, err := env.openApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := a.Close(); err == nil {
					err = cerr
				}
			}()

			ctx, release := a.AppContext(cmd.Context())
			defer func() { release(err) }()

			db := a.DB()
			if dropViews {
				if err := db.DropViews(ctx); err != nil {
					return err
				}
			}
			// A testing app is initialized when it is created.
			if !a.Testing() || dropViews {
				if err := db.Initialize(ctx, a); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized the database at %s.\n", db.Path())
			return nil
		},
	}
	cmd.Flags().BoolVar(&dropViews, "drop-views", false, "Drop the views first so changed definitions are recreated")
	return cmd
}

func newServeCommand(env *environment) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := env.openApp(cmd.Context(), func(cfg *config.Config) {
				if host != "" {
					cfg.Server.Host = host
				}
				if port != 0 {
					cfg.Server.Port = port
				}
			})
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Listen host (overrides server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides server.port)")
	return cmd
}

func newVersionCommand(name string) *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: fmt.Sprintf("Print the version of %s", name),
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), info.Short())
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", name, info.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "Print the version only")
	return cmd
}

func newMigrateCommand(env *environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the SQL migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	// run opens the app and passes its engine to fn.
	run := func(cmd *cobra.Command, fn func(m migrator) error) (err error) {
		a, err := env.openApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.Close(); err == nil {
				err = cerr
			}
		}()
		return fn(migrator{env: env, db: a.DB()})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(m migrator) error { return m.up() })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(m migrator) error { return m.down() })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "steps N",
		Short: "Apply N migrations, or roll back with a negative N (migrate steps -- -1)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid step count %q: %w", args[0], err)
			}
			return run(cmd, func(m migrator) error { return m.steps(n) })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current migration version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(m migrator) error {
				v, dirty, err := m.version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", v, dirty)
				return nil
			})
		},
	})
	return cmd
}
