// Command patternctl is the operator CLI of the pattern catalog: it applies
// migrations, seeds definitions and builds export bundles offline.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/pattern-catalog/pkg/app"
	"github.com/ekaya-inc/pattern-catalog/pkg/config"
	"github.com/ekaya-inc/pattern-catalog/pkg/logging"
	"github.com/ekaya-inc/pattern-catalog/pkg/models"
)

// Version is set at build time via ldflags
var Version = "dev"

// operator is the principal every CLI command acts as.
var operator = models.Principal{ID: "patternctl", Name: models.SystemDefaultAuthor, Role: models.RoleAdmin}

var (
	configPath string
	logLevel   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "patternctl",
	Short:         "Operate a pattern catalog database",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config.yaml (empty reads the environment only)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")

	rootCmd.AddCommand(migrateCmd, seedCmd, exportCmd)
}

// newApp reads the config and connects to the catalog. The caller must call
// the returned cleanup.
func newApp(ctx context.Context, migrate bool) (*app.App, context.Context, func(), error) {
	cfg, err := config.LoadFrom(configPath, Version)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Env, logLevel)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("building logger: %w", err)
	}

	a, err := app.New(ctx, cfg, logger.Named("patternctl"), app.Options{Migrate: migrate})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing app: %w", err)
	}

	scoped, release, err := a.Scopes.WithScope(ctx)
	if err != nil {
		a.Close()
		return nil, nil, nil, fmt.Errorf("acquiring database connection: %s", logging.SanitizeError(err))
	}

	cleanup := func() {
		release()
		a.Close()
		_ = logger.Sync()
	}
	return a, scoped, cleanup, nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, cleanup, err := newApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer cleanup()

		fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
		return nil
	},
}
