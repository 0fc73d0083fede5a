package cli

import (
	"context"
	"os"
	"time"

	"github.com/dmitrijs2005/credkeeper/internal/server/repositories/repomanager"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// DatabaseURLEnv is read when --dsn is not given.
const DatabaseURLEnv = "DATABASE_URL"

// runMigrations is a seam for tests.
var runMigrations = func(ctx context.Context, dsn string, timeout time.Duration) error {
	db, err := repomanager.OpenDB(ctx, dsn, timeout)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()

	if err := repomanager.NewPostgresRepositoryManager().RunMigrations(ctx, db); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	return nil
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	var (
		dsn     string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply all pending migrations to the PostgreSQL database.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dsn == "" {
				dsn = os.Getenv(DatabaseURLEnv)
			}
			if dsn == "" {
				return oops.Code("CONFIG_INVALID").Errorf("--dsn or %s is required", DatabaseURLEnv)
			}

			cmd.Println("Running migrations...")
			if err := runMigrations(cmd.Context(), dsn, timeout); err != nil {
				return err
			}
			cmd.Println("Migrations completed successfully")
			return nil
		},
	}

	cmd.Flags().StringVar(&dsn, "dsn", "", "PostgreSQL connection string (default $"+DatabaseURLEnv+")")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "database connect timeout")

	return cmd
}
