package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/cognitrend/internal/adapters/repository"
)

func init() {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema of the configured SQL store",
		Args:  cobra.NoArgs,
		Run:   runMigrate,
	}

	RootCmd.AddCommand(cmd)
}

func runMigrate(cmd *cobra.Command, _ []string) {
	ctx := cmd.Context()
	deps, err := bootstrap(ctx, true)
	if err != nil {
		exitErr("startup", err)
	}
	defer deps.close()

	migrated, err := migrate(ctx, deps.store)
	if err != nil {
		deps.close()
		exitErr("migrate", err)
	}
	if migrated {
		fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", deps.cfg.Store)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "store %q has no schema to migrate\n", deps.cfg.Store)
}

// migrate applies the schema when the store supports it.
func migrate(ctx context.Context, store repository.Store) (bool, error) {
	m, ok := store.(repository.Migrator)
	if !ok {
		return false, nil
	}
	if err := m.Migrate(ctx); err != nil {
		return false, err
	}
	return true, nil
}
