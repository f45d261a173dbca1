package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Creates the regions and apt_trades tables.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, cleanup, err := setup(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		slog.InfoContext(ctx, "creating schema", "driver", a.cfg.DBDriver)
		if err := a.store.CreateSchema(ctx); err != nil {
			return fmt.Errorf("error creating schema: %w", err)
		}
		slog.InfoContext(ctx, "schema ready")
		return nil
	},
}
