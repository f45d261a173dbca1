package commands

import (
	"fmt"
	"log/slog"

	"github.com/ThiagoRGoveia/apt-trades/internal/regions"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	regionsCmd.AddCommand(regionsImportCmd, regionsListCmd)
	rootCmd.AddCommand(regionsCmd)
}

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Manages the reference list of regions.",
}

var regionsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Imports the legal-dong code file into the regions table.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, cleanup, err := setup(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		list, checksum, err := regions.LoadFile(args[0])
		if err != nil {
			return err
		}

		served := 0
		for _, r := range list {
			if r.APIServed {
				served++
			}
		}
		slog.InfoContext(ctx, "parsed region file", "file", args[0], "checksum", checksum, "regions", len(list), "api_served", served)

		if err := a.store.UpsertRegions(ctx, list); err != nil {
			return fmt.Errorf("failed to store regions: %w", err)
		}
		slog.InfoContext(ctx, "regions imported", "regions", len(list))
		return nil
	},
}

var regionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the stored regions in reference order.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, cleanup, err := setup(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		list, err := a.store.Regions(ctx)
		if err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{"Code", "Name", "API served"})
		for _, r := range list {
			t.AppendRow(table.Row{r.Code, r.Name, r.APIServed})
		}
		t.Render()
		return nil
	},
}
