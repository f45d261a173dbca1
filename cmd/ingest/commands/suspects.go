package commands

import (
	"github.com/ThiagoRGoveia/apt-trades/internal/ingestion"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(suspectsCmd)
}

var suspectsCmd = &cobra.Command{
	Use:   "suspects",
	Short: "Lists units whose row count equals a page cap, without fetching.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, cleanup, err := setup(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		detector := ingestion.NewDetector(a.store, a.cfg.SuspectPageCaps, a.cfg.RepairPageCap)
		suspects, err := detector.Suspects(ctx)
		if err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{"Period", "Region", "Name", "Rows", "Repairable"})
		for _, s := range suspects {
			t.AppendRow(table.Row{s.Unit.Period.String(), s.Unit.Region.Code, s.Unit.Region.Name, s.Rows, s.Repairable})
		}
		t.AppendFooter(table.Row{"", "", "Total", len(suspects), ""})
		t.Render()
		return nil
	},
}
