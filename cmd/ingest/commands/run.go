package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/ThiagoRGoveia/apt-trades/internal/ingestion"
	"github.com/ThiagoRGoveia/apt-trades/internal/metrics"
	"github.com/ThiagoRGoveia/apt-trades/internal/models"
	"github.com/spf13/cobra"
)

var (
	monthlyPeriod string
	backfillFrom  string
	backfillTo    string
)

func init() {
	monthlyCmd.Flags().StringVar(&monthlyPeriod, "period", "", "period to load as YYYYMM (default: previous month)")

	backfillCmd.Flags().StringVar(&backfillFrom, "from", "", "first period as YYYYMM")
	backfillCmd.Flags().StringVar(&backfillTo, "to", "", "last period as YYYYMM (inclusive)")
	_ = backfillCmd.MarkFlagRequired("from")
	_ = backfillCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(monthlyCmd, backfillCmd, repairCmd)
}

var monthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Loads every region still missing for one period.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		period := models.PreviousPeriod(time.Now())
		if monthlyPeriod != "" {
			p, err := models.ParsePeriod(monthlyPeriod)
			if err != nil {
				return err
			}
			period = p
		}
		return execute(cmd.Context(), ingestion.ModeMonthly, func(ctx context.Context, svc *ingestion.IngestionService) (*ingestion.Summary, error) {
			return svc.Incremental(ctx, period)
		})
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Loads every missing unit of a period range.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := models.ParsePeriod(backfillFrom)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		to, err := models.ParsePeriod(backfillTo)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}
		if to.Before(from) {
			return fmt.Errorf("--to %s is before --from %s", to, from)
		}
		return execute(cmd.Context(), ingestion.ModeBackfill, func(ctx context.Context, svc *ingestion.IngestionService) (*ingestion.Summary, error) {
			return svc.Backfill(ctx, from, to)
		})
	},
}

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Re-fetches units whose row count equals a page cap and replaces their rows.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return execute(cmd.Context(), ingestion.ModeRepair, func(ctx context.Context, svc *ingestion.IngestionService) (*ingestion.Summary, error) {
			return svc.Repair(ctx)
		})
	},
}

// execute runs one mode and prints its summary. A halted run still prints
// what it did before returning the halt error.
func execute(ctx context.Context, mode ingestion.Mode, fn func(context.Context, *ingestion.IngestionService) (*ingestion.Summary, error)) error {
	a, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	m := metrics.NewRunMetrics()
	svc, err := a.ingestionService(ctx, m)
	if err != nil {
		return err
	}

	summary, err := fn(ctx, svc)
	if summary != nil {
		printSummary(summary)
		a.pushMetrics(m, mode)
	}
	return err
}
