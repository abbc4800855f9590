package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/portlogistics/portplan/app"
	"github.com/portlogistics/portplan/core/comparison"
	"github.com/portlogistics/portplan/core/solver"
	"github.com/portlogistics/portplan/pkg/export"
)

var (
	reportDay    string
	reportFormat string
	reportOut    string
)

var exportCmd = &cobra.Command{
	Use:     "export",
	Aliases: []string{"schedule"},
	Short:   "Export the base schedule of a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReport(cmd, func(ctx context.Context, w io.Writer, r reporter) error {
			s, err := r.svc.Aggregator.BaseSchedule(ctx, reportDay)
			if err != nil {
				return err
			}
			switch reportFormat {
			case "csv":
				return export.WriteScheduleCSV(w, s)
			case "json":
				return export.WriteJSON(w, s)
			}
			return unsupportedFormat()
		})
	},
}

var compareAlgorithm string

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run the solver algorithms against the base schedule of a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReport(cmd, func(ctx context.Context, w io.Writer, r reporter) error {
			c, err := r.compare(ctx)
			if err != nil {
				return err
			}
			switch reportFormat {
			case "csv":
				return export.WriteComparisonCSV(w, c)
			case "html":
				return export.RenderComparisonChart(w, c)
			case "json":
				return export.WriteJSON(w, c)
			}
			return unsupportedFormat()
		})
	},
}

var rebalanceCmd = &cobra.Command{
	Use:   "rebalance",
	Short: "Compute a dock rebalance proposal for a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReport(cmd, func(ctx context.Context, w io.Writer, r reporter) error {
			p, err := r.svc.Rebalancer.ComputeProposal(ctx, reportDay)
			if err != nil {
				return err
			}
			switch reportFormat {
			case "html":
				return export.RenderRebalanceChart(w, p)
			case "json":
				return export.WriteJSON(w, p)
			}
			return unsupportedFormat()
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{exportCmd, compareCmd, rebalanceCmd} {
		c.Flags().StringVarP(&reportDay, "day", "d", "", "plan day (YYYY-MM-DD)")
		c.Flags().StringVarP(&reportFormat, "format", "f", "json", "output format")
		c.Flags().StringVarP(&reportOut, "out", "o", "", "output file, stdout when empty")
		_ = c.MarkFlagRequired("day")
		rootCmd.AddCommand(c)
	}
	compareCmd.Flags().StringVarP(&compareAlgorithm, "algorithm", "a", "", "single algorithm, all when empty")
}

type reporter struct {
	svc *app.Service
}

func (r reporter) compare(ctx context.Context) (comparison.Comparison, error) {
	if compareAlgorithm == "" || compareAlgorithm == "all" {
		return r.svc.Comparator.CompareAll(ctx, reportDay)
	}
	alg, err := solver.Parse(compareAlgorithm)
	if err != nil {
		return comparison.Comparison{}, err
	}
	return r.svc.Comparator.Compare(ctx, reportDay, alg)
}

// withReport builds the service without serving and hands fn the output
// writer selected by --out.
func withReport(cmd *cobra.Command, fn func(context.Context, io.Writer, reporter) error) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	w := cmd.OutOrStdout()
	if reportOut != "" {
		f, err := os.Create(reportOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", reportOut, err)
		}
		defer f.Close()
		w = f
	}
	return fn(cmd.Context(), w, reporter{svc: svc})
}

func unsupportedFormat() error {
	return fmt.Errorf("unsupported format %q", reportFormat)
}
