package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bia-service/internal/batch"
)

var (
	batchLimit       int
	batchConcurrency int
	batchDryRun      bool
	batchOutput      string
	batchJSON        bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Generate BIA documents for every function listed in a CSV or XLSX file",
	Long: `Reads one function per row and generates a BIA document for each.

Required columns: function_name, function_type.
Optional columns: team, dri_name, dri_team, regions (";" separated), created_by.

Examples:
  # Assemble without storing
  bia batch functions.csv --dry-run

  # Store documents and keep the per-row results
  bia batch functions.xlsx --concurrency 8 --output results.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := batch.ReadFile(args[0])
		if err != nil {
			return err
		}
		if batchLimit > 0 && batchLimit < len(rows) {
			rows = rows[:batchLimit]
		}
		zap.L().Info("batch: parsed input", zap.String("file", args[0]), zap.Int("rows", len(rows)))

		env, err := initEnv(cmd.Context(), cfg, "generate")
		if err != nil {
			return err
		}
		defer env.Close()

		summary := batch.Run(cmd.Context(), env.Generator, rows, batch.Options{
			Concurrency: batchConcurrency,
			DryRun:      batchDryRun,
		})

		if batchOutput != "" {
			f, err := os.Create(batchOutput)
			if err != nil {
				return eris.Wrap(err, "batch: create output")
			}
			if err := writeJSON(f, summary); err != nil {
				f.Close() //nolint:errcheck
				return eris.Wrap(err, "batch: write output")
			}
			if err := f.Close(); err != nil {
				return eris.Wrap(err, "batch: close output")
			}
		}

		if batchJSON {
			if err := writeJSON(cmd.OutOrStdout(), summary); err != nil {
				return err
			}
		} else {
			printBatchSummary(cmd.OutOrStdout(), summary)
		}

		if summary.Failed > 0 {
			return eris.Errorf("batch: %d of %d rows failed", summary.Failed, summary.Total)
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "process at most this many rows (0 = all)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 4, "documents generated in parallel")
	batchCmd.Flags().BoolVar(&batchDryRun, "dry-run", false, "assemble without storing")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "write the full results as JSON to this file")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "print the results as JSON")
	rootCmd.AddCommand(batchCmd)
}

func printBatchSummary(w io.Writer, s *batch.Summary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tFUNCTION\tTYPE\tRESULT\tCONFIDENCE\tCOMPLETENESS")
	for _, r := range s.Results {
		if r.Error != "" {
			fmt.Fprintf(tw, "%d\t%s\t%s\tfailed: %s\t\t\n", r.Line, r.FunctionName, r.FunctionType, r.Error)
			continue
		}
		result := r.DocumentID
		if result == "" {
			result = "ok"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.2f %s\t%.0f%%\n",
			r.Line, r.FunctionName, r.FunctionType, result,
			r.OverallConfidence, r.ConfidenceLevel, r.DataCompleteness,
		)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%d succeeded, %d failed in %s\n", s.Succeeded, s.Failed, s.Duration.Round(1e6))
}
