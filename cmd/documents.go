package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bia-service/internal/export"
	"github.com/sells-group/bia-service/internal/model"
	"github.com/sells-group/bia-service/internal/monitoring"
	"github.com/sells-group/bia-service/internal/store"
)

// openStore opens and migrates the configured store for read commands.
func openStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	st, err := initStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// -- list --

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List BIA documents",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		name, _ := cmd.Flags().GetString("function")
		ftype, _ := cmd.Flags().GetString("type")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		docs, err := st.ListDocuments(ctx, model.DocumentFilter{
			FunctionName: name,
			FunctionType: model.FunctionType(ftype),
			Status:       model.Status(status),
			Limit:        limit,
		})
		if err != nil {
			return eris.Wrap(err, "list")
		}

		if len(docs) == 0 {
			fmt.Fprintln(os.Stderr, "No documents found.")
			return nil
		}
		formatDocumentList(cmd.OutOrStdout(), docs)
		return nil
	},
}

func formatDocumentList(w io.Writer, docs []model.Document) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFUNCTION\tTYPE\tSTATUS\tCONFIDENCE\tCOMPLETENESS\tCREATED")
	for _, d := range docs {
		ca := d.ConfidenceAssessment
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f %s\t%.0f%%\t%s\n",
			d.ID, d.FunctionName, d.FunctionType, d.Status,
			ca.OverallConfidence, ca.ConfidenceLevel, ca.DataCompleteness,
			d.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = tw.Flush()
}

// -- show --

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a BIA document as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		doc, err := st.GetDocument(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "show")
		}

		if withAudit, _ := cmd.Flags().GetBool("audit"); withAudit {
			entries, err := st.ListAudit(ctx, doc.ID)
			if err != nil {
				return eris.Wrap(err, "show audit")
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"document": doc, "audit": entries})
		}
		return writeJSON(cmd.OutOrStdout(), doc)
	},
}

// -- export --

var exportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a BIA document as an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		doc, err := st.GetDocument(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "export")
		}

		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			out = export.Filename(doc)
		}
		if err := writeWorkbook(out, doc); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
		return nil
	},
}

func writeWorkbook(path string, doc *model.Document) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "export: create output dir")
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create output file")
	}
	if err := export.Write(f, doc); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrap(f.Close(), "export: close output file")
}

// -- stats --

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show document and confidence statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		lookback, _ := cmd.Flags().GetInt("lookback-hours")
		snap, err := monitoring.NewCollector(st, buildAdapters(cfg)).Collect(ctx, lookback)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), snap)
	},
}

func init() {
	listCmd.Flags().String("function", "", "filter by function name")
	listCmd.Flags().String("type", "", "filter by function type")
	listCmd.Flags().String("status", "", "filter by status")
	listCmd.Flags().Int("limit", 50, "maximum documents to show")

	showCmd.Flags().Bool("audit", false, "include the audit trail")

	exportCmd.Flags().StringP("output", "o", "", "output path (default: bia-<function>-v<version>.xlsx)")

	statsCmd.Flags().Int("lookback-hours", 0, "only count documents created in this window (0 = all)")

	rootCmd.AddCommand(listCmd, showCmd, exportCmd, statsCmd)
}
