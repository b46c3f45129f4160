package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/bia-service/internal/bia"
	"github.com/sells-group/bia-service/internal/model"
)

var (
	genType      string
	genTeam      string
	genDRIName   string
	genDRITeam   string
	genRegions   []string
	genCreatedBy string
	genDryRun    bool
	genJSON      bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <function-name>",
	Short: "Assemble a BIA document for a business function",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), cfg, "generate")
		if err != nil {
			return err
		}
		defer env.Close()

		req := bia.Request{
			FunctionName: args[0],
			FunctionType: model.FunctionType(genType),
			Team:         genTeam,
			DRIName:      genDRIName,
			DRITeam:      genDRITeam,
			Regions:      genRegions,
			CreatedBy:    genCreatedBy,
		}

		var doc *model.Document
		if genDryRun {
			doc, err = env.Generator.Build(cmd.Context(), req)
		} else {
			doc, err = env.Generator.Generate(cmd.Context(), req)
		}
		if err != nil {
			return err
		}

		if genJSON {
			return writeJSON(cmd.OutOrStdout(), doc)
		}
		printSummary(cmd.OutOrStdout(), doc, genDryRun)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&genType, "type", "", "function type: product, platform, support, infrastructure or compliance")
	generateCmd.Flags().StringVar(&genTeam, "team", "", "owning team for the personnel lookup (default: function name)")
	generateCmd.Flags().StringVar(&genDRIName, "dri", "", "directly responsible individual override")
	generateCmd.Flags().StringVar(&genDRITeam, "dri-team", "", "DRI team override")
	generateCmd.Flags().StringSliceVar(&genRegions, "region", nil, "regional overlay code (repeatable)")
	generateCmd.Flags().StringVar(&genCreatedBy, "created-by", "", "author recorded on the document")
	generateCmd.Flags().BoolVar(&genDryRun, "dry-run", false, "assemble without storing")
	generateCmd.Flags().BoolVar(&genJSON, "json", false, "print the full document as JSON")
	_ = generateCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(generateCmd)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSummary(w io.Writer, doc *model.Document, dryRun bool) {
	ca := doc.ConfidenceAssessment
	label := "Document"
	if dryRun {
		label = "Document (dry run, not stored)"
	}
	fmt.Fprintf(w, "%s: %s\n", label, doc.ID)
	fmt.Fprintf(w, "  Function:     %s (%s)\n", doc.FunctionName, doc.FunctionType)
	fmt.Fprintf(w, "  Status:       %s  v%s\n", doc.Status, doc.Version)
	fmt.Fprintf(w, "  DRI:          %s / %s\n", doc.DRIName, doc.DRITeam)
	fmt.Fprintf(w, "  Confidence:   %.2f (%s)\n", ca.OverallConfidence, ca.ConfidenceLevel)
	fmt.Fprintf(w, "  Completeness: %.0f%%\n", ca.DataCompleteness)

	fmt.Fprintln(w, "  Sections:")
	names := []string{"personnel", "business_impact", "technology", "recovery", "risk_compliance", "iso_classification"}
	for i, s := range doc.Sections() {
		srcs := make([]string, len(s.DataSources))
		for j, n := range s.DataSources {
			srcs[j] = string(n)
		}
		from := strings.Join(srcs, ", ")
		if from == "" {
			from = "defaults"
		}
		fmt.Fprintf(w, "    %-20s %.2f  %s\n", names[i], s.ConfidenceScore, from)
	}
	if len(ca.MissingSources) > 0 {
		missing := make([]string, len(ca.MissingSources))
		for i, n := range ca.MissingSources {
			missing[i] = string(n)
		}
		fmt.Fprintf(w, "  Missing:      %s\n", strings.Join(missing, ", "))
	}
	if pa := doc.PredictiveAnalysis; pa.Note != "" {
		fmt.Fprintf(w, "  Forecast:     %s\n", pa.Note)
	}
	for _, r := range ca.Recommendations {
		fmt.Fprintf(w, "  - %s\n", r)
	}
}
