package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"veracity/internal/clix"
	"veracity/internal/consensus"
	"veracity/internal/engine"
	"veracity/internal/verification"
)

var verifyFlags submissionFlags

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify [text]",
	Short: "Classify a reported post and score its provenance",
	Long: `Runs the full assessment for a reported post: classification, the verification
rubric (URL pattern, author, content length, page metadata, engagement) and the risk level.`,
	Example: `  veracity verify --platform twitter --url https://twitter.com/jo/status/123 \
    --author jo --verified --likes 40 --fetch "Breaking: bridge closed downtown"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		mode, err := clix.ParseMode(cmd.Flags())
		if err != nil {
			return err
		}
		format, err := clix.ParseOutput(cmd.Flags())
		if err != nil {
			return err
		}
		sub, err := verifyFlags.build(cmd.Context(), appInstance.Input, args)
		if err != nil {
			return err
		}

		a, err := appInstance.Engine.Assess(cmd.Context(), sub, mode, verifyFlags.fetch)
		if err != nil && !errors.Is(err, consensus.ErrAllProvidersFailed) {
			return err
		}
		out := cmd.OutOrStdout()
		if format != clix.OutputText {
			if encErr := clix.Encode(out, format, a); encErr != nil {
				return encErr
			}
			return err
		}
		printAssessment(out, a)
		return err
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyFlags.register(verifyCmd)
	verifyCmd.Flags().String("mode", "", "local_only, combined, auto, or single_provider:<name> (default from config)")
	verifyCmd.Flags().StringP("output", "o", clix.OutputText, "Output format: text, json or yaml")
	verifyCmd.Flags().Bool("json", false, "Shorthand for --output json")
}

func riskColor(level verification.RiskLevel) func(format string, a ...interface{}) string {
	switch level {
	case verification.RiskCritical, verification.RiskHigh:
		return color.RedString
	case verification.RiskMedium:
		return color.YellowString
	default:
		return color.GreenString
	}
}

func statusColor(status string) string {
	switch status {
	case verification.StatusPass:
		return color.GreenString(status)
	case verification.StatusPartial:
		return color.YellowString(status)
	default:
		return color.RedString(status)
	}
}

func printAssessment(w io.Writer, a engine.Assessment) {
	fmt.Fprintf(w, "Assessment %s\n\n", a.ID)
	printClassification(w, a.Classification)
	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Factor", "Points", "Status", "Reason"})
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, f := range a.Verification.Factors {
		table.Append([]string{
			f.Name,
			fmt.Sprintf("%d/%d", f.PointsAwarded, f.MaxPoints),
			statusColor(f.Status),
			f.Reason,
		})
	}
	table.SetFooter([]string{"Total", fmt.Sprintf("%d/100", a.Verification.Total), string(a.Verification.Level), ""})
	table.Render()

	if a.Metadata != nil && a.Metadata.Accessible {
		fmt.Fprintf(w, "\nPage:       %q (%s)\n", a.Metadata.Title, a.Metadata.SiteName)
	}
	paint := riskColor(a.Risk.RiskLevel)
	fmt.Fprintf(w, "\nRisk:       %s (toxicity %.1f%%, verification %d)\n",
		paint("%s", a.Risk.RiskLevel), a.Risk.ToxicityPercent, a.Risk.VerificationTotal)
}
