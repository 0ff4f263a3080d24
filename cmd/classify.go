package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"veracity/internal/clix"
	"veracity/internal/consensus"
	"veracity/pkg/classifier"
)

var classifyBatch bool

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify [text | @file | -]",
	Short: "Classify a piece of text",
	Long: `Classifies text into a harm category with sentiment and toxicity.
The text may be given inline, as @path to read a file, or '-' (or nothing) to read stdin.
With --batch every non-empty line is classified separately by the local classifier.`,
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

		raw, err := readInput(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if classifyBatch {
			if path, ok := strings.CutPrefix(strings.TrimSpace(raw), "@"); ok {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read batch file: %w", err)
				}
				raw = string(data)
			}
			var lines []string
			for _, l := range strings.Split(raw, "\n") {
				if strings.TrimSpace(l) != "" {
					lines = append(lines, l)
				}
			}
			items := appInstance.Engine.ClassifyBatch(lines)
			if format != clix.OutputText {
				return clix.Encode(out, format, items)
			}
			printBatch(out, lines, items)
			return nil
		}

		in, err := appInstance.Input.Process(cmd.Context(), raw)
		if err != nil {
			return fmt.Errorf("failed to process input: %w", err)
		}

		res, err := appInstance.Engine.Classify(cmd.Context(), in.Body, mode)
		if err != nil && !errors.Is(err, consensus.ErrAllProvidersFailed) {
			return err
		}
		if format != clix.OutputText {
			if encErr := clix.Encode(out, format, res); encErr != nil {
				return encErr
			}
		} else {
			printClassification(out, res)
		}
		// all-failed still printed the local fallback; report it after
		return err
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().String("mode", "", "local_only, combined, auto, or single_provider:<name> (default from config)")
	classifyCmd.Flags().StringP("output", "o", clix.OutputText, "Output format: text, json or yaml")
	classifyCmd.Flags().Bool("json", false, "Shorthand for --output json")
	classifyCmd.Flags().BoolVar(&classifyBatch, "batch", false, "Classify each input line separately (local classifier only)")
}

// readInput joins args into one text. No args or "-" reads stdin; "@path"
// is left for the input processor.
func readInput(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	var b strings.Builder
	sc := bufio.NewScanner(stdin)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		b.WriteString(sc.Text())
		b.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return b.String(), nil
}

func categoryColor(c classifier.Category) func(a ...interface{}) string {
	if c == classifier.CategoryOther {
		return color.New(color.FgGreen).SprintFunc()
	}
	return color.New(color.FgRed, color.Bold).SprintFunc()
}

func printClassification(w io.Writer, res consensus.Result) {
	paint := categoryColor(res.Category)
	fmt.Fprintf(w, "Category:   %s (%.1f%% confidence)\n", paint(res.Category), res.Confidence*100)
	fmt.Fprintf(w, "Source:     %s [%s] from %s\n", res.Source, res.Mode, strings.Join(res.ContributingSources, ", "))
	fmt.Fprintf(w, "Sentiment:  %s (%+.2f)\n", res.Sentiment.Label, res.Sentiment.Score)
	fmt.Fprintf(w, "Toxicity:   %.2f\n", res.Toxicity.Score)
	if len(res.Keywords) > 0 {
		fmt.Fprintf(w, "Keywords:   %s\n", strings.Join(res.Keywords, ", "))
	}
	if res.AgreementBoost {
		fmt.Fprintf(w, "Agreement:  %s\n", color.GreenString("sources agree (confidence boosted)"))
	}
	if res.NeedsReview {
		reason := ""
		if res.DisagreementReason != nil {
			reason = *res.DisagreementReason
		}
		fmt.Fprintf(w, "Review:     %s %s\n", color.YellowString("needs review:"), reason)
	}
	for _, pe := range res.ProviderErrors {
		fmt.Fprintf(w, "Provider:   %s %s (%s)\n", color.RedString("failed"), pe.Provider, pe.Reason)
	}
	if res.Explanation != "" {
		fmt.Fprintf(w, "Why:        %s\n", res.Explanation)
	}
}

func printBatch(w io.Writer, texts []string, items []classifier.BatchItem) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Text", "Category", "Confidence", "Sentiment", "Toxicity"})
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for i, item := range items {
		text := texts[i]
		if len([]rune(text)) > 40 {
			text = string([]rune(text)[:37]) + "..."
		}
		if item.Result == nil {
			table.Append([]string{fmt.Sprint(i + 1), text, color.RedString("error"), item.Error, "", ""})
			continue
		}
		r := item.Result
		table.Append([]string{
			fmt.Sprint(i + 1),
			text,
			categoryColor(r.Category)(r.Category),
			fmt.Sprintf("%.2f", r.Confidence),
			string(r.Sentiment.Label),
			fmt.Sprintf("%.2f", r.Toxicity.Score),
		})
	}
	table.Render()
}
