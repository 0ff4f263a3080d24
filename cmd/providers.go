package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"veracity/internal/app"
	"veracity/internal/providers"
)

// providersCmd represents the providers command
var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List external providers and their status",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		printProviders(cmd.OutOrStdout(), appInstance)

		total, err := appInstance.CostTracker.TotalCost(cmd.Context())
		if err == nil && total > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Spend this process: $%.6f\n", total)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func yesNo(b bool) string {
	if b {
		return color.GreenString("yes")
	}
	return color.RedString("no")
}

func printProviders(w io.Writer, a *app.App) {
	cfg := a.Engine.Config()
	fmt.Fprintf(w, "Mode:     %s\n", a.Engine.DefaultMode())
	fmt.Fprintf(w, "Priority: %s\n\n", strings.Join(cfg.Analysis.Priority, " > "))

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Provider", "Credentials", "Combined Mode"})
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, st := range providers.Statuses(cfg) {
		table.Append([]string{st.Name, yesNo(st.Configured), yesNo(st.Enabled)})
	}
	table.Render()
}
