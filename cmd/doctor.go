package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, providers and the job queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		appInstance, err := GetAppFromContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to get app instance: %w", err)
		}
		cfg := appInstance.Store.Load()

		src := "defaults and environment"
		if appInstance.Viper != nil && appInstance.Viper.ConfigFileUsed() != "" {
			src = appInstance.Viper.ConfigFileUsed()
		}
		fmt.Fprintf(out, "Configuration: %s (%s)\n", color.GreenString("valid"), src)

		printProviders(out, appInstance)
		if len(cfg.EnabledProviders()) == 0 {
			fmt.Fprintln(out, color.YellowString("No provider credentials found; combined mode will use the local classifier only."))
		}

		if appInstance.JobClient == nil {
			fmt.Fprintln(out, "Job queue:     disabled (redis.address not set)")
			return nil
		}
		fmt.Fprintf(out, "Checking Redis at %s...\n", cfg.Redis.Address)
		if err := appInstance.JobClient.Ping(ctx); err != nil {
			return fmt.Errorf("job queue check failed: %w", err)
		}
		fmt.Fprintf(out, "Job queue:     %s\n", color.GreenString("reachable"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
