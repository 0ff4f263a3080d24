package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"veracity/internal/clix"
	"veracity/internal/store"
	"veracity/internal/tasks"
)

var enqueueFlags submissionFlags

// enqueueCmd represents the enqueue command
var enqueueCmd = &cobra.Command{
	Use:   "enqueue [text]",
	Short: "Queue a post for background assessment",
	Long:  `Queues the same assessment 'verify' runs, for a worker to pick up. Check on it with 'veracity job <id>'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if appInstance.JobClient == nil {
			return fmt.Errorf("cannot enqueue: %w (set redis.address)", store.ErrUnavailable)
		}
		if _, err := clix.ParseMode(cmd.Flags()); err != nil {
			return err
		}
		mode, _ := cmd.Flags().GetString("mode")

		sub, err := enqueueFlags.build(cmd.Context(), appInstance.Input, args)
		if err != nil {
			return err
		}

		st, err := appInstance.JobClient.EnqueueAnalysis(cmd.Context(), tasks.AnalysisPayload{
			RequestID:     uuid.NewString(),
			Submission:    sub,
			Mode:          mode,
			FetchMetadata: enqueueFlags.fetch,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s job %s on queue %s\n", color.GreenString("Enqueued"), st.ID, st.Queue)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enqueueCmd)
	enqueueFlags.register(enqueueCmd)
	enqueueCmd.Flags().String("mode", "", "local_only, combined, auto, or single_provider:<name> (default from config)")
}
