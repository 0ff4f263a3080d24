package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"veracity/internal/clix"
	"veracity/internal/engine"
	"veracity/internal/store"
)

// jobCmd represents the job command
var jobCmd = &cobra.Command{
	Use:   "job <id>",
	Short: "Show the state of a queued assessment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if appInstance.JobClient == nil {
			return fmt.Errorf("cannot look up jobs: %w (set redis.address)", store.ErrUnavailable)
		}
		format, err := clix.ParseOutput(cmd.Flags())
		if err != nil {
			return err
		}

		st, err := appInstance.JobClient.GetJob(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if format != clix.OutputText {
			return clix.Encode(out, format, st)
		}

		fmt.Fprintf(out, "Job:     %s\nQueue:   %s\nState:   %s\nRetried: %d\n", st.ID, st.Queue, st.State, st.Retried)
		if st.LastError != "" {
			fmt.Fprintf(out, "Error:   %s\n", st.LastError)
		}
		if st.CompletedAt != nil {
			fmt.Fprintf(out, "Done:    %s\n", st.CompletedAt.Format(time.RFC3339))
		}
		if len(st.Result) > 0 {
			var a engine.Assessment
			if err := json.Unmarshal(st.Result, &a); err != nil {
				return fmt.Errorf("job result is not an assessment: %w", err)
			}
			fmt.Fprintln(out)
			printAssessment(out, a)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(jobCmd)
	jobCmd.Flags().StringP("output", "o", clix.OutputText, "Output format: text, json or yaml")
	jobCmd.Flags().Bool("json", false, "Shorthand for --output json")
}
