package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"veracity/internal/app"
	"veracity/internal/config"
)

var cfgFile string

// watchAnnotation marks long-running commands that reload config on change.
const watchAnnotation = "watch-config"

var rootCmd = &cobra.Command{
	Use:   "veracity",
	Short: "Hybrid content classification and verification",
	Long: `Veracity classifies social-media text into harm categories with a local
lexical classifier, optionally reconciled with external moderation providers,
and scores the provenance of reported posts.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand is given, print help.
		cmd.Help()
	},
	// PersistentPreRunE runs before any subcommand's RunE
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "completion" {
			return nil
		}

		v := config.New(cfgFile)
		cfg, err := config.Read(v)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		var opts []app.Option
		if cmd.Annotations[watchAnnotation] == "true" {
			opts = append(opts, app.WithConfigWatch())
		}

		appInstance, err := app.NewApp(cmd.Context(), v, cfg, opts...)
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}

		// Store the app instance in the command's context
		ctx := context.WithValue(cmd.Context(), appKey, appInstance)
		cmd.SetContext(ctx)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if appInstance, err := GetAppFromContext(cmd.Context()); err == nil {
			return appInstance.Close()
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Define a custom type for the context key to avoid collisions.
type contextKey string

const appKey contextKey = "app"

// GetAppFromContext retrieves the app instance built in PersistentPreRunE.
func GetAppFromContext(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		// This should not happen if PersistentPreRunE ran successfully
		return nil, fmt.Errorf("application instance not found in context")
	}
	return appInstance, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")
}
