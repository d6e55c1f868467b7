package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"coursegen/internal/app"
	"coursegen/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "coursegen",
	Short: "Coursegen CLI App",
	Long: `Coursegen turns a topic (optionally anchored on reference documents)
into a packaged video course: curriculum, lesson content, speech scripts,
notebooks, imagery, presenter videos and a validated zip archive.`,
	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand is given, print help.
		cmd.Help()
	},
	// PersistentPreRunE runs before any subcommand's RunE
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		applyTestMode(cmd, cfg)

		appInstance, err := app.NewApp(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}

		// Store the app instance in the command's context
		ctx := context.WithValue(cmd.Context(), appKey, appInstance)
		cmd.SetContext(ctx)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appInstance, err := GetAppFromContext(cmd.Context()); err == nil {
			appInstance.Close()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// applyTestMode forces mock providers when the invoked command carries a
// --test flag set to true. Commands without the flag are left alone.
func applyTestMode(cmd *cobra.Command, cfg *config.Config) {
	if testMode, err := cmd.Flags().GetBool("test"); err == nil && testMode {
		cfg.Providers.Mock = true
	}
}

// Define a custom type for the context key to avoid collisions.
type contextKey string

const appKey contextKey = "app"

// Helper function to retrieve the app instance from context
func GetAppFromContext(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		// This should not happen if PersistentPreRunE ran successfully
		return nil, fmt.Errorf("application instance not found in context")
	}
	return appInstance, nil
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check store connectivity and other diagnostics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		appInstance, err := GetAppFromContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to get app instance: %w", err)
		}

		fmt.Println("Checking job store...")
		if _, err := appInstance.JobStore.ListJobs(ctx, 1, 0); err != nil {
			return fmt.Errorf("job store check failed: %w", err)
		}
		fmt.Println("Job store OK.")

		if appInstance.VectorStore != nil {
			fmt.Println("Checking vector store...")
			if err := appInstance.VectorStore.Ping(ctx); err != nil {
				return fmt.Errorf("vector store ping failed: %w", err)
			}
			fmt.Println("Vector store OK.")
		} else {
			fmt.Println("Vector store not configured, semantic search disabled.")
		}
		return nil
	},
}
