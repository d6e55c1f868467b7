package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"coursegen/internal/jobstate"
	"coursegen/internal/models"
	"coursegen/internal/pipeline"
)

var generateDocumentIDs []int64

// generateCmd runs the whole pipeline inline, without Redis or a worker.
var generateCmd = &cobra.Command{
	Use:   "generate <topic>",
	Short: "Generate a complete course for a topic",
	Long: `Runs every pipeline stage synchronously and writes the packaged
course to the configured output directory. Use --documents to anchor the
curriculum on stored reference documents.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := args[0]

		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get app from context: %w", err)
		}

		// Ctrl-C cancels the run; the orchestrator marks the job failed
		// with a cancellation message.
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		job := &models.GenerationJob{
			JobID:       uuid.New(),
			Topic:       topic,
			DocumentIDs: generateDocumentIDs,
			Status:      models.JobStatusPending,
		}
		if err := appInstance.JobStore.CreateJob(ctx, job); err != nil {
			return fmt.Errorf("failed to create job: %w", err)
		}
		fmt.Printf("Generating course %q (job %s)...\n", topic, job.JobID)

		machine := jobstate.New(appInstance.JobStore, job)
		result, err := appInstance.Orchestrator.Run(ctx, machine, pipeline.Request{
			Topic:       topic,
			DocumentIDs: generateDocumentIDs,
		})
		if err != nil {
			return fmt.Errorf("generation failed: %w", err)
		}

		printCourseSummary(os.Stdout, result)
		return nil
	},
}

func printCourseSummary(w io.Writer, result *pipeline.Result) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, color.GreenString("Course generated successfully."))
	fmt.Fprintf(w, "Package: %s\n", result.Package.ArchivePath)

	validation := result.Package.Validation
	status := color.GreenString(validation.OverallStatus)
	if validation.OverallStatus != "complete" {
		status = color.YellowString(validation.OverallStatus)
	}
	fmt.Fprintf(w, "Validation: %s (%d/%d checks)\n", status, validation.ChecksPassed, validation.TotalChecks)

	summary := result.Data.Summary()
	categories := make([]string, 0, len(summary))
	for category := range summary {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Artifact", "Count"})
	table.SetBorder(true)
	for _, category := range categories {
		table.Append([]string{category, strconv.Itoa(summary[category])})
	}
	table.Render()
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().Int64SliceVar(&generateDocumentIDs, "documents", nil,
		"IDs of stored documents whose summaries seed the curriculum")
	generateCmd.Flags().Bool("test", false,
		"run against mock providers, making no external API calls")
}
