package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"coursegen/internal/clix"
	"coursegen/internal/models"
)

// jobsCmd represents the jobs command
var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List course generation jobs",
	Long:  `Displays generation jobs newest first, with status, progress and result path.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get app from context: %w", err)
		}

		pagination := clix.ParsePagination(cmd.Flags())
		jobs, err := appInstance.JobStore.ListJobs(cmd.Context(), pagination.Limit, pagination.Offset)
		if err != nil {
			return fmt.Errorf("failed to list jobs: %w", err)
		}
		if len(jobs) == 0 {
			fmt.Println("No jobs found.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Job ID", "Topic", "Status", "Progress", "Created At", "Result"})
		table.SetBorder(true)
		table.SetRowLine(true)

		for _, job := range jobs {
			result := "N/A"
			if job.ResultPath != nil {
				result = *job.ResultPath
			} else if job.ErrorMessage != nil {
				result = *job.ErrorMessage
			}

			table.Append([]string{
				job.JobID.String(),
				job.Topic,
				colorStatus(job.Status),
				strconv.Itoa(job.Progress) + "%",
				job.CreatedAt.Format("2006-01-02 15:04:05"),
				result,
			})
		}
		table.Render()
		return nil
	},
}

func colorStatus(status string) string {
	switch status {
	case models.JobStatusCompleted:
		return color.GreenString(status)
	case models.JobStatusFailed:
		return color.RedString(status)
	case models.JobStatusProcessing:
		return color.YellowString(status)
	default:
		return status
	}
}

func init() {
	rootCmd.AddCommand(jobsCmd)

	jobsCmd.Flags().Int("limit", 20, "Maximum number of jobs to display")
	jobsCmd.Flags().Int("offset", 0, "Number of jobs to skip")
}
