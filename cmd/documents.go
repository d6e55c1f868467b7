package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"coursegen/internal/clix"
	"coursegen/internal/services"
)

var (
	addRecursive bool
	searchLimit  int
)

// documentsCmd lists the reference documents available as planning context.
var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List stored reference documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get app from context: %w", err)
		}

		pagination := clix.ParsePagination(cmd.Flags())
		docs, err := appInstance.DocumentStore.ListDocuments(cmd.Context(), pagination.Limit, pagination.Offset)
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}
		if len(docs) == 0 {
			fmt.Println("No documents found.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Title", "Summary"})
		table.SetBorder(true)

		for _, doc := range docs {
			summary := ""
			if doc.Summary != nil {
				summary = *doc.Summary
			}
			table.Append([]string{fmt.Sprintf("%d", doc.ID), doc.Title, summary})
		}
		table.Render()
		return nil
	},
}

// documentsAddCmd ingests local files as reference documents.
var documentsAddCmd = &cobra.Command{
	Use:   "add <path>...",
	Short: "Ingest files as reference documents",
	Long: `Reads, cleans and chunks each file, storing it as a document whose
summaries can seed course planning. With --recursive, directories are
scanned for markdown files.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get app from context: %w", err)
		}

		paths := args
		if addRecursive {
			paths = nil
			for _, root := range args {
				found, err := services.DiscoverMarkdownFiles(root)
				if err != nil {
					return fmt.Errorf("scanning %s: %w", root, err)
				}
				paths = append(paths, found...)
			}
			if len(paths) == 0 {
				fmt.Println("No markdown files found.")
				return nil
			}
		}

		failures := 0
		for _, path := range paths {
			doc, chunks, err := appInstance.IngestService.IngestFile(cmd.Context(), path)
			if err != nil {
				failures++
				fmt.Printf("  - %s: %v\n", color.RedString("ERROR"), err)
				continue
			}
			fmt.Printf("  - %s: %s (document %d, %d chunks)\n",
				color.GreenString("Ingested"), doc.Title, doc.ID, chunks)
		}
		if failures > 0 {
			return fmt.Errorf("%d of %d files failed to ingest", failures, len(paths))
		}
		return nil
	},
}

// searchCmd runs semantic search over document chunks.
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Semantic search over stored documents",
	Long: `Embeds the query and returns the closest document chunks. Requires a
configured vector database.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get app from context: %w", err)
		}
		if appInstance.SearchService == nil {
			return fmt.Errorf("semantic search requires a vector database (set VECTOR_DATABASE_URL)")
		}

		results, err := appInstance.SearchService.SemanticSearch(cmd.Context(), args[0], searchLimit)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if len(results) == 0 {
			fmt.Println("No matching chunks found.")
			return nil
		}

		for i, r := range results {
			fmt.Printf("%d. %s (document %d, chunk %d)\n", i+1, r.DocumentTitle, r.Chunk.DocumentID, r.Chunk.ChunkIndex)
			text := r.Chunk.Text
			if len(text) > 200 {
				text = text[:200] + "..."
			}
			fmt.Printf("   %s\n", text)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(searchCmd)
	documentsCmd.AddCommand(documentsAddCmd)

	documentsCmd.Flags().Int("limit", 20, "Maximum number of documents to display")
	documentsCmd.Flags().Int("offset", 0, "Number of documents to skip")
	documentsAddCmd.Flags().BoolVar(&addRecursive, "recursive", false, "Scan directories for markdown files")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum number of chunks to return")
}
