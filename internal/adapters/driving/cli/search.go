package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
)

var (
	searchPatient string
	searchType    string
	searchRecent  bool
	searchLimit   int
	searchJSON    bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search one patient's records",
	Long: `Performs a semantic search over the indexed records of one patient.
Results can be restricted to one event type (visit, lab, doctor_note,
pharmacy_note) and ordered by date, most recent first, with --recent.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchPatient, "patient", "p", "", "patient id (required)")
	searchCmd.Flags().StringVarP(&searchType, "type", "t", "", "restrict to one event type")
	searchCmd.Flags().BoolVarP(&searchRecent, "recent", "r", false, "order results by date, most recent first")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", domain.DefaultSearchLimit, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchPatient == "" {
		return errors.New("--patient is required")
	}
	eventType, err := domain.ParseEventType(searchType)
	if err != nil {
		return err
	}

	if err := useServices(cmd, true, 0); err != nil {
		return err
	}
	if searchService == nil {
		return errors.New("search service not configured")
	}

	opts := domain.SearchOptions{
		PatientID:   searchPatient,
		EventType:   eventType,
		OrderByDate: searchRecent,
		Limit:       searchLimit,
	}
	results, err := searchService.Search(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.RetrievedChunk) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		date := results[i].Timestamp
		if date == "" {
			date = "unknown date"
		}
		cmd.Printf("  [%d] %s, %s (%.2f)\n", i+1, results[i].EventType, date, results[i].Score)
		cmd.Printf("      %s\n", results[i].Text)
		cmd.Println()
	}
	return nil
}
