package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index all patient records once",
	Long: `Prepares the vector collection, then indexes every record file in the
data directory and exits. Unchanged chunks are not re-embedded when their
content digest is known. The exit status is non-zero if any record failed.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	if err := useServices(cmd, true, 0); err != nil {
		return err
	}
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	ctx := cmd.Context()
	if err := ingestService.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("preparing collection: %w", err)
	}

	if isTerminal(cmd.OutOrStdout()) {
		cmd.Printf("Indexing records in %s...\n", dataDir)
	}

	summary, err := ingestService.IngestAll(ctx)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	for i := range summary.Results {
		printIngestResult(cmd, &summary.Results[i])
	}

	failed := summary.Count(domain.OutcomeFailed)
	cmd.Printf("\nIndexed %d, skipped %d, failed %d.\n",
		summary.Count(domain.OutcomeIndexed), summary.Count(domain.OutcomeSkipped), failed)

	if failed > 0 {
		return fmt.Errorf("%d of %d records failed", failed, len(summary.Results))
	}
	return nil
}

func printIngestResult(cmd *cobra.Command, r *domain.IngestResult) {
	switch r.Outcome {
	case domain.OutcomeIndexed:
		cmd.Printf("  indexed  %s (%d chunks, %d written", r.URI, r.Chunks, r.Upserted)
		if r.Pruned > 0 {
			cmd.Printf(", %d pruned", r.Pruned)
		}
		cmd.Println(")")
	case domain.OutcomeSkipped:
		cmd.Printf("  skipped  %s (unchanged)\n", r.URI)
	case domain.OutcomeFailed:
		cmd.Printf("  FAILED   %s: %v\n", r.URI, r.Err)
	}
}
