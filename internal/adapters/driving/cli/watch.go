package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driving"
	"github.com/Andres10976/huli-project-medical-RAG/internal/logger"
)

// statusInterval is how often watch progress is reported.
var statusInterval = 2 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index in step with the record directory",
	Long: `Indexes every record file, then watches the data directory and
re-indexes a record whenever its file is created or written. Only chunks
whose content changed are re-embedded. Stop with Ctrl+C.

Use --metrics-port to expose Prometheus metrics at /metrics.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Int("metrics-port", 0, "serve Prometheus metrics on this port (0 = config value)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("metrics-port")
	if err != nil {
		return fmt.Errorf("getting metrics-port flag: %w", err)
	}
	if err := useServices(cmd, true, port); err != nil {
		return err
	}
	if watchService == nil {
		return errors.New("watch service not configured")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if metrics != nil && metricsPort > 0 {
		go func() {
			if err := metrics.Serve(ctx, metricsPort); err != nil {
				logger.Error("%v", err)
			}
		}()
	}

	cmd.Printf("Watching %s\n", dataDir)
	return watchWithProgress(ctx, cmd, watchService)
}

// watchWithProgress runs the watcher while reporting status changes.
// On a terminal the status line is rewritten in place.
func watchWithProgress(ctx context.Context, cmd *cobra.Command, svc driving.WatchService) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Run(ctx)
	}()

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	inPlace := isTerminal(cmd.OutOrStdout())
	var last driving.WatchStatus
	report := func() {
		status := svc.Status()
		if status == last {
			return
		}
		last = status
		line := fmt.Sprintf("Indexed %d, skipped %d, failed %d",
			status.UnitsIndexed, status.UnitsSkipped, status.ErrorCount)
		if inPlace {
			cmd.Printf("\r%s", line)
			return
		}
		cmd.Println(line)
	}

	for {
		select {
		case err := <-errCh:
			report()
			if inPlace {
				cmd.Println()
			}
			if err != nil {
				return fmt.Errorf("watch failed: %w", err)
			}
			return nil
		case <-ticker.C:
			report()
		}
	}
}
