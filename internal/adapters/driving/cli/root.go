// Package cli provides the huli command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Andres10976/huli-project-medical-RAG/internal/app"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driving"
)

// version is set at build time with -ldflags "-X ...cli.version=v1.2.3".
var version = "dev"

// metricsServer exposes collected metrics over HTTP.
type metricsServer interface {
	Serve(ctx context.Context, port int) error
}

// Services used by the commands. They are wired lazily by useServices,
// or assigned directly by tests.
var (
	settingsService driving.SettingsService
	patientService  driving.PatientService
	ingestService   driving.IngestService
	watchService    driving.WatchService
	searchService   driving.SearchService
	metrics         metricsServer

	metricsPort int
	dataDir     string

	// servicesReady skips bootstrapping once services are assigned.
	servicesReady bool
	closeServices = func() error { return nil }
)

// Global flags.
var (
	configPath string
	envFile    string
	dataDirArg string
	verbose    bool
)

// bootstrap builds the application container. Replaced in tests.
var bootstrap = app.Bootstrap

var rootCmd = &cobra.Command{
	Use:   "huli",
	Short: "Patient record indexing and retrieval",
	Long: `Huli keeps a vector index of patient clinical records in step with a
directory of record files, and serves patient-scoped retrieval to a
reasoning layer over MCP or the command line.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.huli/config.toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file to load (default ./.env when present)")
	rootCmd.PersistentFlags().StringVar(&dataDirArg, "data-dir", "", "directory of patient record files")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
}

// Execute runs the root command and releases services afterwards.
func Execute(ctx context.Context) error {
	defer func() {
		if err := closeServices(); err != nil {
			fmt.Fprintf(os.Stderr, "closing services: %v\n", err)
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

// useServices wires the services a command needs. withIndex also builds
// the embedding gateway and the vector store.
func useServices(cmd *cobra.Command, withIndex bool, metricsPortArg int) error {
	if servicesReady {
		return nil
	}

	c, err := bootstrap(cmd.Context(), app.Options{
		ConfigPath:  configPath,
		EnvFile:     envFile,
		DataDir:     dataDirArg,
		Verbose:     verbose,
		MetricsPort: metricsPortArg,
		WithIndex:   withIndex,
	})
	if err != nil {
		return err
	}

	settingsService = c.SettingsService
	patientService = c.Patient
	dataDir = c.Settings.DataDir
	metricsPort = c.Settings.MetricsPort
	if withIndex {
		ingestService = c.Ingest
		watchService = c.Watch
		searchService = c.Search
	}
	if c.Metrics != nil {
		metrics = c.Metrics
	}

	servicesReady = true
	closeServices = c.Close
	return nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
