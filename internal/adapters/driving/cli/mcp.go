package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Andres10976/huli-project-medical-RAG/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server that exposes patient-scoped
retrieval to the reasoning layer.

Tools:
  medical_search   search one patient's records (event type filter, date order)
  patient_profile  demographics and medical history of a patient

Resources:
  huli://patients              patient listing
  huli://patients/{patientId}  patient profile

By default the server communicates over stdio using JSON-RPC. Use --port to
serve the streamable HTTP transport instead.

Examples:
  # Stdio mode (default)
  huli mcp serve

  # HTTP mode
  huli mcp serve --port 8080`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	if err := useServices(cmd, true, 0); err != nil {
		return err
	}

	ports := &mcp.Ports{
		Search:  searchService,
		Patient: patientService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
