package commands

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/watanabe-1/rpc4next-sub000/pkg/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve route tools over the Model Context Protocol",
	Long: `Start an MCP server on stdin/stdout exposing:
  rpc4next_routes    list endpoints
  rpc4next_generate  regenerate the declaration file
  rpc4next_openapi   return the OpenAPI document

Paths are resolved against the current directory and default to the values
in rpc4next.yaml.

Example:
  rpc4next mcp`,
	Run: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig(cmd)

	workdir, err := os.Getwd()
	if err != nil {
		fail("failed to resolve working directory", err)
	}

	if err := mcp.NewServer(workdir, cfg).Serve(); err != nil {
		fail("mcp server stopped", err)
	}
}
