package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/watanabe-1/rpc4next-sub000/pkg/config"
	"github.com/watanabe-1/rpc4next-sub000/pkg/scanner"
	"gopkg.in/yaml.v3"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List all discovered endpoints",
	Long: `Scan the app directory and list every endpoint with its HTTP handlers,
query contracts and route params.

Examples:
  rpc4next routes
  rpc4next routes --format yaml
  rpc4next routes --json`,
	Run: runRoutes,
}

var routesFormat string

func init() {
	rootCmd.AddCommand(routesCmd)

	routesCmd.Flags().StringP("base-dir", "b", config.Default().BaseDir, "App directory to scan")
	routesCmd.Flags().StringVarP(&routesFormat, "format", "f", "table", "Output format (table|json|yaml)")
}

func runRoutes(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig(cmd)

	s := scanner.NewScanner(cfg.BaseDir, cfg.Output, scanner.WithLogger(newLogger(cfg)))
	result, err := s.Scan()
	if err != nil {
		fail("failed to scan routes", err)
	}
	endpoints := scanner.Endpoints(result.Schema)

	format := routesFormat
	if jsonOutput {
		printSuccess(RoutesOutput{Routes: endpoints, Total: len(endpoints)})
		return
	}
	if err := writeRoutes(os.Stdout, endpoints, format); err != nil {
		fail("failed to print routes", err)
	}
}

// writeRoutes prints endpoints as a table, JSON or YAML.
func writeRoutes(w io.Writer, endpoints []scanner.Endpoint, format string) error {
	if endpoints == nil {
		endpoints = []scanner.Endpoint{}
	}
	out := RoutesOutput{Routes: endpoints, Total: len(endpoints)}

	switch strings.ToLower(format) {
	case "json":
		return writeJSON(w, out)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		return writeRoutesTable(w, endpoints)
	default:
		return fmt.Errorf("unsupported format: %s (use table, json or yaml)", format)
	}
}

func writeRoutesTable(w io.Writer, endpoints []scanner.Endpoint) error {
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	if len(endpoints) == 0 {
		_, err := fmt.Fprintf(w, "\n  No endpoints found\n\n")
		return err
	}

	width := 0
	for _, ep := range endpoints {
		if len(ep.Pattern) > width {
			width = len(ep.Pattern)
		}
	}

	if _, err := fmt.Fprintf(w, "\n  %s\n\n", cyan("Endpoints")); err != nil {
		return err
	}
	for _, ep := range endpoints {
		methods := "page"
		if len(ep.Methods) > 0 {
			methods = strings.Join(ep.Methods, ",")
		}
		line := fmt.Sprintf("  %-*s  %s", width, ep.Pattern, green(methods))
		if len(ep.Params) > 0 {
			line += "  " + dim(scanner.ParamsRecord(ep.Params))
		}
		if len(ep.Queries) > 0 {
			line += "  " + dim("query: "+strings.Join(ep.Queries, ","))
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n  Total: %d endpoints\n\n", len(endpoints))
	return err
}
