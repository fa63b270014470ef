package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/watanabe-1/rpc4next-sub000/pkg/scanner"
)

// jsonOutput is the global flag for JSON output mode
var jsonOutput bool

// JSONResponse is the standard response wrapper for JSON output
type JSONResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// GenerateOutput represents the JSON output for the generate command
type GenerateOutput struct {
	Output        string   `json:"output"`
	Files         []string `json:"files"`
	Endpoints     int      `json:"endpoints"`
	Imports       int      `json:"imports"`
	Params        int      `json:"params"`
	SchemaVersion int      `json:"schema_version"`
}

// RoutesOutput represents the JSON output for the routes command
type RoutesOutput struct {
	Routes []scanner.Endpoint `json:"routes" yaml:"routes"`
	Total  int                `json:"total" yaml:"total"`
}

// OpenAPIOutput represents the JSON output for the openapi command
type OpenAPIOutput struct {
	File       string `json:"file"`
	Format     string `json:"format"`
	Version    string `json:"version"`
	Operations int    `json:"operations"`
}

// writeJSON writes v as indented JSON
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printJSON outputs data as formatted JSON to stdout
func printJSON(v any) {
	if err := writeJSON(os.Stdout, v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
	}
}

// printSuccess outputs a successful JSON response
func printSuccess(data any) {
	printJSON(JSONResponse{Success: true, Data: data})
}

// printJSONError outputs an error as JSON
func printJSONError(err error) {
	printJSON(JSONResponse{Success: false, Error: err.Error()})
}

// fail reports err in the active output mode and exits.
func fail(context string, err error) {
	if jsonOutput {
		printJSONError(fmt.Errorf("%s: %w", context, err))
	} else {
		red := color.New(color.FgRed).SprintFunc()
		fmt.Printf("  %s %s: %v\n\n", red("Error:"), context, err)
	}
	os.Exit(1)
}
