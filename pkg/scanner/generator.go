package scanner

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/spf13/afero"
	"github.com/watanabe-1/rpc4next-sub000/pkg/logger"
)

// ClientModule is the package the generated declarations import helper types from.
const ClientModule = "rpc4next/client"

// GeneratorConfig holds configuration for code generation.
type GeneratorConfig struct {
	// AppDir is the app directory path (default: app)
	AppDir string
	// OutputPath is the generated declaration file (default: src/generated/rpc.ts)
	OutputPath string
	// ParamsFile, when set, is written next to every endpoint with route params
	ParamsFile string
	// Fs is the filesystem to read and write (default: OS filesystem)
	Fs afero.Fs
	// Logger receives progress output; nil is silent
	Logger *logger.Logger
}

// Generator turns scan results into the TypeScript declaration artifact.
type Generator struct {
	config  GeneratorConfig
	scanner *Scanner
	last    *ScanResult
}

// NewGenerator creates a new Generator with the given config.
func NewGenerator(config GeneratorConfig) *Generator {
	if config.AppDir == "" {
		config.AppDir = "app"
	}
	if config.OutputPath == "" {
		config.OutputPath = filepath.Join("src", "generated", "rpc.ts")
	}
	if config.Fs == nil {
		config.Fs = afero.NewOsFs()
	}
	return &Generator{
		config: config,
		scanner: NewScanner(config.AppDir, config.OutputPath,
			WithFs(config.Fs),
			WithLogger(config.Logger),
		),
	}
}

// Scanner returns the generator's scanner so callers can invalidate it.
func (g *Generator) Scanner() *Scanner {
	return g.scanner
}

// GenerateResult holds the result of code generation.
type GenerateResult struct {
	// ScanResult is the scan results used for generation
	ScanResult *ScanResult
	// GeneratedFiles are the paths written by this run
	GeneratedFiles []string
	// Unchanged is true when the scan result was identical to the previous run
	Unchanged bool
}

// Generate scans the app directory and writes the declaration file and,
// when configured, the params files.
func (g *Generator) Generate() (*GenerateResult, error) {
	scanResult, err := g.scanner.Scan()
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	result := &GenerateResult{ScanResult: scanResult}
	if scanResult == g.last {
		result.Unchanged = true
		return result, nil
	}

	output := g.scanner.OutputPath()
	data, err := Render(scanResult)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", output, err)
	}
	written, err := writeIfChanged(g.config.Fs, output, data)
	if err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", output, err)
	}
	if written {
		result.GeneratedFiles = append(result.GeneratedFiles, output)
	}

	if g.config.ParamsFile != "" {
		for _, entry := range scanResult.Params {
			path := filepath.Join(entry.Dir, g.config.ParamsFile)
			data, err := RenderParamsFile(entry)
			if err != nil {
				return nil, fmt.Errorf("failed to render %s: %w", path, err)
			}
			written, err := writeIfChanged(g.config.Fs, path, data)
			if err != nil {
				return nil, fmt.Errorf("failed to write %s: %w", path, err)
			}
			if written {
				result.GeneratedFiles = append(result.GeneratedFiles, path)
			}
		}
	}

	g.last = scanResult
	return result, nil
}

// SortedImports returns imports de-duplicated and ordered by source file,
// then by alias.
func SortedImports(imports []ImportRef) []ImportRef {
	seen := make(map[ImportRef]bool, len(imports))
	out := make([]ImportRef, 0, len(imports))
	for _, imp := range imports {
		if seen[imp] {
			continue
		}
		seen[imp] = true
		out = append(out, imp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SourceFile != out[j].SourceFile {
			return out[i].SourceFile < out[j].SourceFile
		}
		return out[i].Alias < out[j].Alias
	})
	return out
}

// importLine is one grouped import statement.
type importLine struct {
	Source  string
	Symbols string
}

// Render renders the declaration file for a scan result.
func Render(result *ScanResult) ([]byte, error) {
	helpers := map[string]bool{}
	body := renderNode(result.Schema, "", helpers)

	var helperNames []string
	for name := range helpers {
		helperNames = append(helperNames, name)
	}
	sort.Strings(helperNames)

	var lines []importLine
	for _, imp := range SortedImports(result.Imports) {
		symbol := imp.ExportedName + " as " + imp.Alias
		if n := len(lines); n > 0 && lines[n-1].Source == imp.SourceFile {
			lines[n-1].Symbols += ", " + symbol
			continue
		}
		lines = append(lines, importLine{Source: imp.SourceFile, Symbols: symbol})
	}

	return execute(rpcTmpl, map[string]any{
		"ClientModule": ClientModule,
		"Helpers":      helperNames,
		"Imports":      lines,
		"Body":         body,
	})
}

// RenderParamsFile renders the co-located params declaration.
func RenderParamsFile(entry ParamsEntry) ([]byte, error) {
	return execute(paramsTmpl, entry)
}

func execute(tmpl *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute %s template: %w", tmpl.Name(), err)
	}
	return buf.Bytes(), nil
}

// renderNode renders a schema node as an intersection of its capabilities
// and an object literal of its children.
func renderNode(n *SchemaNode, indent string, helpers map[string]bool) string {
	var parts []string
	if n != nil {
		for _, c := range n.Capabilities {
			parts = append(parts, renderCapability(c, helpers))
		}
	}

	if n != nil && len(n.Children) > 0 {
		inner := indent + "  "
		var b strings.Builder
		b.WriteString("{\n")
		for i, c := range n.Children {
			b.WriteString(inner)
			b.WriteString(strconv.Quote(c.Key))
			b.WriteString(": ")
			b.WriteString(renderNode(c.Node, inner, helpers))
			if i < len(n.Children)-1 {
				b.WriteString(",")
			}
			b.WriteString("\n")
		}
		b.WriteString(indent)
		b.WriteString("}")
		parts = append(parts, b.String())
	}

	if len(parts) == 0 {
		return "{}"
	}
	return strings.Join(parts, " & ")
}

func renderCapability(c Capability, helpers map[string]bool) string {
	switch c.Kind {
	case CapabilityEndpoint:
		helpers["Endpoint"] = true
		return "Endpoint"
	case CapabilityQuery:
		key := c.Name + "Key"
		helpers[key] = true
		return fmt.Sprintf("Record<%s, %s>", key, c.Alias)
	case CapabilityMethod:
		return fmt.Sprintf("Record<%s, typeof %s>", strconv.Quote(MethodKey(c.Name)), c.Alias)
	case CapabilityParams:
		helpers["ParamsKey"] = true
		return fmt.Sprintf("Record<ParamsKey, %s>", ParamsRecord(c.Params))
	}
	return "{}"
}

// writeIfChanged writes data unless the file already holds it.
func writeIfChanged(fs afero.Fs, path string, data []byte) (bool, error) {
	if existing, err := afero.ReadFile(fs, path); err == nil && bytes.Equal(existing, data) {
		return false, nil
	} else if err != nil && !os.IsNotExist(err) {
		return false, err
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, err
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return false, err
	}
	return true, nil
}

const rpcTemplate = `// Code generated by rpc4next. DO NOT EDIT.
{{if .Helpers}}import type { {{join .Helpers ", "}} } from {{quote .ClientModule}};
{{end}}{{range .Imports}}import type { {{.Symbols}} } from {{quote .Source}};
{{end}}
export type PathStructure = {{.Body}};
`

const paramsTemplate = `// Code generated by rpc4next. DO NOT EDIT.
export type Params = {{.Record}};
`

var (
	rpcTmpl = template.Must(template.New("rpc").Funcs(template.FuncMap{
		"quote": strconv.Quote,
		"join":  strings.Join,
	}).Parse(rpcTemplate))
	paramsTmpl = template.Must(template.New("params").Parse(paramsTemplate))
)
