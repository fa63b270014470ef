// Package openapi exports the route handlers found by the scanner as an
// OpenAPI document.
package openapi

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/spf13/afero"
	"github.com/watanabe-1/rpc4next-sub000/pkg/scanner"
	"gopkg.in/yaml.v3"
)

// QueryExtension lists the query contract types exported next to a handler.
const QueryExtension = "x-rpc4next-query"

// Config configures document generation.
type Config struct {
	// Title is the API title (default: "API")
	Title string
	// Version is the API version (default: "1.0.0")
	Version string
	// Description is the API description
	Description string
	// OpenAPIVersion is the document version (default: "3.1.0")
	OpenAPIVersion string
	// Servers are the server URLs
	Servers []Server
}

// Server represents a server URL.
type Server struct {
	URL         string
	Description string
}

// Build creates a document with one operation per exported route handler.
// Page-only endpoints are not included.
func Build(endpoints []scanner.Endpoint, config Config) *openapi3.T {
	if config.Title == "" {
		config.Title = "API"
	}
	if config.Version == "" {
		config.Version = "1.0.0"
	}
	if config.OpenAPIVersion == "" {
		config.OpenAPIVersion = "3.1.0"
	}

	doc := &openapi3.T{
		OpenAPI: config.OpenAPIVersion,
		Info: &openapi3.Info{
			Title:       config.Title,
			Version:     config.Version,
			Description: config.Description,
		},
		Paths: openapi3.NewPaths(),
	}
	for _, srv := range config.Servers {
		doc.Servers = append(doc.Servers, &openapi3.Server{
			URL:         srv.URL,
			Description: srv.Description,
		})
	}

	for _, ep := range endpoints {
		if len(ep.Methods) == 0 {
			continue
		}
		item := &openapi3.PathItem{}
		for _, method := range ep.Methods {
			item.SetOperation(method, buildOperation(ep, method))
		}
		doc.Paths.Set(Path(ep.Keys), item)
	}

	return doc
}

// Path converts schema keys into an OpenAPI path template.
// Example: ["users", "_id"] -> "/users/{id}"
func Path(keys []string) string {
	if len(keys) == 0 {
		return "/"
	}
	parts := make([]string, len(keys))
	for i, key := range keys {
		seg := scanner.ParseKey(key)
		if seg.IsParam() {
			parts[i] = "{" + seg.Name + "}"
		} else {
			parts[i] = seg.Raw
		}
	}
	return "/" + strings.Join(parts, "/")
}

// OperationID derives an operation id from the method and schema keys.
// Example: GET ["api", "users", "_id"] -> "get_api_users_id"
func OperationID(method string, keys []string) string {
	parts := []string{strings.ToLower(method)}
	for _, key := range keys {
		parts = append(parts, scanner.ParseKey(key).Name)
	}
	if len(keys) == 0 {
		parts = append(parts, "root")
	}
	return strings.NewReplacer("-", "_", ".", "_").Replace(strings.Join(parts, "_"))
}

// tag uses the first static key after an optional "api" prefix.
func tag(keys []string) string {
	for i, key := range keys {
		seg := scanner.ParseKey(key)
		if seg.IsParam() {
			continue
		}
		if i == 0 && seg.Raw == "api" && len(keys) > 1 {
			continue
		}
		return seg.Raw
	}
	return "default"
}

func buildOperation(ep scanner.Endpoint, method string) *openapi3.Operation {
	op := &openapi3.Operation{
		OperationID: OperationID(method, ep.Keys),
		Summary:     fmt.Sprintf("%s %s", method, ep.Pattern),
		Tags:        []string{tag(ep.Keys)},
		Responses:   openapi3.NewResponses(),
	}

	for _, p := range ep.Params {
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: buildParameter(p)})
	}

	if len(ep.Queries) > 0 {
		op.Extensions = map[string]any{QueryExtension: ep.Queries}
	}

	op.Responses.Set("200", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: openapi3.Ptr("Success"),
		},
	})

	hasBody := method == "POST" || method == "PUT" || method == "PATCH"
	if hasBody {
		op.Responses.Set("400", &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: openapi3.Ptr("Bad Request"),
			},
		})
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Description: "Request body",
				Required:    true,
				Content: openapi3.NewContentWithJSONSchema(&openapi3.Schema{
					Type: &openapi3.Types{"object"},
				}),
			},
		}
	}

	if len(ep.Params) > 0 && method != "POST" {
		op.Responses.Set("404", &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: openapi3.Ptr("Not Found"),
			},
		})
	}

	return op
}

// buildParameter maps a route param to a path parameter. Catch-all params
// become string arrays; path parameters are always required.
func buildParameter(p scanner.Param) *openapi3.Parameter {
	schema := &openapi3.Schema{Type: &openapi3.Types{"string"}}
	description := fmt.Sprintf("%s parameter", p.Name)
	if p.Arity != scanner.AritySingle {
		schema = &openapi3.Schema{
			Type:  &openapi3.Types{"array"},
			Items: openapi3.NewSchemaRef("", &openapi3.Schema{Type: &openapi3.Types{"string"}}),
		}
		description = fmt.Sprintf("%s segments (%s)", p.Name, p.Arity)
	}

	return &openapi3.Parameter{
		Name:        p.Name,
		In:          openapi3.ParameterInPath,
		Required:    true,
		Description: description,
		Schema:      &openapi3.SchemaRef{Value: schema},
	}
}

// Marshal encodes the document as "json" or "yaml".
func Marshal(doc *openapi3.T, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return yaml.Marshal(doc)
	case "json", "":
		return json.MarshalIndent(doc, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported format: %s (use json or yaml)", format)
	}
}

// WriteFile encodes the document and writes it to path.
func WriteFile(fs afero.Fs, path string, doc *openapi3.T, format string) error {
	data, err := Marshal(doc, format)
	if err != nil {
		return err
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return afero.WriteFile(fs, path, data, 0644)
}
