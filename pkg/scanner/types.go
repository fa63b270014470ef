// Package scanner discovers Next.js-style route endpoints ([id], [...slug],
// [[...slug]], (group), @slot) under an app directory and builds the schema
// tree consumed by the rpc4next type generator.
//
// Symbol detection uses pattern matching over the raw file text, not a parser.
package scanner

// SegmentType represents the type of a route segment.
type SegmentType int

const (
	// SegmentStatic is a static path segment (e.g., "users")
	SegmentStatic SegmentType = iota
	// SegmentDynamic is a dynamic parameter (e.g., [id])
	SegmentDynamic
	// SegmentCatchAll is a catch-all parameter (e.g., [...slug])
	SegmentCatchAll
	// SegmentOptionalCatchAll is an optional catch-all (e.g., [[...slug]])
	SegmentOptionalCatchAll
	// SegmentGroup is a route group that doesn't affect the URL (e.g., (admin))
	SegmentGroup
	// SegmentParallel is a parallel route slot (e.g., @modal)
	SegmentParallel
	// SegmentIntercepting is an intercepting route (e.g., (..)photo)
	SegmentIntercepting
	// SegmentPrivate is a private folder (e.g., _components)
	SegmentPrivate
)

var segmentTypeNames = map[SegmentType]string{
	SegmentStatic:           "static",
	SegmentDynamic:          "dynamic",
	SegmentCatchAll:         "catch-all",
	SegmentOptionalCatchAll: "optional-catch-all",
	SegmentGroup:            "group",
	SegmentParallel:         "parallel",
	SegmentIntercepting:     "intercepting",
	SegmentPrivate:          "private",
}

func (t SegmentType) String() string {
	if name, ok := segmentTypeNames[t]; ok {
		return name
	}
	return "static"
}

// Segment represents a parsed path segment.
type Segment struct {
	// Raw is the original directory name (e.g., "[id]", "(admin)")
	Raw string
	// Name is the extracted parameter name (e.g., "id" from "[id]")
	Name string
	// Type is the segment type
	Type SegmentType
}

// Transparent reports whether the segment is spliced into its parent
// instead of contributing a key of its own.
func (s Segment) Transparent() bool {
	return s.Type == SegmentGroup || s.Type == SegmentParallel
}

// Excluded reports whether the segment's subtree is skipped entirely.
func (s Segment) Excluded() bool {
	return s.Type == SegmentPrivate || s.Type == SegmentIntercepting
}

// IsParam reports whether the segment binds a route parameter.
func (s Segment) IsParam() bool {
	switch s.Type {
	case SegmentDynamic, SegmentCatchAll, SegmentOptionalCatchAll:
		return true
	}
	return false
}

// Arity describes how many URL segments a route parameter binds.
type Arity int

const (
	// AritySingle binds exactly one segment.
	AritySingle Arity = iota
	// ArityCatchAll binds one or more trailing segments.
	ArityCatchAll
	// ArityOptionalCatchAll binds zero or more trailing segments.
	ArityOptionalCatchAll
)

func (a Arity) String() string {
	switch a {
	case ArityCatchAll:
		return "catchAll"
	case ArityOptionalCatchAll:
		return "optionalCatchAll"
	default:
		return "single"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Arity) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Param is one route parameter inherited from a dynamic ancestor segment.
type Param struct {
	Name  string `json:"name" yaml:"name"`
	Arity Arity  `json:"arity" yaml:"arity"`
}

// CapabilityKind identifies what a Capability contributes to an endpoint.
type CapabilityKind int

const (
	// CapabilityEndpoint marks a node as reachable.
	CapabilityEndpoint CapabilityKind = iota
	// CapabilityQuery exposes a query contract type (Query, OptionalQuery).
	CapabilityQuery
	// CapabilityMethod exposes an HTTP method handler.
	CapabilityMethod
	// CapabilityParams exposes the synthesized params record.
	CapabilityParams
)

// Capability is a single contribution to an endpoint's contract.
type Capability struct {
	Kind CapabilityKind
	// Name is the method (GET) or query convention (Query) name.
	Name string
	// Alias is the generated import identifier the capability refers to.
	Alias string
	// Params is set for CapabilityParams.
	Params []Param
}

// ImportRef is one imported symbol referenced by the schema.
type ImportRef struct {
	// ExportedName is the symbol exported by the source file (e.g., "GET")
	ExportedName string `json:"exportedName" yaml:"exportedName"`
	// SourceFile is the import path relative to the output file, without extension
	SourceFile string `json:"sourceFile" yaml:"sourceFile"`
	// Alias is the unique local identifier
	Alias string `json:"alias" yaml:"alias"`
}

// ParamsEntry records an endpoint directory that inherits route params.
type ParamsEntry struct {
	// Record is the TypeScript record literal (e.g., `{ "id": string }`)
	Record string
	// Dir is the absolute endpoint directory
	Dir string
	// Params are the inherited params in root-to-leaf order
	Params []Param
}

// SchemaChild is a keyed child of a SchemaNode.
type SchemaChild struct {
	Key  string
	Node *SchemaNode
}

// SchemaNode is a node of the schema tree. A node may be an endpoint,
// a directory, or both. Nodes are never mutated once returned by the scanner.
type SchemaNode struct {
	Capabilities []Capability
	Children     []SchemaChild
}

// IsEmpty reports whether the node has neither capabilities nor children.
func (n *SchemaNode) IsEmpty() bool {
	return n == nil || (len(n.Capabilities) == 0 && len(n.Children) == 0)
}

// IsEndpoint reports whether the node carries the endpoint marker.
func (n *SchemaNode) IsEndpoint() bool {
	if n == nil {
		return false
	}
	for _, c := range n.Capabilities {
		if c.Kind == CapabilityEndpoint {
			return true
		}
	}
	return false
}

// Child returns the child stored under key, or nil.
func (n *SchemaNode) Child(key string) *SchemaNode {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Key == key {
			return c.Node
		}
	}
	return nil
}

// Methods returns the method names exposed by the node in discovery order.
func (n *SchemaNode) Methods() []string {
	var methods []string
	for _, c := range n.Capabilities {
		if c.Kind == CapabilityMethod {
			methods = append(methods, c.Name)
		}
	}
	return methods
}

// Clone returns a deep copy of the node.
func (n *SchemaNode) Clone() *SchemaNode {
	if n == nil {
		return nil
	}
	out := &SchemaNode{}
	if len(n.Capabilities) > 0 {
		out.Capabilities = make([]Capability, len(n.Capabilities))
		for i, c := range n.Capabilities {
			c.Params = append([]Param(nil), c.Params...)
			out.Capabilities[i] = c
		}
	}
	if len(n.Children) > 0 {
		out.Children = make([]SchemaChild, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = SchemaChild{Key: c.Key, Node: c.Node.Clone()}
		}
	}
	return out
}

// ScanResult is the per-directory unit cached by the scanner and merged
// into parent results.
type ScanResult struct {
	Schema  *SchemaNode
	Imports []ImportRef
	Params  []ParamsEntry
}

// IsEmpty reports whether the directory contributed nothing.
func (r *ScanResult) IsEmpty() bool {
	return r == nil || r.Schema.IsEmpty()
}
