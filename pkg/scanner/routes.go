package scanner

// Endpoint is a flattened view of one reachable schema node.
type Endpoint struct {
	// Pattern is the route in Next.js syntax (e.g., "/users/[id]")
	Pattern string `json:"pattern" yaml:"pattern"`
	// Keys are the schema keys from the root to the endpoint
	Keys []string `json:"-" yaml:"-"`
	// Methods are the exported HTTP handlers in discovery order
	Methods []string `json:"methods,omitempty" yaml:"methods,omitempty"`
	// Queries are the exported query contract types
	Queries []string `json:"queries,omitempty" yaml:"queries,omitempty"`
	// Params are the route params inherited by the endpoint
	Params []Param `json:"params,omitempty" yaml:"params,omitempty"`
}

// Endpoints lists every endpoint of the tree in depth-first key order.
func Endpoints(root *SchemaNode) []Endpoint {
	var out []Endpoint
	walkEndpoints(root, nil, &out)
	return out
}

func walkEndpoints(n *SchemaNode, keys []string, out *[]Endpoint) {
	if n == nil {
		return
	}
	if n.IsEndpoint() {
		ep := Endpoint{
			Pattern: BuildURLPattern(keys),
			Keys:    append([]string(nil), keys...),
		}
		for _, c := range n.Capabilities {
			switch c.Kind {
			case CapabilityMethod:
				ep.Methods = append(ep.Methods, c.Name)
			case CapabilityQuery:
				ep.Queries = append(ep.Queries, c.Name)
			case CapabilityParams:
				ep.Params = append([]Param(nil), c.Params...)
			}
		}
		*out = append(*out, ep)
	}
	for _, c := range n.Children {
		next := make([]string, len(keys), len(keys)+1)
		copy(next, keys)
		walkEndpoints(c.Node, append(next, c.Key), out)
	}
}
