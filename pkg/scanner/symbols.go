package scanner

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
)

// Endpoint file names. A directory containing one of these is reachable.
const (
	PageFile  = "page.tsx"
	RouteFile = "route.ts"
)

var endpointFiles = map[string]bool{
	PageFile:  true,
	RouteFile: true,
}

// IsEndpointFile reports whether name is a recognized endpoint file name.
func IsEndpointFile(name string) bool {
	return endpointFiles[name]
}

// QueryTypes are the exported type names treated as query contracts.
var QueryTypes = []string{"Query", "OptionalQuery"}

// HTTPMethods are the handler exports recognized in route files.
// OPTIONS is not addressable through the RPC client and is left out.
var HTTPMethods = []string{"GET", "HEAD", "POST", "PUT", "DELETE", "PATCH"}

// MethodKey returns the schema key for an HTTP method (GET -> "$get").
func MethodKey(method string) string {
	return "$" + strings.ToLower(method)
}

// exportListRe matches `export { a, b as c }` and `export type { ... } from "x"`.
var exportListRe = regexp.MustCompile(`export\s+(?:type\s+)?\{([^}]*)\}`)

// exportDeclRe caches the declaration pattern per symbol name.
var exportDeclRe = map[string]*regexp.Regexp{}

func init() {
	for _, name := range append(append([]string{}, QueryTypes...), HTTPMethods...) {
		exportDeclRe[name] = declPattern(name)
	}
}

func declPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`export\s+(?:declare\s+)?(?:` +
		`(?:type|interface)\s+` + regexp.QuoteMeta(name) + `\b` +
		`|(?:async\s+)?function(?:\s*\*\s*|\s+)` + regexp.QuoteMeta(name) + `\b` +
		`|(?:const|let|var)\s+` + regexp.QuoteMeta(name) + `\b)`)
}

// FindExport reports whether content exports a symbol called name, either
// through a declaration or an export list.
func FindExport(content, name string) bool {
	re, ok := exportDeclRe[name]
	if !ok {
		re = declPattern(name)
	}
	if re.MatchString(content) {
		return true
	}

	for _, m := range exportListRe.FindAllStringSubmatch(content, -1) {
		for _, item := range strings.Split(m[1], ",") {
			if exportedListName(item) == name {
				return true
			}
		}
	}
	return false
}

// exportedListName returns the name an export list item is exported as.
// Example: "handler as GET" -> "GET", "type Query" -> "Query"
func exportedListName(item string) string {
	fields := strings.Fields(item)
	if len(fields) > 0 && fields[0] == "type" {
		fields = fields[1:]
	}
	switch len(fields) {
	case 1:
		return fields[0]
	case 3:
		if fields[1] == "as" {
			return fields[2]
		}
	}
	return ""
}

// AliasFor returns the import identifier for name exported from sourceFile.
// The suffix is derived from the source path so the same (name, file) pair
// gets the same alias on every scan, cached or not, and two files exporting
// the same name never collide.
func AliasFor(name, sourceFile string) string {
	sum := sha256.Sum256([]byte(sourceFile))
	return fmt.Sprintf("%s_%x", name, sum[:4])
}
