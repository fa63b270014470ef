package scanner

import (
	"regexp"
	"strconv"
	"strings"
)

// Next.js-style pattern matchers
var (
	// [id] - dynamic segment
	// Matches: [id], [userId], [post-id]
	dynamicSegmentRe = regexp.MustCompile(`^\[([^\[\]\.][^\[\]]*)\]$`)

	// [...slug] - catch-all segment
	catchAllSegmentRe = regexp.MustCompile(`^\[\.\.\.([^\[\]]+)\]$`)

	// [[...slug]] - optional catch-all segment
	optionalCatchAllRe = regexp.MustCompile(`^\[\[\.\.\.([^\[\]]+)\]\]$`)

	// (group) - route group (doesn't affect URL)
	routeGroupRe = regexp.MustCompile(`^\(([^()]+)\)$`)
)

// interceptingPrefixes are the intercepting route markers, longest first.
var interceptingPrefixes = []string{"(..)(..)", "(...)", "(..)", "(.)"}

// Schema key prefixes for parameter segments. The generator turns them back
// into routing syntax.
const (
	DynamicKeyPrefix          = "_"
	CatchAllKeyPrefix         = "___"
	OptionalCatchAllKeyPrefix = "_____"
)

// ParseSegment classifies a directory name. It never fails: anything it does
// not recognize is a static segment.
func ParseSegment(name string) Segment {
	seg := Segment{Raw: name, Name: name, Type: SegmentStatic}

	// Route group: (admin)
	if matches := routeGroupRe.FindStringSubmatch(name); len(matches) > 1 {
		seg.Name = matches[1]
		seg.Type = SegmentGroup
		return seg
	}

	// Parallel slot: @modal
	if strings.HasPrefix(name, "@") {
		seg.Name = strings.TrimPrefix(name, "@")
		seg.Type = SegmentParallel
		return seg
	}

	// Private folder: _components
	if strings.HasPrefix(name, "_") {
		seg.Type = SegmentPrivate
		return seg
	}

	// Intercepting route: (.)photo, (..)photo, (..)(..)photo, (...)photo
	for _, prefix := range interceptingPrefixes {
		if strings.HasPrefix(name, prefix) {
			seg.Name = strings.TrimPrefix(name, prefix)
			seg.Type = SegmentIntercepting
			return seg
		}
	}

	// Optional catch-all: [[...slug]]
	if matches := optionalCatchAllRe.FindStringSubmatch(name); len(matches) > 1 {
		seg.Name = matches[1]
		seg.Type = SegmentOptionalCatchAll
		return seg
	}

	// Catch-all: [...slug]
	if matches := catchAllSegmentRe.FindStringSubmatch(name); len(matches) > 1 {
		seg.Name = matches[1]
		seg.Type = SegmentCatchAll
		return seg
	}

	// Dynamic: [id]
	if matches := dynamicSegmentRe.FindStringSubmatch(name); len(matches) > 1 {
		seg.Name = matches[1]
		seg.Type = SegmentDynamic
		return seg
	}

	return seg
}

// Key returns the schema key for the segment. Transparent and excluded
// segments have no key.
func (s Segment) Key() string {
	switch s.Type {
	case SegmentStatic:
		return s.Name
	case SegmentDynamic:
		return DynamicKeyPrefix + s.Name
	case SegmentCatchAll:
		return CatchAllKeyPrefix + s.Name
	case SegmentOptionalCatchAll:
		return OptionalCatchAllKeyPrefix + s.Name
	}
	return ""
}

// Param returns the route parameter bound by the segment.
func (s Segment) Param() (Param, bool) {
	switch s.Type {
	case SegmentDynamic:
		return Param{Name: s.Name, Arity: AritySingle}, true
	case SegmentCatchAll:
		return Param{Name: s.Name, Arity: ArityCatchAll}, true
	case SegmentOptionalCatchAll:
		return Param{Name: s.Name, Arity: ArityOptionalCatchAll}, true
	}
	return Param{}, false
}

// ParseKey reverses Segment.Key for parameter keys.
func ParseKey(key string) Segment {
	switch {
	case strings.HasPrefix(key, OptionalCatchAllKeyPrefix):
		name := strings.TrimPrefix(key, OptionalCatchAllKeyPrefix)
		return Segment{Raw: "[[..." + name + "]]", Name: name, Type: SegmentOptionalCatchAll}
	case strings.HasPrefix(key, CatchAllKeyPrefix):
		name := strings.TrimPrefix(key, CatchAllKeyPrefix)
		return Segment{Raw: "[..." + name + "]", Name: name, Type: SegmentCatchAll}
	case strings.HasPrefix(key, DynamicKeyPrefix):
		name := strings.TrimPrefix(key, DynamicKeyPrefix)
		return Segment{Raw: "[" + name + "]", Name: name, Type: SegmentDynamic}
	}
	return Segment{Raw: key, Name: key, Type: SegmentStatic}
}

// BuildURLPattern builds a URL pattern from schema keys.
// Example: ["api", "users", "_id"] -> "/api/users/[id]"
func BuildURLPattern(keys []string) string {
	if len(keys) == 0 {
		return "/"
	}
	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = ParseKey(key).Raw
	}
	return "/" + strings.Join(parts, "/")
}

// ParamType returns the TypeScript value type for a param arity.
func ParamType(a Arity) string {
	switch a {
	case ArityCatchAll:
		return "string[]"
	case ArityOptionalCatchAll:
		return "string[] | undefined"
	default:
		return "string"
	}
}

// ParamsRecord renders params as a TypeScript record literal.
// Example: [{id single}] -> `{ "id": string }`
func ParamsRecord(params []Param) string {
	if len(params) == 0 {
		return "{}"
	}
	fields := make([]string, len(params))
	for i, p := range params {
		fields[i] = strconv.Quote(p.Name) + ": " + ParamType(p.Arity)
	}
	return "{ " + strings.Join(fields, "; ") + " }"
}
