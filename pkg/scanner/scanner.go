package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"github.com/watanabe-1/rpc4next-sub000/pkg/logger"
)

// Scanner scans the app directory for endpoint files and builds the schema
// tree. Results are memoized per directory until invalidated.
type Scanner struct {
	fs     afero.Fs
	appDir string
	output string
	log    *logger.Logger

	// mu serializes scans and invalidations so an eviction never races a
	// scan that is about to store an entry for the same ancestry.
	mu      sync.Mutex
	exists  *Cache[bool]
	schemas *Cache[*ScanResult]
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithFs sets the filesystem to scan. Default is the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(s *Scanner) {
		s.fs = fs
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *logger.Logger) Option {
	return func(s *Scanner) {
		s.log = l
	}
}

// NewScanner creates a Scanner for appDir. outputPath is the generated file
// the import paths are made relative to; it is never read.
func NewScanner(appDir, outputPath string, opts ...Option) *Scanner {
	s := &Scanner{
		fs:      afero.NewOsFs(),
		appDir:  normalize(appDir),
		output:  normalize(outputPath),
		exists:  NewCache[bool]("exists"),
		schemas: NewCache[*ScanResult]("schema"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AppDir returns the absolute app directory.
func (s *Scanner) AppDir() string {
	return s.appDir
}

// OutputPath returns the absolute output file path.
func (s *Scanner) OutputPath() string {
	return s.output
}

// Fs returns the scanned filesystem.
func (s *Scanner) Fs() afero.Fs {
	return s.fs
}

// Scan returns the schema of the whole app directory. When nothing was
// invalidated since the last call the same *ScanResult is returned.
// A missing app directory yields an empty result.
func (s *Scanner) Scan() (*ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.fs.Stat(s.appDir); os.IsNotExist(err) {
		s.log.Warnf("App directory %s does not exist", s.appDir)
		return &ScanResult{Schema: &SchemaNode{}}, nil
	}

	return s.scanDir(s.appDir, nil)
}

// Invalidate evicts changedDir and all its ancestors from both caches.
func (s *Scanner) Invalidate(changedDir string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.schemas.Invalidate(changedDir)
	s.exists.Invalidate(changedDir)
	if len(removed) > 0 {
		s.log.Debugf("Invalidated %d cached directories for %s", len(removed), changedDir)
	}
}

// InvalidateFile invalidates the directory containing the changed file.
func (s *Scanner) InvalidateFile(changedFile string) {
	s.Invalidate(filepath.Dir(normalize(changedFile)))
}

// Forget evicts dir and everything below it, then invalidates its parent
// chain. Used when a whole directory appears or disappears.
func (s *Scanner) Forget(dir string) {
	s.mu.Lock()
	s.schemas.Forget(dir)
	s.exists.Forget(dir)
	s.mu.Unlock()

	s.Invalidate(filepath.Dir(normalize(dir)))
}

// Reset clears both caches.
func (s *Scanner) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas.Clear()
	s.exists.Clear()
}

// SchemaCache exposes the per-directory result cache.
func (s *Scanner) SchemaCache() *Cache[*ScanResult] {
	return s.schemas
}

// ExistenceCache exposes the per-directory endpoint existence cache.
func (s *Scanner) ExistenceCache() *Cache[bool] {
	return s.exists
}

// scanDir computes the ScanResult for dir. The cache is keyed by dir alone:
// a physical directory occupies one position in the tree, so its inherited
// params never differ between calls.
func (s *Scanner) scanDir(dir string, params []Param) (*ScanResult, error) {
	if cached, ok := s.schemas.Get(dir); ok {
		return cached, nil
	}

	infos, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	entries := make([]os.FileInfo, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			if ParseSegment(info.Name()).Excluded() {
				continue
			}
			ok, err := s.hasEndpoint(filepath.Join(dir, info.Name()))
			if err != nil {
				return nil, err
			}
			if ok {
				entries = append(entries, info)
			}
			continue
		}
		if IsEndpointFile(info.Name()) {
			entries = append(entries, info)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	result := &ScanResult{Schema: &SchemaNode{}}
	node := result.Schema
	hasEndpointFile := false

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if !entry.IsDir() {
			caps, imports, err := s.scanEndpointFile(path)
			if err != nil {
				return nil, err
			}
			hasEndpointFile = true
			for _, c := range caps {
				node.Capabilities = addCapability(node.Capabilities, c)
			}
			result.Imports = append(result.Imports, imports...)
			continue
		}

		seg := ParseSegment(entry.Name())
		childParams := params
		if p, ok := seg.Param(); ok {
			childParams = make([]Param, len(params), len(params)+1)
			copy(childParams, params)
			childParams = append(childParams, p)
		}

		child, err := s.scanDir(path, childParams)
		if err != nil {
			return nil, err
		}
		if child.IsEmpty() {
			continue
		}

		result.Imports = append(result.Imports, child.Imports...)
		result.Params = append(result.Params, child.Params...)

		if seg.Transparent() {
			for _, c := range child.Schema.Capabilities {
				node.Capabilities = addCapability(node.Capabilities, c)
			}
			for _, c := range child.Schema.Children {
				node.Children = attach(node.Children, c.Key, c.Node.Clone())
			}
			continue
		}

		node.Children = attach(node.Children, seg.Key(), child.Schema.Clone())
	}

	if hasEndpointFile && len(params) > 0 {
		node.Capabilities = addCapability(node.Capabilities, Capability{
			Kind:   CapabilityParams,
			Params: append([]Param(nil), params...),
		})
		result.Params = append(result.Params, ParamsEntry{
			Record: ParamsRecord(params),
			Dir:    dir,
			Params: append([]Param(nil), params...),
		})
	}

	s.schemas.Put(dir, result)
	return result, nil
}

// scanEndpointFile detects the query and method exports of one endpoint file.
func (s *Scanner) scanEndpointFile(path string) ([]Capability, []ImportRef, error) {
	content, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	text := string(content)
	source := s.importPath(path)

	caps := []Capability{{Kind: CapabilityEndpoint}}
	var imports []ImportRef

	for _, name := range QueryTypes {
		if !FindExport(text, name) {
			continue
		}
		alias := AliasFor(name, source)
		caps = append(caps, Capability{Kind: CapabilityQuery, Name: name, Alias: alias})
		imports = append(imports, ImportRef{ExportedName: name, SourceFile: source, Alias: alias})
		s.log.Debugf("Found %s in %s", name, path)
	}

	for _, method := range HTTPMethods {
		if !FindExport(text, method) {
			continue
		}
		alias := AliasFor(method, source)
		caps = append(caps, Capability{Kind: CapabilityMethod, Name: method, Alias: alias})
		imports = append(imports, ImportRef{ExportedName: method, SourceFile: source, Alias: alias})
		s.log.Debugf("Found handler %s in %s", method, path)
	}

	return caps, imports, nil
}

// hasEndpoint reports whether dir contains an endpoint file anywhere below
// it, skipping private and intercepting subtrees.
func (s *Scanner) hasEndpoint(dir string) (bool, error) {
	if found, ok := s.exists.Get(dir); ok {
		return found, nil
	}

	infos, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return false, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	found := false
	for _, info := range infos {
		if !info.IsDir() && IsEndpointFile(info.Name()) {
			found = true
			break
		}
	}
	if !found {
		for _, info := range infos {
			if !info.IsDir() || ParseSegment(info.Name()).Excluded() {
				continue
			}
			ok, err := s.hasEndpoint(filepath.Join(dir, info.Name()))
			if err != nil {
				return false, err
			}
			if ok {
				found = true
				break
			}
		}
	}

	s.exists.Put(dir, found)
	return found, nil
}

// importPath returns the module specifier of path as seen from the output
// file: relative, slash separated, extension stripped.
func (s *Scanner) importPath(path string) string {
	rel, err := filepath.Rel(filepath.Dir(s.output), path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
	if !strings.HasPrefix(rel, "../") && !strings.HasPrefix(rel, "./") && !strings.HasPrefix(rel, "/") {
		rel = "./" + rel
	}
	return rel
}

// addCapability appends c unless an identical capability is present.
func addCapability(caps []Capability, c Capability) []Capability {
	for _, existing := range caps {
		if sameCapability(existing, c) {
			return caps
		}
	}
	c.Params = append([]Param(nil), c.Params...)
	return append(caps, c)
}

func sameCapability(a, b Capability) bool {
	if a.Kind != b.Kind || a.Name != b.Name || a.Alias != b.Alias {
		return false
	}
	return ParamsRecord(a.Params) == ParamsRecord(b.Params)
}

// attach adds node under key, merging into an existing child with the same
// key. node must be owned by the caller.
func attach(children []SchemaChild, key string, node *SchemaNode) []SchemaChild {
	for i, c := range children {
		if c.Key == key {
			children[i].Node = merge(c.Node, node)
			return children
		}
	}
	return append(children, SchemaChild{Key: key, Node: node})
}

// merge folds b into a. Both must be owned by the caller.
func merge(a, b *SchemaNode) *SchemaNode {
	for _, c := range b.Capabilities {
		a.Capabilities = addCapability(a.Capabilities, c)
	}
	for _, c := range b.Children {
		a.Children = attach(a.Children, c.Key, c.Node)
	}
	return a
}
