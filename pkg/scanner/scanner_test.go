package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAppDir = "/project/app"
	testOutput = "/project/src/generated/rpc.ts"
)

func newTestFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(testAppDir, 0755))
	for rel, content := range files {
		path := filepath.Join(testAppDir, filepath.FromSlash(rel))
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}
	return fs
}

func newTestScanner(fs afero.Fs) *Scanner {
	return NewScanner(testAppDir, testOutput, WithFs(fs))
}

func childKeys(n *SchemaNode) []string {
	var keys []string
	for _, c := range n.Children {
		keys = append(keys, c.Key)
	}
	return keys
}

func capsOf(n *SchemaNode, kind CapabilityKind) []Capability {
	var out []Capability
	for _, c := range n.Capabilities {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func TestScanner_DynamicRouteWithMethods(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"api/users/[id]/route.ts": `
export async function GET() {}
export async function POST() {}
export async function OPTIONS() {}
`,
	})

	result, err := newTestScanner(fs).Scan()
	require.NoError(t, err)

	node := result.Schema.Child("api").Child("users").Child("_id")
	require.NotNil(t, node)
	assert.True(t, node.IsEndpoint())
	assert.Equal(t, []string{"GET", "POST"}, node.Methods())

	params := capsOf(node, CapabilityParams)
	require.Len(t, params, 1)
	assert.Equal(t, []Param{{Name: "id", Arity: AritySingle}}, params[0].Params)
	assert.Empty(t, node.Children)

	require.Len(t, result.Imports, 2)
	assert.Equal(t, "GET", result.Imports[0].ExportedName)
	assert.Equal(t, "POST", result.Imports[1].ExportedName)
	assert.Equal(t, "../../app/api/users/[id]/route", result.Imports[0].SourceFile)
	assert.Equal(t, AliasFor("GET", "../../app/api/users/[id]/route"), result.Imports[0].Alias)

	require.Len(t, result.Params, 1)
	assert.Equal(t, `{ "id": string }`, result.Params[0].Record)
	assert.Equal(t, filepath.Join(testAppDir, "api", "users", "[id]"), result.Params[0].Dir)
}

func TestScanner_GroupIsTransparent(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"(group)/home/page.tsx": "export default function Page() {}",
	})

	result, err := newTestScanner(fs).Scan()
	require.NoError(t, err)

	assert.Equal(t, []string{"home"}, childKeys(result.Schema))
	home := result.Schema.Child("home")
	assert.True(t, home.IsEndpoint())
	assert.Empty(t, capsOf(home, CapabilityParams))
	assert.Empty(t, result.Imports)
}

func TestScanner_ParallelSlotIsTransparent(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"@modal/page.tsx":       "export default function Page() {}",
		"@modal/login/page.tsx": "export type Query = { next: string }",
	})

	result, err := newTestScanner(fs).Scan()
	require.NoError(t, err)

	assert.True(t, result.Schema.IsEndpoint(), "slot root capabilities are promoted")
	assert.Equal(t, []string{"login"}, childKeys(result.Schema))
	queries := capsOf(result.Schema.Child("login"), CapabilityQuery)
	require.Len(t, queries, 1)
	assert.Equal(t, "Query", queries[0].Name)
}

func TestScanner_ExcludedSegments(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"_components/page.tsx":          "export default function X() {}",
		"feed/(..)photo/page.tsx":       "export default function X() {}",
		"feed/page.tsx":                 "export default function Feed() {}",
		"feed/_lib/deep/route.ts":       "export const GET = () => {}",
		"(...)root/page.tsx":            "export default function X() {}",
		"(.)same/nested/page.tsx":       "export default function X() {}",
		"(..)(..)twice/nested/page.tsx": "export default function X() {}",
	})

	result, err := newTestScanner(fs).Scan()
	require.NoError(t, err)

	assert.Equal(t, []string{"feed"}, childKeys(result.Schema))
	feed := result.Schema.Child("feed")
	assert.True(t, feed.IsEndpoint())
	assert.Empty(t, feed.Children)
	assert.Empty(t, result.Imports)
}

func TestScanner_ExcludedSegmentsAreNotWalked(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"_components/button/page.tsx": "export default function X() {}",
		"feed/(..)photo/page.tsx":     "export default function X() {}",
		"feed/page.tsx":               "export default function Feed() {}",
	})

	s := newTestScanner(fs)
	_, err := s.Scan()
	require.NoError(t, err)

	var visited []string
	visited = append(visited, s.ExistenceCache().Keys()...)
	visited = append(visited, s.SchemaCache().Keys()...)
	for _, key := range visited {
		assert.NotContains(t, key, "_components")
		assert.NotContains(t, key, "(..)photo")
	}
}

func TestScanner_CatchAllParams(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"[org]/docs/[...slug]/page.tsx":   "export default function Page() {}",
		"[org]/shop/[[...path]]/page.tsx": "export default function Page() {}",
	})

	result, err := newTestScanner(fs).Scan()
	require.NoError(t, err)

	org := result.Schema.Child("_org")
	require.NotNil(t, org)
	assert.False(t, org.IsEndpoint())

	docs := org.Child("docs").Child("___slug")
	require.NotNil(t, docs)
	assert.Equal(t, []Param{
		{Name: "org", Arity: AritySingle},
		{Name: "slug", Arity: ArityCatchAll},
	}, capsOf(docs, CapabilityParams)[0].Params)

	shop := org.Child("shop").Child("_____path")
	require.NotNil(t, shop)
	assert.Equal(t, `{ "org": string; "path": string[] | undefined }`, ParamsRecord(capsOf(shop, CapabilityParams)[0].Params))

	assert.Len(t, result.Params, 2)
}

func TestScanner_SiblingParamsDoNotLeak(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"[a]/x/page.tsx": "export default function Page() {}",
		"[b]/page.tsx":   "export default function Page() {}",
	})

	result, err := newTestScanner(fs).Scan()
	require.NoError(t, err)

	b := result.Schema.Child("_b")
	require.NotNil(t, b)
	assert.Equal(t, []Param{{Name: "b", Arity: AritySingle}}, capsOf(b, CapabilityParams)[0].Params)

	x := result.Schema.Child("_a").Child("x")
	assert.Equal(t, []Param{{Name: "a", Arity: AritySingle}}, capsOf(x, CapabilityParams)[0].Params)
}

func TestScanner_EndpointAndParent(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"users/page.tsx":      "export type Query = { page: number }",
		"users/route.ts":      "export function GET() {}",
		"users/[id]/page.tsx": "export default function Page() {}",
	})

	result, err := newTestScanner(fs).Scan()
	require.NoError(t, err)

	users := result.Schema.Child("users")
	require.NotNil(t, users)
	assert.True(t, users.IsEndpoint())
	assert.Equal(t, []string{"_id"}, childKeys(users))
	assert.Len(t, capsOf(users, CapabilityEndpoint), 1, "endpoint marker is not duplicated")

	// page.tsx sorts before route.ts, so Query precedes GET.
	var kinds []CapabilityKind
	for _, c := range users.Capabilities {
		kinds = append(kinds, c.Kind)
	}
	assert.Equal(t, []CapabilityKind{CapabilityEndpoint, CapabilityQuery, CapabilityMethod}, kinds)
}

func TestScanner_GroupMergesWithSibling(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"home/page.tsx":                   "export default function Page() {}",
		"(marketing)/home/about/page.tsx": "export default function Page() {}",
	})

	result, err := newTestScanner(fs).Scan()
	require.NoError(t, err)

	assert.Equal(t, []string{"home"}, childKeys(result.Schema))
	home := result.Schema.Child("home")
	assert.True(t, home.IsEndpoint())
	assert.Equal(t, []string{"about"}, childKeys(home))
}

func TestScanner_SortedKeys(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"zeta/page.tsx":  "",
		"alpha/page.tsx": "",
		"[id]/page.tsx":  "",
		"mid/page.tsx":   "",
	})

	result, err := newTestScanner(fs).Scan()
	require.NoError(t, err)
	assert.Equal(t, []string{"_id", "alpha", "mid", "zeta"}, childKeys(result.Schema))
}

func TestScanner_PrunesDirectoriesWithoutEndpoints(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"empty/readme.md":       "nothing",
		"empty/deeper/util.ts":  "export const x = 1",
		"real/page.tsx":         "",
		"real/components/a.tsx": "",
	})

	s := newTestScanner(fs)
	result, err := s.Scan()
	require.NoError(t, err)

	assert.Equal(t, []string{"real"}, childKeys(result.Schema))
	found, ok := s.ExistenceCache().Get(filepath.Join(testAppDir, "empty"))
	assert.True(t, ok)
	assert.False(t, found)
}

func TestScanner_EmptyAppDir(t *testing.T) {
	fs := newTestFs(t, nil)

	result, err := newTestScanner(fs).Scan()
	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
	assert.Empty(t, result.Imports)
}

func TestScanner_MissingAppDir(t *testing.T) {
	s := NewScanner("/nowhere/app", testOutput, WithFs(afero.NewMemMapFs()))

	result, err := s.Scan()
	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
}

func TestScanner_Determinism(t *testing.T) {
	files := map[string]string{
		"api/users/[id]/route.ts":   "export const GET = 1; export const DELETE = 2",
		"api/users/route.ts":        "export function GET() {}\nexport { create as POST }",
		"(shop)/cart/page.tsx":      "export type OptionalQuery = {}",
		"docs/[[...path]]/page.tsx": "",
	}

	first, err := newTestScanner(newTestFs(t, files)).Scan()
	require.NoError(t, err)
	second, err := newTestScanner(newTestFs(t, files)).Scan()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	firstOut, err := Render(first)
	require.NoError(t, err)
	secondOut, err := Render(second)
	require.NoError(t, err)
	assert.Equal(t, firstOut, secondOut)
}

func TestScanner_CacheTransparency(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"a/page.tsx":       "",
		"a/[id]/route.ts":  "export const GET = 1",
		"b/(g)/c/page.tsx": "",
	})
	s := newTestScanner(fs)

	cold, err := s.Scan()
	require.NoError(t, err)
	warm, err := s.Scan()
	require.NoError(t, err)

	assert.Same(t, cold, warm, "cache hits preserve identity")

	fresh, err := newTestScanner(fs).Scan()
	require.NoError(t, err)
	assert.Equal(t, fresh, warm)
}

func TestScanner_InvalidateFileLocality(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"foo/page.tsx":     "",
		"foo/bar/page.tsx": "",
		"other/page.tsx":   "",
	})
	s := newTestScanner(fs)
	_, err := s.Scan()
	require.NoError(t, err)

	s.InvalidateFile(filepath.Join(testAppDir, "foo", "page.tsx"))

	keys := s.SchemaCache().Keys()
	assert.NotContains(t, keys, testAppDir)
	assert.NotContains(t, keys, filepath.Join(testAppDir, "foo"))
	assert.Contains(t, keys, filepath.Join(testAppDir, "foo", "bar"))
	assert.Contains(t, keys, filepath.Join(testAppDir, "other"))

	_, ok := s.ExistenceCache().Get(filepath.Join(testAppDir, "foo"))
	assert.False(t, ok, "existence cache is invalidated too")
}

func TestScanner_UnrelatedInvalidationKeepsResult(t *testing.T) {
	fs := newTestFs(t, map[string]string{"foo/page.tsx": ""})
	s := newTestScanner(fs)

	before, err := s.Scan()
	require.NoError(t, err)
	keys := s.SchemaCache().Keys()

	s.Invalidate("/somewhere/else")

	assert.Equal(t, keys, s.SchemaCache().Keys())
	after, err := s.Scan()
	require.NoError(t, err)
	assert.Same(t, before, after)
}

func TestScanner_RescanAfterChange(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"api/route.ts":   "export const GET = 1",
		"other/page.tsx": "",
	})
	s := newTestScanner(fs)

	before, err := s.Scan()
	require.NoError(t, err)
	otherBefore, _ := s.SchemaCache().Get(filepath.Join(testAppDir, "other"))

	routeFile := filepath.Join(testAppDir, "api", "route.ts")
	require.NoError(t, afero.WriteFile(fs, routeFile, []byte("export const GET = 1\nexport const PUT = 2"), 0644))
	s.InvalidateFile(routeFile)

	after, err := s.Scan()
	require.NoError(t, err)

	assert.NotSame(t, before, after)
	assert.Equal(t, []string{"GET", "PUT"}, after.Schema.Child("api").Methods())
	assert.Equal(t, []string{"GET"}, before.Schema.Child("api").Methods(), "previous result is not mutated")

	otherAfter, _ := s.SchemaCache().Get(filepath.Join(testAppDir, "other"))
	assert.Same(t, otherBefore, otherAfter, "untouched sibling is reused")
}

func TestScanner_NewDirectoryAfterForget(t *testing.T) {
	fs := newTestFs(t, map[string]string{"a/page.tsx": ""})
	s := newTestScanner(fs)
	_, err := s.Scan()
	require.NoError(t, err)

	newDir := filepath.Join(testAppDir, "b")
	require.NoError(t, fs.MkdirAll(newDir, 0755))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(newDir, "page.tsx"), nil, 0644))
	s.Forget(newDir)

	result, err := s.Scan()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, childKeys(result.Schema))
}

func TestScanner_CachedChildIsNotAliased(t *testing.T) {
	fs := newTestFs(t, map[string]string{"a/b/page.tsx": ""})
	s := newTestScanner(fs)

	result, err := s.Scan()
	require.NoError(t, err)
	child, ok := s.SchemaCache().Get(filepath.Join(testAppDir, "a"))
	require.True(t, ok)

	assert.NotSame(t, child.Schema, result.Schema.Child("a"))
	assert.Equal(t, child.Schema, result.Schema.Child("a"))
}

// failingFs fails to open one path.
type failingFs struct {
	afero.Fs
	fail string
}

func (f failingFs) Open(name string) (afero.File, error) {
	if name == f.fail {
		return nil, &os.PathError{Op: "open", Path: name, Err: errors.New("permission denied")}
	}
	return f.Fs.Open(name)
}

func TestScanner_ReadErrorLeavesNoPartialEntries(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"ok/page.tsx":     "",
		"broken/page.tsx": "",
	})
	broken := filepath.Join(testAppDir, "broken", "page.tsx")
	s := NewScanner(testAppDir, testOutput, WithFs(failingFs{Fs: fs, fail: broken}))

	_, err := s.Scan()
	require.Error(t, err)
	assert.Contains(t, err.Error(), broken)

	keys := s.SchemaCache().Keys()
	assert.NotContains(t, keys, testAppDir)
	assert.NotContains(t, keys, filepath.Join(testAppDir, "broken"))
}

func TestEndpoints(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"page.tsx":                "",
		"api/users/[id]/route.ts": "export const GET = 1\nexport type Query = {}",
		"docs/[...slug]/page.tsx": "",
	})

	result, err := newTestScanner(fs).Scan()
	require.NoError(t, err)

	eps := Endpoints(result.Schema)
	require.Len(t, eps, 3)
	assert.Equal(t, "/", eps[0].Pattern)
	assert.Equal(t, "/api/users/[id]", eps[1].Pattern)
	assert.Equal(t, []string{"GET"}, eps[1].Methods)
	assert.Equal(t, []string{"Query"}, eps[1].Queries)
	assert.Equal(t, []Param{{Name: "id", Arity: AritySingle}}, eps[1].Params)
	assert.Equal(t, "/docs/[...slug]", eps[2].Pattern)
}
