package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/watanabe-1/rpc4next-sub000/internal/version"
	"github.com/watanabe-1/rpc4next-sub000/pkg/scanner"
	"gopkg.in/yaml.v3"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("base-dir", "app", "")
	fs.String("output", "src/generated/rpc.ts", "")
	fs.String("params-file", "", "")
	fs.Duration("debounce", 300*time.Millisecond, "")
	fs.Bool("watch", false, "")
	return fs
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rpc4next.yaml"), []byte("base_dir: from-file\noutput: file.ts\n"), 0644))

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--base-dir", "from-flag", "--debounce", "1s", "--watch"}))

	cfg, err := loadConfig(flags, dir, "")
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.BaseDir)
	assert.Equal(t, "file.ts", cfg.Output, "unchanged flags do not shadow the file")
	assert.Equal(t, time.Second, cfg.Debounce)
	assert.True(t, cfg.Watch)
}

func TestLoadConfig_Defaults(t *testing.T) {
	flags := testFlags()
	require.NoError(t, flags.Parse(nil))

	cfg, err := loadConfig(flags, t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, "app", cfg.BaseDir)
	assert.Equal(t, 300*time.Millisecond, cfg.Debounce)
	assert.False(t, cfg.Watch)
}

func TestLoadConfig_Invalid(t *testing.T) {
	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--params-file", "nested/params.ts"}))

	_, err := loadConfig(flags, t.TempDir(), "")
	assert.Error(t, err)
}

func testEndpoints() []scanner.Endpoint {
	return []scanner.Endpoint{
		{Pattern: "/", Keys: nil},
		{
			Pattern: "/users/[id]",
			Keys:    []string{"users", "_id"},
			Methods: []string{"GET"},
			Params:  []scanner.Param{{Name: "id", Arity: scanner.AritySingle}},
		},
	}
}

func TestWriteRoutes_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRoutes(&buf, testEndpoints(), "json"))

	var out struct {
		Routes []struct {
			Pattern string `json:"pattern"`
			Methods []string
			Params  []struct {
				Name  string `json:"name"`
				Arity string `json:"arity"`
			} `json:"params"`
		} `json:"routes"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, 2, out.Total)
	assert.Equal(t, "/users/[id]", out.Routes[1].Pattern)
	assert.Equal(t, "id", out.Routes[1].Params[0].Name)
	assert.Equal(t, "single", out.Routes[1].Params[0].Arity)
}

func TestWriteRoutes_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRoutes(&buf, testEndpoints(), "yaml"))

	var out map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, 2, out["total"])
}

func TestWriteRoutes_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRoutes(&buf, testEndpoints(), "table"))

	out := buf.String()
	assert.Contains(t, out, "/users/[id]")
	assert.Contains(t, out, "GET")
	assert.Contains(t, out, "page")
	assert.Contains(t, out, "Total: 2 endpoints")
}

func TestWriteRoutes_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRoutes(&buf, nil, "table"))
	assert.Contains(t, buf.String(), "No endpoints found")

	buf.Reset()
	require.NoError(t, writeRoutes(&buf, nil, "json"))
	assert.Contains(t, buf.String(), `"routes": []`)
}

func TestWriteRoutes_UnknownFormat(t *testing.T) {
	assert.Error(t, writeRoutes(&bytes.Buffer{}, nil, "xml"))
}

func TestGenerateOutput(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/p/app/users/[id]", 0755))
	require.NoError(t, afero.WriteFile(fs, "/p/app/users/[id]/route.ts", []byte("export const GET = 1"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/p/app/page.tsx", nil, 0644))

	gen := scanner.NewGenerator(scanner.GeneratorConfig{
		AppDir:     "/p/app",
		OutputPath: "/p/src/generated/rpc.ts",
		Fs:         fs,
	})
	result, err := gen.Generate()
	require.NoError(t, err)

	out := generateOutput(gen, result)
	assert.Equal(t, "/p/src/generated/rpc.ts", out.Output)
	assert.Equal(t, []string{"/p/src/generated/rpc.ts"}, out.Files)
	assert.Equal(t, 2, out.Endpoints)
	assert.Equal(t, 1, out.Imports)
	assert.Equal(t, 1, out.Params)
	assert.Equal(t, version.GeneratorSchemaVersion, out.SchemaVersion)
}

func TestJSONResponse_Error(t *testing.T) {
	data, err := json.Marshal(JSONResponse{Success: false, Error: "boom"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"boom"}`, string(data))
}
