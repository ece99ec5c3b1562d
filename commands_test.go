package models

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cliFixture wires NewCommand against a temp workspace and fakes.
type cliFixture struct {
	cfg Config
	reg *fakeRegistry
	dir string
	out bytes.Buffer
}

// newCLIFixture creates a models directory with a manifest and the given
// pre-existing artifact files.
func newCLIFixture(t *testing.T, manifestJSON string, artifacts ...string) *cliFixture {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "models")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models.json"), []byte(manifestJSON), 0644))
	for _, name := range artifacts {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("onnx"), 0644))
	}

	return &cliFixture{
		cfg: Config{ManifestPath: filepath.Join(dir, "models.json")},
		reg: newFakeRegistry(),
		dir: dir,
	}
}

// run executes the command tree with the fixture's fakes.
func (f *cliFixture) run(t *testing.T, extra []Option, args ...string) error {
	t.Helper()

	opts := append([]Option{
		WithRegistry(f.reg),
		WithConfirmer(StaticConfirmer(true)),
		WithOutput(&f.out),
	}, extra...)

	cmd := NewCommand(f.cfg, opts...)
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.Execute()
}

const cliManifest = `{
  "models": [
    {"id": "a", "name": "Model A", "url": "https://example.com/a.onnx",
     "output": "a.onnx", "db_model_name": "MODEL_A", "description": "model a"},
    {"id": "b", "name": "Model B", "url": "https://example.com/b.onnx",
     "output": "b.onnx", "db_model_name": "MODEL_B", "description": "model b"}
  ]
}`

func TestLoadCommandRegistersAndSkipsMissing(t *testing.T) {
	f := newCLIFixture(t, cliManifest, "a.onnx")

	err := f.run(t, nil, "load")
	require.NoError(t, err)

	assert.True(t, f.reg.registered.Has("MODEL_A"))
	assert.False(t, f.reg.registered.Has("MODEL_B"))
	assert.Contains(t, f.out.String(), SkipArtifactMissing)
	assert.Contains(t, f.out.String(), "1 loaded, 1 skipped, 0 failed")
}

func TestLoadCommandIdempotent(t *testing.T) {
	f := newCLIFixture(t, cliManifest, "a.onnx", "b.onnx")

	require.NoError(t, f.run(t, nil, "load"))
	require.Len(t, f.reg.registered, 2)
	callsAfterFirst := len(f.reg.calls)

	// Second run without --force skips everything; no duplicate entries.
	f.out.Reset()
	require.NoError(t, f.run(t, nil, "load"))
	assert.Len(t, f.reg.registered, 2)
	assert.Len(t, f.reg.calls, callsAfterFirst, "second run must issue no registry mutations")
	assert.Contains(t, f.out.String(), SkipAlreadyRegistered)
}

func TestLoadCommandForce(t *testing.T) {
	f := newCLIFixture(t, cliManifest, "a.onnx")
	f.reg.registered.Add("MODEL_A")

	err := f.run(t, nil, "load", "a", "--force")
	require.NoError(t, err)

	assert.Equal(t, []string{"deregister MODEL_A", "register MODEL_A"}, f.reg.calls)
	assert.True(t, f.reg.registered.Has("MODEL_A"))
}

func TestLoadCommandUnknownID(t *testing.T) {
	f := newCLIFixture(t, cliManifest, "a.onnx")

	err := f.run(t, nil, "load", "nope")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.reg.calls, "no mutation may occur on a fatal plan error")
}

func TestLoadCommandList(t *testing.T) {
	f := newCLIFixture(t, cliManifest)
	f.reg.registered.Add("MODEL_A")
	f.reg.registered.Add("OLD_ORPHAN")

	err := f.run(t, nil, "load", "--list")
	require.NoError(t, err)

	out := f.out.String()
	assert.Contains(t, out, "MODEL_A")
	assert.Contains(t, out, "MODEL_B")
	assert.Contains(t, out, "OLD_ORPHAN")
	assert.Contains(t, out, "(unknown)")
	assert.Contains(t, out, "1 of 2 manifest models loaded, 1 orphan(s)")
	assert.Empty(t, f.reg.calls, "--list must not mutate")
}

func TestDropCommandExplicit(t *testing.T) {
	f := newCLIFixture(t, cliManifest)
	f.reg.registered.Add("MODEL_A")

	err := f.run(t, nil, "drop", "a", "-y")
	require.NoError(t, err)
	assert.False(t, f.reg.registered.Has("MODEL_A"))
}

func TestDropCommandAllIncludesOrphans(t *testing.T) {
	f := newCLIFixture(t, cliManifest)
	f.reg.registered.Add("MODEL_A")
	f.reg.registered.Add("ORPHAN_X")

	err := f.run(t, nil, "drop", "--all", "-y")
	require.NoError(t, err)
	assert.Empty(t, f.reg.registered)
	assert.Contains(t, f.out.String(), "2 dropped")
}

func TestDropCommandConfirmationDeclined(t *testing.T) {
	f := newCLIFixture(t, cliManifest)
	f.reg.registered.Add("MODEL_A")

	err := f.run(t, []Option{WithConfirmer(StaticConfirmer(false))}, "drop", "a")
	require.NoError(t, err)

	assert.True(t, f.reg.registered.Has("MODEL_A"), "declined confirmation must leave the registry untouched")
	assert.NotContains(t, joinCalls(f.reg.calls), "deregister")
	assert.Contains(t, f.out.String(), "Aborted.")
	// The resolved plan was presented before the prompt.
	assert.Contains(t, f.out.String(), "MODEL_A (a)")
}

func TestDropCommandUnknownID(t *testing.T) {
	f := newCLIFixture(t, cliManifest)
	f.reg.registered.Add("MODEL_A")

	err := f.run(t, nil, "drop", "nope", "-y")
	require.ErrorIs(t, err, ErrNotFound)
	assert.True(t, f.reg.registered.Has("MODEL_A"))
	assert.NotContains(t, joinCalls(f.reg.calls), "deregister")
}

func TestDropCommandUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "all with explicit ids", args: []string{"drop", "--all", "a"}},
		{name: "no targets", args: []string{"drop"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCLIFixture(t, cliManifest)
			err := f.run(t, nil, tt.args...)
			assert.ErrorIs(t, err, ErrUsage)
			assert.Empty(t, f.reg.calls)
		})
	}
}

func TestDropCommandNothingToDrop(t *testing.T) {
	f := newCLIFixture(t, cliManifest)

	err := f.run(t, nil, "drop", "a", "-y")
	require.NoError(t, err)
	assert.Contains(t, f.out.String(), SkipNotRegistered)
	assert.Contains(t, f.out.String(), "No models to drop.")
}

func TestDropCommandList(t *testing.T) {
	f := newCLIFixture(t, cliManifest)
	f.reg.registered.Add("MODEL_B")
	f.reg.registered.Add("ORPHAN_X")

	err := f.run(t, nil, "drop", "--list")
	require.NoError(t, err)

	out := f.out.String()
	assert.Contains(t, out, "MODEL_B")
	assert.Contains(t, out, "ORPHAN_X")
	assert.Contains(t, out, "2 model(s) loaded")
}

func TestFetchCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("onnx-bytes"))
	}))
	defer server.Close()

	manifest := fmt.Sprintf(`{
	  "models": [
	    {"id": "a", "name": "Model A", "url": "%s/a.onnx",
	     "output": "a.onnx", "db_model_name": "MODEL_A", "description": "model a"}
	  ]
	}`, server.URL)

	f := newCLIFixture(t, manifest)
	err := f.run(t, []Option{WithHTTPClient(server.Client())}, "fetch")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(f.dir, "a.onnx"))
	assert.Contains(t, f.out.String(), "1 fetched, 0 skipped, 0 failed")
	assert.Empty(t, f.reg.calls, "fetch must never touch the registry")
}

func TestFetchCommandSkipsExisting(t *testing.T) {
	f := newCLIFixture(t, cliManifest, "a.onnx", "b.onnx")

	err := f.run(t, nil, "fetch")
	require.NoError(t, err)
	assert.Contains(t, f.out.String(), "0 fetched, 2 skipped, 0 failed")
}

func TestFetchCommandUnknownID(t *testing.T) {
	f := newCLIFixture(t, cliManifest)

	err := f.run(t, nil, "fetch", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

// joinCalls flattens call logs for substring assertions.
func joinCalls(calls []string) string {
	var buf bytes.Buffer
	for _, c := range calls {
		buf.WriteString(c)
		buf.WriteString("\n")
	}
	return buf.String()
}
