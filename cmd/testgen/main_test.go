package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testgen/internal/submission"
)

// received captures what the fake service saw.
type received struct {
	mu       sync.Mutex
	code     string
	fileName string
	fileBody string
	calls    int
}

func (r *received) snapshot() received {
	r.mu.Lock()
	defer r.mu.Unlock()
	return received{code: r.code, fileName: r.fileName, fileBody: r.fileBody, calls: r.calls}
}

func newService(t *testing.T, status int, body any) (*httptest.Server, *received) {
	t.Helper()
	rec := &received{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.calls++
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			rec.code = r.FormValue("code")
			if f, hdr, err := r.FormFile("file"); err == nil {
				data, _ := io.ReadAll(f)
				rec.fileName, rec.fileBody = hdr.Filename, string(data)
				f.Close()
			}
		}
		rec.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// executeCommand runs the CLI in an isolated working directory.
func executeCommand(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	for _, key := range []string{"TESTGEN_ENV", "TESTGEN_ENDPOINT_LOCAL", "TESTGEN_ENDPOINT_DEPLOYED", "TESTGEN_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())

	resetFlags(rootCmd)
	cfg, resolvedPath, logger, closeLog = nil, "", nil, nil

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "config.yaml")}, args...))

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, _, err := executeCommand(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "testgen dev\n", out)
}

func TestGenerate_InlineCode(t *testing.T) {
	srv, rec := newService(t, http.StatusOK, map[string]string{"test_cases": "def test_add():\n    assert add(1, 2) == 3"})

	out, _, err := executeCommand(t, "", "generate", "--endpoint", srv.URL, "--code", "def add(a, b): return a + b")
	require.NoError(t, err)
	assert.Equal(t, "def test_add():\n    assert add(1, 2) == 3\n", out)

	got := rec.snapshot()
	assert.Equal(t, 1, got.calls)
	assert.Equal(t, "def add(a, b): return a + b", got.code)
	assert.Empty(t, got.fileName)
}

func TestGenerate_FileUpload(t *testing.T) {
	srv, rec := newService(t, http.StatusOK, map[string]string{"test_cases": "def test_calc(): pass"})
	src := filepath.Join(t.TempDir(), "calc.py")
	require.NoError(t, os.WriteFile(src, []byte("def calc(): pass"), 0644))

	out, _, err := executeCommand(t, "", "generate", "--endpoint", srv.URL, "--file", src)
	require.NoError(t, err)
	assert.Equal(t, "def test_calc(): pass\n", out)

	got := rec.snapshot()
	assert.Equal(t, "calc.py", got.fileName)
	assert.Equal(t, "def calc(): pass", got.fileBody)
	assert.Empty(t, got.code)
}

func TestGenerate_Stdin(t *testing.T) {
	srv, rec := newService(t, http.StatusOK, map[string]string{"test_cases": "ok"})

	_, _, err := executeCommand(t, "x = 1\n", "generate", "--endpoint", srv.URL, "--stdin")
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", rec.snapshot().code)
}

func TestGenerate_OutputFile(t *testing.T) {
	srv, _ := newService(t, http.StatusOK, map[string]string{"test_cases": "def test_out(): pass"})
	dest := filepath.Join(t.TempDir(), "tests.txt")

	out, stderr, err := executeCommand(t, "", "generate", "--endpoint", srv.URL, "--code", "c", "--output", dest)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, stderr, dest)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "def test_out(): pass", string(data))
}

func TestGenerate_NoInput(t *testing.T) {
	srv, rec := newService(t, http.StatusOK, map[string]string{"test_cases": "unused"})

	out, _, err := executeCommand(t, "", "generate", "--endpoint", srv.URL)
	require.Error(t, err)
	assert.Equal(t, submission.ValidationMessage, err.Error())
	assert.Empty(t, out)
	assert.Equal(t, 0, rec.snapshot().calls)
}

func TestGenerate_ServerError(t *testing.T) {
	srv, _ := newService(t, http.StatusInternalServerError, map[string]string{"detail": "boom"})

	out, _, err := executeCommand(t, "", "generate", "--endpoint", srv.URL, "--code", "c")
	require.Error(t, err)
	assert.Equal(t, "Error generating test cases: request failed with status code 500", err.Error())
	assert.Empty(t, out)
}

func TestGenerate_MissingFile(t *testing.T) {
	srv, rec := newService(t, http.StatusOK, map[string]string{"test_cases": "unused"})

	_, _, err := executeCommand(t, "", "generate", "--endpoint", srv.URL, "--file", filepath.Join(t.TempDir(), "absent.py"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent.py")
	assert.Equal(t, 0, rec.snapshot().calls)
}

func TestGenerate_WatchRequiresFile(t *testing.T) {
	_, _, err := executeCommand(t, "", "generate", "--code", "c", "--watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--watch requires --file")
}

func TestGenerate_CodeAndStdinExclusive(t *testing.T) {
	_, _, err := executeCommand(t, "", "generate", "--code", "c", "--stdin")
	require.Error(t, err)
}

func TestConfigShow_Deployed(t *testing.T) {
	out, _, err := executeCommand(t, "", "--env", "deployed", "--endpoint", "https://tests.example.com/generate-test-cases", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "environment: deployed")
	assert.Contains(t, out, "# active endpoint: https://tests.example.com/generate-test-cases")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	out, _, err := executeCommand(t, "", "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, _, err = executeCommand(t, "", "config", "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = executeCommand(t, "", "config", "init", "--config", path, "--force")
	require.NoError(t, err)
}

func TestInvalidEnvironment(t *testing.T) {
	_, _, err := executeCommand(t, "", "--env", "staging", "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid environment")
}
