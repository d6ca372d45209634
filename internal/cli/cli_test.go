package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestVersionCmd(t *testing.T) {
	originalVersion := version
	version = "test-version-1.0.0"
	defer func() { version = originalVersion }()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "annkit version test-version-1.0.0")
}

func TestListCmd(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "GPU_IVF_PQ")
	assert.Contains(t, out, "BIN_FLAT")
	assert.Contains(t, out, "limit=1 policy=block")

	listJSON = true
	defer func() { listJSON = false }()
	out, err = execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, `"algorithm": "HNSW"`)
	assert.Contains(t, out, `"element_type": "bf16"`)
}

func TestBenchCmd(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ANNKIT_BLOB_BACKEND", "local")
	t.Setenv("ANNKIT_BLOB_ROOT", dir)
	t.Setenv("ANNKIT_LOG_LEVEL", "error")

	out, err := execute(t, "bench", "-a", "ivf_flat", "-n", "500", "-d", "8", "-q", "10", "--nlist", "4", "--nprobe", "4", "--save", "demo")
	require.NoError(t, err)
	assert.Contains(t, out, "algorithm:  IVF_FLAT/fp32")
	assert.Contains(t, out, "recall@10:  1.0000")
	assert.Contains(t, out, "saved:      indexes/demo/")

	entries, err := os.ReadDir(filepath.Join(dir, "indexes", "demo"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	benchOpts.save = ""
	for _, args := range [][]string{
		{"bench", "-a", "BIN_FLAT", "-t", "binary", "-n", "100", "-d", "64", "-q", "5"},
		{"bench", "-a", "GPU_IVF_PQ", "-t", "fp32", "-n", "300", "-d", "8", "-q", "5", "--nlist", "4"},
		{"bench", "-a", "HNSW", "-t", "fp16", "-n", "300", "-d", "8", "-q", "5"},
	} {
		out, err := execute(t, args...)
		require.NoError(t, err, args)
		assert.Contains(t, out, "qps")
	}

	_, err = execute(t, "bench", "-a", "NOPE")
	assert.Error(t, err)
}

func TestSavedCmd(t *testing.T) {
	out, err := execute(t, "saved")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved indexes.")

	_, err = execute(t, "saved", "rm", "missing")
	assert.NoError(t, err)
}
