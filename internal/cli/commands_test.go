package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/receiptcheck/internal/load"
	"github.com/roach88/receiptcheck/internal/store"
	"github.com/roach88/receiptcheck/internal/testutil"
)

func TestSeedAndCleanup(t *testing.T) {
	b, getenv := fakeEnv(t)
	ctx := context.Background()

	out, err := execute(t, getenv, "seed", "--receipt-id", "perf-cli")
	require.NoError(t, err, out)
	assert.Equal(t, "seeded receipt perf-cli\n", out)

	rec, err := b.Datastore.GetReceipt(ctx, "perf-cli")
	require.NoError(t, err)
	assert.Equal(t, "perf-cli", rec.ID)
	exists, err := b.Blobs.PDFExists(ctx, "perf-cli")
	require.NoError(t, err)
	assert.True(t, exists)

	out, err = execute(t, getenv, "--format", "json", "cleanup", "--receipt-id", "perf-cli")
	require.NoError(t, err, out)
	var resp struct {
		Status string     `json:"status"`
		Data   SeedResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "removed", resp.Data.Action)

	_, err = b.Datastore.GetReceipt(ctx, "perf-cli")
	assert.True(t, store.IsNotFound(err))
	exists, err = b.Blobs.PDFExists(ctx, "perf-cli")
	require.NoError(t, err)
	assert.False(t, exists)

	// Nothing left to remove is not an error.
	_, err = execute(t, getenv, "cleanup", "--receipt-id", "perf-cli")
	require.NoError(t, err)
}

func TestSeedReceiptIDFromVarsFile(t *testing.T) {
	b, getenv := fakeEnv(t)
	ctx := context.Background()
	vars := filepath.Join(t.TempDir(), "dev.environment.json")
	require.NoError(t, os.WriteFile(vars, []byte(`{"environment": [{"env": "dev", "receiptTestId": "perf-from-vars"}]}`), 0644))

	out, err := execute(t, getenv, "--vars", vars, "seed")
	require.NoError(t, err, out)
	assert.Equal(t, "seeded receipt perf-from-vars\n", out)
	_, err = b.Datastore.GetReceipt(ctx, "perf-from-vars")
	require.NoError(t, err)

	// Seeding again replaces the leftover receipt instead of conflicting.
	_, err = execute(t, getenv, "--vars", vars, "seed")
	require.NoError(t, err)

	out, err = execute(t, getenv, "--vars", vars, "cleanup")
	require.NoError(t, err, out)
	assert.Equal(t, "removed receipt perf-from-vars\n", out)
	_, err = b.Datastore.GetReceipt(ctx, "perf-from-vars")
	assert.True(t, store.IsNotFound(err))

	// The flag wins over the file.
	out, err = execute(t, getenv, "--vars", vars, "seed", "--receipt-id", "perf-flag")
	require.NoError(t, err, out)
	assert.Equal(t, "seeded receipt perf-flag\n", out)
}

func TestSeedMissingPDF(t *testing.T) {
	_, getenv := fakeEnv(t)

	_, err := execute(t, getenv, "seed", "--pdf", filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to seed")
}

func TestTokenCommand(t *testing.T) {
	_, getenv := fakeEnv(t)

	out, err := execute(t, getenv, "token", "JHNDOE00A01F205N")
	require.NoError(t, err, out)
	assert.Equal(t, testutil.FakeToken("JHNDOE00A01F205N")+"\n", out)

	out, err = execute(t, getenv, "--format", "json", "token", "JHNDOE00A01F205N", "--search")
	require.NoError(t, err, out)
	var resp struct {
		Data TokenResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "JHNDOE00A01F205N", resp.Data.FiscalCode)
	assert.Equal(t, testutil.FakeToken("JHNDOE00A01F205N"), resp.Data.Token)
}

func TestTokenCommandRejectedKey(t *testing.T) {
	_, getenv := fakeEnv(t)
	wrongKey := func(k string) string {
		if k == "TOKENIZER_API_KEY" {
			return "wrong"
		}
		return getenv(k)
	}

	_, err := execute(t, wrongKey, "token", "JHNDOE00A01F205N")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "status 403")
}

func TestTokenCommandRequiresTokenizer(t *testing.T) {
	_, err := execute(t, func(string) string { return "" }, "token", "JHNDOE00A01F205N")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "TOKENIZER_URL is required")
}

func TestLoadCommand(t *testing.T) {
	b, getenv := fakeEnv(t)
	optionsFile := filepath.Join(t.TempDir(), "smoke.json")
	require.NoError(t, os.WriteFile(optionsFile, []byte(`{"vus": 2, "iterations": 4}`), 0644))

	out, err := execute(t, getenv, "--format", "json", "load", optionsFile)
	require.NoError(t, err, out)

	var resp struct {
		Status string       `json:"status"`
		Data   load.Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 4, resp.Data.Iterations)
	assert.Equal(t, 8, resp.Data.Requests)
	assert.Zero(t, resp.Data.Failed)

	_, err = b.Datastore.GetReceipt(context.Background(), load.DefaultReceiptID)
	assert.True(t, store.IsNotFound(err), "teardown must remove the receipt")
}

func TestLoadCommandFailedChecks(t *testing.T) {
	_, getenv := fakeEnv(t)
	optionsFile := filepath.Join(t.TempDir(), "smoke.yaml")
	require.NoError(t, os.WriteFile(optionsFile, []byte("vus: 1\niterations: 2\n"), 0644))

	out, err := execute(t, getenv, "load", optionsFile, "--fiscal-code", "SHORT")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ "+load.CheckDetailsStatus)
}

func TestLoadCommandInvalidOptions(t *testing.T) {
	optionsFile := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(optionsFile, []byte("vus: -1\n"), 0644))

	_, err := execute(t, func(string) string { return "" }, "load", optionsFile)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBDDCommand(t *testing.T) {
	_, getenv := fakeEnv(t)

	out, err := execute(t, getenv, "bdd", "../../features", "--godog-format", "progress")
	require.NoError(t, err, out)
}

func TestBDDCommandMissingPath(t *testing.T) {
	_, err := execute(t, func(string) string { return "" }, "bdd", "/nonexistent/features")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
