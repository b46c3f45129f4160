package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bia-service/internal/batch"
	"github.com/sells-group/bia-service/internal/model"
)

func TestBatchCmd(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BIA_STORE_DATABASE_URL", filepath.Join(dir, "bia.db"))
	t.Setenv("BIA_SOURCES_FIXTURE_DIR", testFixtureDir)
	t.Setenv("BIA_LOG_LEVEL", "error")

	input := filepath.Join(dir, "functions.csv")
	require.NoError(t, os.WriteFile(input, []byte(
		"function_name,function_type,regions\nPayments Core,product,eu\nLedger,platform,\n"), 0o644))
	output := filepath.Join(dir, "results.json")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"batch", input, "--concurrency", "1", "--output", output})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		batchConcurrency = 4
		batchOutput = ""
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "2 succeeded, 0 failed")
	assert.Contains(t, out.String(), "Payments Core")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"succeeded": 2`)

	env, err := initEnv(t.Context(), cfg, "generate")
	require.NoError(t, err)
	defer env.Close()
	docs, err := env.Store.ListDocuments(t.Context(), model.DocumentFilter{})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestPrintBatchSummary(t *testing.T) {
	var buf bytes.Buffer
	printBatchSummary(&buf, &batch.Summary{
		Total:     2,
		Succeeded: 1,
		Failed:    1,
		Duration:  1500 * time.Millisecond,
		Results: []batch.Result{
			{Line: 2, FunctionName: "Payments Core", FunctionType: model.FunctionTypeProduct, OverallConfidence: 0.8, ConfidenceLevel: "High", DataCompleteness: 100},
			{Line: 3, FunctionName: "Ledger", FunctionType: "warehouse", Error: "bia: validation failed"},
		},
	})
	out := buf.String()
	assert.Contains(t, out, "0.80 High")
	assert.Contains(t, out, "failed: bia: validation failed")
	assert.Contains(t, out, "1 succeeded, 1 failed in 1.5s")
}
