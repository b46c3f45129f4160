package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bia-service/internal/bia"
	"github.com/sells-group/bia-service/internal/model"
)

func TestGenerateCmd_DryRun(t *testing.T) {
	t.Setenv("BIA_STORE_DATABASE_URL", filepath.Join(t.TempDir(), "bia.db"))
	t.Setenv("BIA_SOURCES_FIXTURE_DIR", testFixtureDir)
	t.Setenv("BIA_LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"generate", "Payments Core", "--type", "product", "--dry-run", "--region", "eu"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		genDryRun = false
		genRegions = nil
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Document (dry run, not stored)")
	assert.Contains(t, out.String(), "Payments Core (product)")

	env, err := initEnv(t.Context(), cfg, "generate")
	require.NoError(t, err)
	defer env.Close()
	docs, err := env.Store.ListDocuments(t.Context(), model.DocumentFilter{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestPrintSummary(t *testing.T) {
	env, err := initEnv(t.Context(), testConfig(t), "generate")
	require.NoError(t, err)
	defer env.Close()

	doc, err := env.Generator.Build(t.Context(), bia.Request{
		FunctionName: "Payments Core",
		FunctionType: model.FunctionTypeProduct,
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	printSummary(&buf, doc, true)
	out := buf.String()
	assert.Contains(t, out, "dry run, not stored")
	assert.Contains(t, out, "Confidence:   0.80 (High)")
	assert.Contains(t, out, "Completeness: 100%")
	assert.Contains(t, out, "iso_classification")
}

func TestPrintSummary_Degraded(t *testing.T) {
	c := testConfig(t)
	c.Sources.FixtureDir = t.TempDir()

	env, err := initEnv(t.Context(), c, "generate")
	require.NoError(t, err)
	defer env.Close()

	doc, err := env.Generator.Build(t.Context(), bia.Request{
		FunctionName: "Payments Core",
		FunctionType: model.FunctionTypeProduct,
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	printSummary(&buf, doc, false)
	out := buf.String()
	assert.Contains(t, out, "(Low)")
	assert.Contains(t, out, "defaults")
	assert.Contains(t, out, "Missing:      registry, escalation")
	assert.Contains(t, out, "Forecast:")
}
