package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bia-service/internal/model"
)

func TestLoad_EmbeddedTablesComplete(t *testing.T) {
	tables, err := Load()
	require.NoError(t, err)

	for _, ft := range model.FunctionTypes {
		row, ok := tables.Function(ft)
		assert.True(t, ok, "function type %s", ft)
		assert.Empty(t, row.missing(), "function type %s", ft)
		assert.NotContains(t, row.MTPD, model.TBD)
	}
	assert.Equal(t, []string{"apac", "eu", "na"}, tables.Regions())
}

func TestFunction_UnknownTypeUsesDefaultRow(t *testing.T) {
	tables, err := Load()
	require.NoError(t, err)

	row, ok := tables.Function("quantum")
	assert.False(t, ok)
	assert.Equal(t, "72 hours", row.MTPD)
	assert.Equal(t, []string{"ISO 22301"}, row.ComplianceRequirements)
}

func TestFunction_ReturnsCopies(t *testing.T) {
	tables, err := Load()
	require.NoError(t, err)

	row, _ := tables.Function(model.FunctionTypeProduct)
	row.ComplianceRequirements[0] = "tampered"

	again, _ := tables.Function(model.FunctionTypeProduct)
	assert.Equal(t, "SOC 2 Type II", again.ComplianceRequirements[0])
}

func TestRegion_CaseInsensitiveAndUnknown(t *testing.T) {
	tables, err := Load()
	require.NoError(t, err)

	eu, ok := tables.Region(" EU ")
	assert.True(t, ok)
	assert.Equal(t, "European Union", eu.DataResidency)

	mars, ok := tables.Region("mars")
	assert.False(t, ok)
	assert.Equal(t, model.TBD, mars.LegalEntity)
	assert.Equal(t, model.TBD, mars.RPOTarget)
}

func TestParse_RejectsIncompleteRows(t *testing.T) {
	_, err := Parse([]byte(`
function_types:
  product:
    criticality_tier: "Tier 1"
default:
  criticality_tier: "Tier 3"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "function_types.product: missing")
	assert.Contains(t, err.Error(), "function_types.platform: no row")
	assert.Contains(t, err.Error(), "default: missing")
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("function_types: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rules: parse yaml")
}
