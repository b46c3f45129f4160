// Package rules holds the static business-rule tables used to derive the
// compliance, classification, recovery and regional parts of a BIA.
package rules

import (
	_ "embed"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/bia-service/internal/model"
)

//go:embed rules.yaml
var embedded []byte

// FunctionRule is one row of the function-type table.
type FunctionRule struct {
	CriticalityTier        string   `yaml:"criticality_tier"`
	RiskLevel              string   `yaml:"risk_level"`
	DataClassification     string   `yaml:"data_classification"`
	MTPD                   string   `yaml:"mtpd"`
	MBCO                   string   `yaml:"mbco"`
	RTOTarget              string   `yaml:"rto_target"`
	RPOTarget              string   `yaml:"rpo_target"`
	RecoveryStrategy       string   `yaml:"recovery_strategy"`
	ComplianceRequirements []string `yaml:"compliance_requirements"`
	ResourceRequirements   []string `yaml:"resource_requirements"`
}

// RegionRule is one row of the regional table.
type RegionRule struct {
	LegalEntity         string `yaml:"legal_entity"`
	RegulatoryFramework string `yaml:"regulatory_framework"`
	DataResidency       string `yaml:"data_residency"`
	RTOTarget           string `yaml:"rto_target"`
	RPOTarget           string `yaml:"rpo_target"`
}

// Tables is the parsed, read-only rule set. Lookups return copies so callers
// cannot mutate the shared rows.
type Tables struct {
	functions map[model.FunctionType]FunctionRule
	fallback  FunctionRule
	regions   map[string]RegionRule
}

type document struct {
	FunctionTypes map[string]FunctionRule `yaml:"function_types"`
	Default       FunctionRule            `yaml:"default"`
	Regions       map[string]RegionRule   `yaml:"regions"`
}

// Load parses the embedded rule tables.
func Load() (*Tables, error) {
	return Parse(embedded)
}

// Parse builds Tables from YAML. Every row must be fully specified, and every
// defined function type must have a row.
func Parse(data []byte) (*Tables, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "rules: parse yaml")
	}

	t := &Tables{
		functions: make(map[model.FunctionType]FunctionRule, len(doc.FunctionTypes)),
		fallback:  doc.Default,
		regions:   make(map[string]RegionRule, len(doc.Regions)),
	}

	var problems []string
	for name, row := range doc.FunctionTypes {
		if missing := row.missing(); len(missing) > 0 {
			problems = append(problems, "function_types."+name+": missing "+strings.Join(missing, ", "))
		}
		t.functions[model.FunctionType(name)] = row
	}
	for _, ft := range model.FunctionTypes {
		if _, ok := t.functions[ft]; !ok {
			problems = append(problems, "function_types."+string(ft)+": no row")
		}
	}
	if missing := doc.Default.missing(); len(missing) > 0 {
		problems = append(problems, "default: missing "+strings.Join(missing, ", "))
	}
	for code, row := range doc.Regions {
		if row.LegalEntity == "" || row.RegulatoryFramework == "" || row.DataResidency == "" ||
			row.RTOTarget == "" || row.RPOTarget == "" {
			problems = append(problems, "regions."+code+": incomplete row")
		}
		t.regions[strings.ToLower(code)] = row
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, eris.Errorf("rules: invalid tables: %s", strings.Join(problems, "; "))
	}
	return t, nil
}

// Function returns the row for ft. Unknown types get the default row and
// ok=false.
func (t *Tables) Function(ft model.FunctionType) (FunctionRule, bool) {
	row, ok := t.functions[ft]
	if !ok {
		row = t.fallback
	}
	return row.clone(), ok
}

// Region returns the row for a region code (case-insensitive). Unknown codes
// get a row of TBD placeholders and ok=false.
func (t *Tables) Region(code string) (RegionRule, bool) {
	row, ok := t.regions[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return RegionRule{
			LegalEntity:         model.TBD,
			RegulatoryFramework: model.TBD,
			DataResidency:       model.TBD,
			RTOTarget:           model.TBD,
			RPOTarget:           model.TBD,
		}, false
	}
	return row, true
}

// Regions lists the known region codes in sorted order.
func (t *Tables) Regions() []string {
	codes := make([]string, 0, len(t.regions))
	for code := range t.regions {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (r FunctionRule) clone() FunctionRule {
	r.ComplianceRequirements = append([]string(nil), r.ComplianceRequirements...)
	r.ResourceRequirements = append([]string(nil), r.ResourceRequirements...)
	return r
}

func (r FunctionRule) missing() []string {
	var out []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			out = append(out, name)
		}
	}
	check("criticality_tier", r.CriticalityTier)
	check("risk_level", r.RiskLevel)
	check("data_classification", r.DataClassification)
	check("mtpd", r.MTPD)
	check("mbco", r.MBCO)
	check("rto_target", r.RTOTarget)
	check("rpo_target", r.RPOTarget)
	check("recovery_strategy", r.RecoveryStrategy)
	if len(r.ComplianceRequirements) == 0 {
		out = append(out, "compliance_requirements")
	}
	if len(r.ResourceRequirements) == 0 {
		out = append(out, "resource_requirements")
	}
	return out
}
