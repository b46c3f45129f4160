// Package export renders BIA documents as spreadsheets for reviewers who work
// outside the API.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/bia-service/internal/model"
)

// Sheet names, in workbook order.
const (
	SheetSummary    = "Summary"
	SheetSections   = "Sections"
	SheetRegions    = "Regions"
	SheetPredictive = "Predictive"
	SheetSources    = "Sources"
)

// ContentType is the media type of the workbook Write produces.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Filename returns a download name such as "bia-payments-core-v1.0.xlsx".
func Filename(doc *model.Document) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '-'
	}, strings.TrimSpace(doc.FunctionName))
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "document"
	}
	return fmt.Sprintf("bia-%s-v%s.xlsx", slug, doc.Version)
}

// Write renders doc as an XLSX workbook to w.
func Write(w io.Writer, doc *model.Document) error {
	if doc == nil {
		return eris.New("export: nil document")
	}

	f := xlsx.NewFile()
	builders := []struct {
		name  string
		build func(*xlsx.Sheet, *model.Document)
	}{
		{SheetSummary, summarySheet},
		{SheetSections, sectionsSheet},
		{SheetRegions, regionsSheet},
		{SheetPredictive, predictiveSheet},
		{SheetSources, sourcesSheet},
	}
	for _, b := range builders {
		sheet, err := f.AddSheet(b.name)
		if err != nil {
			return eris.Wrapf(err, "export: add sheet %s", b.name)
		}
		b.build(sheet, doc)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

func summarySheet(sh *xlsx.Sheet, doc *model.Document) {
	addRow(sh, "Field", "Value")
	addRow(sh, "Document ID", doc.ID)
	addRow(sh, "Function", doc.FunctionName)
	addRow(sh, "Function type", string(doc.FunctionType))
	addRow(sh, "Version", doc.Version)
	addRow(sh, "Status", string(doc.Status))
	addRow(sh, "DRI", doc.DRIName)
	addRow(sh, "DRI team", doc.DRITeam)
	addRow(sh, "Created by", doc.CreatedBy)
	addRow(sh, "Created at", timestamp(&doc.CreatedAt))
	addRow(sh, "Approved by", doc.ApprovedBy)
	addRow(sh, "Approved at", timestamp(doc.ApprovedAt))
	addRow(sh, "Approval comments", doc.ApprovalComments)

	ca := doc.ConfidenceAssessment
	addFloatRow(sh, "Overall confidence", ca.OverallConfidence)
	addFloatRow(sh, "Data completeness", ca.DataCompleteness)
	addRow(sh, "Confidence level", ca.ConfidenceLevel)
	addRow(sh, "Missing sources", joinSources(ca.MissingSources))
	for i, rec := range ca.Recommendations {
		addRow(sh, fmt.Sprintf("Recommendation %d", i+1), rec)
	}
	if doc.Fusion.RecordID != "" {
		addRow(sh, "Risk record", doc.Fusion.RecordID)
		addRow(sh, "Risk record status", doc.Fusion.Status)
		addRow(sh, "Last sync", timestamp(doc.Fusion.LastSync))
	}
}

// sectionsSheet flattens the six sections into section / field / value rows
// with the section's confidence and contributing sources repeated per row.
func sectionsSheet(sh *xlsx.Sheet, doc *model.Document) {
	addRow(sh, "Section", "Field", "Value", "Confidence", "Sources")
	section := func(name string, meta model.SectionMeta, fields [][2]string) {
		for _, kv := range fields {
			row := sh.AddRow()
			row.AddCell().SetString(name)
			row.AddCell().SetString(kv[0])
			row.AddCell().SetString(kv[1])
			row.AddCell().SetFloat(meta.ConfidenceScore)
			row.AddCell().SetString(joinSources(meta.DataSources))
		}
	}

	p := doc.Personnel
	key := make([]string, 0, len(p.KeyPersonnel))
	for _, kp := range p.KeyPersonnel {
		key = append(key, fmt.Sprintf("%s (%s)", kp.Name, kp.Role))
	}
	section("personnel", p.SectionMeta, [][2]string{
		{"dri", p.DRI.Name},
		{"dri_role", p.DRI.Role},
		{"team_name", p.TeamName},
		{"team_size", p.TeamSize},
		{"key_personnel", strings.Join(key, "; ")},
		{"on_call_rotation", p.OnCallRotation},
		{"escalation_policy", p.EscalationPolicy},
		{"escalation_contacts", strings.Join(p.EscalationContacts, "; ")},
	})

	bi := doc.BusinessImpact
	section("business_impact", bi.SectionMeta, [][2]string{
		{"impact_tier", bi.ImpactTier},
		{"annual_revenue", bi.AnnualRevenue},
		{"revenue_impact_per_hour", bi.RevenueImpactPerHour},
		{"revenue_impact_per_day", bi.RevenueImpactPerDay},
		{"customers_affected", bi.CustomersAffected},
		{"cost_center", bi.CostCenter},
		{"regulatory_penalty_exposure", bi.RegulatoryPenaltyExposure},
	})

	t := doc.Technology
	comps := make([]string, 0, len(t.Components))
	for _, c := range t.Components {
		comps = append(comps, fmt.Sprintf("%s [%s, %s]", c.Name, c.Type, c.Tier))
	}
	section("technology", t.SectionMeta, [][2]string{
		{"service_tier", t.ServiceTier},
		{"hosting_platform", t.HostingPlatform},
		{"components", strings.Join(comps, "; ")},
		{"dependencies", strings.Join(t.Dependencies, "; ")},
		{"data_stores", strings.Join(t.DataStores, "; ")},
		{"availability_30d", t.Availability30d},
		{"error_rate", t.ErrorRate},
		{"monitoring_coverage", t.MonitoringCoverage},
	})

	r := doc.Recovery
	section("recovery", r.SectionMeta, [][2]string{
		{"current_rto", r.CurrentRTO},
		{"current_rpo", r.CurrentRPO},
		{"target_rto", r.TargetRTO},
		{"target_rpo", r.TargetRPO},
		{"forecast_rto", r.ForecastRTO},
		{"forecast_rpo", r.ForecastRPO},
		{"recovery_strategy", r.RecoveryStrategy},
		{"backup_frequency", r.BackupFrequency},
		{"meets_target", r.MeetsTarget},
	})

	rc := doc.RiskCompliance
	section("risk_compliance", rc.SectionMeta, [][2]string{
		{"rule_set", rc.RuleSet},
		{"risk_level", rc.RiskLevel},
		{"compliance_requirements", strings.Join(rc.ComplianceRequirements, "; ")},
		{"data_classification", rc.DataClassification},
		{"incidents_90d", rc.IncidentHistory.Incidents90d},
		{"major_incidents_90d", rc.IncidentHistory.MajorIncidents90d},
		{"mean_time_to_resolve", rc.IncidentHistory.MeanTimeToResolve},
	})

	iso := doc.ISOClassification
	section("iso_classification", iso.SectionMeta, [][2]string{
		{"rule_set", iso.RuleSet},
		{"criticality_tier", iso.CriticalityTier},
		{"data_classification", iso.DataClassification},
		{"mtpd", iso.MTPD},
		{"mbco", iso.MBCO},
		{"resource_requirements", strings.Join(iso.ResourceRequirements, "; ")},
		{"asset_owner", iso.AssetOwner},
		{"component_count", iso.ComponentCount},
	})
}

func regionsSheet(sh *xlsx.Sheet, doc *model.Document) {
	addRow(sh, "Region", "Legal entity", "Regulatory framework", "Data residency", "RTO target", "RPO target", "Confidence")
	for _, o := range doc.RegionalOverlays {
		row := addRow(sh, o.Region, o.LegalEntity, o.RegulatoryFramework, o.DataResidency, o.RTOTarget, o.RPOTarget)
		row.AddCell().SetFloat(o.ConfidenceScore)
	}
}

func predictiveSheet(sh *xlsx.Sheet, doc *model.Document) {
	pa := doc.PredictiveAnalysis
	addRow(sh, "Field", "Value")
	addRow(sh, "Source", pa.Source)
	addRow(sh, "Horizon (days)", fmt.Sprintf("%d", pa.HorizonDays))
	addRow(sh, "RTO current", pa.RTOCurrent)
	addRow(sh, "RTO forecast", pa.RTOForecast)
	addRow(sh, "RPO current", pa.RPOCurrent)
	addRow(sh, "RPO forecast", pa.RPOForecast)
	addRow(sh, "Risk level", pa.RiskAssessment.Level)
	addFloatRow(sh, "Risk score", pa.RiskAssessment.Score)
	addRow(sh, "Risk factors", strings.Join(pa.RiskAssessment.Factors, "; "))
	addFloatRow(sh, "Confidence", pa.ConfidenceOverall)
	if pa.Note != "" {
		addRow(sh, "Note", pa.Note)
	}

	addRow(sh, "Scenario", "RTO", "RPO", "Probability")
	for _, s := range []struct {
		name string
		sc   model.Scenario
	}{
		{"best_case", pa.Scenarios.BestCase},
		{"likely_case", pa.Scenarios.LikelyCase},
		{"worst_case", pa.Scenarios.WorstCase},
	} {
		row := addRow(sh, s.name, s.sc.RTO, s.sc.RPO)
		row.AddCell().SetFloat(s.sc.Probability)
	}
}

func sourcesSheet(sh *xlsx.Sheet, doc *model.Document) {
	addRow(sh, "Source", "Connection", "Confidence", "Last updated")
	for _, ds := range doc.DataSources {
		row := addRow(sh, string(ds.Name), ds.ConnectionStatus)
		row.AddCell().SetFloat(ds.Confidence)
		row.AddCell().SetString(timestamp(&ds.LastUpdated))
	}
	for _, name := range doc.ConfidenceAssessment.MissingSources {
		addRow(sh, string(name), "unavailable", "", "")
	}
}

func addRow(sh *xlsx.Sheet, values ...string) *xlsx.Row {
	row := sh.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
	return row
}

func addFloatRow(sh *xlsx.Sheet, label string, v float64) {
	row := addRow(sh, label)
	row.AddCell().SetFloat(v)
}

func timestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func joinSources(names []model.SourceName) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return strings.Join(out, ", ")
}
