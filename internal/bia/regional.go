package bia

import (
	"github.com/sells-group/bia-service/internal/model"
	"github.com/sells-group/bia-service/internal/rules"
)

// Regional overlay scores.
const (
	KnownRegionScore   = 0.85
	UnknownRegionScore = 0.5
)

// BuildRegionalOverlays returns one overlay per requested region, in request
// order. Unknown region codes produce TBD overlays, never an error.
func BuildRegionalOverlays(tables *rules.Tables, regions []string) []model.RegionalOverlay {
	out := make([]model.RegionalOverlay, 0, len(regions))
	for _, code := range regions {
		row, ok := tables.Region(code)
		score := KnownRegionScore
		if !ok {
			score = UnknownRegionScore
		}
		out = append(out, model.RegionalOverlay{
			Region:              code,
			LegalEntity:         row.LegalEntity,
			RegulatoryFramework: row.RegulatoryFramework,
			DataResidency:       row.DataResidency,
			RTOTarget:           row.RTOTarget,
			RPOTarget:           row.RPOTarget,
			ConfidenceScore:     score,
		})
	}
	return out
}
