package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bia-service/internal/model"
	"github.com/sells-group/bia-service/internal/source"
)

const pageSize = 500

// MetricsSnapshot holds a point-in-time view of BIA activity.
type MetricsSnapshot struct {
	// Document metrics (within lookback window).
	DocumentsTotal   int                  `json:"documents_total"`
	ByStatus         map[model.Status]int `json:"by_status"`
	PendingApproval  int                  `json:"pending_approval"`
	ApprovedUnsynced int                  `json:"approved_unsynced"`

	// Confidence metrics over non-archived documents.
	MeanConfidence    float64 `json:"mean_overall_confidence"`
	LowConfidence     int     `json:"low_confidence"`
	LowConfidenceRate float64 `json:"low_confidence_rate"`
	Scored            int     `json:"scored"`

	// Source health.
	Sources         []source.Status    `json:"sources"`
	SourcesDegraded []model.SourceName `json:"sources_degraded"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// DocumentLister is the slice of store.Store the collector reads.
type DocumentLister interface {
	ListDocuments(ctx context.Context, filter model.DocumentFilter) ([]model.Document, error)
}

// Collector gathers metrics from the document store and source adapters.
type Collector struct {
	docs     DocumentLister
	adapters []source.Adapter
	now      func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(docs DocumentLister, adapters []source.Adapter) *Collector {
	return &Collector{docs: docs, adapters: adapters, now: time.Now}
}

// Collect gathers a snapshot over documents created in the last lookbackHours.
// A lookback of zero covers every document.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		ByStatus:        make(map[model.Status]int),
		SourcesDegraded: []model.SourceName{},
		LookbackHours:   lookbackHours,
		CollectedAt:     now,
	}

	var cutoff time.Time
	if lookbackHours > 0 {
		cutoff = now.Add(-time.Duration(lookbackHours) * time.Hour)
	}

	var totalConfidence float64
	for offset := 0; ; offset += pageSize {
		docs, err := c.docs.ListDocuments(ctx, model.DocumentFilter{Limit: pageSize, Offset: offset})
		if err != nil {
			return nil, eris.Wrap(err, "monitoring: list documents")
		}

		past := false
		for i := range docs {
			d := &docs[i]
			// Listings are newest first.
			if !cutoff.IsZero() && d.CreatedAt.Before(cutoff) {
				past = true
				break
			}
			snap.DocumentsTotal++
			snap.ByStatus[d.Status]++
			switch {
			case d.Status == model.StatusPendingApproval:
				snap.PendingApproval++
			case d.Status == model.StatusApproved && !d.Synced():
				snap.ApprovedUnsynced++
			}
			if d.Status == model.StatusArchived {
				continue
			}
			snap.Scored++
			totalConfidence += d.ConfidenceAssessment.OverallConfidence
			if d.ConfidenceAssessment.ConfidenceLevel == model.ConfidenceLow {
				snap.LowConfidence++
			}
		}
		if past || len(docs) < pageSize {
			break
		}
	}

	if snap.Scored > 0 {
		snap.MeanConfidence = totalConfidence / float64(snap.Scored)
		snap.LowConfidenceRate = float64(snap.LowConfidence) / float64(snap.Scored)
	}

	snap.Sources = source.Statuses(c.adapters)
	for _, st := range snap.Sources {
		if !st.Healthy() {
			snap.SourcesDegraded = append(snap.SourcesDegraded, st.Name)
		}
	}

	return snap, nil
}
