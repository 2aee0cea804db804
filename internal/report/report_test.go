package report_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joeblew999/droneflow/internal/ledger"
	"github.com/joeblew999/droneflow/internal/projector"
	"github.com/joeblew999/droneflow/internal/report"
	"github.com/joeblew999/droneflow/internal/workflow"
)

func TestSnapshotAnalyzed(t *testing.T) {
	r := report.New(report.DefaultTheme, 0)
	out := r.Snapshot(workflow.Snapshot{
		Phase: workflow.Analyzed,
		File:  &workflow.FileInfo{Name: "site.las", RemoteID: "f-1"},
		Result: &projector.Projection{
			Summary:      projector.DTMSummary{MinElevation: 101.25, MaxElevation: 118.5, Present: true},
			Waterlogging: &projector.Layer{Name: "waterlogging", Stats: &projector.LayerStats{Features: 3}},
		},
		Center: projector.MapCenter{Latitude: 48.85, Longitude: 2.35},
	})

	assert.Contains(t, out, "analyzed")
	assert.Contains(t, out, "site.las")
	assert.Contains(t, out, "f-1")
	assert.Contains(t, out, "101.25 m")
	assert.Contains(t, out, "118.50 m")
	assert.Contains(t, out, "3 features")
	assert.Contains(t, out, "not reported")
	assert.Contains(t, out, "48.85000, 2.35000")
}

func TestEventShowsFailure(t *testing.T) {
	r := report.New(report.DefaultTheme, 0)
	out := r.Event(workflow.Event{
		Phase: workflow.Failed,
		Snapshot: workflow.Snapshot{
			Phase:  workflow.Idle,
			Notice: &workflow.Notice{Kind: "upload", Message: "Upload failed: disk full"},
		},
	})

	assert.Contains(t, out, "failed")
	assert.NotContains(t, out, "idle")
	assert.Contains(t, out, "Upload failed: disk full")
}

func TestRuns(t *testing.T) {
	r := report.New(report.DefaultTheme, 0)
	assert.Contains(t, r.Runs(nil), "No runs recorded")

	out := r.Runs([]ledger.Entry{
		{Outcome: ledger.OutcomeFailed, FileName: "other.laz", Message: "Analysis failed"},
		{Outcome: ledger.OutcomeAnalyzed, FileName: "a-very-long-point-cloud-name.las", WaterloggingFeatures: 2, DrainageFeatures: 1},
	})
	assert.Contains(t, out, "OUTCOME")
	assert.Contains(t, out, "Analysis failed")
	assert.Contains(t, out, "2 water, 1 drainage")
	assert.Contains(t, out, "a-very-long-point-clo…")
}
