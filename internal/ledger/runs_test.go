package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/droneflow/internal/ledger"
	"github.com/joeblew999/droneflow/internal/projector"
	"github.com/joeblew999/droneflow/internal/workflow"
)

func openLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(nil)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func analyzedEvent(seq uint64) workflow.Event {
	return workflow.Event{
		Phase: workflow.Analyzed,
		Snapshot: workflow.Snapshot{
			Seq:   seq,
			Phase: workflow.Analyzed,
			File:  &workflow.FileInfo{Name: "site.las", RemoteID: "f-1"},
			Result: &projector.Projection{
				Summary:      projector.DTMSummary{MinElevation: 101.25, MaxElevation: 118.5, Present: true},
				Waterlogging: &projector.Layer{Name: "waterlogging", Stats: &projector.LayerStats{Features: 3}},
			},
			Center: projector.MapCenter{Latitude: 48.85, Longitude: 2.35},
		},
	}
}

func TestRecordAndList(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, analyzedEvent(4)))
	require.NoError(t, l.Record(ctx, workflow.Event{
		Phase: workflow.Failed,
		Snapshot: workflow.Snapshot{
			Seq:   7,
			Phase: workflow.Idle,
			Notice: &workflow.Notice{
				Kind:    "upload",
				Message: "Upload failed: disk full",
				Err:     &workflow.UploadError{File: "other.laz", Cause: errors.New("disk full")},
			},
		},
	}))

	entries, err := l.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	failed := entries[0]
	assert.Equal(t, ledger.OutcomeFailed, failed.Outcome)
	assert.Equal(t, "upload", failed.Kind)
	assert.Equal(t, "other.laz", failed.FileName)
	assert.Equal(t, "Upload failed: disk full", failed.Message)
	assert.Empty(t, failed.RemoteID)
	assert.Nil(t, failed.MinElevation)

	ok := entries[1]
	assert.Equal(t, ledger.OutcomeAnalyzed, ok.Outcome)
	assert.Equal(t, "site.las", ok.FileName)
	assert.Equal(t, "f-1", ok.RemoteID)
	require.NotNil(t, ok.MinElevation)
	assert.InDelta(t, 101.25, *ok.MinElevation, 1e-9)
	assert.InDelta(t, 118.5, *ok.MaxElevation, 1e-9)
	assert.Equal(t, 3, ok.WaterloggingFeatures)
	assert.Equal(t, 0, ok.DrainageFeatures)
	assert.InDelta(t, 48.85, ok.CenterLat, 1e-9)
	assert.NotEmpty(t, ok.ID)
	assert.False(t, ok.RecordedAt.IsZero())
}

func TestRecordIgnoresIntermediatePhases(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	for _, p := range []workflow.Phase{workflow.Idle, workflow.Uploading, workflow.ReadyToProcess, workflow.Processing} {
		require.NoError(t, l.Record(ctx, workflow.Event{Phase: p, Snapshot: workflow.Snapshot{Phase: p}}))
	}

	entries, err := l.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListLimit(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()
	for seq := uint64(1); seq <= 5; seq++ {
		require.NoError(t, l.Record(ctx, analyzedEvent(seq)))
	}

	entries, err := l.List(ctx, 0, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	rest, err := l.List(ctx, 4, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)

	n, err := l.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestFollow(t *testing.T) {
	l := openLedger(t)
	recorded := l.Subscribe()
	defer l.Unsubscribe(recorded)

	ch := make(chan workflow.Event, 2)
	ch <- analyzedEvent(1)
	ch <- workflow.Event{Phase: workflow.Processing}
	close(ch)

	l.Follow(context.Background(), ch)

	entries, err := l.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.Len(t, recorded, 1, "only stored outcomes are republished")
	ev := <-recorded
	assert.Equal(t, workflow.Analyzed, ev.Phase)
}

func TestFromEventProcessingFailure(t *testing.T) {
	e, ok := ledger.FromEvent(workflow.Event{
		Phase: workflow.Failed,
		Snapshot: workflow.Snapshot{
			Phase:  workflow.ReadyToProcess,
			File:   &workflow.FileInfo{Name: "site.las", RemoteID: "f-1"},
			Notice: &workflow.Notice{Kind: "processing", Message: "Analysis failed"},
		},
	})
	require.True(t, ok)
	assert.Equal(t, "processing", e.Kind)
	assert.Equal(t, "f-1", e.RemoteID)
}
