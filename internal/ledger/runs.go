package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joeblew999/droneflow/internal/logger"
	"github.com/joeblew999/droneflow/internal/workflow"
)

// Outcomes stored in Entry.Outcome.
const (
	OutcomeAnalyzed = "analyzed"
	OutcomeFailed   = "failed"
)

// Entry is one finished analysis attempt.
type Entry struct {
	ID                   string    `json:"id" doc:"Run id"`
	Outcome              string    `json:"outcome" enum:"analyzed,failed" doc:"How the attempt ended"`
	Kind                 string    `json:"kind" enum:"upload,processing" doc:"Step that produced the outcome"`
	FileName             string    `json:"fileName" doc:"Local file name"`
	RemoteID             string    `json:"remoteId,omitempty" doc:"Backend file id"`
	Message              string    `json:"message,omitempty" doc:"Failure notice"`
	MinElevation         *float64  `json:"minElevation,omitempty" doc:"Minimum terrain elevation (m)"`
	MaxElevation         *float64  `json:"maxElevation,omitempty" doc:"Maximum terrain elevation (m)"`
	WaterloggingFeatures int       `json:"waterloggingFeatures" doc:"Predicted standing-water features"`
	DrainageFeatures     int       `json:"drainageFeatures" doc:"Predicted drainage features"`
	CenterLat            float64   `json:"centerLat" doc:"Map center latitude"`
	CenterLon            float64   `json:"centerLon" doc:"Map center longitude"`
	RecordedAt           time.Time `json:"recordedAt" doc:"When the outcome was recorded"`
}

// FromEvent builds an entry for an Analyzed or Failed event. Other events
// report false.
func FromEvent(ev workflow.Event) (Entry, bool) {
	snap := ev.Snapshot
	e := Entry{
		ID:         uuid.NewString(),
		Kind:       "processing",
		CenterLat:  snap.Center.Latitude,
		CenterLon:  snap.Center.Longitude,
		RecordedAt: time.Now().UTC(),
	}
	if snap.File != nil {
		e.FileName = snap.File.Name
		e.RemoteID = snap.File.RemoteID
	}

	switch ev.Phase {
	case workflow.Analyzed:
		e.Outcome = OutcomeAnalyzed
		if r := snap.Result; r != nil {
			if r.Summary.Present {
				minZ, maxZ := r.Summary.MinElevation, r.Summary.MaxElevation
				e.MinElevation, e.MaxElevation = &minZ, &maxZ
			}
			e.WaterloggingFeatures = r.Waterlogging.FeatureCount()
			e.DrainageFeatures = r.Drainage.FeatureCount()
		}
	case workflow.Failed:
		e.Outcome = OutcomeFailed
		if n := snap.Notice; n != nil {
			e.Kind = n.Kind
			e.Message = n.Message
			var uerr *workflow.UploadError
			if errors.As(n.Err, &uerr) && e.FileName == "" {
				e.FileName = uerr.File
			}
		}
	default:
		return Entry{}, false
	}
	return e, true
}

// Record stores the outcome reported by ev, if any.
func (l *Ledger) Record(ctx context.Context, ev workflow.Event) error {
	e, ok := FromEvent(ev)
	if !ok {
		return nil
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (id, seq, outcome, kind, file_name, remote_id, message,
			min_z, max_z, waterlogging, drainage, center_lat, center_lon, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, int64(ev.Snapshot.Seq), e.Outcome, e.Kind, e.FileName,
		nullString(e.RemoteID), nullString(e.Message),
		nullFloat(e.MinElevation), nullFloat(e.MaxElevation),
		e.WaterloggingFeatures, e.DrainageFeatures,
		e.CenterLat, e.CenterLon, e.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// Count returns the number of recorded runs.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, "SELECT count(*) FROM runs").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return n, nil
}

// List returns up to limit entries after skipping offset, newest first.
// A limit <= 0 returns all.
func (l *Ledger) List(ctx context.Context, offset, limit int) ([]Entry, error) {
	query := `SELECT id, outcome, kind, file_name, remote_id, message, min_z, max_z,
		waterlogging, drainage, center_lat, center_lon, recorded_at
		FROM runs ORDER BY seq DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	if offset > 0 {
		query += " OFFSET ?"
		args = append(args, offset)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e                 Entry
			remoteID, message sql.NullString
			minZ, maxZ        sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &e.Outcome, &e.Kind, &e.FileName, &remoteID, &message,
			&minZ, &maxZ, &e.WaterloggingFeatures, &e.DrainageFeatures,
			&e.CenterLat, &e.CenterLon, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		e.RemoteID = remoteID.String
		e.Message = message.String
		if minZ.Valid {
			e.MinElevation = &minZ.Float64
		}
		if maxZ.Valid {
			e.MaxElevation = &maxZ.Float64
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Follow records events from ch until it is closed or ctx is done.
func (l *Ledger) Follow(ctx context.Context, ch <-chan workflow.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := l.Record(ctx, ev); err != nil {
				l.log.Error("ledger write failed", logger.Err(err))
				continue
			}
			if ev.Phase == workflow.Analyzed || ev.Phase == workflow.Failed {
				l.log.Debug("run recorded", logger.F("outcome", ev.Phase), logger.F("seq", ev.Snapshot.Seq))
				l.recorded.Publish(ev)
			}
		}
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
