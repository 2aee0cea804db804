// Package ledger records the outcome of every analysis attempt in a session.
//
// Entries live in an in-memory DuckDB database that is discarded on exit.
package ledger

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/joeblew999/droneflow/internal/logger"
	"github.com/joeblew999/droneflow/internal/workflow"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            VARCHAR PRIMARY KEY,
	seq           BIGINT NOT NULL,
	outcome       VARCHAR NOT NULL,
	kind          VARCHAR NOT NULL,
	file_name     VARCHAR NOT NULL,
	remote_id     VARCHAR,
	message       VARCHAR,
	min_z         DOUBLE,
	max_z         DOUBLE,
	waterlogging  INTEGER NOT NULL DEFAULT 0,
	drainage      INTEGER NOT NULL DEFAULT 0,
	center_lat    DOUBLE NOT NULL,
	center_lon    DOUBLE NOT NULL,
	recorded_at   TIMESTAMP NOT NULL
)`

// Ledger is a session-scoped run history.
type Ledger struct {
	db  *sql.DB
	log *logger.Logger
	// recorded republishes events once their entry is stored.
	recorded *workflow.EventBus
}

// Open creates an empty in-memory ledger.
func Open(log *logger.Logger) (*Ledger, error) {
	if log == nil {
		log = logger.Discard()
	}
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	// each connection to an in-memory database sees its own catalog
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create runs table: %w", err)
	}
	return &Ledger{db: db, log: log, recorded: workflow.NewEventBus()}, nil
}

// Close releases the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Subscribe returns a channel receiving every event after Follow stored it.
func (l *Ledger) Subscribe() chan workflow.Event { return l.recorded.Subscribe() }

// Unsubscribe stops delivery to ch and closes it.
func (l *Ledger) Unsubscribe(ch chan workflow.Event) { l.recorded.Unsubscribe(ch) }

// Ping reports whether the database is usable.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
