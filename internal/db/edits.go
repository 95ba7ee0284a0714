package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS edits (
	entry_id   VARCHAR NOT NULL,
	geometry   VARCHAR NOT NULL,
	features   INTEGER NOT NULL,
	applied_at TIMESTAMP NOT NULL
)`

// Migrate creates the tables the service needs.
func Migrate(conn *sql.DB) error {
	if _, err := conn.Exec(schema); err != nil {
		return fmt.Errorf("creating edits table: %w", err)
	}
	return nil
}

// Edit is one applied editing session.
type Edit struct {
	EntryID   string    `json:"entryId" doc:"Entry the geometry was applied to"`
	Geometry  string    `json:"geometry" doc:"Applied GeoJSON FeatureCollection"`
	Features  int       `json:"features" doc:"Number of features applied"`
	AppliedAt time.Time `json:"appliedAt" doc:"When the session was applied"`
}

// EditLog records applied sessions in DuckDB.
type EditLog struct {
	db  *sql.DB
	now func() time.Time
}

// NewEditLog returns an edit log over conn. The schema must exist.
func NewEditLog(conn *sql.DB) *EditLog {
	return &EditLog{db: conn, now: time.Now}
}

// Record appends an applied session.
func (l *EditLog) Record(ctx context.Context, entryID, geometry string, features int) (Edit, error) {
	e := Edit{EntryID: entryID, Geometry: geometry, Features: features, AppliedAt: l.now().UTC()}
	_, err := l.db.ExecContext(ctx,
		"INSERT INTO edits (entry_id, geometry, features, applied_at) VALUES (?, ?, ?, ?)",
		e.EntryID, e.Geometry, e.Features, e.AppliedAt)
	if err != nil {
		return Edit{}, fmt.Errorf("recording edit for %s: %w", entryID, err)
	}
	return e, nil
}

// List returns the newest edits first. An empty entryID lists all entries.
func (l *EditLog) List(ctx context.Context, entryID string, limit int) ([]Edit, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT entry_id, geometry, features, applied_at FROM edits
		WHERE ? = '' OR entry_id = ?
		ORDER BY applied_at DESC
		LIMIT ?`, entryID, entryID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing edits: %w", err)
	}
	defer rows.Close()

	edits := []Edit{}
	for rows.Next() {
		var e Edit
		if err := rows.Scan(&e.EntryID, &e.Geometry, &e.Features, &e.AppliedAt); err != nil {
			return nil, fmt.Errorf("scanning edit: %w", err)
		}
		edits = append(edits, e)
	}
	return edits, rows.Err()
}
