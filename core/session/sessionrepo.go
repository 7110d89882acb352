package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kenjp1223/dual-camera/core/ccc/db"
)

// SessionRepository archives terminal sessions.
type SessionRepository interface {
	// Save persists a session status; saving the same id again overwrites.
	Save(ctx context.Context, status *Status) error
	// GetByID retrieves an archived session by id
	GetByID(ctx context.Context, id string) (*Status, error)
	// GetAll retrieves all archived sessions, newest first
	GetAll(ctx context.Context) ([]*Status, error)
}

// SQLiteSessionRepository implements SessionRepository using SQLite
type SQLiteSessionRepository struct {
	db *sql.DB
}

// NewSQLiteSessionRepository creates a new SQLite-based SessionRepository
func NewSQLiteSessionRepository(database *sql.DB) (*SQLiteSessionRepository, error) {
	repo := &SQLiteSessionRepository{db: database}
	if err := repo.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return repo, nil
}

func (r *SQLiteSessionRepository) createTables() error {
	createSessionsTable := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		outcome TEXT NOT NULL,
		duration_seconds REAL NOT NULL,
		fps INTEGER NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		subject TEXT NOT NULL,
		best_effort INTEGER NOT NULL,
		nodes TEXT NOT NULL
	);`

	_, err := r.db.Exec(createSessionsTable)
	return err
}

// Save persists a session status
func (r *SQLiteSessionRepository) Save(ctx context.Context, status *Status) error {
	nodesJSON, err := json.Marshal(status.Nodes)
	if err != nil {
		return fmt.Errorf("failed to marshal node statuses: %w", err)
	}

	query := `
	INSERT OR REPLACE INTO sessions (id, created_at, outcome, duration_seconds, fps, width, height, subject, best_effort, nodes)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		status.ID, db.TimeToString(status.CreatedAt), string(status.Outcome),
		status.Params.Duration.Seconds(), status.Params.FPS,
		status.Params.Width, status.Params.Height, status.Params.Subject,
		db.BoolToInt(status.Policy.BestEffort), string(nodesJSON))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// GetByID retrieves an archived session by id
func (r *SQLiteSessionRepository) GetByID(ctx context.Context, id string) (*Status, error) {
	query := `
	SELECT id, created_at, outcome, duration_seconds, fps, width, height, subject, best_effort, nodes
	FROM sessions WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)

	status, err := scanSession(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session by id: %w", err)
	}

	return status, nil
}

// GetAll retrieves all archived sessions, newest first
func (r *SQLiteSessionRepository) GetAll(ctx context.Context) ([]*Status, error) {
	query := `
	SELECT id, created_at, outcome, duration_seconds, fps, width, height, subject, best_effort, nodes
	FROM sessions ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var result []*Status
	for rows.Next() {
		status, err := scanSession(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		result = append(result, status)
	}

	return result, rows.Err()
}

func scanSession(scan func(dest ...any) error) (*Status, error) {
	status := &Status{}
	var createdAtStr, outcomeStr, nodesJSON string
	var durationSeconds float64
	var bestEffort int

	err := scan(&status.ID, &createdAtStr, &outcomeStr, &durationSeconds,
		&status.Params.FPS, &status.Params.Width, &status.Params.Height,
		&status.Params.Subject, &bestEffort, &nodesJSON)
	if err != nil {
		return nil, err
	}

	status.CreatedAt, err = db.StringToTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}

	status.Outcome = Outcome(outcomeStr)
	status.Params.Duration = time.Duration(durationSeconds * float64(time.Second))
	status.Policy.BestEffort = db.IntToBool(bestEffort)

	if err := json.Unmarshal([]byte(nodesJSON), &status.Nodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal node statuses: %w", err)
	}

	return status, nil
}
