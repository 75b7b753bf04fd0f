package serve

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite (pure Go).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Enable WAL mode for concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Init creates the schema tables.
func (s *SQLiteStore) Init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exports (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id  TEXT NOT NULL,
		filename    TEXT NOT NULL DEFAULT '',
		size        INTEGER NOT NULL DEFAULT 0,
		anchors     INTEGER NOT NULL DEFAULT 0,
		fingerprint TEXT NOT NULL DEFAULT '',
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS deployments (
		id            TEXT PRIMARY KEY,
		session_id    TEXT NOT NULL DEFAULT '',
		type          TEXT NOT NULL DEFAULT 'quick',
		status        TEXT NOT NULL DEFAULT 'starting',
		steps         TEXT NOT NULL DEFAULT '[]',
		current_step  INTEGER NOT NULL DEFAULT 0,
		app_name      TEXT NOT NULL DEFAULT '',
		endpoint_name TEXT NOT NULL DEFAULT '',
		error         TEXT NOT NULL DEFAULT '',
		result        TEXT NOT NULL DEFAULT '',
		started_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		completed_at  DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_exports_session ON exports(session_id);
	CREATE INDEX IF NOT EXISTS idx_deployments_started ON deployments(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertExport records a YAML export.
func (s *SQLiteStore) InsertExport(e ExportRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO exports (session_id, filename, size, anchors, fingerprint, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Filename, e.Size, e.Anchors, e.Fingerprint, e.CreatedAt,
	)
	return err
}

// ListExports returns the exports of a session, newest first.
func (s *SQLiteStore) ListExports(sessionID string, limit int) ([]ExportRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, filename, size, anchors, fingerprint, created_at
		 FROM exports WHERE session_id = ? ORDER BY id DESC LIMIT ?`, sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExportRecord
	for rows.Next() {
		var e ExportRecord
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Filename, &e.Size, &e.Anchors, &e.Fingerprint, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// InsertDeployment records a new deployment.
func (s *SQLiteStore) InsertDeployment(d Deployment) error {
	steps, err := json.Marshal(d.Steps)
	if err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO deployments
		 (id, session_id, type, status, steps, current_step, app_name, endpoint_name, error, result, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.SessionID, d.Type, d.Status, string(steps), d.CurrentStep,
		d.AppName, d.EndpointName, d.Error, d.Result, d.StartedAt, d.CompletedAt,
	)
	return err
}

// UpdateDeployment overwrites the mutable fields of a deployment.
func (s *SQLiteStore) UpdateDeployment(d Deployment) error {
	steps, err := json.Marshal(d.Steps)
	if err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}
	res, err := s.db.Exec(
		`UPDATE deployments
		 SET status = ?, steps = ?, current_step = ?, error = ?, result = ?, completed_at = ?
		 WHERE id = ?`,
		d.Status, string(steps), d.CurrentStep, d.Error, d.Result, d.CompletedAt, d.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("deployment %s: %w", d.ID, ErrNotFound)
	}
	return nil
}

const deploymentColumns = `id, session_id, type, status, steps, current_step, app_name, endpoint_name, error, result, started_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeployment(row rowScanner) (Deployment, error) {
	var d Deployment
	var steps string
	var completedAt sql.NullTime
	if err := row.Scan(
		&d.ID, &d.SessionID, &d.Type, &d.Status, &steps, &d.CurrentStep,
		&d.AppName, &d.EndpointName, &d.Error, &d.Result, &d.StartedAt, &completedAt,
	); err != nil {
		return Deployment{}, err
	}
	json.Unmarshal([]byte(steps), &d.Steps)
	if completedAt.Valid {
		d.CompletedAt = &completedAt.Time
	}
	return d, nil
}

// GetDeployment returns a deployment by id.
func (s *SQLiteStore) GetDeployment(id string) (Deployment, error) {
	row := s.db.QueryRow(`SELECT `+deploymentColumns+` FROM deployments WHERE id = ?`, id)
	d, err := scanDeployment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Deployment{}, fmt.Errorf("deployment %s: %w", id, ErrNotFound)
	}
	return d, err
}

// ListDeployments returns recent deployments, newest first.
func (s *SQLiteStore) ListDeployments(limit int) ([]Deployment, error) {
	rows, err := s.db.Query(
		`SELECT `+deploymentColumns+` FROM deployments ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// PruneBefore deletes exports and finished deployments older than before.
func (s *SQLiteStore) PruneBefore(before time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM exports WHERE created_at < ?`, before)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()

	res, err = s.db.Exec(
		`DELETE FROM deployments WHERE completed_at IS NOT NULL AND completed_at < ?`, before,
	)
	if err != nil {
		return n, err
	}
	m, _ := res.RowsAffected()
	return n + m, nil
}

// Counts returns the number of recorded exports and deployments.
func (s *SQLiteStore) Counts() (exports, deployments int, err error) {
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM exports`).Scan(&exports); err != nil {
		return 0, 0, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM deployments`).Scan(&deployments); err != nil {
		return 0, 0, err
	}
	return exports, deployments, nil
}

// Purge deletes all history and compacts the database file.
func (s *SQLiteStore) Purge() error {
	for _, table := range []string{"exports", "deployments"} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	_, err := s.db.Exec("VACUUM")
	return err
}
