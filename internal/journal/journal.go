// Package journal records synchronization passes in SQLite: one row per pass, one per
// skipped entry, and the fingerprint of every rendered document.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/statique/internal/mirror"
)

// Pass is a journaled pass summary.
type Pass struct {
	ID          string
	Source      string
	Destination string
	Revision    string
	Outcome     string
	Start       time.Time
	End         time.Time
	Copied      int
	Transpiled  int
	Skipped     int
	Failures    int
}

// Journal is a SQLite-backed pass journal.
type Journal struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the journal at path. Use ":memory:" for an in-memory journal.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	j := &Journal{db: db}
	if err := j.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return j, nil
}

func (j *Journal) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS passes (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		destination TEXT NOT NULL,
		revision TEXT,
		outcome TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		ended_at INTEGER NOT NULL,
		copied INTEGER NOT NULL,
		transpiled INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		failures INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_passes_started ON passes(started_at);
	CREATE TABLE IF NOT EXISTS failures (
		pass_id TEXT NOT NULL REFERENCES passes(id),
		path TEXT NOT NULL,
		kind TEXT NOT NULL,
		message TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS documents (
		pass_id TEXT NOT NULL REFERENCES passes(id),
		path TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		PRIMARY KEY (pass_id, path)
	);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Close releases the database.
func (j *Journal) Close() error { return j.db.Close() }

// Record stores report and returns how many of its documents are new or have a
// different fingerprint than in the previous pass over the same destination.
func (j *Journal) Record(ctx context.Context, report *mirror.Report) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	prev, err := j.previousFingerprints(ctx, report)
	if err != nil {
		return 0, err
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO passes (id, source, destination, revision, outcome, started_at, ended_at, copied, transpiled, skipped, failures)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.PassID, report.Source, report.Destination, report.Revision, string(report.Outcome()),
		report.Start.UnixNano(), report.End.UnixNano(),
		report.Copied, report.Transpiled, report.Skipped, len(report.Failures),
	); err != nil {
		return 0, fmt.Errorf("insert pass: %w", err)
	}

	for _, f := range report.Failures {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO failures (pass_id, path, kind, message) VALUES (?, ?, ?, ?)",
			report.PassID, f.Path, string(f.Kind), msg,
		); err != nil {
			return 0, fmt.Errorf("insert failure: %w", err)
		}
	}

	changed := 0
	for _, d := range report.Documents {
		if fp, ok := prev[d.Path]; !ok || fp != d.Fingerprint {
			changed++
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO documents (pass_id, path, fingerprint) VALUES (?, ?, ?)",
			report.PassID, d.Path, d.Fingerprint,
		); err != nil {
			return 0, fmt.Errorf("insert document: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit pass: %w", err)
	}
	return changed, nil
}

func (j *Journal) previousFingerprints(ctx context.Context, report *mirror.Report) (map[string]string, error) {
	prev, err := j.lastPass(ctx, report.Destination)
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	if prev == nil {
		return out, nil
	}
	docs, err := j.documents(ctx, prev.ID)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		out[d.Path] = d.Fingerprint
	}
	return out, nil
}

// LastPass returns the most recent pass into destination, or nil if there is none.
func (j *Journal) LastPass(ctx context.Context, destination string) (*Pass, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lastPass(ctx, destination)
}

func (j *Journal) lastPass(ctx context.Context, destination string) (*Pass, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT id, source, destination, revision, outcome, started_at, ended_at, copied, transpiled, skipped, failures
		 FROM passes WHERE destination = ? ORDER BY started_at DESC LIMIT 1`,
		destination,
	)
	var (
		p            Pass
		revision     sql.NullString
		start, ended int64
	)
	err := row.Scan(&p.ID, &p.Source, &p.Destination, &revision, &p.Outcome, &start, &ended,
		&p.Copied, &p.Transpiled, &p.Skipped, &p.Failures)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last pass: %w", err)
	}
	p.Revision = revision.String
	p.Start = time.Unix(0, start)
	p.End = time.Unix(0, ended)
	return &p, nil
}

// Documents returns the documents rendered by a pass, ordered by path.
func (j *Journal) Documents(ctx context.Context, passID string) ([]mirror.Document, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.documents(ctx, passID)
}

func (j *Journal) documents(ctx context.Context, passID string) ([]mirror.Document, error) {
	rows, err := j.db.QueryContext(ctx,
		"SELECT path, fingerprint FROM documents WHERE pass_id = ? ORDER BY path", passID)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []mirror.Document
	for rows.Next() {
		var d mirror.Document
		if err := rows.Scan(&d.Path, &d.Fingerprint); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return docs, nil
}

// Failures returns the entries skipped by a pass as path and kind pairs.
func (j *Journal) Failures(ctx context.Context, passID string) (map[string]mirror.FailureKind, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	rows, err := j.db.QueryContext(ctx, "SELECT path, kind FROM failures WHERE pass_id = ?", passID)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := map[string]mirror.FailureKind{}
	for rows.Next() {
		var path, kind string
		if err := rows.Scan(&path, &kind); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		out[path] = mirror.FailureKind(kind)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
