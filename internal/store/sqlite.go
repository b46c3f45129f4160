package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/bia-service/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// busy_timeout and synchronous are per connection; keep a single one.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id            TEXT PRIMARY KEY,
	function_name TEXT NOT NULL,
	function_type TEXT NOT NULL,
	version       TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'draft',
	body          TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_name_version
	ON documents(function_name, version) WHERE status <> 'archived';
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_function_type ON documents(function_type);

CREATE TABLE IF NOT EXISTS audit_log (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id),
	action      TEXT NOT NULL,
	actor       TEXT NOT NULL,
	before      TEXT,
	after       TEXT,
	comment     TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_audit_log_document_id ON audit_log(document_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateDocument(ctx context.Context, doc *model.Document) (string, error) {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal document")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, function_name, function_type, version, status, body, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.FunctionName, string(doc.FunctionType), doc.Version, string(doc.Status),
		string(body), doc.CreatedAt.UTC(), doc.UpdatedAt.UTC(),
	)
	if err != nil {
		if isSQLiteUnique(err) {
			return "", eris.Wrapf(ErrDuplicate, "sqlite: insert document %s v%s", doc.FunctionName, doc.Version)
		}
		return "", eris.Wrap(err, "sqlite: insert document")
	}
	return doc.ID, nil
}

func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get document %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get document %s", id)
	}
	return decodeDocument([]byte(body))
}

func (s *SQLiteStore) UpdateDocument(ctx context.Context, doc *model.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal document")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET function_name = ?, function_type = ?, version = ?, body = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		doc.FunctionName, string(doc.FunctionType), doc.Version,
		string(body), doc.UpdatedAt.UTC(), doc.ID, string(doc.Status),
	)
	if err != nil {
		if isSQLiteUnique(err) {
			return eris.Wrapf(ErrDuplicate, "sqlite: update document %s", doc.ID)
		}
		return eris.Wrapf(err, "sqlite: update document %s", doc.ID)
	}
	return s.checkGuarded(ctx, res, doc.ID, doc.Status)
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, change StatusChange) error {
	patch, at, err := change.patch()
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, updated_at = ?, body = json_patch(body, ?)
		 WHERE id = ? AND status = ?`,
		string(change.To), at, string(patch), id, string(change.From),
	)
	if err != nil {
		if isSQLiteUnique(err) {
			return eris.Wrapf(ErrDuplicate, "sqlite: update status %s", id)
		}
		return eris.Wrapf(err, "sqlite: update status %s", id)
	}
	return s.checkGuarded(ctx, res, id, change.From)
}

// checkGuarded tells a missing document apart from one whose status moved
// since the caller read it.
func (s *SQLiteStore) checkGuarded(ctx context.Context, res sql.Result, id string, want model.Status) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n > 0 {
		return nil
	}

	var current string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM documents WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "sqlite: document %s", id)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: read status %s", id)
	}
	return eris.Wrapf(ErrStatusConflict, "sqlite: document %s is %s, not %s", id, current, want)
}

func (s *SQLiteStore) ListDocuments(ctx context.Context, filter model.DocumentFilter) ([]model.Document, error) {
	query := `SELECT body FROM documents WHERE 1=1`
	var args []any

	if filter.FunctionName != "" {
		query += ` AND function_name = ?`
		args = append(args, filter.FunctionName)
	}
	if filter.FunctionType != "" {
		query += ` AND function_type = ?`
		args = append(args, string(filter.FunctionType))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, listLimit(filter))
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list documents")
	}
	defer rows.Close() //nolint:errcheck

	docs := []model.Document{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan document")
		}
		doc, err := decodeDocument([]byte(body))
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, eris.Wrap(rows.Err(), "sqlite: list documents iterate")
}

func (s *SQLiteStore) AppendAudit(ctx context.Context, entry model.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, document_id, action, actor, before, after, comment, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.DocumentID, string(entry.Action), entry.Actor,
		nullableJSON(entry.Before), nullableJSON(entry.After), entry.Comment, entry.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: append audit for %s", entry.DocumentID)
}

func (s *SQLiteStore) ListAudit(ctx context.Context, documentID string) ([]model.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, action, actor, before, after, comment, created_at
		 FROM audit_log WHERE document_id = ? ORDER BY created_at, rowid`,
		documentID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list audit")
	}
	defer rows.Close() //nolint:errcheck

	entries := []model.AuditEntry{}
	for rows.Next() {
		var e model.AuditEntry
		var before, after sql.NullString
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.Action, &e.Actor, &before, &after, &e.Comment, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan audit")
		}
		if before.Valid {
			e.Before = json.RawMessage(before.String)
		}
		if after.Valid {
			e.After = json.RawMessage(after.String)
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list audit iterate")
}

// helpers

func isSQLiteUnique(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func decodeDocument(body []byte) (*model.Document, error) {
	var doc model.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal document")
	}
	return &doc, nil
}
