package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/bia-service/internal/db"
	"github.com/sells-group/bia-service/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	function_name TEXT NOT NULL,
	function_type TEXT NOT NULL,
	version       TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'draft',
	body          JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_name_version
	ON documents(function_name, version) WHERE status <> 'archived';
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_function_type ON documents(function_type);

CREATE TABLE IF NOT EXISTS audit_log (
	seq         BIGSERIAL,
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	document_id TEXT NOT NULL REFERENCES documents(id),
	action      TEXT NOT NULL,
	actor       TEXT NOT NULL,
	before      JSONB,
	after       JSONB,
	comment     TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_audit_log_document_id ON audit_log(document_id, seq);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, doc *model.Document) (string, error) {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal document")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (id, function_name, function_type, version, status, body, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		doc.ID, doc.FunctionName, string(doc.FunctionType), doc.Version, string(doc.Status),
		body, doc.CreatedAt.UTC(), doc.UpdatedAt.UTC(),
	)
	if err != nil {
		if isPgUnique(err) {
			return "", eris.Wrapf(ErrDuplicate, "postgres: insert document %s v%s", doc.FunctionName, doc.Version)
		}
		return "", eris.Wrap(err, "postgres: insert document")
	}
	return doc.ID, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM documents WHERE id = $1`, id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get document %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get document %s", id)
	}
	return decodeDocument(body)
}

func (s *PostgresStore) UpdateDocument(ctx context.Context, doc *model.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal document")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET function_name = $1, function_type = $2, version = $3, body = $4, updated_at = $5
		 WHERE id = $6 AND status = $7`,
		doc.FunctionName, string(doc.FunctionType), doc.Version,
		body, doc.UpdatedAt.UTC(), doc.ID, string(doc.Status),
	)
	if err != nil {
		if isPgUnique(err) {
			return eris.Wrapf(ErrDuplicate, "postgres: update document %s", doc.ID)
		}
		return eris.Wrapf(err, "postgres: update document %s", doc.ID)
	}
	return s.checkGuarded(ctx, tag, doc.ID, doc.Status)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, change StatusChange) error {
	patch, at, err := change.patch()
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET status = $1, updated_at = $2, body = body || $3::jsonb
		 WHERE id = $4 AND status = $5`,
		string(change.To), at, string(patch), id, string(change.From),
	)
	if err != nil {
		if isPgUnique(err) {
			return eris.Wrapf(ErrDuplicate, "postgres: update status %s", id)
		}
		return eris.Wrapf(err, "postgres: update status %s", id)
	}
	return s.checkGuarded(ctx, tag, id, change.From)
}

// checkGuarded tells a missing document apart from one whose status moved
// since the caller read it.
func (s *PostgresStore) checkGuarded(ctx context.Context, tag pgconn.CommandTag, id string, want model.Status) error {
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current string
	err := s.pool.QueryRow(ctx, `SELECT status FROM documents WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "postgres: document %s", id)
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: read status %s", id)
	}
	return eris.Wrapf(ErrStatusConflict, "postgres: document %s is %s, not %s", id, current, want)
}

func (s *PostgresStore) ListDocuments(ctx context.Context, filter model.DocumentFilter) ([]model.Document, error) {
	query := `SELECT body FROM documents WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.FunctionName != "" {
		query += ` AND function_name = ` + arg(filter.FunctionName)
	}
	if filter.FunctionType != "" {
		query += ` AND function_type = ` + arg(string(filter.FunctionType))
	}
	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id LIMIT ` + arg(listLimit(filter))
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list documents")
	}
	defer rows.Close()

	docs := []model.Document{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, eris.Wrap(err, "postgres: scan document")
		}
		doc, err := decodeDocument(body)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, eris.Wrap(rows.Err(), "postgres: list documents iterate")
}

func (s *PostgresStore) AppendAudit(ctx context.Context, entry model.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_log (id, document_id, action, actor, before, after, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.DocumentID, string(entry.Action), entry.Actor,
		nullableJSON(entry.Before), nullableJSON(entry.After), entry.Comment, entry.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: append audit for %s", entry.DocumentID)
}

func (s *PostgresStore) ListAudit(ctx context.Context, documentID string) ([]model.AuditEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, action, actor, before, after, comment, created_at
		 FROM audit_log WHERE document_id = $1 ORDER BY seq`,
		documentID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list audit")
	}
	defer rows.Close()

	entries := []model.AuditEntry{}
	for rows.Next() {
		var e model.AuditEntry
		var action string
		var before, after []byte
		if err := rows.Scan(&e.ID, &e.DocumentID, &action, &e.Actor, &before, &after, &e.Comment, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan audit")
		}
		e.Action = model.AuditAction(action)
		e.Before = before
		e.After = after
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list audit iterate")
}

func isPgUnique(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == db.UniqueViolation
}
