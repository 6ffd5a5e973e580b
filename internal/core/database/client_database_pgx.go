package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/xtfocus/demo-assistant-rag-backend/internal/config"
	"github.com/xtfocus/demo-assistant-rag-backend/internal/core"
	"github.com/xtfocus/demo-assistant-rag-backend/internal/models"
)

// OpenDatabase opens the shared connection pool and verifies it.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// SearchClient is one pgvector-backed search index over a single table.
// The three indexes (text, image, summary) share the pool and the schema,
// differing only by table.
type SearchClient struct {
	db    *sql.DB
	table string
}

var _ core.SearchStore = (*SearchClient)(nil)

func NewSearchClient(db *sql.DB, table string) (*SearchClient, error) {
	if err := validateTableName(table); err != nil {
		return nil, err
	}
	return &SearchClient{db: db, table: table}, nil
}

// Upload inserts the documents in a single transaction, replacing rows
// that already carry the same chunk id.
func (c *SearchClient) Upload(ctx context.Context, docs []models.SearchDoc) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	q := fmt.Sprintf(`
		INSERT INTO %s
			(chunk_id, chunk, embedding, metadata, parent_id, title, uploader, upload_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (chunk_id) DO UPDATE SET
			chunk = EXCLUDED.chunk,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			parent_id = EXCLUDED.parent_id,
			title = EXCLUDED.title,
			uploader = EXCLUDED.uploader,
			upload_time = EXCLUDED.upload_time
	`, c.table)
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range docs {
		d := &docs[i]
		vec := pgvector.NewVector(d.Vector)
		if _, err := stmt.ExecContext(ctx,
			d.ChunkID, d.Chunk, vec, d.Metadata, d.ParentID, d.Title, d.Uploader, d.UploadTime,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Search returns the rows matching the filter. An empty filter is refused:
// full-table scans are never what a caller wants here.
func (c *SearchClient) Search(ctx context.Context, filter models.Filter) ([]models.SearchDoc, error) {
	where, args, err := buildWhere(filter)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		SELECT chunk_id, chunk, metadata, parent_id, title, uploader, upload_time
		FROM %s
		WHERE %s
		ORDER BY chunk_id ASC
	`, c.table, where)
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SearchDoc
	for rows.Next() {
		var d models.SearchDoc
		if err := rows.Scan(
			&d.ChunkID, &d.Chunk, &d.Metadata, &d.ParentID, &d.Title, &d.Uploader, &d.UploadTime,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteByFilter removes the rows matching the filter and returns how many
// went. An empty filter is refused.
func (c *SearchClient) DeleteByFilter(ctx context.Context, filter models.Filter) (int, error) {
	where, args, err := buildWhere(filter)
	if err != nil {
		return 0, err
	}

	q := fmt.Sprintf(`DELETE FROM %s WHERE %s`, c.table, where)
	res, err := c.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func buildWhere(filter models.Filter) (string, []any, error) {
	var (
		conds []string
		args  []any
	)
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("title", filter.Title)
	add("parent_id", filter.ParentID)
	add("uploader", filter.Uploader)

	if len(conds) == 0 {
		return "", nil, fmt.Errorf("empty filter")
	}
	return strings.Join(conds, " AND "), args, nil
}
