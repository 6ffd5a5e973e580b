package core

import (
	"context"
	"errors"

	"github.com/xtfocus/demo-assistant-rag-backend/internal/models"
)

// ErrObjectNotFound is returned by ObjectClient.GetFile when the named
// object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// SearchStore defines one search index holding embedded chunks.
// It abstracts Postgres/pgvector so higher layers never depend on a
// specific backend.
type SearchStore interface {
	Upload(ctx context.Context, docs []models.SearchDoc) error
	Search(ctx context.Context, filter models.Filter) ([]models.SearchDoc, error)
	DeleteByFilter(ctx context.Context, filter models.Filter) (int, error)
}

// ObjectClient defines interactions with S3 or any object storage.
// It's abstract so you can replace AWS with MinIO, GCP, etc. easily.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
	DeleteFile(ctx context.Context, bucket, key string) error
	ListFiles(ctx context.Context, bucket, prefix string) ([]string, error)
}
