package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}

// ArchiveReport counts what one archive pass exported.
type ArchiveReport struct {
	Before       time.Time `json:"before"`
	Transactions int64     `json:"transactions"`
	Bets         int64     `json:"bets"`
}

// Archiver copies old ledger rows and settled bets to cold storage.
type Archiver interface {
	ArchiveTransactions(ctx context.Context, before time.Time) (int64, error)
	ArchiveSettledBets(ctx context.Context, before time.Time) (int64, error)
	// ListArchives returns the archive files written so far.
	ListArchives(ctx context.Context) ([]BlobInfo, error)
}
