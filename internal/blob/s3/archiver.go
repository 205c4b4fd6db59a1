package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

const jsonlContentType = "application/x-ndjson"

// TransactionSource lists ledger rows for archival.
type TransactionSource interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Transaction, error)
}

// SettledBetSource lists resolved bets for archival.
type SettledBetSource interface {
	ListSettledBefore(ctx context.Context, before time.Time) ([]domain.Bet, error)
}

// Archiver implements domain.Archiver. It serialises old rows to JSONL and
// uploads one file per kind and cutoff date. Rows are not deleted from the
// primary store.
type Archiver struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	txs    TransactionSource
	bets   SettledBetSource
	audit  domain.AuditStore
}

// NewArchiver creates an Archiver.
func NewArchiver(
	writer domain.BlobWriter,
	reader domain.BlobReader,
	txs TransactionSource,
	bets SettledBetSource,
	audit domain.AuditStore,
) *Archiver {
	return &Archiver{writer: writer, reader: reader, txs: txs, bets: bets, audit: audit}
}

func (a *Archiver) ArchiveTransactions(ctx context.Context, before time.Time) (int64, error) {
	rows, err := a.txs.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive transactions query: %w", err)
	}
	return upload(ctx, a, "transactions", before, rows)
}

func (a *Archiver) ArchiveSettledBets(ctx context.Context, before time.Time) (int64, error) {
	rows, err := a.bets.ListSettledBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive bets query: %w", err)
	}
	return upload(ctx, a, "bets", before, rows)
}

func (a *Archiver) ListArchives(ctx context.Context) ([]domain.BlobInfo, error) {
	return a.reader.List(ctx, archiveRoot)
}

// upload writes rows as one JSONL object and records the run in the audit
// log. Nothing is written when rows is empty.
func upload[T any](ctx context.Context, a *Archiver, kind string, before time.Time, rows []T) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	buf, err := marshalJSONL(rows)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive %s marshal: %w", kind, err)
	}

	path := archivePath(kind, before)
	if len(buf) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), jsonlContentType)
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive %s upload: %w", kind, err)
	}

	count := int64(len(rows))
	if err := a.audit.Log(ctx, "archive."+kind, map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive %s audit log: %w", kind, err)
	}
	return count, nil
}

const archiveRoot = "archive/"

// archivePath builds the object path for an archive file:
//
//	archive/transactions/2026-01-30.jsonl
//	archive/bets/2026-01-30.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("%s%s/%s.jsonl", archiveRoot, kind, before.UTC().Format("2006-01-02"))
}

// marshalJSONL encodes each record as one compact JSON line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

var _ domain.Archiver = (*Archiver)(nil)
