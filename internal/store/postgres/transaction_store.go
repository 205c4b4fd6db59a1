package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

// TransactionStore implements domain.TransactionStore using PostgreSQL. Rows
// are never updated or deleted.
type TransactionStore struct {
	db DBTX
}

// NewTransactionStore creates a new TransactionStore backed by db.
func NewTransactionStore(db DBTX) *TransactionStore {
	return &TransactionStore{db: db}
}

const transactionColumns = `id, user_id, amount, type, description, created_at`

func scanTransaction(r rowScanner) (domain.Transaction, error) {
	var (
		t   domain.Transaction
		typ string
	)
	err := r.Scan(&t.ID, &t.UserID, &t.Amount, &typ, &t.Description, &t.CreatedAt)
	t.Type = domain.TransactionType(typ)
	return t, err
}

func (s *TransactionStore) Append(ctx context.Context, t domain.Transaction) (domain.Transaction, error) {
	const query = `
		INSERT INTO transactions (user_id, amount, type, description)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + transactionColumns

	out, err := scanTransaction(s.db.QueryRow(ctx, query, t.UserID, t.Amount.Round(2), string(t.Type), t.Description))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("postgres: append transaction user %d: %w", t.UserID, classify(err))
	}
	return out, nil
}

// ListByUser returns a user's ledger newest first, optionally bounded to
// [Since, Until).
func (s *TransactionStore) ListByUser(ctx context.Context, userID int64, opts domain.ListOpts) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1`
	args := []any{userID}

	if opts.Since != nil {
		args = append(args, *opts.Since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if opts.Until != nil {
		args = append(args, *opts.Until)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"
	query, args = withPage(query, args, opts)

	return s.query(ctx, query, args...)
}

func (s *TransactionStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Transaction, error) {
	return s.query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE created_at < $1 ORDER BY created_at, id`,
		before)
}

func (s *TransactionStore) query(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list transactions: %w", err)
	}
	txs, err := collectRows(rows, scanTransaction)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan transactions: %w", err)
	}
	return txs, nil
}

var _ domain.TransactionStore = (*TransactionStore)(nil)
