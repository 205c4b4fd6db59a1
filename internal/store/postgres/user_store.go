package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

// UserStore implements domain.UserStore using PostgreSQL.
type UserStore struct {
	db DBTX
}

// NewUserStore creates a new UserStore backed by db.
func NewUserStore(db DBTX) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, username, password_hash, coins, is_admin, created_at`

func scanUser(r rowScanner) (domain.User, error) {
	var u domain.User
	err := r.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Coins, &u.IsAdmin, &u.CreatedAt)
	return u, err
}

// Create inserts a user. Usernames are unique.
func (s *UserStore) Create(ctx context.Context, u domain.User) (domain.User, error) {
	const query = `
		INSERT INTO users (username, password_hash, coins, is_admin)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	out, err := scanUser(s.db.QueryRow(ctx, query, u.Username, u.PasswordHash, u.Coins.Round(2), u.IsAdmin))
	if err != nil {
		return domain.User{}, fmt.Errorf("postgres: create user %s: %w", u.Username, classify(err))
	}
	return out, nil
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (domain.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return domain.User{}, fmt.Errorf("postgres: get user %d: %w", id, classify(err))
	}
	return u, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		return domain.User{}, fmt.Errorf("postgres: get user %s: %w", username, classify(err))
	}
	return u, nil
}

// List returns every user, richest first.
func (s *UserStore) List(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY coins DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list users: %w", err)
	}
	users, err := collectRows(rows, scanUser)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan users: %w", err)
	}
	return users, nil
}

// AdjustCoins applies delta in a single statement so concurrent adjustments
// cannot drive the balance below zero.
func (s *UserStore) AdjustCoins(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	const query = `
		UPDATE users SET coins = coins + $2
		WHERE id = $1 AND coins + $2 >= 0
		RETURNING coins`

	var balance decimal.Decimal
	err := s.db.QueryRow(ctx, query, id, delta.Round(2)).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(classify(err), domain.ErrNotFound) {
		return decimal.Zero, fmt.Errorf("postgres: adjust coins user %d: %w", id, err)
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return decimal.Zero, fmt.Errorf("postgres: check user %d: %w", id, err)
	}
	if !exists {
		return decimal.Zero, fmt.Errorf("postgres: adjust coins user %d: %w", id, domain.ErrNotFound)
	}
	return decimal.Zero, fmt.Errorf("postgres: adjust coins user %d by %s: %w", id, delta, domain.ErrInsufficientFunds)
}

var _ domain.UserStore = (*UserStore)(nil)
