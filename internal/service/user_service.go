package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fantasybet/internal/auth"
	"github.com/alanyoungcy/fantasybet/internal/domain"
	"github.com/alanyoungcy/fantasybet/internal/ledger"
)

const (
	minPasswordLen          = 6
	defaultTransactionLimit = 50
)

// UserRules holds account policy taken from configuration.
type UserRules struct {
	StartingCoins    decimal.Decimal
	CashOutThreshold decimal.Decimal
	FantasyBudget    int64
	BcryptCost       int
	AdminUsernames   []string
}

// Session is the result of a successful login.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      domain.User `json:"user"`
}

// CashOutResult reports a completed cash-out.
type CashOutResult struct {
	Coins         decimal.Decimal `json:"coins"`
	FantasyBudget int64           `json:"fantasyBudget"`
}

// UserService manages accounts, sessions and direct balance operations.
type UserService struct {
	stores   domain.Stores
	tx       domain.TxRunner
	tokens   *auth.Tokens
	rules    UserRules
	notifier Notifier
	logger   *slog.Logger
}

// NewUserService creates a UserService. notifier may be nil.
func NewUserService(stores domain.Stores, tx domain.TxRunner, tokens *auth.Tokens, rules UserRules, notifier Notifier, logger *slog.Logger) *UserService {
	return &UserService{
		stores:   stores,
		tx:       tx,
		tokens:   tokens,
		rules:    rules,
		notifier: notifier,
		logger:   logger,
	}
}

// Register creates an account holding the starting coins.
func (s *UserService) Register(ctx context.Context, username, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		return domain.User{}, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLen)
	}

	hash, err := auth.HashPassword(password, s.rules.BcryptCost)
	if err != nil {
		return domain.User{}, err
	}
	u, err := s.stores.Users.Create(ctx, domain.User{
		Username:     username,
		PasswordHash: hash,
		Coins:        ledger.Money(s.rules.StartingCoins),
		IsAdmin:      slices.Contains(s.rules.AdminUsernames, username),
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("user_service: create user %q: %w", username, err)
	}

	s.logger.InfoContext(ctx, "user_service: user registered",
		slog.Int64("user_id", u.ID),
		slog.String("username", u.Username),
	)
	return u, nil
}

// Login checks credentials and issues a token. Unknown users and wrong
// passwords fail the same way.
func (s *UserService) Login(ctx context.Context, username, password string) (Session, error) {
	u, err := s.stores.Users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, domain.ErrNotFound) {
		return Session{}, fmt.Errorf("%w: invalid username or password", domain.ErrUnauthorized)
	}
	if err != nil {
		return Session{}, fmt.Errorf("user_service: get user %q: %w", username, err)
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return Session{}, fmt.Errorf("%w: invalid username or password", domain.ErrUnauthorized)
		}
		return Session{}, err
	}

	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: exp, User: u}, nil
}

// Get returns a user to themselves or to an administrator.
func (s *UserService) Get(ctx context.Context, callerID int64, isAdmin bool, id int64) (domain.User, error) {
	if callerID != id && !isAdmin {
		return domain.User{}, fmt.Errorf("%w: user %d", domain.ErrForbidden, id)
	}
	u, err := s.stores.Users.GetByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("user_service: get user %d: %w", id, err)
	}
	return u, nil
}

// List returns every user, richest first.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.stores.Users.List(ctx)
}

// Leaderboard ranks users by coins and flags who can cash out.
func (s *UserService) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	users, err := s.stores.Users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("user_service: list users: %w", err)
	}
	out := make([]domain.LeaderboardEntry, 0, len(users))
	for _, u := range users {
		out = append(out, domain.LeaderboardEntry{
			ID:         u.ID,
			Username:   u.Username,
			Coins:      u.Coins,
			CanCashOut: u.Coins.GreaterThanOrEqual(s.rules.CashOutThreshold),
		})
	}
	return out, nil
}

// CashOut exchanges the threshold amount of coins for the fantasy budget.
// Only the account owner can cash out.
func (s *UserService) CashOut(ctx context.Context, callerID, id int64) (CashOutResult, error) {
	if callerID != id {
		return CashOutResult{}, fmt.Errorf("%w: can only cash out your own account", domain.ErrForbidden)
	}

	var balance decimal.Decimal
	err := s.tx.InTx(ctx, func(ctx context.Context, st domain.Stores) error {
		u, err := st.Users.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("user_service: get user %d: %w", id, err)
		}
		if u.Coins.LessThan(s.rules.CashOutThreshold) {
			return fmt.Errorf("%w: cash-out needs %s coins", domain.ErrInsufficientFunds, s.rules.CashOutThreshold.StringFixed(2))
		}
		desc := fmt.Sprintf("Cash-out for a %d fantasy budget", s.rules.FantasyBudget)
		balance, err = ledger.Debit(ctx, st, id, s.rules.CashOutThreshold, domain.TxCashOut, desc)
		return err
	})
	if err != nil {
		return CashOutResult{}, err
	}

	s.logger.InfoContext(ctx, "user_service: cash-out",
		slog.Int64("user_id", id),
		slog.String("balance", balance.StringFixed(2)),
	)
	if s.notifier != nil {
		msg := fmt.Sprintf("User %d cashed out %s coins.", id, s.rules.CashOutThreshold.StringFixed(2))
		if err := s.notifier.Notify(ctx, "cash_out", "Cash-out", msg); err != nil {
			s.logger.WarnContext(ctx, "user_service: notify failed", slog.String("error", err.Error()))
		}
	}
	return CashOutResult{Coins: balance, FantasyBudget: s.rules.FantasyBudget}, nil
}

// SetCoins sets a user's balance and records the difference as an
// administrative adjustment.
func (s *UserService) SetCoins(ctx context.Context, adminID, id int64, coins decimal.Decimal, reason string) (domain.User, error) {
	coins = ledger.Money(coins)
	if coins.IsNegative() {
		return domain.User{}, fmt.Errorf("%w: coins must not be negative", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(reason) == "" {
		reason = "Administrative adjustment"
	}

	var user domain.User
	err := s.tx.InTx(ctx, func(ctx context.Context, st domain.Stores) error {
		u, err := st.Users.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("user_service: get user %d: %w", id, err)
		}
		delta := coins.Sub(u.Coins)
		if !delta.IsZero() {
			if _, err := ledger.Apply(ctx, st, ledger.Entry{
				UserID:      id,
				Amount:      delta,
				Type:        domain.TxAdminAdjustment,
				Description: reason,
			}); err != nil {
				return err
			}
		}
		user, err = st.Users.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}

	if err := s.stores.Audit.Log(ctx, "coins_set", map[string]any{
		"admin_id": adminID,
		"user_id":  id,
		"coins":    coins.StringFixed(2),
		"reason":   reason,
	}); err != nil {
		s.logger.WarnContext(ctx, "user_service: audit log failed", slog.String("error", err.Error()))
	}
	return user, nil
}

// Transactions lists the user's ledger entries, newest first.
func (s *UserService) Transactions(ctx context.Context, userID int64, opts domain.ListOpts) ([]domain.Transaction, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultTransactionLimit
	}
	return s.stores.Transactions.ListByUser(ctx, userID, opts)
}
