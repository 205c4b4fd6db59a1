// Package ledger applies coin balance changes together with their
// transaction record.
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

// Entry is a signed balance change. Debits carry a negative amount.
type Entry struct {
	UserID      int64
	Amount      decimal.Decimal
	Type        domain.TransactionType
	Description string
}

// Money rounds a monetary value to 2 decimal places.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Apply adjusts the user's balance and appends the matching transaction. It
// must run inside a store transaction so both writes commit together. A debit
// larger than the balance fails with domain.ErrInsufficientFunds and changes
// nothing.
func Apply(ctx context.Context, s domain.Stores, e Entry) (decimal.Decimal, error) {
	amount := Money(e.Amount)
	if amount.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: ledger entry with zero amount", domain.ErrInvalidInput)
	}

	balance, err := s.Users.AdjustCoins(ctx, e.UserID, amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger: adjust user %d by %s: %w", e.UserID, amount, err)
	}

	if _, err := s.Transactions.Append(ctx, domain.Transaction{
		UserID:      e.UserID,
		Amount:      amount,
		Type:        e.Type,
		Description: e.Description,
	}); err != nil {
		return decimal.Zero, fmt.Errorf("ledger: append %s for user %d: %w", e.Type, e.UserID, err)
	}
	return balance, nil
}

// Credit is Apply with a positive amount.
func Credit(ctx context.Context, s domain.Stores, userID int64, amount decimal.Decimal, typ domain.TransactionType, desc string) (decimal.Decimal, error) {
	return Apply(ctx, s, Entry{UserID: userID, Amount: amount.Abs(), Type: typ, Description: desc})
}

// Debit is Apply with a negative amount.
func Debit(ctx context.Context, s domain.Stores, userID int64, amount decimal.Decimal, typ domain.TransactionType, desc string) (decimal.Decimal, error) {
	return Apply(ctx, s, Entry{UserID: userID, Amount: amount.Abs().Neg(), Type: typ, Description: desc})
}

// Payout returns stake × odds rounded to money precision.
func Payout(stake decimal.Decimal, odds float64) decimal.Decimal {
	return Money(stake.Mul(decimal.NewFromFloat(odds)))
}
