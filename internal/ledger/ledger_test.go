package ledger_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fantasybet/internal/domain"
	"github.com/alanyoungcy/fantasybet/internal/ledger"
	"github.com/alanyoungcy/fantasybet/internal/store/memory"
)

func TestDebitAndCreditRecordTransactions(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	s := db.Stores()
	u, err := s.Users.Create(ctx, domain.User{Username: "ana", Coins: decimal.NewFromInt(1000)})
	require.NoError(t, err)

	err = db.InTx(ctx, func(ctx context.Context, s domain.Stores) error {
		bal, err := ledger.Debit(ctx, s, u.ID, decimal.NewFromInt(50), domain.TxBetPlaced, "bet")
		require.NoError(t, err)
		assert.Equal(t, "950", bal.String())

		bal, err = ledger.Credit(ctx, s, u.ID, decimal.NewFromInt(-50), domain.TxBetCancelled, "refund")
		require.NoError(t, err)
		assert.Equal(t, "1000", bal.String())
		return nil
	})
	require.NoError(t, err)

	txs, err := s.Transactions.ListByUser(ctx, u.ID, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, txs, 2)

	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(tx.Amount)
	}
	assert.True(t, sum.IsZero())
}

func TestDebitBeyondBalanceChangesNothing(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	s := db.Stores()
	u, err := s.Users.Create(ctx, domain.User{Username: "ana", Coins: decimal.NewFromInt(20)})
	require.NoError(t, err)

	err = db.InTx(ctx, func(ctx context.Context, s domain.Stores) error {
		_, err := ledger.Debit(ctx, s, u.ID, decimal.NewFromInt(21), domain.TxBetPlaced, "bet")
		return err
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	txs, err := s.Transactions.ListByUser(ctx, u.ID, domain.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestApplyRejectsZero(t *testing.T) {
	_, err := ledger.Apply(context.Background(), memory.New().Stores(), ledger.Entry{UserID: 1, Amount: decimal.RequireFromString("0.001")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPayout(t *testing.T) {
	assert.Equal(t, "164", ledger.Payout(decimal.NewFromInt(100), 1.64).String())
	assert.Equal(t, "20.83", ledger.Payout(decimal.RequireFromString("12.5"), 1.666).String())
}
