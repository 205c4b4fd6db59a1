package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType tags a ledger entry.
type TransactionType string

const (
	TxBetPlaced       TransactionType = "bet_placed"
	TxParlayPlaced    TransactionType = "parlay_placed"
	TxBetCancelled    TransactionType = "bet_cancelled"
	TxParlayCancelled TransactionType = "parlay_cancelled"
	TxBetWon          TransactionType = "bet_won"
	TxParlayWon       TransactionType = "parlay_won"
	TxAdminAdjustment TransactionType = "admin_adjustment"
	TxCashOut         TransactionType = "cash_out"
)

// Transaction is an append-only ledger entry. Amount is signed: debits are
// negative.
type Transaction struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}
