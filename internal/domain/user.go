package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is an account holding a coin balance.
type User struct {
	ID           int64           `json:"id"`
	Username     string          `json:"username"`
	PasswordHash string          `json:"-"`
	Coins        decimal.Decimal `json:"coins"`
	IsAdmin      bool            `json:"is_admin"`
	CreatedAt    time.Time       `json:"created_at"`
}

// LeaderboardEntry is a user's public standing.
type LeaderboardEntry struct {
	ID         int64           `json:"id"`
	Username   string          `json:"username"`
	Coins      decimal.Decimal `json:"coins"`
	CanCashOut bool            `json:"canCashOut"`
}
