package app

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fantasybet/internal/auth"
	"github.com/alanyoungcy/fantasybet/internal/config"
	"github.com/alanyoungcy/fantasybet/internal/service"
	"github.com/alanyoungcy/fantasybet/internal/settlement"
	"github.com/alanyoungcy/fantasybet/internal/stats"
)

// services holds the domain services shared by every run mode.
type services struct {
	tokens  *auth.Tokens
	users   *service.UserService
	matches *service.MatchService
	bets    *service.BetService
	fantasy *service.FantasyService
	// archive is nil when blob storage is disabled.
	archive *service.ArchiveService
}

func buildServices(cfg *config.Config, deps *Dependencies, logger *slog.Logger) (*services, error) {
	lockout, err := cfg.Betting.Lockout()
	if err != nil {
		return nil, fmt.Errorf("parse betting.lockout_at: %w", err)
	}

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL.Duration)
	provider := stats.NewProvider(deps.Stores.Scores, deps.StandingsCache, logger)
	engine := settlement.NewEngine(deps.Stores, deps.Tx, settlement.Rules{
		OverInclusive: cfg.Betting.OverInclusive,
	}, logger)

	svc := &services{
		tokens: tokens,
		users: service.NewUserService(deps.Stores, deps.Tx, tokens, service.UserRules{
			StartingCoins:    decimal.NewFromFloat(cfg.Betting.StartingCoins),
			CashOutThreshold: decimal.NewFromFloat(cfg.Betting.CashOutThreshold),
			FantasyBudget:    cfg.Betting.FantasyBudget,
			BcryptCost:       cfg.Auth.BcryptCost,
			AdminUsernames:   cfg.Auth.AdminUsernames,
		}, deps.Notifier, logger),
		matches: service.NewMatchService(deps.Stores, provider, engine, cfg.Betting.MarginMarketEnabled, service.MatchDeps{
			Locks:    deps.LockManager,
			LockTTL:  cfg.Redis.LockTTL.Duration,
			Bus:      deps.SignalBus,
			Notifier: deps.Notifier,
		}, logger),
		bets: service.NewBetService(deps.Stores, deps.Tx, provider, service.BettingRules{
			LockoutAt:    lockout,
			MarginMarket: cfg.Betting.MarginMarketEnabled,
		}, logger),
		fantasy: service.NewFantasyService(deps.Stores, deps.Tx, provider, logger),
	}
	if deps.Archiver != nil {
		svc.archive = service.NewArchiveService(deps.Archiver, cfg.Scheduler.ArchiveRetention.Duration, logger)
	}
	return svc, nil
}
