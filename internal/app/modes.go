package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/fantasybet/internal/scheduler"
	"github.com/alanyoungcy/fantasybet/internal/server"
	"github.com/alanyoungcy/fantasybet/internal/server/handler"
	"github.com/alanyoungcy/fantasybet/internal/server/ws"
)

// ServerMode serves the HTTP API and the websocket feed.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies, svc *services) error {
	a.logger.InfoContext(ctx, "app: starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, svc)
	return g.Wait()
}

// FullMode runs the server together with the cron scheduler.
func (a *App) FullMode(ctx context.Context, deps *Dependencies, svc *services) error {
	a.logger.InfoContext(ctx, "app: starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, svc)

	if a.cfg.Scheduler.Enabled {
		sched, err := a.newScheduler(svc)
		if err != nil {
			return fmt.Errorf("full mode: %w", err)
		}
		g.Go(func() error {
			return sched.Run(ctx)
		})
	} else {
		a.logger.WarnContext(ctx, "app: scheduler.enabled is false, background jobs will not run")
	}

	return g.Wait()
}

// ArchiveMode runs one archive pass and returns.
func (a *App) ArchiveMode(ctx context.Context, svc *services) error {
	if svc.archive == nil {
		return errors.New("archive mode: s3 is not enabled")
	}
	report, err := svc.archive.Run(ctx)
	if err != nil {
		return fmt.Errorf("archive mode: %w", err)
	}
	a.logger.InfoContext(ctx, "app: archive finished",
		slog.Time("before", report.Before),
		slog.Int64("transactions", report.Transactions),
		slog.Int64("bets", report.Bets),
	)
	return nil
}

func (a *App) newScheduler(svc *services) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.logger)
	if err := sched.Add("close_expired", a.cfg.Scheduler.CloseExpiredSpec, func(ctx context.Context) error {
		_, err := svc.matches.CloseExpired(ctx)
		return err
	}); err != nil {
		return nil, err
	}
	if svc.archive != nil {
		if err := sched.Add("archive", a.cfg.Scheduler.ArchiveSpec, func(ctx context.Context) error {
			_, err := svc.archive.Run(ctx)
			return err
		}); err != nil {
			return nil, err
		}
	}
	return sched, nil
}

// startHTTPServer registers the API server, and the websocket hub when a
// signal bus is available, on g. Both stop when ctx is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svc *services) {
	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.cfg.Server.CORSOrigins, a.logger)
		g.Go(func() error {
			return hub.Run(ctx)
		})
	} else {
		a.logger.InfoContext(ctx, "app: redis disabled, websocket feed unavailable")
	}

	var archive handler.ArchiveRunner
	if svc.archive != nil {
		archive = svc.archive
	}

	srv := server.NewServer(server.Config{
		Port:               a.cfg.Server.Port,
		CORSOrigins:        a.cfg.Server.CORSOrigins,
		RateLimitPerMinute: a.cfg.Server.RateLimitPerMinute,
		ReadTimeout:        a.cfg.Server.ReadTimeout.Duration,
		WriteTimeout:       a.cfg.Server.WriteTimeout.Duration,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(deps.Health, a.logger),
		Users:   handler.NewUserHandler(svc.users, a.logger),
		Matches: handler.NewMatchHandler(svc.matches, a.logger),
		Bets:    handler.NewBetHandler(svc.bets, a.logger),
		Fantasy: handler.NewFantasyHandler(svc.fantasy, a.logger),
		Admin:   handler.NewAdminHandler(archive, deps.Stores.Audit, a.logger),
	}, server.Security{
		Verifier: svc.tokens,
		Limiter:  deps.RateLimiter,
	}, hub, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
