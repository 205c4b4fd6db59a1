package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

// ArchiveService copies ledger rows and settled bets older than the
// retention window to cold storage.
type ArchiveService struct {
	archiver  domain.Archiver
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewArchiveService creates an ArchiveService.
func NewArchiveService(archiver domain.Archiver, retention time.Duration, logger *slog.Logger) *ArchiveService {
	return &ArchiveService{archiver: archiver, retention: retention, logger: logger, now: time.Now}
}

// Run executes one archive pass.
func (s *ArchiveService) Run(ctx context.Context) (domain.ArchiveReport, error) {
	report := domain.ArchiveReport{Before: s.now().UTC().Add(-s.retention)}
	s.logger.InfoContext(ctx, "archive: starting run",
		slog.Time("before", report.Before),
		slog.Duration("retention", s.retention),
	)

	n, err := s.archiver.ArchiveTransactions(ctx, report.Before)
	if err != nil {
		return report, fmt.Errorf("archive: transactions before %s: %w", report.Before.Format(time.RFC3339), err)
	}
	report.Transactions = n

	n, err = s.archiver.ArchiveSettledBets(ctx, report.Before)
	if err != nil {
		return report, fmt.Errorf("archive: settled bets before %s: %w", report.Before.Format(time.RFC3339), err)
	}
	report.Bets = n

	s.logger.InfoContext(ctx, "archive: run complete",
		slog.Int64("transactions", report.Transactions),
		slog.Int64("bets", report.Bets),
	)
	return report, nil
}

// List returns the archive files already in cold storage.
func (s *ArchiveService) List(ctx context.Context) ([]domain.BlobInfo, error) {
	files, err := s.archiver.ListArchives(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}
	return files, nil
}
