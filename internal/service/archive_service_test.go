package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

type fakeArchiver struct {
	before []time.Time
	failOn string
}

func (a *fakeArchiver) ArchiveTransactions(_ context.Context, before time.Time) (int64, error) {
	a.before = append(a.before, before)
	if a.failOn == "transactions" {
		return 0, errors.New("upload failed")
	}
	return 4, nil
}

func (a *fakeArchiver) ArchiveSettledBets(_ context.Context, before time.Time) (int64, error) {
	a.before = append(a.before, before)
	return 2, nil
}

func (a *fakeArchiver) ListArchives(context.Context) ([]domain.BlobInfo, error) {
	return []domain.BlobInfo{{Path: "archive/transactions/2026-01-30.jsonl", Size: 120}}, nil
}

func TestArchiveRunUsesRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	arch := &fakeArchiver{}
	svc := NewArchiveService(arch, 30*24*time.Hour, discard())
	svc.now = func() time.Time { return now }

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), report.Transactions)
	assert.Equal(t, int64(2), report.Bets)
	assert.Equal(t, time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC), report.Before)
	assert.Equal(t, []time.Time{report.Before, report.Before}, arch.before)
}

func TestArchiveRunStopsOnFailure(t *testing.T) {
	arch := &fakeArchiver{failOn: "transactions"}
	_, err := NewArchiveService(arch, time.Hour, discard()).Run(context.Background())
	require.Error(t, err)
	assert.Len(t, arch.before, 1)
}

func TestArchiveList(t *testing.T) {
	files, err := NewArchiveService(&fakeArchiver{}, time.Hour, discard()).List(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, int64(120), files[0].Size)
}
