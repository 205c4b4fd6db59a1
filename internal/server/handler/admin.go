package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

// ArchiveRunner runs and lists cold-storage exports.
type ArchiveRunner interface {
	Run(ctx context.Context) (domain.ArchiveReport, error)
	List(ctx context.Context) ([]domain.BlobInfo, error)
}

// AuditReader pages through the audit log.
type AuditReader interface {
	List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error)
}

// AdminHandler serves /api/admin. A nil archive answers 503 because blob
// storage is disabled.
type AdminHandler struct {
	archive ArchiveRunner
	audit   AuditReader
	logger  *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(archive ArchiveRunner, audit AuditReader, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{archive: archive, audit: audit, logger: logger}
}

// RunArchive exports old ledger rows and settled bets now.
// POST /api/admin/archive
func (h *AdminHandler) RunArchive(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "archive storage is not configured")
		return
	}
	report, err := h.archive.Run(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "archive", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Archives lists exported objects.
// GET /api/admin/archives
func (h *AdminHandler) Archives(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "archive storage is not configured")
		return
	}
	files, err := h.archive.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "list archives", err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// Audit returns a page of the audit log, newest first.
// GET /api/admin/audit?limit=50&offset=0
func (h *AdminHandler) Audit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.audit.List(r.Context(), parseListOpts(r))
	if err != nil {
		writeServiceError(w, r, h.logger, "list audit", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
