package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/keyxmakerx/mealboard/internal/apperror"
)

// Paging limits for the audit listing.
const (
	defaultPerPage = 50
	maxPerPage     = 200
)

// AuditService handles business logic for the audit log.
type AuditService interface {
	// Log records an audit entry. Failures are logged here; callers may
	// ignore the returned error since audit problems must not block the
	// primary operation.
	Log(ctx context.Context, entry *Entry) error

	// List returns a page of entries (1-indexed) and the total count.
	List(ctx context.Context, action string, page, perPage int) ([]Entry, int, error)
}

// auditService implements AuditService.
type auditService struct {
	repo AuditRepository
}

// NewAuditService creates a new audit service with the given repository.
func NewAuditService(repo AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// Log validates and persists an audit entry.
func (s *auditService) Log(ctx context.Context, entry *Entry) error {
	if entry == nil || entry.Action == "" {
		return apperror.NewBadRequest("action is required for audit entry")
	}

	if err := s.repo.Log(ctx, entry); err != nil {
		slog.Error("failed to write audit log entry",
			slog.String("action", entry.Action),
			slog.String("user_id", entry.UserID),
			slog.Any("error", err),
		)
		return apperror.NewInternal(fmt.Errorf("writing audit entry: %w", err))
	}

	return nil
}

// List clamps paging and delegates to the repository.
func (s *auditService) List(ctx context.Context, action string, page, perPage int) ([]Entry, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	perPage = min(perPage, maxPerPage)

	entries, total, err := s.repo.List(ctx, ListFilter{
		Action: action,
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		return nil, 0, apperror.NewInternal(fmt.Errorf("listing audit entries: %w", err))
	}
	return entries, total, nil
}
