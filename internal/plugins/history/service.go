package history

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/keyxmakerx/mealboard/internal/apperror"
	"github.com/keyxmakerx/mealboard/internal/dates"
	"github.com/keyxmakerx/mealboard/internal/plugins/audit"
	"github.com/keyxmakerx/mealboard/internal/plugins/auth"
	"github.com/keyxmakerx/mealboard/internal/sanitize"
)

const maxCommentLength = 2000

// HistoryService handles business logic for meal history.
type HistoryService interface {
	// List brings history up to date, then returns entries between from and
	// to (YYYY-MM-DD, both optional; default is the last year).
	List(ctx context.Context, from, to string) ([]Entry, error)
	Comment(ctx context.Context, id int64, comment string) (int64, error)
	Archive(ctx context.Context) (ArchiveResult, error)
}

type historyService struct {
	repo     HistoryRepository
	archiver *Archiver
	audit    AuditLogger
	loc      *time.Location
	now      func() time.Time
}

// NewHistoryService creates a history service.
func NewHistoryService(repo HistoryRepository, archiver *Archiver, auditLog AuditLogger, loc *time.Location) HistoryService {
	if loc == nil {
		loc = time.Local
	}
	return &historyService{repo: repo, archiver: archiver, audit: auditLog, loc: loc, now: time.Now}
}

func (s *historyService) List(ctx context.Context, from, to string) ([]Entry, error) {
	end := dates.Today(s.now(), s.loc)
	if to != "" {
		d, err := dates.Parse(to)
		if err != nil {
			return nil, apperror.NewBadRequest(err.Error())
		}
		end = d
	}
	start := end.AddDate(-1, 0, 0)
	if from != "" {
		d, err := dates.Parse(from)
		if err != nil {
			return nil, apperror.NewBadRequest(err.Error())
		}
		start = d
	}
	if end.Before(start) {
		return nil, apperror.NewBadRequest("to must not be before from")
	}

	// A failed catch-up is logged by the archiver; the read still serves
	// what is already archived.
	_ = s.archiver.EnsureUpToDate(ctx)

	entries, err := s.repo.List(ctx, start, end)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

func (s *historyService) Comment(ctx context.Context, id int64, comment string) (int64, error) {
	comment = sanitize.Text(comment)
	if len(comment) > maxCommentLength {
		return 0, apperror.NewBadRequest(fmt.Sprintf("comment must be at most %d characters", maxCommentLength))
	}

	n, err := s.repo.SetComment(ctx, id, comment)
	if err != nil {
		return 0, apperror.NewInternal(err)
	}
	if n == 0 {
		return 0, apperror.NewNotFound("history entry not found")
	}

	if s.audit != nil {
		entry := &audit.Entry{
			Action:     audit.ActionHistoryCommented,
			Resource:   "meal_history",
			ResourceID: strconv.FormatInt(id, 10),
		}
		if p := auth.PrincipalFromContext(ctx); p != nil {
			entry.UserID = p.UserID
			entry.IPAddress = p.IPAddress
		}
		if err := s.audit.Log(ctx, entry); err != nil {
			slog.Debug("history audit entry dropped", slog.Int64("id", id))
		}
	}
	return n, nil
}

func (s *historyService) Archive(ctx context.Context) (ArchiveResult, error) {
	result, err := s.archiver.RunOnce(ctx)
	if err != nil {
		return result, apperror.NewInternal(err)
	}
	return result, nil
}
