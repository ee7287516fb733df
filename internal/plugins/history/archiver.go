package history

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/keyxmakerx/mealboard/internal/database"
	"github.com/keyxmakerx/mealboard/internal/dates"
	"github.com/keyxmakerx/mealboard/internal/metrics"
	"github.com/keyxmakerx/mealboard/internal/plugins/audit"
)

// SessionPurger deletes stale sessions. The recurring tick runs it next to
// archival. Satisfied by auth.AuthService.
type SessionPurger interface {
	PurgeStaleSessions(ctx context.Context) (int64, error)
}

// AuditLogger is the subset of the audit service used here.
type AuditLogger interface {
	Log(ctx context.Context, entry *audit.Entry) error
}

// ArchiverConfig holds the archiver's collaborators and timing.
type ArchiverConfig struct {
	Repo       HistoryRepository
	Location   *time.Location
	StartDelay time.Duration
	Interval   time.Duration
	Sessions   SessionPurger
	Audit      AuditLogger
	Metrics    *metrics.Metrics
}

// Archiver moves elapsed plan days into history. Passes are idempotent: a
// date already in history is never selected, and the unique key on
// meal_history.date rejects a racing second insert, which is counted as
// skipped.
type Archiver struct {
	repo       HistoryRepository
	loc        *time.Location
	startDelay time.Duration
	interval   time.Duration
	sessions   SessionPurger
	audit      AuditLogger
	metrics    *metrics.Metrics
	now        func() time.Time

	// mu serializes passes within this process.
	mu sync.Mutex
}

// NewArchiver creates an archiver.
func NewArchiver(cfg ArchiverConfig) *Archiver {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Archiver{
		repo:       cfg.Repo,
		loc:        loc,
		startDelay: cfg.StartDelay,
		interval:   cfg.Interval,
		sessions:   cfg.Sessions,
		audit:      cfg.Audit,
		metrics:    cfg.Metrics,
		now:        time.Now,
	}
}

// RunOnce archives every due plan day. A date whose values the database
// rejects is logged and counted as failed; the next pass tries it again.
// Any other storage error except a duplicate key abandons the pass, and the
// result then covers the rows written before the failure.
func (a *Archiver) RunOnce(ctx context.Context) (ArchiveResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	result, err := a.run(ctx)
	a.metrics.ArchiveRun(result.Archived, result.Skipped, err)
	if err != nil {
		slog.Error("archival pass abandoned",
			slog.Int("archived", result.Archived),
			slog.Any("error", err),
		)
		return result, err
	}

	if result.Archived > 0 || result.Skipped > 0 || result.Failed > 0 {
		slog.Info("archival pass complete",
			slog.Int("archived", result.Archived),
			slog.Int("skipped", result.Skipped),
			slog.Int("failed", result.Failed),
		)
	}
	if result.Archived > 0 && a.audit != nil {
		_ = a.audit.Log(ctx, &audit.Entry{
			Action:   audit.ActionHistoryArchived,
			Resource: "meal_history",
			Details: map[string]any{
				"archived": result.Archived,
				"skipped":  result.Skipped,
				"failed":   result.Failed,
			},
		})
	}
	return result, nil
}

func (a *Archiver) run(ctx context.Context) (ArchiveResult, error) {
	var result ArchiveResult
	today := dates.Today(a.now(), a.loc)

	candidates, err := a.repo.Candidates(ctx, today)
	if err != nil {
		return result, err
	}

	archivedAt := a.now().UTC()
	for _, c := range candidates {
		if err := a.repo.Insert(ctx, c, archivedAt); err != nil {
			if database.IsDuplicateEntry(err) {
				result.Skipped++
				continue
			}
			if database.IsDataError(err) {
				// The row itself is unstorable; later dates must still move.
				slog.Warn("archival rejected date",
					slog.String("date", dates.Format(c.Date)),
					slog.Any("error", err),
				)
				result.Failed++
				continue
			}
			return result, fmt.Errorf("archiving %s: %w", dates.Format(c.Date), err)
		}
		result.Archived++
	}
	return result, nil
}

// EnsureUpToDate runs a catch-up pass so a history read never misses a day
// that has already ended.
func (a *Archiver) EnsureUpToDate(ctx context.Context) error {
	_, err := a.RunOnce(ctx)
	return err
}

// Start runs the recurring loop on its own goroutine: one pass after the
// start delay, then one per interval, until ctx is cancelled. The returned
// channel is closed once the loop has exited.
func (a *Archiver) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		delay := time.NewTimer(a.startDelay)
		defer delay.Stop()
		select {
		case <-ctx.Done():
			return
		case <-delay.C:
		}
		a.tick(ctx)

		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.tick(ctx)
			}
		}
	}()
	return done
}

// tick is one scheduled run. A panic is logged and the loop continues.
func (a *Archiver) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in archival tick",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	// Errors are logged inside RunOnce; the next tick retries.
	_, _ = a.RunOnce(ctx)

	if a.sessions != nil {
		if _, err := a.sessions.PurgeStaleSessions(ctx); err != nil {
			slog.Warn("failed to purge stale sessions", slog.Any("error", err))
		}
	}
}
