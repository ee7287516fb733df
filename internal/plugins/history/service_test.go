package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/keyxmakerx/mealboard/internal/apperror"
	"github.com/keyxmakerx/mealboard/internal/plugins/audit"
	"github.com/keyxmakerx/mealboard/internal/plugins/auth"
)

func newTestService(repo *memHistory) *historyService {
	svc := NewHistoryService(repo, newTestArchiver(repo), nil, time.UTC).(*historyService)
	svc.now = func() time.Time { return archiveNow }
	return svc
}

func TestList_CatchesUpBeforeReading(t *testing.T) {
	repo := newMemHistory(
		Candidate{Date: day("2025-01-14"), MainDishName: "Tacos"},
		Candidate{Date: day("2023-06-01"), MainDishName: "Ancient"},
	)
	svc := newTestService(repo)

	entries, err := svc.List(context.Background(), "", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Date != "2025-01-14" {
		t.Errorf("expected yesterday archived and only the last year listed, got %+v", entries)
	}
	if repo.count() != 2 {
		t.Errorf("expected both elapsed days archived, got %d", repo.count())
	}

	entries, _ = svc.List(context.Background(), "2023-01-01", "2023-12-31")
	if len(entries) != 1 || entries[0].MainDishName != "Ancient" {
		t.Errorf("expected explicit range to reach older rows, got %+v", entries)
	}
}

func TestList_ServesWhenCatchUpFails(t *testing.T) {
	repo := newMemHistory()
	repo.rows["2025-01-01"] = Entry{ID: 1, Date: "2025-01-01", MainDishName: "Tacos"}
	repo.candidatesErr = errors.New("db hiccup")

	entries, err := newTestService(repo).List(context.Background(), "", "")
	if err != nil || len(entries) != 1 {
		t.Errorf("expected archived rows served, got %v, %v", entries, err)
	}
}

func TestList_Validation(t *testing.T) {
	svc := newTestService(newMemHistory())

	_, err := svc.List(context.Background(), "2025-02-01", "2025-01-01")
	if apperror.SafeCode(err) != 400 {
		t.Errorf("expected 400, got %v", err)
	}
	_, err = svc.List(context.Background(), "yesterday", "")
	if apperror.SafeCode(err) != 400 {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestComment(t *testing.T) {
	repo := newMemHistory()
	repo.rows["2025-01-01"] = Entry{ID: 5, Date: "2025-01-01"}
	svc := newTestService(repo)

	if _, err := svc.Comment(context.Background(), 5, "  too salty "); err != nil {
		t.Fatalf("Comment: %v", err)
	}
	if repo.rows["2025-01-01"].Comment != "too salty" {
		t.Errorf("unexpected comment %q", repo.rows["2025-01-01"].Comment)
	}

	_, err := svc.Comment(context.Background(), 6, "x")
	if apperror.SafeCode(err) != 404 {
		t.Errorf("expected 404, got %v", err)
	}
}

type recordingAudit struct {
	entries []audit.Entry
}

func (a *recordingAudit) Log(_ context.Context, e *audit.Entry) error {
	a.entries = append(a.entries, *e)
	return nil
}

func TestComment_AuditsClientIP(t *testing.T) {
	repo := newMemHistory()
	repo.rows["2025-01-01"] = Entry{ID: 5, Date: "2025-01-01"}
	svc := newTestService(repo)
	rec := &recordingAudit{}
	svc.audit = rec

	ctx := auth.WithPrincipal(context.Background(), &auth.Principal{UserID: "u-1", Username: "kat", IPAddress: "10.0.0.5"})
	if _, err := svc.Comment(ctx, 5, "great"); err != nil {
		t.Fatalf("Comment: %v", err)
	}
	if len(rec.entries) != 1 || rec.entries[0].IPAddress != "10.0.0.5" || rec.entries[0].ResourceID != "5" {
		t.Errorf("unexpected audit entries %+v", rec.entries)
	}
}

func TestArchive_ReportsCounts(t *testing.T) {
	repo := newMemHistory(Candidate{Date: day("2025-01-14"), MainDishName: "Tacos"})
	result, err := newTestService(repo).Archive(context.Background())
	if err != nil || result.Archived != 1 {
		t.Errorf("unexpected result %+v, %v", result, err)
	}

	repo.candidatesErr = errors.New("down")
	_, err = newTestService(repo).Archive(context.Background())
	if apperror.SafeCode(err) != 500 {
		t.Errorf("expected 500, got %v", err)
	}
}
