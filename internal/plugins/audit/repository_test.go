package audit

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestRepositoryLog_StoresNullUserAndJSONDetails(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO audit_log (user_id, action, resource, resource_id, details, ip_address, created_at)`)).
		WithArgs(nil, ActionLoginFailed, "user", "kat", []byte(`{"reason":"bad_password"}`), "10.0.0.5", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(42, 1))

	repo := NewAuditRepository(db)
	entry := &Entry{
		Action:     ActionLoginFailed,
		Resource:   "user",
		ResourceID: "kat",
		Details:    map[string]any{"reason": "bad_password"},
		IPAddress:  "10.0.0.5",
	}
	if err := repo.Log(context.Background(), entry); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if entry.ID != 42 {
		t.Errorf("expected id 42, got %d", entry.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRepositoryList_FiltersByAction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM audit_log WHERE action = ?`)).
		WithArgs(ActionLogout).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM audit_log WHERE action = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`)).
		WithArgs(ActionLogout, 50, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "action", "resource", "resource_id", "details", "ip_address", "created_at"}).
			AddRow(7, "u-1", ActionLogout, "session", "", nil, "10.0.0.5", now))

	entries, total, err := NewAuditRepository(db).List(context.Background(), ListFilter{Action: ActionLogout, Limit: 50})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(entries) != 1 || entries[0].UserID != "u-1" {
		t.Errorf("unexpected result: total=%d entries=%+v", total, entries)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
