// Package audit records security-relevant and administrative actions to the
// audit_log table: logins, lockouts, password changes, session revocations,
// catalog and plan edits, and archival passes. Entries are append-only.
package audit

import "time"

// --- Action Constants ---
// Each action string follows the pattern "resource.verb" for consistent
// filtering.

const (
	ActionLoginSucceeded  = "login.succeeded"
	ActionLoginFailed     = "login.failed"
	ActionLoginBlocked    = "login.blocked"
	ActionLogout          = "auth.logout"
	ActionPasswordChanged = "password.changed"
	ActionPasswordReset   = "password.reset"
	ActionSessionsRevoked = "sessions.revoked"
	ActionAdminSeeded     = "user.seeded"

	ActionDishCreated = "dish.created"
	ActionDishUpdated = "dish.updated"
	ActionDishDeleted = "dish.deleted"

	ActionPlanSet     = "plan.set"
	ActionPlanCleared = "plan.cleared"

	ActionHistoryArchived  = "history.archived"
	ActionHistoryCommented = "history.commented"
)

// Entry represents a single recorded action. UserID is empty for
// unauthenticated actors (failed logins, the scheduler, operator tools).
type Entry struct {
	ID         int64          `json:"id"`
	UserID     string         `json:"user_id,omitempty"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource,omitempty"`
	ResourceID string         `json:"resource_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	IPAddress  string         `json:"ip_address,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ListFilter narrows an audit listing.
type ListFilter struct {
	// Action matches exactly when set.
	Action string
	Limit  int
	Offset int
}
