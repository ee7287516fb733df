package mealplan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/keyxmakerx/mealboard/internal/dates"
)

// MealPlanRepository defines the data access contract for plan entries.
type MealPlanRepository interface {
	// ListRange returns entries with start <= date <= end, ordered by date.
	ListRange(ctx context.Context, start, end time.Time) ([]Entry, error)

	// FindByDate returns the entry for a day, or nil when none is stored.
	FindByDate(ctx context.Context, day time.Time) (*Entry, error)

	// Upsert inserts or replaces the entry for e.Date.
	Upsert(ctx context.Context, e *Entry) error

	// DeleteByDate removes the entry for a day and reports rows removed.
	DeleteByDate(ctx context.Context, day time.Time) (int64, error)
}

type mealPlanRepository struct {
	db *sql.DB
}

// NewMealPlanRepository creates a MariaDB-backed plan repository.
func NewMealPlanRepository(db *sql.DB) MealPlanRepository {
	return &mealPlanRepository{db: db}
}

const entryColumns = `id, date, main_dish_id, side_dish_ids, eating_out, eating_out_location, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		e      Entry
		mainID sql.NullInt64
		sides  sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Date, &mainID, &sides, &e.EatingOut, &e.EatingOutLocation, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if mainID.Valid {
		id := mainID.Int64
		e.MainDishID = &id
	}
	e.SideDishIDs = ParseIDList(sides.String)
	return &e, nil
}

func (r *mealPlanRepository) ListRange(ctx context.Context, start, end time.Time) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM meal_plan WHERE date BETWEEN ? AND ? ORDER BY date`,
		dates.Format(start), dates.Format(end))
	if err != nil {
		return nil, fmt.Errorf("listing plan entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning plan entry: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *mealPlanRepository) FindByDate(ctx context.Context, day time.Time) (*Entry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM meal_plan WHERE date = ?`, dates.Format(day)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying plan entry: %w", err)
	}
	return e, nil
}

// Upsert relies on the unique key on date; a concurrent writer for the
// same day turns into an update rather than a second row.
func (r *mealPlanRepository) Upsert(ctx context.Context, e *Entry) error {
	var mainID any
	if e.MainDishID != nil {
		mainID = *e.MainDishID
	}
	var sides any
	if len(e.SideDishIDs) > 0 {
		sides = FormatIDList(e.SideDishIDs)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO meal_plan (date, main_dish_id, side_dish_ids, eating_out, eating_out_location)
		 VALUES (?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		     main_dish_id = VALUES(main_dish_id),
		     side_dish_ids = VALUES(side_dish_ids),
		     eating_out = VALUES(eating_out),
		     eating_out_location = VALUES(eating_out_location)`,
		dates.Format(e.Date), mainID, sides, e.EatingOut, e.EatingOutLocation)
	if err != nil {
		return fmt.Errorf("upserting plan entry: %w", err)
	}
	return nil
}

func (r *mealPlanRepository) DeleteByDate(ctx context.Context, day time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM meal_plan WHERE date = ?`, dates.Format(day))
	if err != nil {
		return 0, fmt.Errorf("deleting plan entry: %w", err)
	}
	return result.RowsAffected()
}

// ParseIDList parses a comma-separated ID list, skipping blanks and
// anything that is not a positive integer.
func ParseIDList(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// FormatIDList renders IDs in the stored comma-separated form.
func FormatIDList(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
