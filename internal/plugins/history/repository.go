package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/keyxmakerx/mealboard/internal/dates"
)

// HistoryRepository defines the data access contract for meal history.
type HistoryRepository interface {
	// Candidates returns plan days strictly before cutoff that have a main
	// dish or are marked eating out, and have no history row yet.
	Candidates(ctx context.Context, cutoff time.Time) ([]Candidate, error)

	// Insert stores one archived day. A second row for the same date fails
	// with a duplicate-key error.
	Insert(ctx context.Context, c Candidate, archivedAt time.Time) error

	// List returns entries with from <= date <= to, newest first.
	List(ctx context.Context, from, to time.Time) ([]Entry, error)

	// SetComment replaces an entry's comment and reports rows matched.
	SetComment(ctx context.Context, id int64, comment string) (int64, error)
}

type historyRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a MariaDB-backed history repository.
func NewHistoryRepository(db *sql.DB) HistoryRepository {
	return &historyRepository{db: db}
}

// Side dish names are resolved from the comma-separated id list with
// FIND_IN_SET; ids of deleted side dishes simply drop out.
const candidatesQuery = `
SELECT mp.date,
       COALESCE(md.name, ''),
       COALESCE(GROUP_CONCAT(sd.name ORDER BY sd.name SEPARATOR ', '), ''),
       mp.eating_out,
       mp.eating_out_location
FROM meal_plan mp
LEFT JOIN main_dishes md ON md.id = mp.main_dish_id
LEFT JOIN side_dishes sd ON FIND_IN_SET(sd.id, mp.side_dish_ids) > 0
LEFT JOIN meal_history mh ON mh.date = mp.date
WHERE mp.date < ?
  AND mh.id IS NULL
  AND (mp.main_dish_id IS NOT NULL OR mp.eating_out = 1)
GROUP BY mp.id, mp.date, md.name, mp.eating_out, mp.eating_out_location
ORDER BY mp.date`

func (r *historyRepository) Candidates(ctx context.Context, cutoff time.Time) ([]Candidate, error) {
	rows, err := r.db.QueryContext(ctx, candidatesQuery, dates.Format(cutoff))
	if err != nil {
		return nil, fmt.Errorf("querying archive candidates: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.Date, &c.MainDishName, &c.SideDishNames, &c.EatingOut, &c.EatingOutLocation); err != nil {
			return nil, fmt.Errorf("scanning archive candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *historyRepository) Insert(ctx context.Context, c Candidate, archivedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO meal_history (date, main_dish_name, side_dish_names, eating_out, eating_out_location, archived_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		dates.Format(c.Date), c.MainDishName, c.SideDishNames, c.EatingOut, c.EatingOutLocation, archivedAt)
	if err != nil {
		return fmt.Errorf("inserting history entry: %w", err)
	}
	return nil
}

func (r *historyRepository) List(ctx context.Context, from, to time.Time) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, main_dish_name, side_dish_names, eating_out, eating_out_location, comment, archived_at
		 FROM meal_history WHERE date BETWEEN ? AND ? ORDER BY date DESC`,
		dates.Format(from), dates.Format(to))
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			day     time.Time
			comment sql.NullString
		)
		if err := rows.Scan(&e.ID, &day, &e.MainDishName, &e.SideDishNames, &e.EatingOut,
			&e.EatingOutLocation, &comment, &e.ArchivedAt); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		e.Date = dates.Format(day)
		e.Comment = comment.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *historyRepository) SetComment(ctx context.Context, id int64, comment string) (int64, error) {
	var value any
	if comment != "" {
		value = comment
	}
	result, err := r.db.ExecContext(ctx, `UPDATE meal_history SET comment = ? WHERE id = ?`, value, id)
	if err != nil {
		return 0, fmt.Errorf("updating history comment: %w", err)
	}
	return result.RowsAffected()
}
