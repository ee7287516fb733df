package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/keyxmakerx/mealboard/internal/apperror"
)

// CatalogRepository defines the data access contract for dishes.
type CatalogRepository interface {
	ListMainDishes(ctx context.Context) ([]MainDish, error)
	FindMainDish(ctx context.Context, id int64) (*MainDish, error)
	CreateMainDish(ctx context.Context, in MainDishInput) (int64, error)
	UpdateMainDish(ctx context.Context, id int64, in MainDishInput) (int64, error)
	DeleteMainDish(ctx context.Context, id int64) (int64, error)

	ListSideDishes(ctx context.Context) ([]SideDish, error)
	FindSideDish(ctx context.Context, id int64) (*SideDish, error)
	FindSideDishes(ctx context.Context, ids []int64) ([]SideDish, error)
	CreateSideDish(ctx context.Context, in SideDishInput) (int64, error)
	UpdateSideDish(ctx context.Context, id int64, in SideDishInput) (int64, error)
	DeleteSideDish(ctx context.Context, id int64) (int64, error)
}

type catalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository creates a MariaDB-backed catalog repository.
func NewCatalogRepository(db *sql.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

const (
	mainDishColumns = `id, name, nationality, main_component, base_component, recipe_location, created_at, updated_at`
	sideDishColumns = `id, name, type, notes, created_at, updated_at`
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMainDish(row rowScanner) (*MainDish, error) {
	d := &MainDish{}
	err := row.Scan(&d.ID, &d.Name, &d.Nationality, &d.MainComponent,
		&d.BaseComponent, &d.RecipeLocation, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func scanSideDish(row rowScanner) (*SideDish, error) {
	d := &SideDish{}
	var notes sql.NullString
	if err := row.Scan(&d.ID, &d.Name, &d.Type, &notes, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Notes = notes.String
	return d, nil
}

// --- Main dishes ---

func (r *catalogRepository) ListMainDishes(ctx context.Context) ([]MainDish, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+mainDishColumns+` FROM main_dishes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing main dishes: %w", err)
	}
	defer rows.Close()

	var out []MainDish
	for rows.Next() {
		d, err := scanMainDish(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning main dish: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// FindMainDish returns apperror.NotFound when no dish has this ID.
func (r *catalogRepository) FindMainDish(ctx context.Context, id int64) (*MainDish, error) {
	d, err := scanMainDish(r.db.QueryRowContext(ctx, `SELECT `+mainDishColumns+` FROM main_dishes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("main dish not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying main dish: %w", err)
	}
	return d, nil
}

func (r *catalogRepository) CreateMainDish(ctx context.Context, in MainDishInput) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO main_dishes (name, nationality, main_component, base_component, recipe_location)
		 VALUES (?, ?, ?, ?, ?)`,
		in.Name, in.Nationality, in.MainComponent, in.BaseComponent, in.RecipeLocation)
	if err != nil {
		return 0, fmt.Errorf("inserting main dish: %w", err)
	}
	return result.LastInsertId()
}

// UpdateMainDish returns the number of rows changed; zero means no such dish.
func (r *catalogRepository) UpdateMainDish(ctx context.Context, id int64, in MainDishInput) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE main_dishes SET name = ?, nationality = ?, main_component = ?, base_component = ?, recipe_location = ?
		 WHERE id = ?`,
		in.Name, in.Nationality, in.MainComponent, in.BaseComponent, in.RecipeLocation, id)
	if err != nil {
		return 0, fmt.Errorf("updating main dish: %w", err)
	}
	return result.RowsAffected()
}

func (r *catalogRepository) DeleteMainDish(ctx context.Context, id int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM main_dishes WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("deleting main dish: %w", err)
	}
	return result.RowsAffected()
}

// --- Side dishes ---

func (r *catalogRepository) ListSideDishes(ctx context.Context) ([]SideDish, error) {
	return r.querySideDishes(ctx, `SELECT `+sideDishColumns+` FROM side_dishes ORDER BY name`)
}

// FindSideDish returns apperror.NotFound when no dish has this ID.
func (r *catalogRepository) FindSideDish(ctx context.Context, id int64) (*SideDish, error) {
	d, err := scanSideDish(r.db.QueryRowContext(ctx, `SELECT `+sideDishColumns+` FROM side_dishes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("side dish not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying side dish: %w", err)
	}
	return d, nil
}

// FindSideDishes returns the dishes among ids that still exist, ordered by
// name. Missing IDs are skipped.
func (r *catalogRepository) FindSideDishes(ctx context.Context, ids []int64) ([]SideDish, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return r.querySideDishes(ctx,
		`SELECT `+sideDishColumns+` FROM side_dishes WHERE id IN (`+placeholders+`) ORDER BY name`, args...)
}

func (r *catalogRepository) querySideDishes(ctx context.Context, query string, args ...any) ([]SideDish, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing side dishes: %w", err)
	}
	defer rows.Close()

	var out []SideDish
	for rows.Next() {
		d, err := scanSideDish(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning side dish: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *catalogRepository) CreateSideDish(ctx context.Context, in SideDishInput) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO side_dishes (name, type, notes) VALUES (?, ?, ?)`,
		in.Name, in.Type, in.Notes)
	if err != nil {
		return 0, fmt.Errorf("inserting side dish: %w", err)
	}
	return result.LastInsertId()
}

func (r *catalogRepository) UpdateSideDish(ctx context.Context, id int64, in SideDishInput) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE side_dishes SET name = ?, type = ?, notes = ? WHERE id = ?`,
		in.Name, in.Type, in.Notes, id)
	if err != nil {
		return 0, fmt.Errorf("updating side dish: %w", err)
	}
	return result.RowsAffected()
}

func (r *catalogRepository) DeleteSideDish(ctx context.Context, id int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM side_dishes WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("deleting side dish: %w", err)
	}
	return result.RowsAffected()
}
