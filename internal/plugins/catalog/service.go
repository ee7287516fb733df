package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/keyxmakerx/mealboard/internal/apperror"
	"github.com/keyxmakerx/mealboard/internal/database"
	"github.com/keyxmakerx/mealboard/internal/plugins/audit"
	"github.com/keyxmakerx/mealboard/internal/plugins/auth"
	"github.com/keyxmakerx/mealboard/internal/sanitize"
)

// Field limits mirror the column sizes in the schema.
const (
	maxNameLength  = 200
	maxShortField  = 100
	maxRecipeField = 500
)

// CatalogService handles business logic for the dish catalog.
type CatalogService interface {
	ListMainDishes(ctx context.Context) ([]MainDish, error)
	GetMainDish(ctx context.Context, id int64) (*MainDish, error)
	CreateMainDish(ctx context.Context, in MainDishInput) (int64, error)
	UpdateMainDish(ctx context.Context, id int64, in MainDishInput) (int64, error)
	DeleteMainDish(ctx context.Context, id int64) (int64, error)

	ListSideDishes(ctx context.Context) ([]SideDish, error)
	GetSideDish(ctx context.Context, id int64) (*SideDish, error)
	GetSideDishes(ctx context.Context, ids []int64) ([]SideDish, error)
	CreateSideDish(ctx context.Context, in SideDishInput) (int64, error)
	UpdateSideDish(ctx context.Context, id int64, in SideDishInput) (int64, error)
	DeleteSideDish(ctx context.Context, id int64) (int64, error)
}

// AuditLogger is the subset of the audit service used here.
type AuditLogger interface {
	Log(ctx context.Context, entry *audit.Entry) error
}

type catalogService struct {
	repo  CatalogRepository
	audit AuditLogger
}

// NewCatalogService creates a catalog service. auditLog may be nil.
func NewCatalogService(repo CatalogRepository, auditLog AuditLogger) CatalogService {
	return &catalogService{repo: repo, audit: auditLog}
}

func (s *catalogService) ListMainDishes(ctx context.Context) ([]MainDish, error) {
	dishes, err := s.repo.ListMainDishes(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return dishes, nil
}

func (s *catalogService) GetMainDish(ctx context.Context, id int64) (*MainDish, error) {
	d, err := s.repo.FindMainDish(ctx, id)
	if err != nil {
		return nil, wrapLookup(err)
	}
	return d, nil
}

func (s *catalogService) CreateMainDish(ctx context.Context, in MainDishInput) (int64, error) {
	in = normalizeMain(in)
	if err := validateMain(in); err != nil {
		return 0, err
	}

	id, err := s.repo.CreateMainDish(ctx, in)
	if err != nil {
		return 0, wrapWrite(err, "a main dish with this name already exists")
	}
	s.record(ctx, audit.ActionDishCreated, kindMain, id, in.Name)
	return id, nil
}

func (s *catalogService) UpdateMainDish(ctx context.Context, id int64, in MainDishInput) (int64, error) {
	in = normalizeMain(in)
	if err := validateMain(in); err != nil {
		return 0, err
	}

	n, err := s.repo.UpdateMainDish(ctx, id, in)
	if err != nil {
		return 0, wrapWrite(err, "a main dish with this name already exists")
	}
	if n == 0 {
		return 0, apperror.NewNotFound("main dish not found")
	}
	s.record(ctx, audit.ActionDishUpdated, kindMain, id, in.Name)
	return n, nil
}

// DeleteMainDish removes a dish. Plan entries pointing at it lose their
// main dish through the foreign key; archived history keeps the name.
func (s *catalogService) DeleteMainDish(ctx context.Context, id int64) (int64, error) {
	n, err := s.repo.DeleteMainDish(ctx, id)
	if err != nil {
		return 0, apperror.NewInternal(err)
	}
	if n == 0 {
		return 0, apperror.NewNotFound("main dish not found")
	}
	s.record(ctx, audit.ActionDishDeleted, kindMain, id, "")
	return n, nil
}

func (s *catalogService) ListSideDishes(ctx context.Context) ([]SideDish, error) {
	dishes, err := s.repo.ListSideDishes(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return dishes, nil
}

func (s *catalogService) GetSideDish(ctx context.Context, id int64) (*SideDish, error) {
	d, err := s.repo.FindSideDish(ctx, id)
	if err != nil {
		return nil, wrapLookup(err)
	}
	return d, nil
}

// GetSideDishes resolves a set of IDs; IDs of deleted dishes are dropped.
func (s *catalogService) GetSideDishes(ctx context.Context, ids []int64) ([]SideDish, error) {
	dishes, err := s.repo.FindSideDishes(ctx, ids)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return dishes, nil
}

func (s *catalogService) CreateSideDish(ctx context.Context, in SideDishInput) (int64, error) {
	in = normalizeSide(in)
	if err := validateSide(in); err != nil {
		return 0, err
	}

	id, err := s.repo.CreateSideDish(ctx, in)
	if err != nil {
		return 0, wrapWrite(err, "a side dish with this name already exists")
	}
	s.record(ctx, audit.ActionDishCreated, kindSide, id, in.Name)
	return id, nil
}

func (s *catalogService) UpdateSideDish(ctx context.Context, id int64, in SideDishInput) (int64, error) {
	in = normalizeSide(in)
	if err := validateSide(in); err != nil {
		return 0, err
	}

	n, err := s.repo.UpdateSideDish(ctx, id, in)
	if err != nil {
		return 0, wrapWrite(err, "a side dish with this name already exists")
	}
	if n == 0 {
		return 0, apperror.NewNotFound("side dish not found")
	}
	s.record(ctx, audit.ActionDishUpdated, kindSide, id, in.Name)
	return n, nil
}

func (s *catalogService) DeleteSideDish(ctx context.Context, id int64) (int64, error) {
	n, err := s.repo.DeleteSideDish(ctx, id)
	if err != nil {
		return 0, apperror.NewInternal(err)
	}
	if n == 0 {
		return 0, apperror.NewNotFound("side dish not found")
	}
	s.record(ctx, audit.ActionDishDeleted, kindSide, id, "")
	return n, nil
}

// --- Helpers ---

func normalizeMain(in MainDishInput) MainDishInput {
	in.Name = sanitize.Text(in.Name)
	in.Nationality = sanitize.Text(in.Nationality)
	in.MainComponent = sanitize.Text(in.MainComponent)
	in.BaseComponent = sanitize.Text(in.BaseComponent)
	in.RecipeLocation = sanitize.Text(in.RecipeLocation)
	return in
}

func validateMain(in MainDishInput) error {
	if in.Name == "" {
		return apperror.NewBadRequest("name is required")
	}
	if len(in.Name) > maxNameLength {
		return apperror.NewBadRequest(fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}
	if len(in.Nationality) > maxShortField || len(in.MainComponent) > maxShortField || len(in.BaseComponent) > maxShortField {
		return apperror.NewBadRequest(fmt.Sprintf("dish attributes must be at most %d characters", maxShortField))
	}
	if len(in.RecipeLocation) > maxRecipeField {
		return apperror.NewBadRequest(fmt.Sprintf("recipe location must be at most %d characters", maxRecipeField))
	}
	return nil
}

func normalizeSide(in SideDishInput) SideDishInput {
	in.Name = sanitize.Text(in.Name)
	in.Type = sanitize.Text(in.Type)
	in.Notes = sanitize.Text(in.Notes)
	return in
}

func validateSide(in SideDishInput) error {
	if in.Name == "" {
		return apperror.NewBadRequest("name is required")
	}
	if len(in.Name) > maxNameLength {
		return apperror.NewBadRequest(fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}
	if len(in.Type) > maxShortField {
		return apperror.NewBadRequest(fmt.Sprintf("type must be at most %d characters", maxShortField))
	}
	return nil
}

// wrapLookup passes NotFound through and hides everything else.
func wrapLookup(err error) error {
	if apperror.IsType(err, "not_found") {
		return err
	}
	return apperror.NewInternal(err)
}

// wrapWrite maps a unique-key violation on the dish name to 409.
func wrapWrite(err error, conflictMsg string) error {
	if database.IsDuplicateEntry(err) {
		return apperror.NewConflict(conflictMsg)
	}
	return apperror.NewInternal(err)
}

func (s *catalogService) record(ctx context.Context, action, kind string, id int64, name string) {
	if s.audit == nil {
		return
	}
	entry := &audit.Entry{
		Action:     action,
		Resource:   kind,
		ResourceID: strconv.FormatInt(id, 10),
	}
	if name != "" {
		entry.Details = map[string]any{"name": name}
	}
	if p := auth.PrincipalFromContext(ctx); p != nil {
		entry.UserID = p.UserID
		entry.IPAddress = p.IPAddress
	}
	if err := s.audit.Log(ctx, entry); err != nil {
		slog.Debug("catalog audit entry dropped", slog.String("action", action))
	}
}
