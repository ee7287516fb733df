package mealplan

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/keyxmakerx/mealboard/internal/apperror"
	"github.com/keyxmakerx/mealboard/internal/dates"
	"github.com/keyxmakerx/mealboard/internal/plugins/audit"
	"github.com/keyxmakerx/mealboard/internal/plugins/auth"
	"github.com/keyxmakerx/mealboard/internal/plugins/catalog"
	"github.com/keyxmakerx/mealboard/internal/sanitize"
)

const (
	// defaultRangeDays is how far past today the default range reaches.
	defaultRangeDays = 7

	// adminViewDays is the length of the admin view starting on Monday.
	adminViewDays = 14

	// maxRangeDays bounds a single range query.
	maxRangeDays = 366

	maxLocationLength = 200
	maxSideDishes     = 20
)

// DishLookup resolves catalog references. Satisfied by catalog.CatalogService.
type DishLookup interface {
	GetMainDish(ctx context.Context, id int64) (*catalog.MainDish, error)
	GetSideDishes(ctx context.Context, ids []int64) ([]catalog.SideDish, error)
}

// AuditLogger is the subset of the audit service used here.
type AuditLogger interface {
	Log(ctx context.Context, entry *audit.Entry) error
}

// MealPlanService handles business logic for the plan.
type MealPlanService interface {
	// Range returns stored days between start and end (YYYY-MM-DD, both
	// optional), defaulting to today through a week from today.
	Range(ctx context.Context, start, end string) ([]Day, error)
	Today(ctx context.Context) (*Day, error)
	ForDate(ctx context.Context, date string) (*Day, error)

	// AdminView returns every day from Monday of the current week through
	// the following Sunday week, including days with no entry.
	AdminView(ctx context.Context) ([]Day, error)

	Set(ctx context.Context, date string, in SetInput) error
	Clear(ctx context.Context, date string) (int64, error)
}

type mealPlanService struct {
	repo   MealPlanRepository
	dishes DishLookup
	audit  AuditLogger
	loc    *time.Location
	now    func() time.Time
}

// NewMealPlanService creates a plan service. loc is the household zone
// that decides which day is "today".
func NewMealPlanService(repo MealPlanRepository, dishes DishLookup, auditLog AuditLogger, loc *time.Location) MealPlanService {
	if loc == nil {
		loc = time.Local
	}
	return &mealPlanService{repo: repo, dishes: dishes, audit: auditLog, loc: loc, now: time.Now}
}

func (s *mealPlanService) today() time.Time {
	return dates.Today(s.now(), s.loc)
}

func (s *mealPlanService) Range(ctx context.Context, start, end string) ([]Day, error) {
	from := s.today()
	if start != "" {
		d, err := dates.Parse(start)
		if err != nil {
			return nil, apperror.NewBadRequest(err.Error())
		}
		from = d
	}
	to := dates.AddDays(from, defaultRangeDays)
	if end != "" {
		d, err := dates.Parse(end)
		if err != nil {
			return nil, apperror.NewBadRequest(err.Error())
		}
		to = d
	}
	if to.Before(from) {
		return nil, apperror.NewBadRequest("endDate must not be before startDate")
	}
	if to.Sub(from) > maxRangeDays*24*time.Hour {
		return nil, apperror.NewBadRequest(fmt.Sprintf("range may span at most %d days", maxRangeDays))
	}

	entries, err := s.repo.ListRange(ctx, from, to)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	days := make([]Day, 0, len(entries))
	for i := range entries {
		day, err := s.enrich(ctx, &entries[i])
		if err != nil {
			return nil, err
		}
		days = append(days, *day)
	}
	return days, nil
}

func (s *mealPlanService) Today(ctx context.Context) (*Day, error) {
	return s.day(ctx, s.today())
}

func (s *mealPlanService) ForDate(ctx context.Context, date string) (*Day, error) {
	d, err := dates.Parse(date)
	if err != nil {
		return nil, apperror.NewBadRequest(err.Error())
	}
	return s.day(ctx, d)
}

func (s *mealPlanService) day(ctx context.Context, d time.Time) (*Day, error) {
	e, err := s.repo.FindByDate(ctx, d)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if e == nil {
		return emptyDay(d), nil
	}
	return s.enrich(ctx, e)
}

func (s *mealPlanService) AdminView(ctx context.Context) ([]Day, error) {
	monday := dates.WeekStart(s.today())
	last := dates.AddDays(monday, adminViewDays-1)

	entries, err := s.repo.ListRange(ctx, monday, last)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	byDate := make(map[string]*Entry, len(entries))
	for i := range entries {
		byDate[dates.Format(entries[i].Date)] = &entries[i]
	}

	var days []Day
	for _, d := range dates.Range(monday, last) {
		e, ok := byDate[dates.Format(d)]
		if !ok {
			days = append(days, *emptyDay(d))
			continue
		}
		day, err := s.enrich(ctx, e)
		if err != nil {
			return nil, err
		}
		days = append(days, *day)
	}
	return days, nil
}

// Set validates references against the catalog, then upserts.
func (s *mealPlanService) Set(ctx context.Context, date string, in SetInput) error {
	d, err := dates.Parse(date)
	if err != nil {
		return apperror.NewBadRequest(err.Error())
	}

	sideIDs, err := parseSideInput(in.SideDishIDs)
	if err != nil {
		return err
	}

	if in.MainDishID != nil {
		if _, err := s.dishes.GetMainDish(ctx, *in.MainDishID); err != nil {
			if apperror.IsType(err, "not_found") {
				return apperror.NewBadRequest("main dish does not exist")
			}
			return err
		}
	}
	if len(sideIDs) > 0 {
		found, err := s.dishes.GetSideDishes(ctx, sideIDs)
		if err != nil {
			return err
		}
		if len(found) != len(sideIDs) {
			return apperror.NewBadRequest("side dish does not exist")
		}
	}

	location := ""
	if in.EatingOut {
		location = sanitize.Text(in.EatingOutLocation)
		if len(location) > maxLocationLength {
			return apperror.NewBadRequest(fmt.Sprintf("location must be at most %d characters", maxLocationLength))
		}
	}

	entry := &Entry{
		Date:              d,
		MainDishID:        in.MainDishID,
		SideDishIDs:       sideIDs,
		EatingOut:         in.EatingOut,
		EatingOutLocation: location,
	}
	if err := s.repo.Upsert(ctx, entry); err != nil {
		return apperror.NewInternal(err)
	}

	s.record(ctx, audit.ActionPlanSet, d, map[string]any{
		"main_dish_id":  in.MainDishID,
		"side_dish_ids": FormatIDList(sideIDs),
		"eating_out":    in.EatingOut,
	})
	return nil
}

func (s *mealPlanService) Clear(ctx context.Context, date string) (int64, error) {
	d, err := dates.Parse(date)
	if err != nil {
		return 0, apperror.NewBadRequest(err.Error())
	}
	n, err := s.repo.DeleteByDate(ctx, d)
	if err != nil {
		return 0, apperror.NewInternal(err)
	}
	if n > 0 {
		s.record(ctx, audit.ActionPlanCleared, d, nil)
	}
	return n, nil
}

// enrich attaches catalog details. References to deleted dishes resolve to
// nothing rather than failing the read.
func (s *mealPlanService) enrich(ctx context.Context, e *Entry) (*Day, error) {
	day := &Day{
		ID:                e.ID,
		Date:              dates.Format(e.Date),
		MainDishID:        e.MainDishID,
		SideDishIDs:       FormatIDList(e.SideDishIDs),
		EatingOut:         e.EatingOut,
		EatingOutLocation: e.EatingOutLocation,
		SideDishes:        []catalog.SideDish{},
	}

	if e.MainDishID != nil {
		main, err := s.dishes.GetMainDish(ctx, *e.MainDishID)
		switch {
		case err == nil:
			day.MainDish = main
		case apperror.IsType(err, "not_found"):
		default:
			return nil, err
		}
	}

	if len(e.SideDishIDs) > 0 {
		sides, err := s.dishes.GetSideDishes(ctx, e.SideDishIDs)
		if err != nil {
			return nil, err
		}
		if sides != nil {
			day.SideDishes = sides
		}
	}
	return day, nil
}

func emptyDay(d time.Time) *Day {
	return &Day{Date: dates.Format(d), SideDishes: []catalog.SideDish{}}
}

// parseSideInput parses the submitted side dish list strictly and drops
// repeated IDs.
func parseSideInput(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id < 1 {
			return nil, apperror.NewBadRequest(fmt.Sprintf("invalid side dish id %q", part))
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	if len(ids) > maxSideDishes {
		return nil, apperror.NewBadRequest(fmt.Sprintf("at most %d side dishes per day", maxSideDishes))
	}
	return ids, nil
}

func (s *mealPlanService) record(ctx context.Context, action string, d time.Time, details map[string]any) {
	if s.audit == nil {
		return
	}
	entry := &audit.Entry{
		Action:     action,
		Resource:   "meal_plan",
		ResourceID: dates.Format(d),
		Details:    details,
	}
	if p := auth.PrincipalFromContext(ctx); p != nil {
		entry.UserID = p.UserID
		entry.IPAddress = p.IPAddress
	}
	if err := s.audit.Log(ctx, entry); err != nil {
		slog.Debug("plan audit entry dropped", slog.String("action", action))
	}
}
