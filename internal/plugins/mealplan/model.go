// Package mealplan manages the forward-looking meal plan: at most one entry
// per calendar day, naming a main dish, side dishes, or an evening out.
package mealplan

import (
	"time"

	"github.com/keyxmakerx/mealboard/internal/plugins/catalog"
)

// Entry is one stored plan row.
type Entry struct {
	ID                int64
	Date              time.Time // midnight UTC
	MainDishID        *int64
	SideDishIDs       []int64
	EatingOut         bool
	EatingOutLocation string
	UpdatedAt         time.Time
}

// Day is the enriched JSON shape of a plan day. Days with no stored entry
// carry only the date.
type Day struct {
	ID                int64              `json:"id,omitempty"`
	Date              string             `json:"date"`
	MainDishID        *int64             `json:"main_dish_id"`
	SideDishIDs       string             `json:"side_dish_ids"`
	EatingOut         bool               `json:"eating_out"`
	EatingOutLocation string             `json:"eating_out_location"`
	MainDish          *catalog.MainDish  `json:"main_dish"`
	SideDishes        []catalog.SideDish `json:"side_dishes"`
}

// SetInput is the request body of PUT /api/meal-plan/:date. SideDishIDs is
// the comma-separated list the admin page sends.
type SetInput struct {
	MainDishID        *int64 `json:"main_dish_id"`
	SideDishIDs       string `json:"side_dish_ids"`
	EatingOut         bool   `json:"eating_out"`
	EatingOutLocation string `json:"eating_out_location"`
}

type setResponse struct {
	Success bool   `json:"success"`
	Date    string `json:"date"`
}

type clearResponse struct {
	Success bool  `json:"success"`
	Changes int64 `json:"changes"`
}
