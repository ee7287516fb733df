// Package catalog manages the household's dish catalog: main dishes and
// side dishes that meal plan entries reference.
package catalog

import "time"

// MainDish is a dish that can anchor a day's plan.
type MainDish struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Nationality    string    `json:"nationality"`
	MainComponent  string    `json:"main_component"`
	BaseComponent  string    `json:"base_component"`
	RecipeLocation string    `json:"recipe_location"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SideDish accompanies a main dish. A plan entry may list several.
type SideDish struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MainDishInput is the request body for creating or updating a main dish.
type MainDishInput struct {
	Name           string `json:"name"`
	Nationality    string `json:"nationality"`
	MainComponent  string `json:"main_component"`
	BaseComponent  string `json:"base_component"`
	RecipeLocation string `json:"recipe_location"`
}

// SideDishInput is the request body for creating or updating a side dish.
type SideDishInput struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Notes string `json:"notes"`
}

// createdResponse is returned by POST endpoints.
type createdResponse struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id"`
}

// changedResponse is returned by PUT and DELETE endpoints.
type changedResponse struct {
	Success bool  `json:"success"`
	Changes int64 `json:"changes"`
}

// Dish kinds, used in messages and audit entries.
const (
	kindMain = "main_dish"
	kindSide = "side_dish"
)
