// Package history holds the immutable record of past meals and the
// archiver that moves elapsed plan days into it.
package history

import "time"

// Entry is one archived day. Dish names are copied at archival time so later
// catalog edits and deletions never change what history says was eaten.
type Entry struct {
	ID                int64     `json:"id"`
	Date              string    `json:"date"`
	MainDishName      string    `json:"main_dish_name"`
	SideDishNames     string    `json:"side_dish_names"`
	EatingOut         bool      `json:"eating_out"`
	EatingOutLocation string    `json:"eating_out_location"`
	Comment           string    `json:"comment"`
	ArchivedAt        time.Time `json:"archived_at"`
}

// Candidate is a plan day due for archival, with names already resolved.
type Candidate struct {
	Date              time.Time
	MainDishName      string
	SideDishNames     string
	EatingOut         bool
	EatingOutLocation string
}

// ArchiveResult summarizes one archival pass. Skipped counts dates another
// pass archived first; Failed counts dates whose values were rejected.
type ArchiveResult struct {
	Archived int `json:"archived"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// CommentRequest is the body of POST /api/history/:id/comment.
type CommentRequest struct {
	Comment string `json:"comment"`
}

type changedResponse struct {
	Success bool  `json:"success"`
	Changes int64 `json:"changes"`
}
