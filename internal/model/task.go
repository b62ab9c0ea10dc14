package model

import "time"

// TaskCategory classifies a task for filtering and reports.
type TaskCategory string

const (
	CategoryStudy TaskCategory = "study"
	CategoryChore TaskCategory = "chore"
	CategoryLife  TaskCategory = "life"
)

// Valid reports whether c is one of the known categories.
func (c TaskCategory) Valid() bool {
	switch c {
	case CategoryStudy, CategoryChore, CategoryLife:
		return true
	}
	return false
}

type Task struct {
	ID        int64        `json:"id"`
	ParentID  int64        `json:"parent_id"`
	ChildID   int64        `json:"child_id"`
	Title     string       `json:"title"`
	Category  TaskCategory `json:"category"`
	Points    int          `json:"points"`
	Done      bool         `json:"done"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
