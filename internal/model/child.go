package model

import "time"

// Child's PointsBalance is a cached value maintained exclusively by the
// ledger; it always equals the sum of the child's ledger entry deltas.
type Child struct {
	ID            int64     `json:"id"`
	ParentID      int64     `json:"parent_id"`
	Name          string    `json:"name"`
	PointsBalance int       `json:"points_balance"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
