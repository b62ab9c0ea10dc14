package model

import "time"

// RedemptionStatus is the redemption state machine: pending is the only
// non-terminal state, and the only legal transitions are
// pending -> approved and pending -> rejected.
type RedemptionStatus string

const (
	RedemptionPending  RedemptionStatus = "pending"
	RedemptionApproved RedemptionStatus = "approved"
	RedemptionRejected RedemptionStatus = "rejected"
)

// Terminal reports whether the status permits no further transitions.
func (s RedemptionStatus) Terminal() bool {
	return s == RedemptionApproved || s == RedemptionRejected
}

type Redemption struct {
	ID          int64            `json:"id"`
	ChildID     int64            `json:"child_id"`
	RewardID    int64            `json:"reward_id"`
	Status      RedemptionStatus `json:"status"`
	RequestedAt time.Time        `json:"requested_at"`
	HandledBy   *int64           `json:"handled_by,omitempty"`
	HandledAt   *time.Time       `json:"handled_at,omitempty"`
}
