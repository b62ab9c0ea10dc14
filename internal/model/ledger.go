package model

import "time"

// EntryKind is the closed set of ledger transaction kinds.
type EntryKind string

const (
	KindTaskDone        EntryKind = "task_done"
	KindTaskUndo        EntryKind = "task_undo"
	KindRedemptionSpend EntryKind = "redemption_spend"
)

// RefKind names what an entry's reference points at.
type RefKind string

const (
	RefTask       RefKind = "task"
	RefRedemption RefKind = "redemption"
)

// EntryRef is a tagged reference from a ledger entry to the record that
// caused it. An entry carries at most one reference.
type EntryRef struct {
	Kind RefKind `json:"kind"`
	ID   int64   `json:"id"`
}

// TaskRef returns a reference to a task.
func TaskRef(taskID int64) *EntryRef {
	return &EntryRef{Kind: RefTask, ID: taskID}
}

// RedemptionRef returns a reference to a redemption.
func RedemptionRef(redemptionID int64) *EntryRef {
	return &EntryRef{Kind: RefRedemption, ID: redemptionID}
}

// LedgerEntry is one immutable row of the append-only points ledger, the
// system of record for every child's balance.
type LedgerEntry struct {
	ID        int64     `json:"id"`
	ChildID   int64     `json:"child_id"`
	Ref       *EntryRef `json:"ref,omitempty"`
	Delta     int       `json:"delta"`
	Kind      EntryKind `json:"kind"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}
