package store

import (
	"database/sql"
	"fmt"

	"github.com/calebmsmith/pocketpoints/internal/model"
)

// LedgerStore is the only component that changes a child's cached balance or
// appends to the points ledger. Task and redemption stores route their
// deltas through applyDeltaTx inside their own transactions.
type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func scanEntry(scanner interface{ Scan(...any) error }) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	var taskID, redemptionID sql.NullInt64

	err := scanner.Scan(&e.ID, &e.ChildID, &taskID, &redemptionID, &e.Delta, &e.Kind, &e.Note, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	switch {
	case taskID.Valid:
		e.Ref = model.TaskRef(taskID.Int64)
	case redemptionID.Valid:
		e.Ref = model.RedemptionRef(redemptionID.Int64)
	}
	return &e, nil
}

const entryCols = `id, child_id, task_id, redemption_id, delta, kind, note, created_at`

// applyDeltaTx is the single choke point for balance mutation. Within the
// caller's transaction it re-reads the cached balance, rejects any delta
// that would drive it negative, writes the new balance, and appends the
// ledger entry. The caller commits or rolls back everything together.
func applyDeltaTx(tx *sql.Tx, childID int64, delta int, kind model.EntryKind, ref *model.EntryRef, note string) (*model.LedgerEntry, error) {
	var balance int
	err := tx.QueryRow(`SELECT points_balance FROM children WHERE id = ?`, childID).Scan(&balance)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("child %d: %w", childID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}

	next := balance + delta
	if next < 0 {
		return nil, fmt.Errorf("balance %d with delta %d: %w", balance, delta, ErrInsufficientBalance)
	}

	if _, err := tx.Exec(
		`UPDATE children SET points_balance = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		next, childID,
	); err != nil {
		return nil, fmt.Errorf("write balance: %w", err)
	}

	var taskID, redemptionID sql.NullInt64
	if ref != nil {
		switch ref.Kind {
		case model.RefTask:
			taskID = sql.NullInt64{Int64: ref.ID, Valid: true}
		case model.RefRedemption:
			redemptionID = sql.NullInt64{Int64: ref.ID, Valid: true}
		}
	}

	result, err := tx.Exec(
		`INSERT INTO ledger_entries (child_id, task_id, redemption_id, delta, kind, note) VALUES (?, ?, ?, ?, ?, ?)`,
		childID, taskID, redemptionID, delta, string(kind), note,
	)
	if err != nil {
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := tx.QueryRow(`SELECT `+entryCols+` FROM ledger_entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return entry, nil
}

// ApplyDelta applies a signed point delta to a child as one transaction.
func (s *LedgerStore) ApplyDelta(childID int64, delta int, kind model.EntryKind, ref *model.EntryRef, note string) (*model.LedgerEntry, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	entry, err := applyDeltaTx(tx, childID, delta, kind, ref, note)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return entry, nil
}

// BalanceOf returns the child's cached balance.
func (s *LedgerStore) BalanceOf(childID int64) (int, error) {
	var balance int
	err := s.db.QueryRow(`SELECT points_balance FROM children WHERE id = ?`, childID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("child %d: %w", childID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return balance, nil
}

// SumOf returns the sum of all ledger entry deltas for a child. It must
// always equal BalanceOf for the same child.
func (s *LedgerStore) SumOf(childID int64) (int, error) {
	var sum sql.NullInt64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(delta), 0) FROM ledger_entries WHERE child_id = ?`,
		childID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum ledger: %w", err)
	}
	return int(sum.Int64), nil
}

// History returns a page of a child's ledger entries, newest first.
func (s *LedgerStore) History(childID int64, limit, offset int) ([]model.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT `+entryCols+` FROM ledger_entries WHERE child_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		childID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
