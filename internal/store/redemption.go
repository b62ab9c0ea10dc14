package store

import (
	"database/sql"
	"fmt"

	"github.com/calebmsmith/pocketpoints/internal/model"
)

type RedemptionStore struct {
	db *sql.DB
}

func NewRedemptionStore(db *sql.DB) *RedemptionStore {
	return &RedemptionStore{db: db}
}

func scanRedemption(scanner interface{ Scan(...any) error }) (*model.Redemption, error) {
	var r model.Redemption
	var handledBy sql.NullInt64
	var handledAt sql.NullTime

	err := scanner.Scan(&r.ID, &r.ChildID, &r.RewardID, &r.Status, &r.RequestedAt, &handledBy, &handledAt)
	if err != nil {
		return nil, err
	}

	if handledBy.Valid {
		r.HandledBy = &handledBy.Int64
	}
	if handledAt.Valid {
		r.HandledAt = &handledAt.Time
	}
	return &r, nil
}

const redemptionCols = `id, child_id, reward_id, status, requested_at, handled_by, handled_at`

// Request files a pending redemption of a reward by its target child. The
// affordability check here is advisory; the binding check happens again at
// approval, inside that transaction.
func (s *RedemptionStore) Request(childID, rewardID int64) (*model.Redemption, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, rewardID)
	reward, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("reward %d: %w", rewardID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	if reward.ChildID != childID {
		return nil, fmt.Errorf("reward %d targets another child: %w", rewardID, ErrForbidden)
	}
	if !reward.Active {
		return nil, fmt.Errorf("reward %d is inactive: %w", rewardID, ErrInvalidState)
	}

	var balance int
	if err := tx.QueryRow(`SELECT points_balance FROM children WHERE id = ?`, childID).Scan(&balance); err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}
	if balance < reward.PointCost {
		return nil, fmt.Errorf("balance %d, cost %d: %w", balance, reward.PointCost, ErrInsufficientBalance)
	}

	result, err := tx.Exec(
		`INSERT INTO redemptions (child_id, reward_id) VALUES (?, ?)`,
		childID, rewardID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert redemption: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row = tx.QueryRow(`SELECT `+redemptionCols+` FROM redemptions WHERE id = ?`, id)
	redemption, err := scanRedemption(row)
	if err != nil {
		return nil, fmt.Errorf("get redemption: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return redemption, nil
}

// Approve moves a pending redemption to approved and spends the reward's
// point cost, as one transaction. The balance is re-read inside the
// transaction, so a concurrent approval that already consumed the points
// makes this one fail with ErrInsufficientBalance and change nothing.
func (s *RedemptionStore) Approve(redemptionID, parentID int64) (*model.Redemption, error) {
	return s.handle(redemptionID, parentID, true)
}

// Reject moves a pending redemption to rejected. No ledger entry is written.
func (s *RedemptionStore) Reject(redemptionID, parentID int64) (*model.Redemption, error) {
	return s.handle(redemptionID, parentID, false)
}

func (s *RedemptionStore) handle(redemptionID, parentID int64, approve bool) (*model.Redemption, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+redemptionCols+` FROM redemptions WHERE id = ?`, redemptionID)
	redemption, err := scanRedemption(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("redemption %d: %w", redemptionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get redemption: %w", err)
	}

	var ownerID int64
	err = tx.QueryRow(`SELECT parent_id FROM children WHERE id = ?`, redemption.ChildID).Scan(&ownerID)
	if err != nil {
		return nil, fmt.Errorf("get child owner: %w", err)
	}
	if ownerID != parentID {
		return nil, fmt.Errorf("redemption %d belongs to another family: %w", redemptionID, ErrForbidden)
	}

	if redemption.Status != model.RedemptionPending {
		return nil, fmt.Errorf("redemption %d is %s: %w", redemptionID, redemption.Status, ErrInvalidState)
	}

	status := model.RedemptionRejected
	if approve {
		status = model.RedemptionApproved

		var cost int
		var title string
		err = tx.QueryRow(`SELECT point_cost, title FROM rewards WHERE id = ?`, redemption.RewardID).Scan(&cost, &title)
		if err != nil {
			return nil, fmt.Errorf("get reward cost: %w", err)
		}

		if _, err := applyDeltaTx(tx, redemption.ChildID, -cost, model.KindRedemptionSpend,
			model.RedemptionRef(redemption.ID), "Redeemed: "+title); err != nil {
			return nil, err
		}
	}

	result, err := tx.Exec(
		`UPDATE redemptions SET status = ?, handled_by = ?, handled_at = CURRENT_TIMESTAMP WHERE id = ? AND status = 'pending'`,
		string(status), parentID, redemptionID,
	)
	if err != nil {
		return nil, fmt.Errorf("update redemption: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n != 1 {
		return nil, fmt.Errorf("redemption %d already handled: %w", redemptionID, ErrInvalidState)
	}

	row = tx.QueryRow(`SELECT `+redemptionCols+` FROM redemptions WHERE id = ?`, redemptionID)
	updated, err := scanRedemption(row)
	if err != nil {
		return nil, fmt.Errorf("get redemption: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

func (s *RedemptionStore) GetByID(id int64) (*model.Redemption, error) {
	row := s.db.QueryRow(`SELECT `+redemptionCols+` FROM redemptions WHERE id = ?`, id)
	r, err := scanRedemption(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get redemption: %w", err)
	}
	return r, nil
}

// ListPending returns pending redemptions oldest first, so parents triage
// in request order. A nil childID lists all children of the parent.
func (s *RedemptionStore) ListPending(parentID int64, childID *int64) ([]model.Redemption, error) {
	query := `SELECT r.id, r.child_id, r.reward_id, r.status, r.requested_at, r.handled_by, r.handled_at
		FROM redemptions r
		JOIN children c ON c.id = r.child_id
		WHERE c.parent_id = ? AND r.status = 'pending'`
	args := []any{parentID}
	if childID != nil {
		query += ` AND r.child_id = ?`
		args = append(args, *childID)
	}
	query += ` ORDER BY r.requested_at ASC, r.id ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending redemptions: %w", err)
	}
	defer rows.Close()

	var redemptions []model.Redemption
	for rows.Next() {
		r, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		redemptions = append(redemptions, *r)
	}
	return redemptions, rows.Err()
}

// ListByChild returns all of a child's redemptions, newest first.
func (s *RedemptionStore) ListByChild(childID int64) ([]model.Redemption, error) {
	rows, err := s.db.Query(
		`SELECT `+redemptionCols+` FROM redemptions WHERE child_id = ? ORDER BY requested_at DESC, id DESC`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	defer rows.Close()

	var redemptions []model.Redemption
	for rows.Next() {
		r, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		redemptions = append(redemptions, *r)
	}
	return redemptions, rows.Err()
}
