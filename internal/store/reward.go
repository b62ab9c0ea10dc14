package store

import (
	"database/sql"
	"fmt"

	"github.com/calebmsmith/pocketpoints/internal/model"
)

type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	var active int

	err := scanner.Scan(&r.ID, &r.ParentID, &r.ChildID, &r.Title, &r.Description, &r.PointCost, &active, &r.ImageURL, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	r.Active = active != 0
	return &r, nil
}

const rewardCols = `id, parent_id, child_id, title, description, point_cost, active, image_url, created_at, updated_at`

func (s *RewardStore) Create(parentID, childID int64, title, description string, pointCost int, active bool, imageURL string) (*model.Reward, error) {
	a := 0
	if active {
		a = 1
	}

	result, err := s.db.Exec(
		`INSERT INTO rewards (parent_id, child_id, title, description, point_cost, active, image_url) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		parentID, childID, title, description, pointCost, a, imageURL,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) GetByID(id int64) (*model.Reward, error) {
	row := s.db.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

func (s *RewardStore) ListByParent(parentID int64) ([]model.Reward, error) {
	return s.list(`SELECT `+rewardCols+` FROM rewards WHERE parent_id = ? ORDER BY active DESC, title ASC`, parentID)
}

// ListActiveByChild returns the rewards a child can currently request.
func (s *RewardStore) ListActiveByChild(childID int64) ([]model.Reward, error) {
	return s.list(`SELECT `+rewardCols+` FROM rewards WHERE child_id = ? AND active = 1 ORDER BY point_cost ASC, title ASC`, childID)
}

func (s *RewardStore) list(query string, arg int64) ([]model.Reward, error) {
	rows, err := s.db.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *RewardStore) Update(id, childID int64, title, description string, pointCost int, active bool, imageURL string) (*model.Reward, error) {
	a := 0
	if active {
		a = 1
	}

	_, err := s.db.Exec(
		`UPDATE rewards SET child_id = ?, title = ?, description = ?, point_cost = ?, active = ?, image_url = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		childID, title, description, pointCost, a, imageURL, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM rewards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	return nil
}
