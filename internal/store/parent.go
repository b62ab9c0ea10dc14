package store

import (
	"database/sql"
	"fmt"

	"github.com/calebmsmith/pocketpoints/internal/model"
)

type ParentStore struct {
	db *sql.DB
}

func NewParentStore(db *sql.DB) *ParentStore {
	return &ParentStore{db: db}
}

func scanParent(scanner interface{ Scan(...any) error }) (*model.Parent, error) {
	var p model.Parent
	err := scanner.Scan(&p.ID, &p.Email, &p.Name, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const parentCols = `id, email, name, password_hash, created_at, updated_at`

func (s *ParentStore) Create(email, name, passwordHash string) (*model.Parent, error) {
	result, err := s.db.Exec(
		`INSERT INTO parents (email, name, password_hash) VALUES (?, ?, ?)`,
		email, name, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert parent: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ParentStore) GetByID(id int64) (*model.Parent, error) {
	row := s.db.QueryRow(`SELECT `+parentCols+` FROM parents WHERE id = ?`, id)
	p, err := scanParent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get parent: %w", err)
	}
	return p, nil
}

func (s *ParentStore) GetByEmail(email string) (*model.Parent, error) {
	row := s.db.QueryRow(`SELECT `+parentCols+` FROM parents WHERE email = ?`, email)
	p, err := scanParent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get parent by email: %w", err)
	}
	return p, nil
}
