package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/calebmsmith/pocketpoints/internal/model"
)

type SnapshotStore struct {
	db *sql.DB
}

func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func scanSnapshot(scanner interface{ Scan(...any) error }) (*model.Snapshot, error) {
	var s model.Snapshot
	err := scanner.Scan(&s.ID, &s.Filename, &s.S3Key, &s.Status, &s.Error, &s.SizeBytes, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

const snapshotCols = `id, filename, s3_key, status, error, size_bytes, created_at`

func (s *SnapshotStore) Create(filename, s3Key string) (*model.Snapshot, error) {
	result, err := s.db.Exec(
		`INSERT INTO snapshots (filename, s3_key) VALUES (?, ?)`,
		filename, s3Key,
	)
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *SnapshotStore) GetByID(id int64) (*model.Snapshot, error) {
	row := s.db.QueryRow(`SELECT `+snapshotCols+` FROM snapshots WHERE id = ?`, id)
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return snap, nil
}

func (s *SnapshotStore) UpdateStatus(id int64, status model.SnapshotStatus, errMsg string) error {
	_, err := s.db.Exec(
		`UPDATE snapshots SET status = ?, error = ? WHERE id = ?`,
		string(status), errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("update snapshot status: %w", err)
	}
	return nil
}

func (s *SnapshotStore) UpdateSize(id int64, sizeBytes int64) error {
	_, err := s.db.Exec(`UPDATE snapshots SET size_bytes = ? WHERE id = ?`, sizeBytes, id)
	if err != nil {
		return fmt.Errorf("update snapshot size: %w", err)
	}
	return nil
}

func (s *SnapshotStore) List(limit int) ([]model.Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT `+snapshotCols+` FROM snapshots ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}

// ListOlderThan returns completed snapshots created before the cutoff.
func (s *SnapshotStore) ListOlderThan(cutoff time.Time) ([]model.Snapshot, error) {
	rows, err := s.db.Query(
		`SELECT `+snapshotCols+` FROM snapshots WHERE status = 'complete' AND created_at < ?`,
		cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list old snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}

func (s *SnapshotStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
