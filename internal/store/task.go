package store

import (
	"database/sql"
	"fmt"

	"github.com/calebmsmith/pocketpoints/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var done int

	err := scanner.Scan(&t.ID, &t.ParentID, &t.ChildID, &t.Title, &t.Category, &t.Points, &done, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	t.Done = done != 0
	return &t, nil
}

const taskCols = `id, parent_id, child_id, title, category, points, done, created_at, updated_at`

func (s *TaskStore) Create(parentID, childID int64, title string, category model.TaskCategory, points int) (*model.Task, error) {
	result, err := s.db.Exec(
		`INSERT INTO tasks (parent_id, child_id, title, category, points) VALUES (?, ?, ?, ?, ?)`,
		parentID, childID, title, string(category), points,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) ListByParent(parentID int64) ([]model.Task, error) {
	return s.list(`SELECT `+taskCols+` FROM tasks WHERE parent_id = ? ORDER BY done ASC, title ASC`, parentID)
}

func (s *TaskStore) ListByChild(childID int64) ([]model.Task, error) {
	return s.list(`SELECT `+taskCols+` FROM tasks WHERE child_id = ? ORDER BY done ASC, title ASC`, childID)
}

func (s *TaskStore) list(query string, arg int64) ([]model.Task, error) {
	rows, err := s.db.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Update edits task fields. The done flag is owned by Toggle.
func (s *TaskStore) Update(id, childID int64, title string, category model.TaskCategory, points int) (*model.Task, error) {
	_, err := s.db.Exec(
		`UPDATE tasks SET child_id = ?, title = ?, category = ?, points = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		childID, title, string(category), points, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// ToggleResult carries the task's new state and the ledger entry the toggle
// produced.
type ToggleResult struct {
	Task  *model.Task        `json:"task"`
	Entry *model.LedgerEntry `json:"entry"`
}

// Toggle flips a task between done and not done and credits or debits the
// task's points, as one transaction. Only the task's own child may toggle
// it. An undo that would drive the balance negative fails with
// ErrInsufficientBalance and leaves the done flag unchanged.
func (s *TaskStore) Toggle(taskID, actorChildID int64) (*ToggleResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, taskID)
	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task.ChildID != actorChildID {
		return nil, fmt.Errorf("task %d belongs to another child: %w", taskID, ErrForbidden)
	}

	nextDone := !task.Done
	delta := task.Points
	kind := model.KindTaskDone
	note := "Completed: " + task.Title
	if !nextDone {
		delta = -task.Points
		kind = model.KindTaskUndo
		note = "Undone: " + task.Title
	}

	entry, err := applyDeltaTx(tx, task.ChildID, delta, kind, model.TaskRef(task.ID), note)
	if err != nil {
		return nil, err
	}

	done := 0
	if nextDone {
		done = 1
	}
	if _, err := tx.Exec(
		`UPDATE tasks SET done = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		done, taskID,
	); err != nil {
		return nil, fmt.Errorf("update done flag: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	task.Done = nextDone
	return &ToggleResult{Task: task, Entry: entry}, nil
}
