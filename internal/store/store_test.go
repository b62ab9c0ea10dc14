package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/calebmsmith/pocketpoints/internal/database"
	"github.com/calebmsmith/pocketpoints/internal/model"
)

// openTestDB opens a migrated database backed by a temp file, so multiple
// connections (and goroutines) see the same data.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestParent(t *testing.T, db *sql.DB, email string) *model.Parent {
	t.Helper()
	parent, err := NewParentStore(db).Create(email, "Test Parent", "not-a-real-hash")
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	return parent
}

func createTestChild(t *testing.T, db *sql.DB, parentID int64, name string) *model.Child {
	t.Helper()
	child, err := NewChildStore(db).Create(parentID, name)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	return child
}

func createTestTask(t *testing.T, db *sql.DB, parentID, childID int64, title string, points int) *model.Task {
	t.Helper()
	task, err := NewTaskStore(db).Create(parentID, childID, title, model.CategoryChore, points)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func createTestReward(t *testing.T, db *sql.DB, parentID, childID int64, title string, cost int) *model.Reward {
	t.Helper()
	reward, err := NewRewardStore(db).Create(parentID, childID, title, "", cost, true, "")
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	return reward
}

// grantPoints gives a child a starting balance through the ledger, keeping
// the balance/ledger invariant intact.
func grantPoints(t *testing.T, db *sql.DB, childID int64, points int) {
	t.Helper()
	task, err := NewTaskStore(db).Create(mustParentOf(t, db, childID), childID, "seed points", model.CategoryLife, points)
	if err != nil {
		t.Fatalf("create seed task: %v", err)
	}
	if _, err := NewTaskStore(db).Toggle(task.ID, childID); err != nil {
		t.Fatalf("seed points: %v", err)
	}
}

func mustParentOf(t *testing.T, db *sql.DB, childID int64) int64 {
	t.Helper()
	child, err := NewChildStore(db).GetByID(childID)
	if err != nil || child == nil {
		t.Fatalf("get child %d: %v", childID, err)
	}
	return child.ParentID
}

// assertInvariant checks that the cached balance equals the ledger sum.
func assertInvariant(t *testing.T, db *sql.DB, childID int64) {
	t.Helper()
	ls := NewLedgerStore(db)
	balance, err := ls.BalanceOf(childID)
	if err != nil {
		t.Fatalf("balance of %d: %v", childID, err)
	}
	sum, err := ls.SumOf(childID)
	if err != nil {
		t.Fatalf("ledger sum of %d: %v", childID, err)
	}
	if balance != sum {
		t.Fatalf("balance %d != ledger sum %d", balance, sum)
	}
}
