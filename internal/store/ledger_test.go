package store

import (
	"errors"
	"testing"

	"github.com/calebmsmith/pocketpoints/internal/model"
)

func TestLedgerApplyDelta(t *testing.T) {
	db := openTestDB(t)
	parent := createTestParent(t, db, "ledger@example.com")
	child := createTestChild(t, db, parent.ID, "Ada")
	ls := NewLedgerStore(db)

	entry, err := ls.ApplyDelta(child.ID, 10, model.KindTaskDone, nil, "Completed: homework")
	if err != nil {
		t.Fatalf("apply delta: %v", err)
	}
	if entry.Delta != 10 {
		t.Errorf("delta = %d, want 10", entry.Delta)
	}
	if entry.ChildID != child.ID {
		t.Errorf("child id = %d, want %d", entry.ChildID, child.ID)
	}

	balance, err := ls.BalanceOf(child.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 10 {
		t.Errorf("balance = %d, want 10", balance)
	}
	assertInvariant(t, db, child.ID)
}

func TestLedgerApplyDeltaNeverNegative(t *testing.T) {
	db := openTestDB(t)
	parent := createTestParent(t, db, "ledger@example.com")
	child := createTestChild(t, db, parent.ID, "Ada")
	ls := NewLedgerStore(db)

	if _, err := ls.ApplyDelta(child.ID, 5, model.KindTaskDone, nil, ""); err != nil {
		t.Fatalf("apply delta: %v", err)
	}

	_, err := ls.ApplyDelta(child.ID, -6, model.KindTaskUndo, nil, "")
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	// The failed delta must leave the balance and the ledger untouched.
	balance, err := ls.BalanceOf(child.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 5 {
		t.Errorf("balance = %d, want 5 after rejected delta", balance)
	}
	history, err := ls.History(child.ID, 50, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("ledger entries = %d, want 1", len(history))
	}
	assertInvariant(t, db, child.ID)
}

func TestLedgerApplyDeltaUnknownChild(t *testing.T) {
	db := openTestDB(t)
	ls := NewLedgerStore(db)

	_, err := ls.ApplyDelta(9999, 5, model.KindTaskDone, nil, "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLedgerHistoryNewestFirst(t *testing.T) {
	db := openTestDB(t)
	parent := createTestParent(t, db, "ledger@example.com")
	child := createTestChild(t, db, parent.ID, "Ada")
	ls := NewLedgerStore(db)

	for i := 1; i <= 3; i++ {
		if _, err := ls.ApplyDelta(child.ID, i, model.KindTaskDone, nil, ""); err != nil {
			t.Fatalf("apply delta %d: %v", i, err)
		}
	}

	history, err := ls.History(child.ID, 50, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("entries = %d, want 3", len(history))
	}
	// Entries were inserted with deltas 1, 2, 3; newest first means 3, 2, 1.
	for i, want := range []int{3, 2, 1} {
		if history[i].Delta != want {
			t.Errorf("history[%d].Delta = %d, want %d", i, history[i].Delta, want)
		}
	}

	page, err := ls.History(child.ID, 2, 1)
	if err != nil {
		t.Fatalf("history page: %v", err)
	}
	if len(page) != 2 || page[0].Delta != 2 || page[1].Delta != 1 {
		t.Errorf("paged history = %+v, want deltas [2 1]", page)
	}
}

func TestLedgerEntryRef(t *testing.T) {
	db := openTestDB(t)
	parent := createTestParent(t, db, "ledger@example.com")
	child := createTestChild(t, db, parent.ID, "Ada")
	task := createTestTask(t, db, parent.ID, child.ID, "Homework", 10)
	ls := NewLedgerStore(db)

	if _, err := ls.ApplyDelta(child.ID, 10, model.KindTaskDone, model.TaskRef(task.ID), ""); err != nil {
		t.Fatalf("apply delta: %v", err)
	}

	history, err := ls.History(child.ID, 10, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("entries = %d, want 1", len(history))
	}
	got := history[0].Ref
	if got == nil || got.Kind != model.RefTask || got.ID != task.ID {
		t.Errorf("ref = %+v, want task ref %d", got, task.ID)
	}
}
