package store

import (
	"testing"
	"time"

	"github.com/calebmsmith/pocketpoints/internal/model"
)

func TestSnapshotStatusTransitions(t *testing.T) {
	db := openTestDB(t)
	ss := NewSnapshotStore(db)

	snap, err := ss.Create("pocketpoints-20260828.db", "snapshots/pocketpoints-20260828.db")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if snap.Status != model.SnapshotPending {
		t.Errorf("status = %q, want pending", snap.Status)
	}

	if err := ss.UpdateStatus(snap.ID, model.SnapshotUploading, ""); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := ss.UpdateSize(snap.ID, 4096); err != nil {
		t.Fatalf("update size: %v", err)
	}
	if err := ss.UpdateStatus(snap.ID, model.SnapshotComplete, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, err := ss.GetByID(snap.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.SnapshotComplete || got.SizeBytes != 4096 {
		t.Errorf("snapshot = %+v", got)
	}
}

func TestSnapshotListOlderThan(t *testing.T) {
	db := openTestDB(t)
	ss := NewSnapshotStore(db)

	snap, err := ss.Create("old.db", "snapshots/old.db")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := ss.UpdateStatus(snap.ID, model.SnapshotComplete, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// Pending snapshots never qualify for retention cleanup.
	if _, err := ss.Create("fresh.db", "snapshots/fresh.db"); err != nil {
		t.Fatalf("create pending: %v", err)
	}

	old, err := ss.ListOlderThan(time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("list older: %v", err)
	}
	if len(old) != 1 || old[0].ID != snap.ID {
		t.Errorf("old snapshots = %+v, want only %d", old, snap.ID)
	}

	none, err := ss.ListOlderThan(time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("list older: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("old snapshots = %d, want 0", len(none))
	}
}
