package store

import "testing"

func TestPushUpsertReplacesKeys(t *testing.T) {
	db := openTestDB(t)
	parent := createTestParent(t, db, "push@example.com")
	ps := NewPushStore(db)

	sub, err := ps.Upsert(parent.ID, "https://push.example/ep1", "key1", "auth1")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	replaced, err := ps.Upsert(parent.ID, "https://push.example/ep1", "key2", "auth2")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if replaced.ID != sub.ID {
		t.Errorf("upsert created new row %d, want %d", replaced.ID, sub.ID)
	}
	if replaced.P256dhKey != "key2" || replaced.AuthKey != "auth2" {
		t.Errorf("subscription = %+v, want replaced keys", replaced)
	}

	subs, err := ps.ListByParent(parent.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Errorf("subscriptions = %d, want 1", len(subs))
	}

	if err := ps.DeleteByEndpoint("https://push.example/ep1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	subs, err = ps.ListByParent(parent.ID)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("subscriptions = %d, want 0", len(subs))
	}
}
