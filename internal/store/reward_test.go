package store

import "testing"

func TestRewardCRUD(t *testing.T) {
	db := openTestDB(t)
	parent := createTestParent(t, db, "rewards@example.com")
	child := createTestChild(t, db, parent.ID, "Ada")
	rs := NewRewardStore(db)

	reward, err := rs.Create(parent.ID, child.ID, "Ice cream", "One scoop", 20, true, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !reward.Active || reward.PointCost != 20 {
		t.Errorf("reward = %+v", reward)
	}

	updated, err := rs.Update(reward.ID, child.ID, "Ice cream", "Two scoops", 25, false, "")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Active || updated.PointCost != 25 || updated.Description != "Two scoops" {
		t.Errorf("updated reward = %+v", updated)
	}

	if err := rs.Delete(reward.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := rs.GetByID(reward.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Errorf("reward = %+v, want nil after delete", got)
	}
}

func TestRewardListActiveByChild(t *testing.T) {
	db := openTestDB(t)
	parent := createTestParent(t, db, "rewards@example.com")
	ada := createTestChild(t, db, parent.ID, "Ada")
	ben := createTestChild(t, db, parent.ID, "Ben")
	rs := NewRewardStore(db)

	active := createTestReward(t, db, parent.ID, ada.ID, "Ice cream", 20)
	if _, err := rs.Create(parent.ID, ada.ID, "Retired", "", 5, false, ""); err != nil {
		t.Fatalf("create inactive: %v", err)
	}
	createTestReward(t, db, parent.ID, ben.ID, "Movie night", 30)

	rewards, err := rs.ListActiveByChild(ada.ID)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(rewards) != 1 || rewards[0].ID != active.ID {
		t.Errorf("active rewards = %+v, want only %d", rewards, active.ID)
	}

	all, err := rs.ListByParent(parent.ID)
	if err != nil {
		t.Fatalf("list by parent: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("rewards = %d, want 3", len(all))
	}
}
