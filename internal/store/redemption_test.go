package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/calebmsmith/pocketpoints/internal/model"
)

func TestRedemptionRequestAndApprove(t *testing.T) {
	db := openTestDB(t)
	parent := createTestParent(t, db, "redeem@example.com")
	child := createTestChild(t, db, parent.ID, "Ada")
	reward := createTestReward(t, db, parent.ID, child.ID, "Ice cream", 20)
	grantPoints(t, db, child.ID, 30)
	rs := NewRedemptionStore(db)

	redemption, err := rs.Request(child.ID, reward.ID)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if redemption.Status != model.RedemptionPending {
		t.Errorf("status = %q, want pending", redemption.Status)
	}

	// Requesting holds no points; the balance moves only on approval.
	balance, err := NewLedgerStore(db).BalanceOf(child.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 30 {
		t.Errorf("balance after request = %d, want 30", balance)
	}

	approved, err := rs.Approve(redemption.ID, parent.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != model.RedemptionApproved {
		t.Errorf("status = %q, want approved", approved.Status)
	}
	if approved.HandledBy == nil || *approved.HandledBy != parent.ID {
		t.Errorf("handled_by = %v, want %d", approved.HandledBy, parent.ID)
	}
	if approved.HandledAt == nil {
		t.Error("handled_at should be set")
	}

	balance, err = NewLedgerStore(db).BalanceOf(child.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 10 {
		t.Errorf("balance after approve = %d, want 10", balance)
	}

	entries, err := NewLedgerStore(db).History(child.ID, 10, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	spend := entries[0]
	if spend.Kind != model.KindRedemptionSpend || spend.Delta != -20 {
		t.Errorf("spend entry = kind %q delta %d, want redemption_spend -20", spend.Kind, spend.Delta)
	}
	if spend.Ref == nil || spend.Ref.Kind != model.RefRedemption || spend.Ref.ID != redemption.ID {
		t.Errorf("spend ref = %+v, want redemption %d", spend.Ref, redemption.ID)
	}
	assertInvariant(t, db, child.ID)
}

func TestRedemptionReject(t *testing.T) {
	db := openTestDB(t)
	parent := createTestParent(t, db, "redeem@example.com")
	child := createTestChild(t, db, parent.ID, "Ada")
	reward := createTestReward(t, db, parent.ID, child.ID, "Ice cream", 20)
	grantPoints(t, db, child.ID, 30)
	rs := NewRedemptionStore(db)

	redemption, err := rs.Request(child.ID, reward.ID)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	rejected, err := rs.Reject(redemption.ID, parent.ID)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != model.RedemptionRejected {
		t.Errorf("status = %q, want rejected", rejected.Status)
	}

	// A rejection never touches the ledger.
	balance, err := NewLedgerStore(db).BalanceOf(child.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 30 {
		t.Errorf("balance = %d, want 30", balance)
	}
}

func TestRedemptionHandleTwice(t *testing.T) {
	db := openTestDB(t)
	parent := createTestParent(t, db, "redeem@example.com")
	child := createTestChild(t, db, parent.ID, "Ada")
	reward := createTestReward(t, db, parent.ID, child.ID, "Ice cream", 20)
	grantPoints(t, db, child.ID, 50)
	rs := NewRedemptionStore(db)

	redemption, err := rs.Request(child.ID, reward.ID)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := rs.Approve(redemption.ID, parent.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// Terminal states are final in both directions.
	if _, err := rs.Approve(redemption.ID, parent.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second approve err = %v, want ErrInvalidState", err)
	}
	if _, err := rs.Reject(redemption.ID, parent.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("reject after approve err = %v, want ErrInvalidState", err)
	}

	// Exactly one spend entry despite the retries.
	balance, err := NewLedgerStore(db).BalanceOf(child.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 30 {
		t.Errorf("balance = %d, want 30", balance)
	}
	assertInvariant(t, db, child.ID)
}

func TestRedemptionApproveInsufficientBalance(t *testing.T) {
	db := openTestDB(t)
	parent := createTestParent(t, db, "redeem@example.com")
	child := createTestChild(t, db, parent.ID, "Ada")
	reward := createTestReward(t, db, parent.ID, child.ID, "Ice cream", 20)
	grantPoints(t, db, child.ID, 25)
	ts := NewTaskStore(db)
	rs := NewRedemptionStore(db)

	redemption, err := rs.Request(child.ID, reward.ID)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	// The balance drops below the cost between request and approval.
	tasks, err := ts.ListByChild(child.ID)
	if err != nil || len(tasks) != 1 {
		t.Fatalf("list tasks: %v (%d tasks)", err, len(tasks))
	}
	if _, err := ts.Toggle(tasks[0].ID, child.ID); err != nil {
		t.Fatalf("undo seed task: %v", err)
	}

	_, err = rs.Approve(redemption.ID, parent.ID)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	// The failed approval leaves the redemption pending and spendable later.
	got, err := rs.GetByID(redemption.ID)
	if err != nil {
		t.Fatalf("get redemption: %v", err)
	}
	if got.Status != model.RedemptionPending {
		t.Errorf("status = %q, want pending after failed approve", got.Status)
	}
	assertInvariant(t, db, child.ID)
}

func TestRedemptionConcurrentApprovals(t *testing.T) {
	db := openTestDB(t)
	parent := createTestParent(t, db, "redeem@example.com")
	child := createTestChild(t, db, parent.ID, "Ada")
	reward := createTestReward(t, db, parent.ID, child.ID, "Ice cream", 20)
	grantPoints(t, db, child.ID, 25)
	rs := NewRedemptionStore(db)

	first, err := rs.Request(child.ID, reward.ID)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	second, err := rs.Request(child.ID, reward.ID)
	if err != nil {
		t.Fatalf("second request: %v", err)
	}

	// Two approvals race for a balance that only covers one.
	errs := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	for i, id := range []int64{first.ID, second.ID} {
		go func(i int, id int64) {
			defer wg.Done()
			_, errs[i] = rs.Approve(id, parent.ID)
		}(i, id)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientBalance):
			insufficient++
		default:
			t.Fatalf("unexpected approve error: %v", err)
		}
	}
	if ok != 1 || insufficient != 1 {
		t.Fatalf("got %d successes and %d insufficient-balance failures, want 1 and 1", ok, insufficient)
	}

	balance, err := NewLedgerStore(db).BalanceOf(child.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 5 {
		t.Errorf("balance = %d, want 5", balance)
	}
	assertInvariant(t, db, child.ID)
}

func TestRedemptionRequestErrors(t *testing.T) {
	db := openTestDB(t)
	parent := createTestParent(t, db, "redeem@example.com")
	ada := createTestChild(t, db, parent.ID, "Ada")
	ben := createTestChild(t, db, parent.ID, "Ben")
	reward := createTestReward(t, db, parent.ID, ada.ID, "Ice cream", 20)
	grantPoints(t, db, ada.ID, 30)
	rs := NewRedemptionStore(db)

	if _, err := rs.Request(ada.ID, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown reward err = %v, want ErrNotFound", err)
	}
	if _, err := rs.Request(ben.ID, reward.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("other child's reward err = %v, want ErrForbidden", err)
	}

	// Children cannot request more than they can afford.
	expensive := createTestReward(t, db, parent.ID, ada.ID, "Bicycle", 500)
	if _, err := rs.Request(ada.ID, expensive.ID); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("unaffordable reward err = %v, want ErrInsufficientBalance", err)
	}

	inactive, err := NewRewardStore(db).Create(parent.ID, ada.ID, "Retired", "", 5, false, "")
	if err != nil {
		t.Fatalf("create inactive reward: %v", err)
	}
	if _, err := rs.Request(ada.ID, inactive.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("inactive reward err = %v, want ErrInvalidState", err)
	}
}

func TestRedemptionHandleForbiddenForOtherParent(t *testing.T) {
	db := openTestDB(t)
	parent := createTestParent(t, db, "redeem@example.com")
	other := createTestParent(t, db, "other@example.com")
	child := createTestChild(t, db, parent.ID, "Ada")
	reward := createTestReward(t, db, parent.ID, child.ID, "Ice cream", 20)
	grantPoints(t, db, child.ID, 30)
	rs := NewRedemptionStore(db)

	redemption, err := rs.Request(child.ID, reward.ID)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := rs.Approve(redemption.ID, other.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("approve by other parent err = %v, want ErrForbidden", err)
	}
	if _, err := rs.Reject(redemption.ID, other.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("reject by other parent err = %v, want ErrForbidden", err)
	}
}

func TestRedemptionListPending(t *testing.T) {
	db := openTestDB(t)
	parent := createTestParent(t, db, "redeem@example.com")
	ada := createTestChild(t, db, parent.ID, "Ada")
	ben := createTestChild(t, db, parent.ID, "Ben")
	adaReward := createTestReward(t, db, parent.ID, ada.ID, "Ice cream", 10)
	benReward := createTestReward(t, db, parent.ID, ben.ID, "Movie night", 10)
	grantPoints(t, db, ada.ID, 30)
	grantPoints(t, db, ben.ID, 30)
	rs := NewRedemptionStore(db)

	first, err := rs.Request(ada.ID, adaReward.ID)
	if err != nil {
		t.Fatalf("request ada: %v", err)
	}
	second, err := rs.Request(ben.ID, benReward.ID)
	if err != nil {
		t.Fatalf("request ben: %v", err)
	}

	pending, err := rs.ListPending(parent.ID, nil)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	// Oldest request first, so parents handle them in arrival order.
	if pending[0].ID != first.ID || pending[1].ID != second.ID {
		t.Errorf("pending order = [%d %d], want [%d %d]", pending[0].ID, pending[1].ID, first.ID, second.ID)
	}

	onlyAda, err := rs.ListPending(parent.ID, &ada.ID)
	if err != nil {
		t.Fatalf("list pending for child: %v", err)
	}
	if len(onlyAda) != 1 || onlyAda[0].ChildID != ada.ID {
		t.Errorf("filtered pending = %+v, want ada's only", onlyAda)
	}

	if _, err := rs.Approve(first.ID, parent.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	pending, err = rs.ListPending(parent.ID, nil)
	if err != nil {
		t.Fatalf("list pending after approve: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != second.ID {
		t.Errorf("pending after approve = %+v, want only %d", pending, second.ID)
	}
}
