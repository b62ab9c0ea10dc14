package push

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/calebmsmith/pocketpoints/internal/store"
)

// Notifier fans a notification out to every device a parent registered,
// pruning subscriptions the push service reports as gone.
type Notifier struct {
	svc    *Service
	store  *store.PushStore
	logger *slog.Logger
}

func NewNotifier(svc *Service, st *store.PushStore, logger *slog.Logger) *Notifier {
	return &Notifier{svc: svc, store: st, logger: logger}
}

// RedemptionRequested notifies a parent that a child filed a redemption
// request. Failures are logged, never surfaced: the redemption is already
// committed and notification is best-effort.
func (n *Notifier) RedemptionRequested(parentID int64, childName, rewardTitle string) {
	if n == nil || n.svc == nil {
		return
	}
	n.notify(parentID, Payload{
		Title: "Redemption request",
		Body:  fmt.Sprintf("%s wants to redeem %q", childName, rewardTitle),
		URL:   "/redemptions",
		Tag:   "redemption_requested",
	})
}

func (n *Notifier) notify(parentID int64, payload Payload) {
	subs, err := n.store.ListByParent(parentID)
	if err != nil {
		n.logger.Error("list push subscriptions", "parent_id", parentID, "error", err)
		return
	}

	for i := range subs {
		sub := &subs[i]
		if err := n.svc.Send(sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if err := n.store.DeleteByEndpoint(sub.Endpoint); err != nil {
					n.logger.Error("delete expired subscription", "error", err)
				}
				continue
			}
			n.logger.Error("send push", "endpoint", sub.Endpoint, "error", err)
		}
	}
}
