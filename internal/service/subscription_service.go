package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reeys/reeys-backend/internal/models"
)

// WeeklyTokenGrant is credited on subscription start, renewal, and refill.
const WeeklyTokenGrant = 140

// tokenPackAmounts maps one-off purchase product ids to credit amounts.
var tokenPackAmounts = map[string]int{
	"reeys.tokens.200":  200,
	"reeys.tokens.500":  500,
	"reeys.tokens.2000": 2000,
}

// Subscriptions maps purchase-provider webhook events onto ledger and account
// side effects, and owns the weekly token refill. Events arrive at least
// once; re-applying an activation or re-crediting a grant is accepted.
type Subscriptions struct {
	accounts AccountStore
	ledger   *Ledger
	txns     TransactionLog
	log      *slog.Logger
	now      func() time.Time
}

func NewSubscriptions(accounts AccountStore, ledger *Ledger, txns TransactionLog, log *slog.Logger) *Subscriptions {
	return &Subscriptions{
		accounts: accounts,
		ledger:   ledger,
		txns:     txns,
		log:      log,
		now:      time.Now,
	}
}

// HandleEvent applies one webhook event. Unknown event types and unmapped
// product ids are logged and ignored so the provider never sees an error for
// them.
func (s *Subscriptions) HandleEvent(ctx context.Context, evt models.WebhookEvent) error {
	switch evt.Type {
	case "subscription_start", "initial_purchase", "trial_start", "renewal":
		return s.activate(ctx, evt.UserID, evt.ProductID)

	case "cancellation", "subscription_cancel":
		return s.setStatus(ctx, evt.UserID, models.SubscriptionCanceled)

	case "expiration", "subscription_expire":
		return s.setStatus(ctx, evt.UserID, models.SubscriptionExpired)

	case "non_consumable_purchase", "consumable_purchase":
		amount, ok := tokenPackAmounts[evt.ProductID]
		if !ok {
			s.log.Warn("unknown token pack product", "product_id", evt.ProductID, "uid", evt.UserID)
			return nil
		}
		if err := s.ledger.Grant(ctx, evt.UserID, amount, models.EventTokenPack); err != nil {
			return fmt.Errorf("grant token pack: %w", err)
		}
		s.log.Info("token pack purchased", "uid", evt.UserID, "product_id", evt.ProductID, "amount", amount)
		return nil

	case "refund":
		if _, isPack := tokenPackAmounts[evt.ProductID]; isPack {
			// Token pack refunds are acknowledged without reversing the
			// grant.
			s.log.Info("token pack refunded", "uid", evt.UserID, "product_id", evt.ProductID)
			return nil
		}
		return s.setStatus(ctx, evt.UserID, models.SubscriptionRefunded)

	default:
		s.log.Warn("unknown webhook event type", "type", evt.Type, "uid", evt.UserID)
		return nil
	}
}

// activate marks the subscription active and credits the weekly grant.
func (s *Subscriptions) activate(ctx context.Context, uid, productID string) error {
	if err := s.ensureAccount(ctx, uid); err != nil {
		return err
	}
	if err := s.accounts.UpdateSubscription(ctx, uid, models.SubscriptionActive, productID); err != nil {
		return fmt.Errorf("activate subscription: %w", err)
	}
	if err := s.accounts.GrantSubscriptionTokens(ctx, uid, WeeklyTokenGrant); err != nil {
		return fmt.Errorf("grant subscription tokens: %w", err)
	}
	s.record(ctx, uid, models.EventSubscription, WeeklyTokenGrant, fmt.Sprintf("Subscription tokens: %s", productID))
	s.log.Info("subscription activated", "uid", uid, "product_id", productID)
	return nil
}

func (s *Subscriptions) setStatus(ctx context.Context, uid string, status models.SubscriptionStatus) error {
	if err := s.ensureAccount(ctx, uid); err != nil {
		return err
	}
	if err := s.accounts.UpdateSubscription(ctx, uid, status, ""); err != nil {
		return fmt.Errorf("set subscription status: %w", err)
	}
	s.log.Info("subscription status updated", "uid", uid, "status", status)
	return nil
}

// ShouldRefill reports whether the account is due its weekly subscription
// grant: active status and no grant within the last 7 days.
func (s *Subscriptions) ShouldRefill(ctx context.Context, uid string) (bool, error) {
	account, err := s.accounts.Find(ctx, uid)
	if err != nil {
		return false, fmt.Errorf("check refill: %w", err)
	}
	if account == nil || account.SubscriptionStatus != models.SubscriptionActive {
		return false, nil
	}
	if account.LastTokenAdd == nil {
		return true, nil
	}
	return s.now().Sub(*account.LastTokenAdd) >= weekLength, nil
}

// Refill re-checks eligibility and credits the weekly grant, stamping the
// refill time. The re-check keeps repeated calls within one window from
// granting twice.
func (s *Subscriptions) Refill(ctx context.Context, uid string) (bool, error) {
	eligible, err := s.ShouldRefill(ctx, uid)
	if err != nil {
		return false, err
	}
	if !eligible {
		return false, nil
	}

	if err := s.accounts.GrantSubscriptionTokens(ctx, uid, WeeklyTokenGrant); err != nil {
		return false, fmt.Errorf("refill: %w", err)
	}
	s.record(ctx, uid, models.EventSubscriptionRefill, WeeklyTokenGrant, "Weekly subscription token refill")
	s.log.Info("subscription tokens refilled", "uid", uid)
	return true, nil
}

func (s *Subscriptions) ensureAccount(ctx context.Context, uid string) error {
	account, err := s.accounts.Find(ctx, uid)
	if err != nil {
		return fmt.Errorf("find account: %w", err)
	}
	if account == nil {
		if err := s.accounts.Create(ctx, defaultAccount(uid, s.now())); err != nil {
			return fmt.Errorf("bootstrap account: %w", err)
		}
	}
	return nil
}

func (s *Subscriptions) record(ctx context.Context, uid, event string, amount int, description string) {
	if err := s.txns.Record(ctx, uid, event, amount, description); err != nil {
		s.log.Error("failed to record transaction", "uid", uid, "event", event, "err", err)
	}
}
