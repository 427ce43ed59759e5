package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hybridx/training-app/internal/config"
	"hybridx/training-app/internal/domain"
	"hybridx/training-app/internal/repository"

	"github.com/sirupsen/logrus"
	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrStripeNotConfigured = errors.New("stripe is not configured")
	ErrNoSubscription      = errors.New("user has no active subscription")
)

// SubscriptionState is what clients render on the billing screen.
type SubscriptionState struct {
	Status            domain.SubscriptionStatus `json:"status"`
	TrialDaysLeft     int                       `json:"trialDaysLeft,omitempty"`
	CancelAtPeriodEnd bool                      `json:"cancelAtPeriodEnd"`
	AccessUntil       *time.Time                `json:"accessUntil,omitempty"`
}

type SubscriptionService interface {
	// Status computes the user's effective subscription status. Never
	// errors on odd stored data; unknown states resolve to expired.
	Status(ctx context.Context, userID primitive.ObjectID) (*SubscriptionState, error)

	// CreateCheckoutSession returns a Stripe Checkout URL, creating the
	// Stripe customer on first use.
	CreateCheckoutSession(ctx context.Context, userID primitive.ObjectID) (string, error)

	// CancelAtPeriodEnd schedules cancellation; access continues until the
	// current period ends.
	CancelAtPeriodEnd(ctx context.Context, userID primitive.ObjectID) error
	ResumeSubscription(ctx context.Context, userID primitive.ObjectID) error

	// HandleWebhook verifies and applies a Stripe event. The webhook is the
	// source of truth for stored subscription state.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type subscriptionService struct {
	userRepo repository.UserRepository
	cfg      config.StripeConfig
	sc       *client.API
	now      func() time.Time
}

func NewSubscriptionService(userRepo repository.UserRepository, cfg config.StripeConfig) SubscriptionService {
	svc := &subscriptionService{
		userRepo: userRepo,
		cfg:      cfg,
		now:      time.Now,
	}
	if cfg.SecretKey != "" {
		sc := &client.API{}
		sc.Init(cfg.SecretKey, nil)
		svc.sc = sc
	}
	return svc
}

func (s *subscriptionService) Status(ctx context.Context, userID primitive.ObjectID) (*SubscriptionState, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	now := s.now()
	fields := user.SubscriptionFields()
	status := domain.ResolveSubscriptionStatus(fields, now)

	state := &SubscriptionState{
		Status:            status,
		CancelAtPeriodEnd: fields.CancelAtPeriodEnd,
	}
	if status == domain.SubscriptionTrial && fields.TrialStartDate != nil {
		remaining := fields.TrialStartDate.Add(domain.TrialPeriod).Sub(now)
		state.TrialDaysLeft = int(remaining.Hours() / 24)
	}
	if fields.CancelAtPeriodEnd && fields.CancellationEffectiveDate != nil {
		state.AccessUntil = fields.CancellationEffectiveDate
	}
	return state, nil
}

func (s *subscriptionService) CreateCheckoutSession(ctx context.Context, userID primitive.ObjectID) (string, error) {
	if s.sc == nil {
		return "", ErrStripeNotConfigured
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return "", err
	}

	params := &stripe.CheckoutSessionParams{
		Customer:   stripe.String(customerID),
		SuccessURL: stripe.String(s.cfg.SuccessURL),
		CancelURL:  stripe.String(s.cfg.CancelURL),
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(s.cfg.PriceID),
			Quantity: stripe.Int64(1),
		}},
	}
	params.Metadata = map[string]string{"userId": user.ID.Hex()}

	sess, err := s.sc.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: creating checkout session: %v", ErrExternalService, err)
	}
	return sess.URL, nil
}

// ensureCustomer creates the Stripe customer lazily and stores its id, so the
// webhook can find the user by customer id later.
func (s *subscriptionService) ensureCustomer(ctx context.Context, user *domain.User) (string, error) {
	if user.StripeCustomerID != "" {
		return user.StripeCustomerID, nil
	}
	cust, err := s.sc.Customers.New(&stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Name:  stripe.String(user.FirstName + " " + user.LastName),
		Params: stripe.Params{
			Metadata: map[string]string{"userId": user.ID.Hex()},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: creating stripe customer: %v", ErrExternalService, err)
	}
	user.StripeCustomerID = cust.ID
	if err := s.userRepo.Update(ctx, user); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return cust.ID, nil
}

func (s *subscriptionService) CancelAtPeriodEnd(ctx context.Context, userID primitive.ObjectID) error {
	return s.setCancelFlag(ctx, userID, true)
}

func (s *subscriptionService) ResumeSubscription(ctx context.Context, userID primitive.ObjectID) error {
	return s.setCancelFlag(ctx, userID, false)
}

func (s *subscriptionService) setCancelFlag(ctx context.Context, userID primitive.ObjectID, cancel bool) error {
	if s.sc == nil {
		return ErrStripeNotConfigured
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if user.SubscriptionID == "" {
		return ErrNoSubscription
	}

	sub, err := s.sc.Subscriptions.Update(user.SubscriptionID, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(cancel),
	})
	if err != nil {
		return fmt.Errorf("%w: updating subscription: %v", ErrExternalService, err)
	}

	// Mirror the result immediately rather than waiting for the webhook, so
	// the billing screen reflects the action on the next read.
	s.applySubscriptionState(user, sub)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (s *subscriptionService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.cfg.WebhookSecret)
	if err != nil {
		return fmt.Errorf("invalid webhook signature: %w", err)
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("decoding checkout session: %w", err)
		}
		return s.onCheckoutCompleted(ctx, &sess)
	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decoding subscription: %w", err)
		}
		return s.onSubscriptionChanged(ctx, &sub)
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decoding subscription: %w", err)
		}
		return s.onSubscriptionDeleted(ctx, &sub)
	case "invoice.payment_succeeded", "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("decoding invoice: %w", err)
		}
		return s.onInvoiceEvent(ctx, &inv, event.Type == "invoice.payment_succeeded")
	default:
		logrus.WithField("type", event.Type).Debug("ignoring stripe event")
		return nil
	}
}

func (s *subscriptionService) onCheckoutCompleted(ctx context.Context, sess *stripe.CheckoutSession) error {
	user, err := s.userByCustomer(ctx, sess)
	if err != nil {
		return err
	}
	if sess.Subscription != nil {
		user.SubscriptionID = sess.Subscription.ID
	}
	user.StoredStatus = string(domain.SubscriptionActive)
	user.CancelAtPeriodEnd = false
	user.CancellationEffectiveDate = nil
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	logrus.WithField("userId", user.ID.Hex()).Info("subscription activated via checkout")
	return nil
}

func (s *subscriptionService) onSubscriptionChanged(ctx context.Context, sub *stripe.Subscription) error {
	user, err := s.userBySubscriptionCustomer(ctx, sub)
	if err != nil {
		return err
	}
	user.SubscriptionID = sub.ID
	s.applySubscriptionState(user, sub)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (s *subscriptionService) onSubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) error {
	user, err := s.userBySubscriptionCustomer(ctx, sub)
	if err != nil {
		return err
	}
	// Deleted means the Stripe object is gone; the stored id would dangle.
	user.SubscriptionID = ""
	user.StoredStatus = string(domain.SubscriptionExpired)
	user.CancelAtPeriodEnd = false
	user.CancellationEffectiveDate = nil
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	logrus.WithField("userId", user.ID.Hex()).Info("subscription deleted")
	return nil
}

// onInvoiceEvent keeps the stored status in step with recurring payments. A
// failed payment is only logged: Stripe retries on its own schedule and the
// eventual subscription.updated event carries the authoritative state.
func (s *subscriptionService) onInvoiceEvent(ctx context.Context, inv *stripe.Invoice, paid bool) error {
	if inv.Customer == nil {
		return nil
	}
	user, err := s.userRepo.GetByStripeCustomerID(ctx, inv.Customer.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Invoices can arrive for customers created outside this app.
			return nil
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if !paid {
		logrus.WithFields(logrus.Fields{
			"userId":  user.ID.Hex(),
			"invoice": inv.ID,
		}).Warn("subscription invoice payment failed")
		return nil
	}

	if user.SubscriptionID != "" && user.StoredStatus != string(domain.SubscriptionActive) && user.StoredStatus != domain.StoredStatusAdmin {
		user.StoredStatus = string(domain.SubscriptionActive)
		if err := s.userRepo.Update(ctx, user); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}
	return nil
}

// applySubscriptionState maps a Stripe subscription onto stored fields.
func (s *subscriptionService) applySubscriptionState(user *domain.User, sub *stripe.Subscription) {
	switch {
	case sub.PauseCollection != nil && sub.PauseCollection.Behavior != "":
		user.StoredStatus = string(domain.SubscriptionPaused)
	case sub.Status == stripe.SubscriptionStatusCanceled,
		sub.Status == stripe.SubscriptionStatusIncompleteExpired,
		sub.Status == stripe.SubscriptionStatusUnpaid:
		user.StoredStatus = string(domain.SubscriptionExpired)
	default:
		// active, trialing and past_due all keep access.
		user.StoredStatus = string(domain.SubscriptionActive)
	}

	user.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
	if sub.CancelAtPeriodEnd && sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		user.CancellationEffectiveDate = &end
	} else {
		user.CancellationEffectiveDate = nil
	}
}

func (s *subscriptionService) userByCustomer(ctx context.Context, sess *stripe.CheckoutSession) (*domain.User, error) {
	if sess.Customer != nil {
		if user, err := s.userRepo.GetByStripeCustomerID(ctx, sess.Customer.ID); err == nil {
			return user, nil
		}
	}
	// Fall back to the metadata set at checkout creation.
	if hex, ok := sess.Metadata["userId"]; ok {
		id, err := primitive.ObjectIDFromHex(hex)
		if err == nil {
			user, err := s.userRepo.GetByID(ctx, id)
			if err == nil {
				if sess.Customer != nil && user.StripeCustomerID == "" {
					user.StripeCustomerID = sess.Customer.ID
				}
				return user, nil
			}
		}
	}
	return nil, ErrUserNotFound
}

func (s *subscriptionService) userBySubscriptionCustomer(ctx context.Context, sub *stripe.Subscription) (*domain.User, error) {
	if sub.Customer == nil {
		return nil, ErrUserNotFound
	}
	user, err := s.userRepo.GetByStripeCustomerID(ctx, sub.Customer.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return user, nil
}
