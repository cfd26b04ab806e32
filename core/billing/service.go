package billing

import (
	"context"
	"encoding/json"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/user"
)

var (
	// errors
	ErrUnknownPlan     = errors.New("unknown membership plan")
	ErrUnknownCustomer = errors.New("no user matches this billing customer")
)

// webhook event types we act on; anything else is acknowledged and dropped
const (
	evtCheckoutCompleted   = "checkout.session.completed"
	evtSubscriptionUpdated = "customer.subscription.updated"
	evtSubscriptionDeleted = "customer.subscription.deleted"
)

type (
	// Gateway abstracts the payment provider.
	Gateway interface {
		CreateCustomer(ctx context.Context, name, email string) (string, error)
		CreateCheckoutSession(ctx context.Context, p CheckoutParams) (CheckoutSession, error)
	}

	CheckoutParams struct {
		CustomerID string
		PriceID    string
		Plan       string
		UserID     string
		SuccessURL string
		CancelURL  string
	}

	// EventStore records processed webhook event IDs so redelivered events
	// are acknowledged without being applied twice. An event is marked only
	// after it was applied: a delivery that fails stays unmarked so the
	// gateway's retry gets another shot.
	EventStore interface {
		WasProcessed(ctx context.Context, eventID string) (bool, error)
		MarkProcessed(ctx context.Context, eventID string) error
	}

	Service interface {
		CreateCheckout(ctx context.Context, usr user.User, nc NewCheckout) (CheckoutSession, error)
		HandleEvent(ctx context.Context, evt Event) error
	}

	service struct {
		gateway Gateway
		events  EventStore
		userSvc user.Service
		mailSvc core.EmailService
		logger  core.Logger
		conf    core.StripeConfig
	}
)

var _ Service = (*service)(nil)

func NewService(
	gateway Gateway,
	events EventStore,
	userSvc user.Service,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) Service {
	return &service{
		gateway: gateway,
		events:  events,
		userSvc: userSvc,
		mailSvc: mailSvc,
		logger:  logger,
		conf:    conf.Stripe,
	}
}

// CreateCheckout opens a gateway checkout session for the chosen plan,
// creating the billing customer on first purchase.
func (svc *service) CreateCheckout(ctx context.Context, usr user.User, nc NewCheckout) (CheckoutSession, error) {
	priceID, err := svc.priceID(nc.Plan)
	if err != nil {
		return CheckoutSession{}, err
	}

	if usr.StripeCustomerID == "" {
		custID, err := svc.gateway.CreateCustomer(ctx, usr.Name, usr.Email)
		if err != nil {
			return CheckoutSession{}, errors.Wrap(err, "creating billing customer")
		}
		if usr, err = svc.userSvc.SetStripeCustomerID(ctx, usr, custID); err != nil {
			return CheckoutSession{}, errors.Wrap(err, "saving billing customer id")
		}
	}

	return svc.gateway.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerID: usr.StripeCustomerID,
		PriceID:    priceID,
		Plan:       nc.Plan,
		UserID:     usr.ID,
		SuccessURL: svc.conf.CheckoutSuccessURL,
		CancelURL:  svc.conf.CheckoutCancelURL,
	})
}

// HandleEvent applies one verified webhook event. Redelivered events are
// detected via the event store and skipped; unhandled types are dropped.
// The event is recorded as processed only after its handler succeeded, so a
// transient failure is retried on the gateway's redelivery instead of being
// mistaken for a duplicate.
func (svc *service) HandleEvent(ctx context.Context, evt Event) error {
	dup, err := svc.events.WasProcessed(ctx, evt.ID)
	if err != nil {
		return errors.Wrap(err, "checking event idempotency")
	}
	if dup {
		svc.logger.Info("duplicate billing event skipped", "event_id", evt.ID)
		return nil
	}

	if err := svc.applyEvent(ctx, evt); err != nil {
		return err
	}
	return errors.Wrap(svc.events.MarkProcessed(ctx, evt.ID), "recording processed event")
}

func (svc *service) applyEvent(ctx context.Context, evt Event) error {
	switch evt.Type {
	case evtCheckoutCompleted:
		return svc.handleCheckoutCompleted(ctx, evt)
	case evtSubscriptionUpdated:
		return svc.handleSubscriptionUpdated(ctx, evt)
	case evtSubscriptionDeleted:
		return svc.handleSubscriptionDeleted(ctx, evt)
	default:
		svc.logger.Info("unhandled billing event type", "type", evt.Type, "event_id", evt.ID)
		return nil
	}
}

func (svc *service) handleCheckoutCompleted(ctx context.Context, evt Event) error {
	var sess checkoutSessionObject
	if err := json.Unmarshal(evt.Data.Object, &sess); err != nil {
		return errors.Wrap(err, "decoding checkout session")
	}

	usr, err := svc.resolveUser(ctx, sess.Metadata["user_id"], sess.Customer)
	if err != nil {
		return err
	}
	if usr.StripeCustomerID == "" {
		usr.StripeCustomerID = sess.Customer
	}

	plan := sess.Metadata["plan"]
	duration, ok := PlanDuration(plan)
	if !ok {
		return ErrUnknownPlan
	}
	expiry := time.Now().UTC().Add(duration)

	if usr, err = svc.userSvc.ActivateProMembership(ctx, usr, expiry, sess.Subscription, "active"); err != nil {
		return errors.Wrap(err, "activating pro membership")
	}

	svc.sendReceiptMail(usr, plan, expiry)
	return nil
}

func (svc *service) handleSubscriptionUpdated(ctx context.Context, evt Event) error {
	var sub subscriptionObject
	if err := json.Unmarshal(evt.Data.Object, &sub); err != nil {
		return errors.Wrap(err, "decoding subscription")
	}

	usr, err := svc.resolveUser(ctx, "", sub.Customer)
	if err != nil {
		return err
	}

	switch sub.Status {
	case "active":
		expiry := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		_, err = svc.userSvc.ActivateProMembership(ctx, usr, expiry, sub.ID, sub.Status)
	case "canceled", "unpaid", "incomplete_expired":
		_, err = svc.userSvc.CancelProMembership(ctx, usr)
	default:
		// past_due etc: membership runs until the current period expires
		svc.logger.Info("subscription status noted", "status", sub.Status, "user_id", usr.ID)
	}
	return err
}

func (svc *service) handleSubscriptionDeleted(ctx context.Context, evt Event) error {
	var sub subscriptionObject
	if err := json.Unmarshal(evt.Data.Object, &sub); err != nil {
		return errors.Wrap(err, "decoding subscription")
	}
	usr, err := svc.resolveUser(ctx, "", sub.Customer)
	if err != nil {
		return err
	}
	_, err = svc.userSvc.CancelProMembership(ctx, usr)
	return err
}

// resolveUser finds the membership owner, preferring the user id carried in
// the checkout metadata over the gateway customer id.
func (svc *service) resolveUser(ctx context.Context, userID, customerID string) (user.User, error) {
	if userID != "" {
		usr, err := svc.userSvc.GetByID(ctx, userID)
		if err == nil {
			return usr, nil
		}
		if errors.Cause(err) != user.ErrNotFound {
			return user.User{}, err
		}
	}
	usr, err := svc.userSvc.GetByStripeCustomerID(ctx, customerID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, ErrUnknownCustomer
		}
		return user.User{}, err
	}
	return usr, nil
}

func (svc *service) priceID(plan string) (string, error) {
	switch plan {
	case PlanMonthly:
		return svc.conf.MonthlyPriceID, nil
	case PlanYearly:
		return svc.conf.YearlyPriceID, nil
	}
	return "", ErrUnknownPlan
}

func (svc *service) sendReceiptMail(usr user.User, plan string, expiry time.Time) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Welcome to Pro Membership",
		TemplateName: "pro-membership",
		TemplateData: struct {
			User   user.User
			Plan   string
			Expiry time.Time
		}{usr, plan, expiry},
	})
}
