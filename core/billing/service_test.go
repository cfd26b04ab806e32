package billing_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/billing"
	"github.com/trezcool/alama/core/user"
	appfs "github.com/trezcool/alama/fs"
	emailsvc "github.com/trezcool/alama/services/email"
	inmemdb "github.com/trezcool/alama/storage/database/inmem"
)

type noopLogger struct{}

func (noopLogger) Enable(bool)                  {}
func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) Fatal(string, ...interface{}) {}

type fakeGateway struct {
	customers int
	sessions  []billing.CheckoutParams
}

func (g *fakeGateway) CreateCustomer(_ context.Context, _, _ string) (string, error) {
	g.customers++
	return fmt.Sprintf("cus_%03d", g.customers), nil
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, p billing.CheckoutParams) (billing.CheckoutSession, error) {
	g.sessions = append(g.sessions, p)
	return billing.CheckoutSession{ID: "cs_test", URL: "https://checkout.stripe.test/cs_test"}, nil
}

func testConf() *core.Config {
	return &core.Config{
		AppName:              "Alama",
		TestMode:             true,
		FrontendBaseURL:      "https://alama.test",
		DefaultFromEmailAddr: "noreply@alama.test",
		Stripe: core.StripeConfig{
			SecretKey:          "sk_test",
			WebhookSecret:      "whsec_test",
			MonthlyPriceID:     "price_monthly",
			YearlyPriceID:      "price_yearly",
			CheckoutSuccessURL: "https://alama.test/billing/success",
			CheckoutCancelURL:  "https://alama.test/billing/cancel",
		},
	}
}

func setup(t *testing.T) (billing.Service, *fakeGateway, user.Service, core.EmailService) {
	t.Helper()
	conf := testConf()
	core.ParseEmailTemplates(appfs.FS, conf, noopLogger{})

	db := inmemdb.NewDB()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	userSvc := user.NewServiceMock(inmemdb.NewUserRepository(db), mailSvc)
	gateway := &fakeGateway{}
	svc := billing.NewService(gateway, inmemdb.NewStripeEventStore(db), userSvc, mailSvc, noopLogger{}, conf)
	return svc, gateway, userSvc, mailSvc
}

func createUser(t *testing.T, userSvc user.Service) user.User {
	t.Helper()
	usr, err := userSvc.Create(context.Background(), user.NewUser{
		Name:     "Awa Traore",
		Email:    "awa@test.alama",
		Password: "Str0ng.Pass!",
	})
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}
	return usr
}

func checkoutEvent(t *testing.T, usr user.User, plan string) billing.Event {
	t.Helper()
	object, err := json.Marshal(map[string]interface{}{
		"id":           "cs_test",
		"customer":     "cus_001",
		"subscription": "sub_001",
		"metadata":     map[string]string{"user_id": usr.ID, "plan": plan},
	})
	if err != nil {
		t.Fatalf("encoding event: %v", err)
	}
	evt := billing.Event{ID: "evt_001", Type: "checkout.session.completed"}
	evt.Data.Object = object
	return evt
}

func TestCreateCheckout(t *testing.T) {
	svc, gateway, userSvc, _ := setup(t)
	ctx := context.Background()
	usr := createUser(t, userSvc)

	sess, err := svc.CreateCheckout(ctx, usr, billing.NewCheckout{Plan: billing.PlanMonthly})
	if err != nil {
		t.Fatalf("expected no error; got %v", err)
	}
	if sess.URL == "" {
		t.Error("expected a checkout URL")
	}
	if len(gateway.sessions) != 1 {
		t.Fatalf("expected 1 session; got %d", len(gateway.sessions))
	}
	p := gateway.sessions[0]
	if p.PriceID != "price_monthly" || p.Plan != billing.PlanMonthly || p.UserID != usr.ID {
		t.Errorf("unexpected checkout params: %+v", p)
	}

	// the customer id is saved on first purchase and reused afterwards
	usr, err = userSvc.GetByID(ctx, usr.ID)
	if err != nil {
		t.Fatalf("expected no error; got %v", err)
	}
	if usr.StripeCustomerID == "" {
		t.Fatal("expected the billing customer id persisted")
	}
	if _, err = svc.CreateCheckout(ctx, usr, billing.NewCheckout{Plan: billing.PlanYearly}); err != nil {
		t.Fatalf("expected no error; got %v", err)
	}
	if gateway.customers != 1 {
		t.Errorf("expected 1 created customer; got %d", gateway.customers)
	}

	if _, err = svc.CreateCheckout(ctx, usr, billing.NewCheckout{Plan: "lifetime"}); err != billing.ErrUnknownPlan {
		t.Errorf("expected ErrUnknownPlan; got %v", err)
	}
}

func TestHandleCheckoutCompleted(t *testing.T) {
	svc, _, userSvc, _ := setup(t)
	ctx := context.Background()
	usr := createUser(t, userSvc)

	before := time.Now().UTC()
	if err := svc.HandleEvent(ctx, checkoutEvent(t, usr, billing.PlanMonthly)); err != nil {
		t.Fatalf("expected no error; got %v", err)
	}

	usr, err := userSvc.GetByID(ctx, usr.ID)
	if err != nil {
		t.Fatalf("expected no error; got %v", err)
	}
	if !usr.Pro() {
		t.Error("expected pro membership active")
	}
	if usr.SubscriptionID != "sub_001" || usr.SubscriptionStatus != "active" {
		t.Errorf("unexpected subscription state: %+v", usr)
	}
	wantExpiry := before.Add(30 * 24 * time.Hour)
	if usr.ProMembershipExpiry.Before(wantExpiry.Add(-time.Minute)) || usr.ProMembershipExpiry.After(wantExpiry.Add(time.Minute)) {
		t.Errorf("expected expiry near %v; got %v", wantExpiry, usr.ProMembershipExpiry)
	}

	// receipt mail was sent
	var found bool
	for _, msg := range emailsvc.SentMessages {
		if msg.TemplateName == "pro-membership" {
			found = true
		}
	}
	if !found {
		t.Error("expected a pro-membership receipt mail")
	}
}

func TestHandleEventIdempotency(t *testing.T) {
	svc, _, userSvc, _ := setup(t)
	ctx := context.Background()
	usr := createUser(t, userSvc)

	evt := checkoutEvent(t, usr, billing.PlanYearly)
	if err := svc.HandleEvent(ctx, evt); err != nil {
		t.Fatalf("expected no error; got %v", err)
	}
	usr, _ = userSvc.GetByID(ctx, usr.ID)
	firstExpiry := usr.ProMembershipExpiry

	// a redelivered event must not extend the membership again
	if err := svc.HandleEvent(ctx, evt); err != nil {
		t.Fatalf("expected duplicate event to be acknowledged; got %v", err)
	}
	usr, _ = userSvc.GetByID(ctx, usr.ID)
	if !usr.ProMembershipExpiry.Equal(firstExpiry) {
		t.Errorf("duplicate event changed expiry: %v -> %v", firstExpiry, usr.ProMembershipExpiry)
	}
}

func TestHandleEventRetryAfterFailure(t *testing.T) {
	svc, _, userSvc, _ := setup(t)
	ctx := context.Background()
	usr := createUser(t, userSvc)

	// no metadata user id and the customer not linked yet: delivery fails
	object, _ := json.Marshal(map[string]interface{}{
		"id":           "cs_test",
		"customer":     "cus_001",
		"subscription": "sub_001",
		"metadata":     map[string]string{"plan": billing.PlanMonthly},
	})
	evt := billing.Event{ID: "evt_010", Type: "checkout.session.completed"}
	evt.Data.Object = object
	if err := svc.HandleEvent(ctx, evt); err == nil {
		t.Fatal("expected the first delivery to fail")
	}

	// the failed delivery must not count as processed: once the customer is
	// linked, the gateway's redelivery of the same event id has to apply
	if _, err := userSvc.SetStripeCustomerID(ctx, usr, "cus_001"); err != nil {
		t.Fatalf("expected no error; got %v", err)
	}
	if err := svc.HandleEvent(ctx, evt); err != nil {
		t.Fatalf("expected redelivery to be applied; got %v", err)
	}
	usr, _ = userSvc.GetByID(ctx, usr.ID)
	if !usr.Pro() {
		t.Error("expected membership activated on redelivery")
	}
}

func TestHandleSubscriptionDeleted(t *testing.T) {
	svc, _, userSvc, _ := setup(t)
	ctx := context.Background()
	usr := createUser(t, userSvc)

	if err := svc.HandleEvent(ctx, checkoutEvent(t, usr, billing.PlanMonthly)); err != nil {
		t.Fatalf("expected no error; got %v", err)
	}

	object, _ := json.Marshal(map[string]interface{}{
		"id":       "sub_001",
		"customer": "cus_001",
		"status":   "canceled",
	})
	evt := billing.Event{ID: "evt_002", Type: "customer.subscription.deleted"}
	evt.Data.Object = object
	if err := svc.HandleEvent(ctx, evt); err != nil {
		t.Fatalf("expected no error; got %v", err)
	}

	usr, _ = userSvc.GetByID(ctx, usr.ID)
	if usr.IsProMember {
		t.Error("expected pro membership canceled")
	}
	if usr.SubscriptionStatus != "canceled" {
		t.Errorf("expected status canceled; got %q", usr.SubscriptionStatus)
	}
}

func TestHandleEventUnknownType(t *testing.T) {
	svc, _, _, _ := setup(t)
	evt := billing.Event{ID: "evt_003", Type: "invoice.finalized"}
	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Errorf("expected unknown types to be acknowledged; got %v", err)
	}
}
