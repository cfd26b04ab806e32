package billing

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
)

// pro membership plans
const (
	PlanMonthly = "monthly"
	PlanYearly  = "yearly"
)

var planDurations = map[string]time.Duration{
	PlanMonthly: 30 * 24 * time.Hour,
	PlanYearly:  365 * 24 * time.Hour,
}

// PlanDuration returns how long a paid period of plan lasts; ok is false for
// an unknown plan.
func PlanDuration(plan string) (d time.Duration, ok bool) {
	d, ok = planDurations[plan]
	return d, ok
}

// NewCheckout is a request to start a pro-membership purchase.
type NewCheckout struct {
	Plan string `json:"plan" validate:"required,plan"`
}

func (nc *NewCheckout) Validate(validate *validator.Validate) error {
	return validate.Struct(nc)
}

// CheckoutSession is the gateway-hosted payment page the user is sent to.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Event is a minimal billing-gateway webhook event. Data.Object carries the
// type-specific payload and is decoded per event type.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// checkoutSessionObject is the slice of checkout.session.completed we consume.
type checkoutSessionObject struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

// subscriptionObject is the slice of customer.subscription.* we consume.
type subscriptionObject struct {
	ID               string `json:"id"`
	Customer         string `json:"customer"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
}
