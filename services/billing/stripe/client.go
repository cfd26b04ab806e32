package stripesvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/billing"
)

var apiHost = "https://api.stripe.com"

type gateway struct {
	key    string
	logger core.Logger
}

var _ billing.Gateway = (*gateway)(nil)

func NewGateway(conf *core.Config, logger core.Logger) billing.Gateway {
	return &gateway{
		key:    conf.Stripe.SecretKey,
		logger: logger,
	}
}

func (g *gateway) CreateCustomer(ctx context.Context, name, email string) (string, error) {
	form := url.Values{}
	form.Set("name", name)
	form.Set("email", email)

	var cust struct {
		ID string `json:"id"`
	}
	if err := g.post(ctx, "/v1/customers", form, &cust); err != nil {
		return "", err
	}
	return cust.ID, nil
}

func (g *gateway) CreateCheckoutSession(ctx context.Context, p billing.CheckoutParams) (billing.CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("customer", p.CustomerID)
	form.Set("line_items[0][price]", p.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	// carried back to us on checkout.session.completed
	form.Set("metadata[user_id]", p.UserID)
	form.Set("metadata[plan]", p.Plan)

	var sess billing.CheckoutSession
	if err := g.post(ctx, "/v1/checkout/sessions", form, &sess); err != nil {
		return billing.CheckoutSession{}, err
	}
	return sess, nil
}

func (g *gateway) post(ctx context.Context, endpoint string, form url.Values, out interface{}) error {
	req := rest.Request{
		Method:  rest.Post,
		BaseURL: apiHost + endpoint,
		Headers: map[string]string{
			"Authorization": "Bearer " + g.key,
			"Content-Type":  "application/x-www-form-urlencoded",
		},
		Body: []byte(form.Encode()),
	}

	httpReq, err := rest.BuildRequestObject(req)
	if err != nil {
		return errors.Wrapf(err, "building %s request", endpoint)
	}
	httpRes, err := rest.MakeRequest(httpReq.WithContext(ctx))
	if err != nil {
		return errors.Wrapf(err, "calling %s", endpoint)
	}
	res, err := rest.BuildResponse(httpRes)
	if err != nil {
		return errors.Wrapf(err, "reading %s response", endpoint)
	}
	if res.StatusCode >= http.StatusBadRequest {
		g.logger.Error("stripe API error", map[string]interface{}{
			"endpoint": endpoint,
			"status":   res.StatusCode,
			"body":     res.Body,
		})
		return errors.Errorf("stripe API %s returned status %d", endpoint, res.StatusCode)
	}
	if err = json.Unmarshal([]byte(res.Body), out); err != nil {
		return errors.Wrapf(err, "decoding %s response", endpoint)
	}
	return nil
}
