package echoapi

import (
	"encoding/json"
	"io/ioutil"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/billing"
	"github.com/trezcool/alama/core/user"
	stripesvc "github.com/trezcool/alama/services/billing/stripe"
)

var errInvalidSignature = echo.NewHTTPError(http.StatusBadRequest, "invalid webhook signature")

type billingApi struct {
	svc      billing.Service
	userSvc  user.Service
	conf     core.StripeConfig
	logger   core.Logger
	validate *validator.Validate
}

func registerBillingAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc billing.Service,
	userSvc user.Service,
	conf *core.Config,
	logger core.Logger,
	validate *validator.Validate,
) {
	api := billingApi{
		svc:      svc,
		userSvc:  userSvc,
		conf:     conf.Stripe,
		logger:   logger,
		validate: validate,
	}

	g.POST("/me/billing/checkout", api.checkout, jwt)
	g.POST("/billing/webhook", api.webhook)
}

func (api *billingApi) checkout(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data billing.NewCheckout
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCheckout")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := api.svc.CreateCheckout(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sess)
}

// webhook receives gateway events. The raw body is needed for signature
// verification, so binding happens after the check.
func (api *billingApi) webhook(ctx echo.Context) error {
	payload, err := ioutil.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading webhook payload")
	}

	sig := ctx.Request().Header.Get("Stripe-Signature")
	if err := stripesvc.VerifyPayload(payload, sig, api.conf.WebhookSecret); err != nil {
		api.logger.Warn("webhook signature rejected", err)
		return errInvalidSignature
	}

	var evt billing.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return errors.Wrap(err, "decoding webhook event")
	}

	if err := api.svc.HandleEvent(ctx.Request().Context(), evt); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "received"})
}
