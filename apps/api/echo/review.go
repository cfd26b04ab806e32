package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/review"
	"github.com/trezcool/alama/core/user"
)

type reviewApi struct {
	svc      review.Service
	userSvc  user.Service
	validate *validator.Validate
}

func registerReviewAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc review.Service,
	userSvc user.Service,
	validate *validator.Validate,
) {
	api := reviewApi{
		svc:      svc,
		userSvc:  userSvc,
		validate: validate,
	}

	// public: approved reviews for the landing page
	g.GET("/reviews", api.public)

	// current user's review
	mg := g.Group("/me/review", jwt)
	mg.POST("", api.create)
	mg.GET("", api.retrieveMine)
	mg.PUT("", api.update)
	mg.DELETE("", api.destroyMine)

	// admin moderation; per-route middleware so the group does not register a
	// catch-all at /reviews over the public listing
	rg := g.Group("/reviews")
	rg.GET("/all", api.query, jwt, adminMiddleware())
	rg.PUT("/:id/moderate", api.moderate, jwt, adminMiddleware())
	rg.DELETE("/:id", api.destroy, jwt, adminMiddleware())
}

func (api *reviewApi) public(ctx echo.Context) error {
	reviews, err := api.svc.Public(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying public reviews")
	}
	if reviews == nil {
		reviews = []review.Review{}
	}
	return ctx.JSON(http.StatusOK, reviews)
}

func (api *reviewApi) create(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data review.NewReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReview")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rev, err := api.svc.Create(ctx.Request().Context(), ctxUsr.ID, ctxUsr.Name, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rev)
}

func (api *reviewApi) retrieveMine(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	rev, err := api.svc.GetByUserID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rev)
}

func (api *reviewApi) update(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data review.UpdateReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateReview")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rev, err := api.svc.Update(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rev)
}

func (api *reviewApi) destroyMine(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	rev, err := api.svc.GetByUserID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), rev.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *reviewApi) query(ctx echo.Context) error {
	filter := new(review.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []review.Review{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	reviews, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying reviews")
	}
	if reviews == nil {
		reviews = []review.Review{}
	}
	return ctx.JSON(http.StatusOK, reviews)
}

func (api *reviewApi) moderate(ctx echo.Context) error {
	var data ModerateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ModerateRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	rev, err := api.svc.Moderate(ctx.Request().Context(), ctx.Param("id"), data.Status)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rev)
}

func (api *reviewApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

type ModerateRequest struct {
	Status string `json:"status" validate:"required"`
}
