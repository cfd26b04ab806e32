package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/progress"
)

type progressApi struct {
	svc      progress.Service
	validate *validator.Validate
}

func registerProgressAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc progress.Service,
	validate *validator.Validate,
) {
	api := progressApi{
		svc:      svc,
		validate: validate,
	}

	// no param-prefix group here: a middleware group at /lessons/:id would
	// shadow the lesson detail route with echo's group-level catch-all
	g.POST("/lessons/:id/attempts", api.submitAttempt, jwt)
	g.GET("/lessons/:id/progress", api.retrieve, jwt)

	g.GET("/me/progress", api.summary, jwt)
}

// submitAttempt records one practice attempt at a sign and returns the
// updated progress snapshot.
func (api *progressApi) submitAttempt(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data progress.Attempt
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Attempt")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	snap, err := api.svc.SubmitAttempt(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, snap)
}

func (api *progressApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	snap, err := api.svc.Progress(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, snap)
}

func (api *progressApi) summary(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	summaries, err := api.svc.UserSummary(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "building progress summary")
	}
	if summaries == nil {
		summaries = []progress.LessonSummary{}
	}
	return ctx.JSON(http.StatusOK, summaries)
}
