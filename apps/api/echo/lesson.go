package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/lesson"
	"github.com/trezcool/alama/core/user"
)

type lessonApi struct {
	svc      lesson.Service
	userSvc  user.Service
	validate *validator.Validate
}

func registerLessonAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc lesson.Service,
	userSvc user.Service,
	validate *validator.Validate,
) {
	api := lessonApi{
		svc:      svc,
		userSvc:  userSvc,
		validate: validate,
	}

	lg := g.Group("/lessons", jwt)

	// learner endpoints: active lessons only
	lg.GET("", api.query)
	lg.GET("/:id", api.retrieve)

	// admin endpoints
	lg.POST("", api.create, adminMiddleware())
	lg.GET("/all", api.queryAll, adminMiddleware())
	lg.PUT("/:id", api.update, adminMiddleware())
	lg.DELETE("/:id", api.destroy, adminMiddleware())
}

func (api *lessonApi) query(ctx echo.Context) error {
	filter := new(lesson.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []lesson.Lesson{})
	}

	lessons, err := api.svc.QueryActive(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying active lessons")
	}
	if lessons == nil {
		lessons = []lesson.Lesson{}
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *lessonApi) queryAll(ctx echo.Context) error {
	filter := new(lesson.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []lesson.Lesson{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	lessons, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	if lessons == nil {
		lessons = []lesson.Lesson{}
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *lessonApi) retrieve(ctx echo.Context) error {
	les, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	// inactive lessons are only visible to admins
	if !les.Active() {
		if claims, cErr := getContextClaims(ctx); cErr != nil || !claims.IsAdmin {
			return errHttpNotFound
		}
	}
	return ctx.JSON(http.StatusOK, les)
}

func (api *lessonApi) create(ctx echo.Context) error {
	var data lesson.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	les, err := api.svc.Create(ctx.Request().Context(), data, ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, les)
}

func (api *lessonApi) update(ctx echo.Context) error {
	var data lesson.UpdateLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	les, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, les)
}

func (api *lessonApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
