package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/admin"
)

type adminApi struct {
	svc admin.Service
}

func registerAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc admin.Service) {
	api := adminApi{svc: svc}

	ag := g.Group("/admin", jwt, adminMiddleware())
	ag.GET("/stats", api.stats)
}

func (api *adminApi) stats(ctx echo.Context) error {
	stats, err := api.svc.DashboardStats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing dashboard stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}
