package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cblms/core/user"
)

type competencyApi struct {
	ServerDeps
}

func registerCompetencyAPI(g *echo.Group, authn echo.MiddlewareFunc, deps ServerDeps) {
	api := competencyApi{deps}

	cg := g.Group("/competencies", authn, authorize(user.RoleStudent))
	cg.GET("/status", api.status)
	cg.GET("/progress", api.progress)
}

func (api *competencyApi) status(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	counts, err := api.CompetencySvc.Status(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "computing competency status")
	}
	return respond(ctx, http.StatusOK, counts)
}

func (api *competencyApi) progress(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	progs, err := api.CompetencySvc.Progress(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying competency progress")
	}
	return respond(ctx, http.StatusOK, progs)
}
