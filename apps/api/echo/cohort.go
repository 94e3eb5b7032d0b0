package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cblms/core/cohort"
	"github.com/trezcool/cblms/core/user"
)

type cohortApi struct {
	ServerDeps
}

func registerCohortAPI(g *echo.Group, authn echo.MiddlewareFunc, deps ServerDeps) {
	api := cohortApi{deps}
	admin := authorize(user.RoleAdmin)

	cg := g.Group("/cohorts", authn)
	cg.GET("", api.query)
	cg.GET("/levels", api.queryLevels)
	cg.GET("/:id", api.retrieve)
	cg.POST("", api.create, admin, validateBody[cohort.NewCohort](deps.Validate))
	cg.PUT("/:id", api.update, admin, validateBody[cohort.NewCohort](deps.Validate))
	cg.DELETE("/:id", api.destroy, admin)
}

func (api *cohortApi) query(ctx echo.Context) error {
	cohorts, err := api.CohortSvc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying cohorts")
	}
	return respond(ctx, http.StatusOK, cohorts)
}

func (api *cohortApi) queryLevels(ctx echo.Context) error {
	return respond(ctx, http.StatusOK, cohort.Levels)
}

func (api *cohortApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "id", cohort.ErrNotFound)
	if err != nil {
		return err
	}
	coh, err := api.CohortSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding cohort by ID")
	}
	return respond(ctx, http.StatusOK, coh)
}

func (api *cohortApi) create(ctx echo.Context) error {
	coh, err := api.CohortSvc.Create(ctx.Request().Context(), getBody[cohort.NewCohort](ctx))
	if err != nil {
		return errors.Wrap(err, "creating cohort")
	}
	return respond(ctx, http.StatusCreated, coh)
}

func (api *cohortApi) update(ctx echo.Context) error {
	id, err := pathID(ctx, "id", cohort.ErrNotFound)
	if err != nil {
		return err
	}
	coh, err := api.CohortSvc.Update(ctx.Request().Context(), id, getBody[cohort.NewCohort](ctx))
	if err != nil {
		return errors.Wrap(err, "updating cohort")
	}
	return respond(ctx, http.StatusOK, coh)
}

func (api *cohortApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx, "id", cohort.ErrNotFound)
	if err != nil {
		return err
	}
	if err = api.CohortSvc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting cohort")
	}
	return respondMessage(ctx, http.StatusOK, "cohort deleted")
}
