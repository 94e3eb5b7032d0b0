package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cblms/core/assignment"
	"github.com/trezcool/cblms/core/class"
	"github.com/trezcool/cblms/core/user"
)

type assignmentApi struct {
	ServerDeps
}

func registerAssignmentAPI(g *echo.Group, authn echo.MiddlewareFunc, deps ServerDeps) {
	api := assignmentApi{deps}
	teacher := authorize(user.RoleTeacher)

	g.GET("/classes/:id/assignments", api.queryForClass, authn)

	ag := g.Group("/assignments", authn)
	ag.POST("", api.create, teacher, validateBody[assignment.NewAssignment](deps.Validate))
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update, teacher, validateBody[assignment.UpdateAssignment](deps.Validate))
	ag.DELETE("/:id", api.destroy, teacher)
}

func (api *assignmentApi) queryForClass(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	classID, err := pathID(ctx, "id", class.ErrNotFound)
	if err != nil {
		return err
	}
	asgs, err := api.AssignmentSvc.ListForClass(ctx.Request().Context(), ctxUsr, classID)
	if err != nil {
		return errors.Wrap(err, "listing class assignments")
	}
	return respond(ctx, http.StatusOK, asgs)
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id", assignment.ErrNotFound)
	if err != nil {
		return err
	}
	asg, err := api.AssignmentSvc.Get(ctx.Request().Context(), ctxUsr, id)
	if err != nil {
		return errors.Wrap(err, "getting assignment")
	}
	return respond(ctx, http.StatusOK, asg)
}

func (api *assignmentApi) create(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	asg, err := api.AssignmentSvc.Create(ctx.Request().Context(), ctxUsr.ID, getBody[assignment.NewAssignment](ctx))
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return respond(ctx, http.StatusCreated, asg)
}

func (api *assignmentApi) update(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id", assignment.ErrNotFound)
	if err != nil {
		return err
	}
	asg, err := api.AssignmentSvc.Update(ctx.Request().Context(), id, ctxUsr.ID, getBody[assignment.UpdateAssignment](ctx))
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return respond(ctx, http.StatusOK, asg)
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id", assignment.ErrNotFound)
	if err != nil {
		return err
	}
	if err = api.AssignmentSvc.SoftDelete(ctx.Request().Context(), id, ctxUsr.ID); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return respondMessage(ctx, http.StatusOK, "assignment moved to trash")
}
