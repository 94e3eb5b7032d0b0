package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cblms/core/class"
	"github.com/trezcool/cblms/core/user"
)

type classApi struct {
	ServerDeps
}

func registerClassAPI(g *echo.Group, authn echo.MiddlewareFunc, deps ServerDeps) {
	api := classApi{deps}
	teacher := authorize(user.RoleTeacher)

	cg := g.Group("/classes", authn)
	cg.GET("", api.query)
	cg.POST("", api.create, teacher, validateBody[class.NewClass](deps.Validate))
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update, teacher, validateBody[class.UpdateClass](deps.Validate))
	cg.DELETE("/:id", api.destroy, teacher)

	// enrollment
	cg.POST("/:id/students", api.enroll, teacher, validateBody[class.Enrollment](deps.Validate))
	cg.DELETE("/:id/students/:studentId", api.unenroll, teacher)
}

func (api *classApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	classes, err := api.ClassSvc.List(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "listing classes")
	}
	return respond(ctx, http.StatusOK, classes)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id", class.ErrNotFound)
	if err != nil {
		return err
	}
	cls, err := api.ClassSvc.Get(ctx.Request().Context(), ctxUsr, id)
	if err != nil {
		return errors.Wrap(err, "getting class")
	}
	return respond(ctx, http.StatusOK, cls)
}

func (api *classApi) create(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	cls, err := api.ClassSvc.Create(ctx.Request().Context(), ctxUsr.ID, getBody[class.NewClass](ctx))
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return respond(ctx, http.StatusCreated, cls)
}

func (api *classApi) update(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id", class.ErrNotFound)
	if err != nil {
		return err
	}
	cls, err := api.ClassSvc.Update(ctx.Request().Context(), id, ctxUsr.ID, getBody[class.UpdateClass](ctx))
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return respond(ctx, http.StatusOK, cls)
}

func (api *classApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id", class.ErrNotFound)
	if err != nil {
		return err
	}
	if err = api.ClassSvc.SoftDelete(ctx.Request().Context(), id, ctxUsr.ID); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return respondMessage(ctx, http.StatusOK, "class moved to trash")
}

func (api *classApi) enroll(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id", class.ErrNotFound)
	if err != nil {
		return err
	}
	if err = api.ClassSvc.Enroll(ctx.Request().Context(), id, ctxUsr.ID, getBody[class.Enrollment](ctx)); err != nil {
		return errors.Wrap(err, "enrolling students")
	}
	return respondMessage(ctx, http.StatusOK, "students enrolled")
}

func (api *classApi) unenroll(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id", class.ErrNotFound)
	if err != nil {
		return err
	}
	studentID, err := pathID(ctx, "studentId", class.ErrNotEnrolled)
	if err != nil {
		return err
	}
	if err = api.ClassSvc.Unenroll(ctx.Request().Context(), id, ctxUsr.ID, studentID); err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	return respondMessage(ctx, http.StatusOK, "student unenrolled")
}
