package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cblms/core/user"
)

type userApi struct {
	ServerDeps
}

func registerUserAPI(g *echo.Group, authn echo.MiddlewareFunc, deps ServerDeps) {
	api := userApi{deps}

	ug := g.Group("/users", authn, authorize(user.RoleAdmin))
	ug.GET("", api.query)
	ug.POST("", api.create, validateBody[user.NewUser](deps.Validate))
	ug.GET("/roles", api.queryRoles)
	ug.GET("/:id", api.retrieve)
	ug.PUT("/:id", api.update, validateBody[user.UpdateUser](deps.Validate))
	ug.DELETE("/:id", api.destroy)
}

// Handlers

func (api *userApi) create(ctx echo.Context) error {
	usr, err := api.UserSvc.Create(ctx.Request().Context(), getBody[user.NewUser](ctx))
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return respond(ctx, http.StatusCreated, usr)
}

func (api *userApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := (&echo.DefaultBinder{}).BindQueryParams(ctx, filter); err != nil {
		return respond(ctx, http.StatusOK, []user.User{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.UserSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return respond(ctx, http.StatusOK, users)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "id", user.ErrNotFound)
	if err != nil {
		return err
	}
	usr, err := api.UserSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	return respond(ctx, http.StatusOK, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	id, err := pathID(ctx, "id", user.ErrNotFound)
	if err != nil {
		return err
	}
	usr, err := api.UserSvc.Update(ctx.Request().Context(), id, getBody[user.UpdateUser](ctx))
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return respond(ctx, http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx, "id", user.ErrNotFound)
	if err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err = api.UserSvc.Delete(ctx.Request().Context(), id, ctxUsr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return respondMessage(ctx, http.StatusOK, "user deleted")
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return respond(ctx, http.StatusOK, user.Roles)
}
