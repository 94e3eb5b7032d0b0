package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/trash"
	"github.com/trezcool/cblms/core/user"
)

var errTrashItemNotFound = core.NewNotFoundError("item not found in trash")

type trashApi struct {
	ServerDeps
}

func registerTrashAPI(g *echo.Group, authn echo.MiddlewareFunc, deps ServerDeps) {
	api := trashApi{deps}

	tg := g.Group("/trash", authn, authorize(user.RoleTeacher))
	tg.GET("", api.query)
	tg.POST("/restore/:kind/:id", api.restore)
	tg.DELETE("/permanent/:kind/:id", api.purge)
}

func (api *trashApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	items, err := api.TrashSvc.List(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "listing trash")
	}
	return respond(ctx, http.StatusOK, items)
}

func (api *trashApi) restore(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id", errTrashItemNotFound)
	if err != nil {
		return err
	}
	kind := trash.Kind(ctx.Param("kind"))
	if err = api.TrashSvc.Restore(ctx.Request().Context(), kind, id, ctxUsr.ID); err != nil {
		return errors.Wrap(err, "restoring item")
	}
	return respondMessage(ctx, http.StatusOK, string(kind)+" restored")
}

func (api *trashApi) purge(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id", errTrashItemNotFound)
	if err != nil {
		return err
	}
	kind := trash.Kind(ctx.Param("kind"))
	if err = api.TrashSvc.Purge(ctx.Request().Context(), kind, id, ctxUsr.ID); err != nil {
		return errors.Wrap(err, "deleting item permanently")
	}
	return respondMessage(ctx, http.StatusOK, string(kind)+" permanently deleted")
}
