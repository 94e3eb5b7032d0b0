package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cblms/core/assignment"
	"github.com/trezcool/cblms/core/submission"
	"github.com/trezcool/cblms/core/user"
)

type submissionApi struct {
	ServerDeps
}

func registerSubmissionAPI(g *echo.Group, authn echo.MiddlewareFunc, deps ServerDeps) {
	api := submissionApi{deps}
	student := authorize(user.RoleStudent)
	teacher := authorize(user.RoleTeacher)

	g.GET("/assignments/:id/submissions", api.queryForAssignment, authn, teacher)

	sg := g.Group("/submissions", authn)
	sg.POST("", api.submit, student, validateBody[submission.NewSubmission](deps.Validate))
	sg.GET("/mine", api.queryMine, student)
	sg.PUT("/:id/review", api.review, teacher, validateBody[submission.Review](deps.Validate))
}

// submit answers 201 for a first submission and 200 for a resubmission.
func (api *submissionApi) submit(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	sub, created, err := api.SubmissionSvc.Submit(ctx.Request().Context(), ctxUsr, getBody[submission.NewSubmission](ctx))
	if err != nil {
		return errors.Wrap(err, "submitting")
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	return respond(ctx, code, sub)
}

func (api *submissionApi) queryMine(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	subs, err := api.SubmissionSvc.ListMine(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "listing own submissions")
	}
	return respond(ctx, http.StatusOK, subs)
}

func (api *submissionApi) queryForAssignment(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	asgID, err := pathID(ctx, "id", assignment.ErrNotFound)
	if err != nil {
		return err
	}
	subs, err := api.SubmissionSvc.ListForAssignment(ctx.Request().Context(), asgID, ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "listing assignment submissions")
	}
	return respond(ctx, http.StatusOK, subs)
}

func (api *submissionApi) review(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id", submission.ErrNotFound)
	if err != nil {
		return err
	}
	sub, err := api.SubmissionSvc.Review(ctx.Request().Context(), id, ctxUsr.ID, getBody[submission.Review](ctx))
	if err != nil {
		return errors.Wrap(err, "reviewing submission")
	}
	return respond(ctx, http.StatusOK, sub)
}
