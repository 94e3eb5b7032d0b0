package echoapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cblms/core/class"
	"github.com/trezcool/cblms/core/report"
	"github.com/trezcool/cblms/core/user"
)

const (
	formatParam = "format"
	formatXLSX  = "xlsx"
)

type reportApi struct {
	ServerDeps
}

func registerReportAPI(g *echo.Group, authn echo.MiddlewareFunc, deps ServerDeps) {
	api := reportApi{deps}
	student := authorize(user.RoleStudent)

	rg := g.Group("/reports", authn)
	rg.GET("/me", api.studentReport, student)
	rg.GET("/me/transcript", api.myTranscript, student)
	rg.GET("/classes/:id", api.classReport, authorize(user.RoleTeacher))
	rg.GET("/students/:id/transcript", api.studentTranscript, authorize(user.RoleAdmin))
	rg.POST("/me/transcript/email", api.emailMyTranscript, student)
	rg.POST("/students/:id/transcript/email", api.emailStudentTranscript, authorize(user.RoleAdmin))
}

func (api *reportApi) studentReport(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	rep, err := api.ReportSvc.StudentReport(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "building student report")
	}
	return respond(ctx, http.StatusOK, rep)
}

func (api *reportApi) classReport(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := pathID(ctx, "id", class.ErrNotFound)
	if err != nil {
		return err
	}
	rep, err := api.ReportSvc.ClassReport(ctx.Request().Context(), ctxUsr, id)
	if err != nil {
		return errors.Wrap(err, "building class report")
	}
	return respond(ctx, http.StatusOK, rep)
}

func (api *reportApi) myTranscript(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	tr, err := api.ReportSvc.Transcript(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "building transcript")
	}
	return renderTranscript(ctx, tr)
}

func (api *reportApi) studentTranscript(ctx echo.Context) error {
	id, err := pathID(ctx, "id", report.ErrStudentNotFound)
	if err != nil {
		return err
	}
	tr, err := api.ReportSvc.TranscriptFor(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "building transcript")
	}
	return renderTranscript(ctx, tr)
}

func (api *reportApi) emailMyTranscript(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	tr, err := api.ReportSvc.EmailTranscript(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "emailing transcript")
	}
	return respondMessage(ctx, http.StatusOK, "transcript sent to "+tr.Student.Email)
}

func (api *reportApi) emailStudentTranscript(ctx echo.Context) error {
	id, err := pathID(ctx, "id", report.ErrStudentNotFound)
	if err != nil {
		return err
	}
	tr, err := api.ReportSvc.EmailTranscriptFor(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "emailing transcript")
	}
	return respondMessage(ctx, http.StatusOK, "transcript sent to "+tr.Student.Email)
}

// renderTranscript answers JSON, or an Excel workbook with `?format=xlsx`.
func renderTranscript(ctx echo.Context, tr report.Transcript) error {
	if !strings.EqualFold(ctx.QueryParam(formatParam), formatXLSX) {
		return respond(ctx, http.StatusOK, tr)
	}

	var buf bytes.Buffer
	if err := report.WriteTranscriptXLSX(&buf, tr); err != nil {
		return errors.Wrap(err, "writing transcript workbook")
	}
	disposition := fmt.Sprintf("attachment; filename=%q", report.TranscriptFilename(tr))
	ctx.Response().Header().Set(echo.HeaderContentDisposition, disposition)
	return ctx.Blob(http.StatusOK, report.XLSXContentType, buf.Bytes())
}
