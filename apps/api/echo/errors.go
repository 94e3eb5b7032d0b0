package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/cblms/core"
)

// postgres error codes
const (
	pqForeignKeyViolation       = "23503"
	pqUniqueViolation           = "23505"
	pqInvalidTextRepresentation = "22P02"
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code := http.StatusInternalServerError
		body := envelope{Message: http.StatusText(http.StatusInternalServerError)}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			body.Message = fmt.Sprint(origErr.Message)
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			body.Message = "validation failed"
			body.Errors = core.TranslateValidationErrors(origErr, translator)
		case *core.ValidationError:
			code = http.StatusBadRequest
			body.Message = origErr.Error()
			if body.Message == "" {
				body.Message = "validation failed"
			}
			for _, fErr := range origErr.Fields {
				body.Errors = append(body.Errors, fErr.Error)
			}
		case *core.AuthError:
			code = http.StatusUnauthorized
			body.Message = origErr.Error()
		case *core.NotFoundError:
			code = http.StatusNotFound
			body.Message = origErr.Error()
		case *core.ConflictError:
			code = http.StatusConflict
			body.Message = origErr.Error()
		case *pq.Error:
			switch origErr.Code {
			case pqUniqueViolation:
				code = http.StatusConflict
				body.Message = "resource already exists"
			case pqForeignKeyViolation:
				code = http.StatusNotFound
				body.Message = "related resource not found"
			case pqInvalidTextRepresentation:
				code = http.StatusBadRequest
				body.Message = "malformed identifier"
			}
		}

		if code == http.StatusInternalServerError {
			args := []interface{}{err}
			if usr, uErr := getContextUser(ctx); uErr == nil {
				args = append(args, usr)
			}
			logger.Error(body.Message, args...)
			if ctx.Echo().Debug {
				body.Message = err.Error()
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, body)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
