package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/user"
)

var (
	errUnauthorized     = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden    = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errTooManyRequests  = echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
	errMissingImportRow = echo.NewHTTPError(http.StatusBadRequest, "the spreadsheet has no rows")
)

// ErrorResponse is the body of every failed request.
// Reason is set for domain errors, Fields for invalid input.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Reason string            `json:"reason,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// errorStatus maps the domain errors to their status code.
func errorStatus(err error) int {
	switch err.(type) {
	case validator.ValidationErrors, *core.ValidationError:
		return http.StatusBadRequest
	case *core.NotFoundError:
		return http.StatusNotFound
	case *core.ForbiddenError:
		return http.StatusForbidden
	case *core.ConflictError:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func newErrorResponse(err error, translator ut.Translator) ErrorResponse {
	resp := ErrorResponse{
		Error:  err.Error(),
		Reason: core.ErrorReason(err),
		Fields: core.ValidationMessages(err, translator),
	}
	if _, ok := err.(validator.ValidationErrors); ok {
		resp.Error = "invalid input"
		resp.Reason = "invalid"
	}
	return resp
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var (
			code int
			resp ErrorResponse
		)

		cause := errors.Cause(err)
		if herr, ok := cause.(*echo.HTTPError); ok {
			if inner, ok := herr.Internal.(*echo.HTTPError); ok {
				herr = inner
			}
			code = herr.Code
			if herr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
			}
			resp.Error = fmt.Sprint(herr.Message)
		} else if code = errorStatus(cause); code != http.StatusInternalServerError {
			resp = newErrorResponse(cause, translator)
		} else {
			resp.Error = http.StatusText(code)

			var usr *user.User
			if u, uErr := getContextUser(ctx); uErr == nil {
				usr = &u
			}
			logger.Error(resp.Error, errors.Wrap(err, ctx.Request().Method+" "+ctx.Path()), usr)

			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			resp.Error = err.Error()
		}

		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, resp)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
