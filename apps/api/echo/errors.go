package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/auth"
	"github.com/trezcool/presence/core/schedule"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	errHTTPForbidden = echo.NewHTTPError(http.StatusForbidden, "not authorized")
	errNoFile        = echo.NewHTTPError(http.StatusBadRequest, "a file is required")
	errNoSchedule    = echo.NewHTTPError(http.StatusNotFound, "no schedule file uploaded")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func (s *Server) newAppHTTPErrorHandler(signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		res := Response{Success: false}
		var code int

		cause := errors.Cause(err)
		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				res.Message = "missing or malformed jwt"
				break
			}
			if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
				origErr = herr
			}
			code = origErr.Code
			res.Message = http.StatusText(code)
			if m, ok := origErr.Message.(string); ok {
				res.Message = m
			}
		case validator.ValidationErrors:
			code = http.StatusUnprocessableEntity
			res.Message = "validation failed"
			res.Errors = core.TranslateErrors(origErr, s.deps.Translator)
		case *core.ValidationError:
			code = http.StatusUnprocessableEntity
			res.Message = origErr.Error()
			if len(origErr.Fields) > 0 {
				res.Errors = origErr.Fields
			}
		case *core.DuplicateError:
			code = http.StatusBadRequest
			res.Message = origErr.Error()
			res.Errors = []core.FieldError{{Field: origErr.Field, Error: origErr.Error()}}
		case *core.NotFoundError:
			code = http.StatusNotFound
			res.Message = origErr.Error()
		case *schedule.ConflictError:
			code = http.StatusConflict
			res.Message = origErr.Error()
			res.Data = origErr.Result
		default:
			switch cause {
			case auth.ErrInvalidCredentials, auth.ErrUnknownPrincipal:
				code = http.StatusUnauthorized
				res.Message = cause.Error()
			case auth.ErrInactive, auth.ErrForbidden:
				code = http.StatusForbidden
				res.Message = cause.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				res.Message = http.StatusText(code)

				args := []interface{}{errors.Wrap(err, res.Message), map[string]interface{}{
					"method": ctx.Request().Method,
					"path":   ctx.Request().URL.Path,
				}}
				if p, ok := ctx.Get(principalContextKey).(auth.Principal); ok {
					args = append(args, p.Person())
				}
				s.deps.Logger.Error(res.Message, args...)

				if ctx.Echo().Debug {
					res.Message = err.Error()
				}

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, res)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
