package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/modelaedu/modela/core"
	"github.com/modelaedu/modela/core/forum"
	"github.com/modelaedu/modela/core/learning"
	"github.com/modelaedu/modela/core/user"
	"github.com/modelaedu/modela/storage/database"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHTTPForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var body echo.Map

		cause := errors.Cause(err)
		switch cause {
		case user.ErrNotFound, learning.ErrStateNotFound, forum.ErrTopicNotFound:
			code = http.StatusNotFound
			body = echo.Map{"success": false, "message": cause.Error()}
		case user.ErrInvalidCredentials:
			code = http.StatusUnauthorized
			body = echo.Map{"success": false, "message": cause.Error()}
		}

		if body == nil {
			switch origErr := cause.(type) {
			case *echo.HTTPError:
				if origErr == middleware.ErrJWTMissing {
					code = http.StatusUnauthorized
					body = echo.Map{"success": false, "message": origErr.Message}
					break
				}
				if origErr.Internal != nil {
					if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
						origErr = herr
					}
				}
				code = origErr.Code
				body = echo.Map{"success": false, "message": origErr.Message}
			case validator.ValidationErrors:
				fldErrs := make(map[string]string, len(origErr))
				for _, vErr := range origErr {
					fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
				}
				code = http.StatusBadRequest
				body = echo.Map{"success": false, "message": "validation failed", "errors": fldErrs}
			case *core.ValidationError:
				code = http.StatusBadRequest
				if origErr.Fields != nil {
					fldErrs := make(map[string]string, len(origErr.Fields))
					for _, fErr := range origErr.Fields {
						fldErrs[fErr.Field] = fErr.Error
					}
					body = echo.Map{"success": false, "message": "validation failed", "errors": fldErrs}
				} else {
					body = echo.Map{"success": false, "message": origErr.Error()}
				}
			case *core.ConflictError:
				code = http.StatusConflict
				body = echo.Map{"success": false, "message": origErr.Error(), "field": origErr.Field}
			default:
				if database.IsBusy(err) {
					code = http.StatusServiceUnavailable
					body = echo.Map{
						"success":    false,
						"message":    "server busy, try again shortly",
						"retryAfter": 2,
					}
					break
				}

				// any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				body = echo.Map{"success": false, "message": msg}

				var usr user.User
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					usr.ID = claims.UserID
					usr.Username = claims.Username
					usr.Email = claims.Email
				}
				logger.Error(msg, errors.Wrap(err, msg), usr)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			body["message"] = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead {
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
