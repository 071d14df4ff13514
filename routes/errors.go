package routes

import (
	"errors"
	"net/http"

	"github.com/nutriscan/nutriscan-be/app"
	"github.com/nutriscan/nutriscan-be/services"
	"github.com/nutriscan/nutriscan-be/util"
)

// buildAppHTTPErr maps service errors to responses. Anything unrecognized is
// treated as a storage error.
func buildAppHTTPErr(err error) *util.HTTPError {
	status := 0
	switch {
	case errors.Is(err, app.ErrInvalidInput),
		errors.Is(err, app.ErrUnknownCursorType),
		errors.Is(err, services.ErrInvalidDataURL),
		errors.Is(err, services.ErrNotAnImage),
		errors.Is(err, services.ErrWeakPassword),
		errors.Is(err, services.ErrUnknownPlatform):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, app.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, app.ErrBarcodeTaken):
		status = http.StatusConflict
	case errors.Is(err, services.ErrUnsupported):
		status = http.StatusNotImplemented
	case errors.Is(err, services.ErrLookupUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, services.ErrBlobsDisabled):
		status = http.StatusServiceUnavailable
	default:
		return util.BuildDbHTTPErr(err)
	}
	message := err.Error()
	if status == http.StatusBadGateway {
		message = services.ErrLookupUnavailable.Error()
	}
	return &util.HTTPError{Status: status, Message: message, Err: err}
}
