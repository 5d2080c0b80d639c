// README: Shared handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"metrosync/internal/modules/booking"
	"metrosync/internal/modules/route"
	"metrosync/internal/modules/user"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

// writeDomainError maps module sentinel errors onto HTTP statuses. Anything
// unrecognized is a 500 with a generic body.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking.ErrNotFound),
		errors.Is(err, route.ErrNotFound),
		errors.Is(err, user.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrBadRequest),
		errors.Is(err, booking.ErrOffRoute),
		errors.Is(err, route.ErrBadRequest),
		errors.Is(err, user.ErrBadRequest),
		errors.Is(err, user.ErrRatingOutOfRange):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrNotAllowed),
		errors.Is(err, route.ErrNotOwner):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, booking.ErrInvalidState),
		errors.Is(err, booking.ErrConflict),
		errors.Is(err, booking.ErrCapacity),
		errors.Is(err, booking.ErrAlreadyRated),
		errors.Is(err, route.ErrPublished),
		errors.Is(err, route.ErrNotPublished),
		errors.Is(err, user.ErrDuplicate):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
