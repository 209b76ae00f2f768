package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/matjip-app/api/internal/models"
)

// accountFrom pulls the authenticated account id placed in the context by the
// auth middleware.
func accountFrom(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get("account")
	if !exists {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse("unauthorized"))
		return uuid.Nil, false
	}
	account, ok := raw.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse("invalid account in context"))
		return uuid.Nil, false
	}
	return account, true
}

// respondError maps service errors onto the response envelope. Validation
// failures carry their field map; everything else collapses to a message.
func respondError(c *gin.Context, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, models.FieldErrorResponse(verr.Fields))
	case models.IsConflict(err):
		c.JSON(http.StatusConflict, models.ErrorResponse(err.Error()))
	case models.IsConcurrency(err):
		c.JSON(http.StatusConflict, models.ErrorResponse("document contention, please retry"))
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse("not found"))
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, models.ErrorResponse("forbidden"))
	default:
		_ = c.Error(err)
	}
}
