package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/matjip-app/api/internal/models"
	"github.com/matjip-app/api/internal/services"
)

func ListTags(ts *services.TagService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tags, err := ts.ListTags(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(tags, ""))
	}
}
