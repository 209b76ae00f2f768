package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/matjip-app/api/internal/helpers"
	"github.com/matjip-app/api/internal/models"
	"github.com/matjip-app/api/internal/services"
)

func CreateReview(rs *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := accountFrom(c)
		if !ok {
			return
		}

		var input services.ReviewInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
			return
		}

		review, err := rs.CreateReview(c.Request.Context(), account, &input)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, models.SuccessResponse(review, "review created successfully"))
	}
}

func GetReview(rs *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		foodname := helpers.StringTrim(c.Param("foodname"))
		if foodname == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("foodname is required"))
			return
		}

		review, err := rs.GetReviewByFoodname(c.Request.Context(), foodname)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(review, ""))
	}
}

func ListMyReviews(rs *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := accountFrom(c)
		if !ok {
			return
		}

		reviews, err := rs.ListReviewsByAccount(c.Request.Context(), account)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(reviews, ""))
	}
}

func UpdateReview(rs *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := accountFrom(c)
		if !ok {
			return
		}

		foodname := helpers.StringTrim(c.Param("foodname"))
		if foodname == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("foodname is required"))
			return
		}

		var input services.ReviewInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
			return
		}

		existing, err := rs.GetReviewByFoodname(c.Request.Context(), foodname)
		if err != nil {
			respondError(c, err)
			return
		}

		review, err := rs.UpdateReview(c.Request.Context(), existing.ID, account, &input)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(review, "review updated successfully"))
	}
}

func DeleteReview(rs *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := accountFrom(c)
		if !ok {
			return
		}

		foodname := helpers.StringTrim(c.Param("foodname"))
		if foodname == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("foodname is required"))
			return
		}

		existing, err := rs.GetReviewByFoodname(c.Request.Context(), foodname)
		if err != nil {
			respondError(c, err)
			return
		}

		if err := rs.DeleteReview(c.Request.Context(), existing.ID, account); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(nil, "review deleted successfully"))
	}
}
