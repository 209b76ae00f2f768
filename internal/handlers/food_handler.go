package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/matjip-app/api/internal/helpers"
	"github.com/matjip-app/api/internal/models"
	"github.com/matjip-app/api/internal/services"
)

func GetFood(fs *services.FoodService) gin.HandlerFunc {
	return func(c *gin.Context) {
		foodname := helpers.StringTrim(c.Param("foodname"))
		if foodname == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("foodname is required"))
			return
		}

		food, err := fs.GetFoodByFoodname(c.Request.Context(), foodname)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(food, ""))
	}
}

func ListFood(fs *services.FoodService) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, err := foodFilterFromQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
			return
		}

		food, total, err := fs.ListFood(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}

		page := (filter.Offset / filter.Limit) + 1
		c.JSON(http.StatusOK, models.PaginatedResponse(food, page, filter.Limit, total))
	}
}

func SaveFood(fs *services.FoodService) gin.HandlerFunc {
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

		food, err := fs.SaveFood(c.Request.Context(), account, foodname)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(food, "food saved"))
	}
}

func UnsaveFood(fs *services.FoodService) gin.HandlerFunc {
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

		food, err := fs.UnsaveFood(c.Request.Context(), account, foodname)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(food, "food unsaved"))
	}
}

func GetFoodSavedStatus(fs *services.FoodService) gin.HandlerFunc {
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

		saved, err := fs.IsFoodSaved(c.Request.Context(), account, foodname)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"saved": saved}, ""))
	}
}

func GetSavedFood(fs *services.FoodService) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := accountFrom(c)
		if !ok {
			return
		}

		saved, err := fs.GetSavedFood(c.Request.Context(), account)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(saved, ""))
	}
}

func foodFilterFromQuery(c *gin.Context) (models.FoodFilter, error) {
	filter := models.FoodFilter{}

	limitInt, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limitInt <= 0 {
		return filter, fmt.Errorf("invalid limit parameter")
	}
	offsetInt, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offsetInt < 0 {
		return filter, fmt.Errorf("invalid offset parameter")
	}
	filter.Limit = limitInt
	filter.Offset = offsetInt

	for name, dst := range map[string]*float64{
		"minPts":   &filter.MinPts,
		"maxPts":   &filter.MaxPts,
		"minPrice": &filter.MinPrice,
		"maxPrice": &filter.MaxPrice,
	} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return filter, fmt.Errorf("invalid %s parameter", name)
		}
		*dst = v
	}

	return filter, nil
}
