package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/matjip-app/api/internal/container"
	"github.com/matjip-app/api/internal/handlers"
	"github.com/matjip-app/api/internal/middleware"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	if container.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "OK",
				"service": "matjip-api",
			})
		})

		// public reads
		v1.GET("/food", handlers.ListFood(container.FoodService))
		v1.GET("/food/:foodname", handlers.GetFood(container.FoodService))
		v1.GET("/review/:foodname", handlers.GetReview(container.ReviewService))
		v1.GET("/tags", handlers.ListTags(container.TagService))
	}

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(container.Config.JwksURL, container.Logger))
	{
		protected.POST("/review", handlers.CreateReview(container.ReviewService))
		protected.GET("/reviews", handlers.ListMyReviews(container.ReviewService))
		protected.POST("/review/:foodname", handlers.UpdateReview(container.ReviewService))
		protected.DELETE("/review/:foodname", handlers.DeleteReview(container.ReviewService))

		protected.GET("/saved", handlers.GetSavedFood(container.FoodService))
		protected.GET("/food/:foodname/saved", handlers.GetFoodSavedStatus(container.FoodService))
		protected.PUT("/food/:foodname/save", handlers.SaveFood(container.FoodService))
		protected.PUT("/food/:foodname/unsave", handlers.UnsaveFood(container.FoodService))
	}

	return r
}
