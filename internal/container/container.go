package container

import (
	"log/slog"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/matjip-app/api/internal/aggregate"
	"github.com/matjip-app/api/internal/config"
	"github.com/matjip-app/api/internal/models"
	"github.com/matjip-app/api/internal/services"
	"go.mongodb.org/mongo-driver/mongo"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *slog.Logger
	Cloudinary *cloudinary.Cloudinary

	MongoDBClient *mongo.Client
	Store         models.Store

	TagService    *services.TagService
	ReviewService *services.ReviewService
	FoodService   *services.FoodService
}

// NewContainer creates a new dependency injection container. TagService and
// ReviewService share one lock manager so tag and bucket mutations serialize
// across both.
func NewContainer(
	cfg *config.Config,
	logger *slog.Logger,
	cld *cloudinary.Cloudinary,
	mongoDBClient *mongo.Client,
) *Container {
	store := models.MongodbNewRepo(mongoDBClient)
	locks := aggregate.NewKeyLock()

	tagService := services.NewTagService(store, locks, logger)
	reviewService := services.NewReviewService(store, tagService, locks, logger, cld)
	foodService := services.NewFoodService(store, logger)

	return &Container{
		Config:        cfg,
		Logger:        logger,
		Cloudinary:    cld,
		MongoDBClient: mongoDBClient,
		Store:         store,
		TagService:    tagService,
		ReviewService: reviewService,
		FoodService:   foodService,
	}
}
