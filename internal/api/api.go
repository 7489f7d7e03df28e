package api

import (
	"github.com/gin-gonic/gin"

	"github.com/pageza/larder/backend/config"
	"github.com/pageza/larder/backend/internal/middleware"
	"github.com/pageza/larder/backend/internal/service"
	"github.com/pageza/larder/backend/internal/validation"
)

// Settings are the response-shaping knobs handlers read per request.
type Settings struct {
	PageSize     int
	MaxPageSize  int
	RecipesLimit int
	// PublicURL prefixes pagination and short links; empty means the
	// request's own scheme and host.
	PublicURL string
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		PageSize:     cfg.PageSize,
		MaxPageSize:  cfg.MaxPageSize,
		RecipesLimit: cfg.RecipesLimit,
		PublicURL:    cfg.PublicURL,
	}
}

// Services bundles what the handlers call into.
type Services struct {
	Users     *service.UserService
	Recipes   *service.RecipeService
	Relations *service.RelationService
	Shopping  *service.ShoppingService
	Reference *service.ReferenceService
	Images    *service.ImageService
}

// Limiters are optional; nil limiters let every request through.
type Limiters struct {
	RecipeCreate *middleware.RateLimiter
	RecipeUpdate *middleware.RateLimiter
}

// RegisterRoutes mounts the REST API under /api and short links under /s.
func RegisterRoutes(router *gin.Engine, svc Services, auth *middleware.Authenticator, limiters Limiters, settings Settings) error {
	if err := validation.Register(); err != nil {
		return err
	}

	presenter := NewPresenter(svc.Images, svc.Relations, svc.Recipes)

	recipeHandler := NewRecipeHandler(svc.Recipes, svc.Relations, svc.Shopping, presenter, auth, limiters, settings)
	userHandler := NewUserHandler(svc.Users, svc.Relations, presenter, auth, settings)
	referenceHandler := NewReferenceHandler(svc.Reference, presenter)

	api := router.Group("/api")
	recipeHandler.RegisterRoutes(api)
	userHandler.RegisterRoutes(api)
	referenceHandler.RegisterRoutes(api)

	router.GET("/s/:code", recipeHandler.FollowShortLink)
	return nil
}
