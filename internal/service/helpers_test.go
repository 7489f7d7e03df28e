package service_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/larder/backend/internal/logger"
	"github.com/pageza/larder/backend/internal/models"
	"github.com/pageza/larder/backend/internal/service"
	"github.com/pageza/larder/backend/internal/storage"
	"github.com/pageza/larder/backend/internal/testhelpers"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

type env struct {
	db        *gorm.DB
	store     *storage.LocalStore
	images    *service.ImageService
	validator *service.RecipeValidator
	recipes   *service.RecipeService
	relations *service.RelationService
	shopping  *service.ShoppingService
	users     *service.UserService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvOn(t, testhelpers.SetupSQLite(t))
}

func newEnvOn(t *testing.T, db *gorm.DB) *env {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir(), "/media")
	require.NoError(t, err)

	log := logger.Nop()
	images := service.NewImageService(store, log)
	validator := service.NewRecipeValidator(db)
	return &env{
		db:        db,
		store:     store,
		images:    images,
		validator: validator,
		recipes:   service.NewRecipeService(db, validator, images, log),
		relations: service.NewRelationService(db, validator, log),
		shopping:  service.NewShoppingService(db, log),
		users:     service.NewUserService(db, images, log),
	}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func testImage(t *testing.T) *service.Image {
	t.Helper()
	img, err := service.NewImage(pngBytes)
	require.NoError(t, err)
	return img
}

func validInput(t *testing.T, tags []*models.Tag, lines ...service.IngredientLine) service.RecipeInput {
	t.Helper()
	ids := make([]uuid.UUID, 0, len(tags))
	for _, tag := range tags {
		ids = append(ids, tag.ID)
	}
	return service.RecipeInput{
		Name:        strPtr("Tomato soup"),
		Text:        strPtr("Simmer and blend."),
		CookingTime: intPtr(25),
		Tags:        ids,
		Ingredients: lines,
		Image:       testImage(t),
	}
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
