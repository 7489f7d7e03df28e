package models

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(All()...))
	return db
}

func newUser(t *testing.T, db *gorm.DB, username string) *User {
	u := &User{Email: username + "@example.com", Username: username, FirstName: "F", LastName: "L", PasswordHash: "x"}
	require.NoError(t, db.Create(u).Error)
	return u
}

func TestTagSlugDerivedFromName(t *testing.T) {
	db := setupTestDB(t)
	tag := &Tag{Name: "Quick Dinner"}
	require.NoError(t, db.Create(tag).Error)
	assert.NotEqual(t, uuid.Nil, tag.ID)
	assert.Equal(t, "quick-dinner", tag.Slug)
}

func TestIngredientNameUnitUnique(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&Ingredient{Name: "salt", MeasurementUnit: "g"}).Error)
	require.NoError(t, db.Create(&Ingredient{Name: "salt", MeasurementUnit: "tsp"}).Error)

	err := db.Create(&Ingredient{Name: "salt", MeasurementUnit: "g"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestRelationPairsUnique(t *testing.T) {
	db := setupTestDB(t)
	author := newUser(t, db, "author")
	reader := newUser(t, db, "reader")
	recipe := &Recipe{AuthorID: &author.ID, Name: "Soup", Text: "Boil", Image: "recipes/a.png", CookingTime: 10, ShortCode: "abc"}
	require.NoError(t, db.Create(recipe).Error)

	require.NoError(t, db.Create(&Favorite{UserID: reader.ID, RecipeID: recipe.ID}).Error)
	assert.ErrorIs(t, db.Create(&Favorite{UserID: reader.ID, RecipeID: recipe.ID}).Error, gorm.ErrDuplicatedKey)

	require.NoError(t, db.Create(&ShoppingListEntry{UserID: reader.ID, RecipeID: recipe.ID}).Error)
	assert.ErrorIs(t, db.Create(&ShoppingListEntry{UserID: reader.ID, RecipeID: recipe.ID}).Error, gorm.ErrDuplicatedKey)

	require.NoError(t, db.Create(&Subscription{UserID: reader.ID, AuthorID: author.ID}).Error)
	assert.ErrorIs(t, db.Create(&Subscription{UserID: reader.ID, AuthorID: author.ID}).Error, gorm.ErrDuplicatedKey)
}

func TestSubscriptionRejectsSelf(t *testing.T) {
	db := setupTestDB(t)
	u := newUser(t, db, "narcissus")
	assert.Error(t, db.Create(&Subscription{UserID: u.ID, AuthorID: u.ID}).Error)
}

func TestRecipeChecks(t *testing.T) {
	db := setupTestDB(t)
	author := newUser(t, db, "chef")
	tooLong := &Recipe{AuthorID: &author.ID, Name: "Stew", Text: "Wait", Image: "x", CookingTime: 2000, ShortCode: "s1"}
	assert.Error(t, db.Create(tooLong).Error)

	ok := &Recipe{AuthorID: &author.ID, Name: "Stew", Text: "Wait", Image: "x", CookingTime: 90, ShortCode: "s2"}
	require.NoError(t, db.Create(ok).Error)
	salt := &Ingredient{Name: "salt", MeasurementUnit: "g"}
	require.NoError(t, db.Create(salt).Error)

	assert.Error(t, db.Create(&RecipeIngredient{RecipeID: ok.ID, IngredientID: salt.ID, Amount: 0}).Error)
	require.NoError(t, db.Create(&RecipeIngredient{RecipeID: ok.ID, IngredientID: salt.ID, Amount: 5}).Error)
	assert.ErrorIs(t, db.Create(&RecipeIngredient{RecipeID: ok.ID, IngredientID: salt.ID, Amount: 3}).Error, gorm.ErrDuplicatedKey)
}

func TestAuthorRemovalOrphansRecipe(t *testing.T) {
	db := setupTestDB(t)
	author := newUser(t, db, "leaving")
	recipe := &Recipe{AuthorID: &author.ID, Name: "Bread", Text: "Knead", Image: "x", CookingTime: 60, ShortCode: "b1"}
	require.NoError(t, db.Create(recipe).Error)

	require.NoError(t, db.Delete(&User{}, "id = ?", author.ID).Error)

	var reloaded Recipe
	require.NoError(t, db.First(&reloaded, "id = ?", recipe.ID).Error)
	assert.Nil(t, reloaded.AuthorID)
}
