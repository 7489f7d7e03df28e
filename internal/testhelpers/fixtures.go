package testhelpers

import (
	"testing"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/larder/backend/internal/models"
)

// TestPassword is the plain-text password of every user made by CreateUser.
const TestPassword = "correct-horse-battery"

func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	u := &models.User{
		Email:        username + "@example.com",
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return u
}

func CreateTag(t *testing.T, db *gorm.DB, name string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: name}
	if err := db.Create(tag).Error; err != nil {
		t.Fatalf("failed to create tag %s: %v", name, err)
	}
	return tag
}

func CreateIngredient(t *testing.T, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()
	ing := &models.Ingredient{Name: name, MeasurementUnit: unit}
	if err := db.Create(ing).Error; err != nil {
		t.Fatalf("failed to create ingredient %s: %v", name, err)
	}
	return ing
}

// Line is an ingredient and amount for CreateRecipe.
type Line struct {
	Ingredient *models.Ingredient
	Amount     int
}

// CreateRecipe inserts a recipe with its tag links and ingredient lines,
// bypassing validation and image storage.
func CreateRecipe(t *testing.T, db *gorm.DB, author *models.User, name string, tags []*models.Tag, lines ...Line) *models.Recipe {
	t.Helper()
	recipe := &models.Recipe{
		Name:        name,
		Text:        name + " instructions",
		Image:       "recipes/" + uuid.NewString() + ".png",
		CookingTime: 30,
		ShortCode:   gonanoid.Must(10),
	}
	if author != nil {
		recipe.AuthorID = &author.ID
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(recipe).Error; err != nil {
			return err
		}
		for _, tag := range tags {
			if err := tx.Create(&models.RecipeTag{RecipeID: recipe.ID, TagID: tag.ID}).Error; err != nil {
				return err
			}
		}
		for _, l := range lines {
			ri := &models.RecipeIngredient{RecipeID: recipe.ID, IngredientID: l.Ingredient.ID, Amount: l.Amount}
			if err := tx.Omit(clause.Associations).Create(ri).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to create recipe %s: %v", name, err)
	}
	return recipe
}
