package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/larder/backend/internal/apierr"
	"github.com/pageza/larder/backend/internal/models"
)

// RecipeValidator runs the checks that need the database before a recipe or
// relation is written. Storage constraints stay the final arbiter; these
// checks exist to return field messages instead of constraint errors.
type RecipeValidator struct {
	db *gorm.DB
}

func NewRecipeValidator(db *gorm.DB) *RecipeValidator {
	return &RecipeValidator{db: db}
}

// ValidateRecipe checks a whole submission and reports every failing field
// at once. Scalar fields and the image are required when creating; tags
// and ingredients are required on every write.
func (v *RecipeValidator) ValidateRecipe(ctx context.Context, in RecipeInput, creating bool) error {
	fields := apierr.FieldErrors{}

	if in.Name == nil {
		if creating {
			fields.Add("name", "is required")
		}
	} else if name := strings.TrimSpace(*in.Name); name == "" {
		fields.Add("name", "must not be blank")
	} else if utf8.RuneCountInString(name) > models.MaxRecipeName {
		fields.Add("name", fmt.Sprintf("must not exceed %d characters", models.MaxRecipeName))
	}

	if in.Text == nil {
		if creating {
			fields.Add("text", "is required")
		}
	} else if strings.TrimSpace(*in.Text) == "" {
		fields.Add("text", "must not be blank")
	}

	if in.CookingTime == nil {
		if creating {
			fields.Add("cooking_time", "is required")
		}
	} else if *in.CookingTime < models.MinCookingTime || *in.CookingTime > models.MaxCookingTime {
		fields.Add("cooking_time", fmt.Sprintf("must be between %d and %d minutes", models.MinCookingTime, models.MaxCookingTime))
	}

	if creating {
		fields.Merge(ValidateImagePresent(in.Image))
	}

	if err := v.ValidateTags(ctx, in.Tags); err != nil && !fields.Merge(err) {
		return err
	}
	if err := v.ValidateIngredientLines(ctx, in.Ingredients); err != nil && !fields.Merge(err) {
		return err
	}
	return fields.Err()
}

// ValidateTags fails when tags is empty, repeats an id, or names a tag that
// does not exist. Existence is one COUNT over the id set.
func (v *RecipeValidator) ValidateTags(ctx context.Context, tags []uuid.UUID) error {
	if len(tags) == 0 {
		return apierr.FieldInvalid("tags", "must contain at least one tag")
	}
	seen := make(map[uuid.UUID]struct{}, len(tags))
	for _, id := range tags {
		if _, dup := seen[id]; dup {
			return apierr.FieldInvalid("tags", "must not contain duplicate tags")
		}
		seen[id] = struct{}{}
	}

	var count int64
	if err := v.db.WithContext(ctx).Model(&models.Tag{}).Where("id IN ?", tags).Count(&count).Error; err != nil {
		return err
	}
	if int(count) != len(tags) {
		return apierr.FieldInvalid("tags", "references tags that do not exist")
	}
	return nil
}

// ValidateIngredientLines fails when lines is empty, an amount is out of
// range, an ingredient repeats, or any referenced ingredient is missing.
func (v *RecipeValidator) ValidateIngredientLines(ctx context.Context, lines []IngredientLine) error {
	if len(lines) == 0 {
		return apierr.FieldInvalid("ingredients", "must contain at least one ingredient")
	}

	fields := apierr.FieldErrors{}
	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, l := range lines {
		if l.Amount < models.MinAmount || l.Amount > models.MaxAmount {
			fields.Add("ingredients", fmt.Sprintf("amount must be between %d and %d", models.MinAmount, models.MaxAmount))
			break
		}
	}
	for _, l := range lines {
		if _, dup := seen[l.ID]; dup {
			fields.Add("ingredients", "must not list an ingredient more than once")
			return fields.Err()
		}
		seen[l.ID] = struct{}{}
		ids = append(ids, l.ID)
	}

	var count int64
	if err := v.db.WithContext(ctx).Model(&models.Ingredient{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return err
	}
	if int(count) != len(ids) {
		fields.Add("ingredients", "references ingredients that do not exist")
	}
	return fields.Err()
}

func ValidateImagePresent(img *Image) error {
	if img == nil || len(img.Data) == 0 {
		return apierr.FieldInvalid("image", "is required")
	}
	return nil
}

func ValidateNoSelfSubscription(userID, authorID uuid.UUID) error {
	if userID == authorID {
		return apierr.FieldInvalid("author", "you cannot subscribe to yourself")
	}
	return nil
}

// ValidateUniqueRelation returns a Conflict when the (user, target) pair
// already exists for kind.
func (v *RecipeValidator) ValidateUniqueRelation(ctx context.Context, kind RelationKind, userID, targetID uuid.UUID) error {
	def, err := defFor(kind)
	if err != nil {
		return err
	}
	var count int64
	err = v.db.WithContext(ctx).Model(def.model()).
		Where("user_id = ? AND "+def.targetColumn+" = ?", userID, targetID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return apierr.Conflict(def.conflictMsg)
	}
	return nil
}
