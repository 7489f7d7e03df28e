package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/larder/backend/internal/apierr"
	"github.com/pageza/larder/backend/internal/service"
	"github.com/pageza/larder/backend/internal/testhelpers"
)

func fieldErrors(t *testing.T, err error) apierr.FieldErrors {
	t.Helper()
	var apiErr *apierr.Error
	require.True(t, errors.As(err, &apiErr), "expected *apierr.Error, got %v", err)
	require.Equal(t, "validation_error", apiErr.Code)
	return apiErr.Fields
}

func TestValidateRecipeCollectsEveryField(t *testing.T) {
	e := newEnv(t)
	err := e.validator.ValidateRecipe(context.Background(), service.RecipeInput{}, true)
	require.Error(t, err)

	fields := fieldErrors(t, err)
	assert.ElementsMatch(t,
		[]string{"name", "text", "cooking_time", "image", "tags", "ingredients"},
		fields.Keys())
}

func TestValidateRecipeOnUpdateOnlyNeedsComposition(t *testing.T) {
	e := newEnv(t)
	tag := testhelpers.CreateTag(t, e.db, "Soup")
	salt := testhelpers.CreateIngredient(t, e.db, "Salt", "g")

	in := service.RecipeInput{
		Tags:        []uuid.UUID{tag.ID},
		Ingredients: []service.IngredientLine{{ID: salt.ID, Amount: 3}},
	}
	assert.NoError(t, e.validator.ValidateRecipe(context.Background(), in, false))

	in.Tags = nil
	fields := fieldErrors(t, e.validator.ValidateRecipe(context.Background(), in, false))
	assert.Equal(t, []string{"tags"}, fields.Keys())
}

func TestValidateRecipeScalarBounds(t *testing.T) {
	e := newEnv(t)
	tag := testhelpers.CreateTag(t, e.db, "Soup")
	salt := testhelpers.CreateIngredient(t, e.db, "Salt", "g")

	in := validInput(t, nil, service.IngredientLine{ID: salt.ID, Amount: 3})
	in.Tags = []uuid.UUID{tag.ID}

	tests := []struct {
		name  string
		edit  func(*service.RecipeInput)
		field string
	}{
		{"blank name", func(in *service.RecipeInput) { in.Name = strPtr("   ") }, "name"},
		{"long name", func(in *service.RecipeInput) {
			long := make([]rune, 257)
			for i := range long {
				long[i] = 'a'
			}
			in.Name = strPtr(string(long))
		}, "name"},
		{"zero cooking time", func(in *service.RecipeInput) { in.CookingTime = intPtr(0) }, "cooking_time"},
		{"day long cooking time", func(in *service.RecipeInput) { in.CookingTime = intPtr(1441) }, "cooking_time"},
		{"blank text", func(in *service.RecipeInput) { in.Text = strPtr("") }, "text"},
		{"missing image", func(in *service.RecipeInput) { in.Image = nil }, "image"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			copyIn := in
			tt.edit(&copyIn)
			fields := fieldErrors(t, e.validator.ValidateRecipe(context.Background(), copyIn, true))
			assert.Equal(t, []string{tt.field}, fields.Keys())
		})
	}
}

func TestValidateTags(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tag := testhelpers.CreateTag(t, e.db, "Breakfast")

	assert.NoError(t, e.validator.ValidateTags(ctx, []uuid.UUID{tag.ID}))
	assert.True(t, apierr.HasCode(e.validator.ValidateTags(ctx, nil), "validation_error"))
	assert.True(t, apierr.HasCode(e.validator.ValidateTags(ctx, []uuid.UUID{tag.ID, tag.ID}), "validation_error"))
	assert.True(t, apierr.HasCode(e.validator.ValidateTags(ctx, []uuid.UUID{tag.ID, uuid.New()}), "validation_error"))
}

func TestValidateIngredientLines(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	salt := testhelpers.CreateIngredient(t, e.db, "Salt", "g")
	egg := testhelpers.CreateIngredient(t, e.db, "Egg", "pcs")

	tests := []struct {
		name  string
		lines []service.IngredientLine
		ok    bool
	}{
		{"valid", []service.IngredientLine{{ID: salt.ID, Amount: 1}, {ID: egg.ID, Amount: 100}}, true},
		{"empty", nil, false},
		{"amount below range", []service.IngredientLine{{ID: salt.ID, Amount: 0}}, false},
		{"amount above range", []service.IngredientLine{{ID: salt.ID, Amount: 101}}, false},
		{"duplicate ingredient", []service.IngredientLine{{ID: salt.ID, Amount: 1}, {ID: salt.ID, Amount: 2}}, false},
		{"unknown ingredient", []service.IngredientLine{{ID: uuid.New(), Amount: 1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.validator.ValidateIngredientLines(ctx, tt.lines)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apierr.HasCode(err, "validation_error"), "got %v", err)
		})
	}
}

func TestValidateUniqueRelation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	cook := testhelpers.CreateUser(t, e.db, "cook")
	recipe := testhelpers.CreateRecipe(t, e.db, cook, "Porridge", nil)

	require.NoError(t, e.validator.ValidateUniqueRelation(ctx, service.RelationFavorite, cook.ID, recipe.ID))
	require.NoError(t, e.relations.Add(ctx, service.RelationFavorite, cook.ID, recipe.ID))

	err := e.validator.ValidateUniqueRelation(ctx, service.RelationFavorite, cook.ID, recipe.ID)
	assert.True(t, apierr.HasCode(err, "conflict"))

	// the shopping cart is a separate set
	assert.NoError(t, e.validator.ValidateUniqueRelation(ctx, service.RelationShoppingCart, cook.ID, recipe.ID))
}

func TestValidateNoSelfSubscription(t *testing.T) {
	id := uuid.New()
	assert.Error(t, service.ValidateNoSelfSubscription(id, id))
	assert.NoError(t, service.ValidateNoSelfSubscription(id, uuid.New()))
}
