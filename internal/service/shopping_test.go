package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/larder/backend/internal/service"
	"github.com/pageza/larder/backend/internal/testhelpers"
)

func TestShoppingListSumsSharedIngredients(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	cook := testhelpers.CreateUser(t, e.db, "cook")
	salt := testhelpers.CreateIngredient(t, e.db, "Salt", "g")
	flour := testhelpers.CreateIngredient(t, e.db, "Flour", "g")

	bread := testhelpers.CreateRecipe(t, e.db, cook, "Bread", nil,
		testhelpers.Line{Ingredient: salt, Amount: 5},
		testhelpers.Line{Ingredient: flour, Amount: 50})
	soup := testhelpers.CreateRecipe(t, e.db, cook, "Soup", nil,
		testhelpers.Line{Ingredient: salt, Amount: 3})
	testhelpers.CreateRecipe(t, e.db, cook, "Not in cart", nil,
		testhelpers.Line{Ingredient: salt, Amount: 99})

	require.NoError(t, e.relations.Add(ctx, service.RelationShoppingCart, cook.ID, bread.ID))
	require.NoError(t, e.relations.Add(ctx, service.RelationShoppingCart, cook.ID, soup.ID))

	text, err := e.shopping.Export(ctx, cook.ID)
	require.NoError(t, err)
	assert.Equal(t, "Flour - 50 (g)\nSalt - 8 (g)", text)
}

func TestShoppingListKeepsUnitsApart(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	cook := testhelpers.CreateUser(t, e.db, "cook")
	grams := testhelpers.CreateIngredient(t, e.db, "Sugar", "g")
	spoons := testhelpers.CreateIngredient(t, e.db, "Sugar", "tbsp")

	r := testhelpers.CreateRecipe(t, e.db, cook, "Cake", nil,
		testhelpers.Line{Ingredient: grams, Amount: 40},
		testhelpers.Line{Ingredient: spoons, Amount: 2})
	require.NoError(t, e.relations.Add(ctx, service.RelationShoppingCart, cook.ID, r.ID))

	items, err := e.shopping.Items(ctx, cook.ID)
	require.NoError(t, err)
	assert.Equal(t, []service.ShoppingItem{
		{Name: "Sugar", MeasurementUnit: "g", Total: 40},
		{Name: "Sugar", MeasurementUnit: "tbsp", Total: 2},
	}, items)
}

func TestShoppingListEmptyCart(t *testing.T) {
	e := newEnv(t)
	cook := testhelpers.CreateUser(t, e.db, "cook")

	text, err := e.shopping.Export(context.Background(), cook.ID)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestRenderShoppingList(t *testing.T) {
	assert.Equal(t, "Salt - 8 (g)", service.RenderShoppingList([]service.ShoppingItem{
		{Name: "Salt", MeasurementUnit: "g", Total: 8},
	}))
	assert.Equal(t, "", service.RenderShoppingList(nil))
}
