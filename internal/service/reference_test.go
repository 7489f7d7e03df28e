package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/larder/backend/internal/apierr"
	"github.com/pageza/larder/backend/internal/cache"
	"github.com/pageza/larder/backend/internal/logger"
	"github.com/pageza/larder/backend/internal/models"
	"github.com/pageza/larder/backend/internal/service"
	"github.com/pageza/larder/backend/internal/testhelpers"
)

func TestSeedAndListReference(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	ref := service.NewReferenceService(db, cache.New(nil, 0, logger.Nop()), logger.Nop())
	ctx := context.Background()

	created, err := ref.SeedTags(ctx, []models.Tag{{Name: "Lunch"}, {Name: "Breakfast"}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, created)

	created, err = ref.SeedTags(ctx, []models.Tag{{Name: "Lunch"}})
	require.NoError(t, err)
	assert.Zero(t, created)

	tags, err := ref.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "breakfast", tags[0].Slug)

	_, err = ref.SeedIngredients(ctx, []models.Ingredient{
		{Name: "Salt", MeasurementUnit: "g"},
		{Name: "Sage", MeasurementUnit: "g"},
		{Name: "Butter", MeasurementUnit: "g"},
		{Name: "salt_free mix", MeasurementUnit: "g"},
	})
	require.NoError(t, err)

	ings, err := ref.ListIngredients(ctx, "SA")
	require.NoError(t, err)
	names := make([]string, 0, len(ings))
	for _, i := range ings {
		names = append(names, i.Name)
	}
	assert.Equal(t, []string{"Sage", "Salt", "salt_free mix"}, names)

	ings, err = ref.ListIngredients(ctx, "salt_")
	require.NoError(t, err)
	require.Len(t, ings, 1)
	assert.Equal(t, "salt_free mix", ings[0].Name)

	all, err := ref.ListIngredients(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	got, err := ref.GetIngredient(ctx, all[0].ID)
	require.NoError(t, err)
	assert.Equal(t, all[0].Name, got.Name)

	_, err = ref.GetTag(ctx, uuid.New())
	assert.True(t, apierr.HasCode(err, apierr.CodeNotFound))
}

func TestReferenceCacheInvalidatedBySeed(t *testing.T) {
	rdb := testhelpers.SetupRedis(t)
	db := testhelpers.SetupSQLite(t)
	ref := service.NewReferenceService(db, cache.New(rdb, time.Minute, logger.Nop()), logger.Nop())
	ctx := context.Background()

	testhelpers.CreateTag(t, db, "Cached")
	tags, err := ref.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)

	// written behind the service's back, so the cached list stays stale
	testhelpers.CreateTag(t, db, "Hidden")
	tags, err = ref.ListTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 1)

	_, err = ref.SeedTags(ctx, []models.Tag{{Name: "Seeded"}})
	require.NoError(t, err)
	tags, err = ref.ListTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 3)
}
