package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/larder/backend/internal/apierr"
	"github.com/pageza/larder/backend/internal/models"
	"github.com/pageza/larder/backend/internal/service"
	"github.com/pageza/larder/backend/internal/testhelpers"
)

func TestRegister(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	user, err := e.users.Register(ctx, service.RegisterInput{
		Email:     " ada@example.com ",
		Username:  "ada",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Password:  "analytical-engine",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("analytical-engine")))

	_, err = e.users.Register(ctx, service.RegisterInput{
		Email:    "ADA@example.com",
		Username: "ada",
		Password: "whatever-else",
	})
	fields := fieldErrors(t, err)
	assert.Equal(t, []string{"email", "username"}, fields.Keys())
}

func TestRegisterStoresEmailLowerCased(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	user, err := e.users.Register(ctx, service.RegisterInput{
		Email:    "Grace.Hopper@Example.COM",
		Username: "grace",
		Password: "compiler-first",
	})
	require.NoError(t, err)
	assert.Equal(t, "grace.hopper@example.com", user.Email)

	var stored models.User
	require.NoError(t, e.db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, "grace.hopper@example.com", stored.Email)

	_, err = e.users.Register(ctx, service.RegisterInput{
		Email:    "grace.hopper@example.com",
		Username: "grace2",
		Password: "compiler-first",
	})
	assert.Equal(t, []string{"email"}, fieldErrors(t, err).Keys())
}

func TestRegisterRacingEmailReportsEmail(t *testing.T) {
	e := newEnv(t)

	// Another registration with the same email lands between the pre-check
	// and the insert.
	raced := false
	require.NoError(t, e.db.Callback().Create().Before("gorm:create").Register("test:race_email", func(tx *gorm.DB) {
		if raced || tx.Statement.Schema == nil || tx.Statement.Schema.Table != "users" {
			return
		}
		raced = true
		other := &models.User{
			Email:        "linus@example.com",
			Username:     "someone-else",
			PasswordHash: "x",
			IsActive:     true,
		}
		if err := tx.Session(&gorm.Session{NewDB: true}).Create(other).Error; err != nil {
			_ = tx.AddError(err)
		}
	}))

	_, err := e.users.Register(context.Background(), service.RegisterInput{
		Email:    "Linus@example.com",
		Username: "linus",
		Password: "penguins-all-the-way",
	})
	require.True(t, raced)
	fields := fieldErrors(t, err)
	assert.Equal(t, []string{"email"}, fields.Keys())
	assert.EqualValues(t, 1, countRows(t, e.db, &models.User{}))
}

func TestListUsersPaginates(t *testing.T) {
	e := newEnv(t)
	for _, name := range []string{"carol", "alice", "bob"} {
		testhelpers.CreateUser(t, e.db, name)
	}

	users, total, err := e.users.List(context.Background(), service.Page{Number: 1, Size: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)
}

func TestAvatarLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := testhelpers.CreateUser(t, e.db, "painter")

	first, err := e.users.SetAvatar(ctx, user.ID, testImage(t))
	require.NoError(t, err)
	assert.True(t, storedFileExists(e, first.Avatar))

	second, err := e.users.SetAvatar(ctx, user.ID, testImage(t))
	require.NoError(t, err)
	assert.False(t, storedFileExists(e, first.Avatar))
	assert.True(t, storedFileExists(e, second.Avatar))

	require.NoError(t, e.users.RemoveAvatar(ctx, user.ID))
	assert.False(t, storedFileExists(e, second.Avatar))

	reloaded, err := e.users.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Avatar)

	_, err = e.users.SetAvatar(ctx, user.ID, nil)
	assert.True(t, apierr.HasCode(err, apierr.CodeValidation))
}

func TestDeleteUserOrphansRecipes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := testhelpers.CreateUser(t, e.db, "author")
	reader := testhelpers.CreateUser(t, e.db, "reader")
	recipe := testhelpers.CreateRecipe(t, e.db, author, "Goulash", nil)

	require.NoError(t, e.relations.Add(ctx, service.RelationSubscription, reader.ID, author.ID))
	require.NoError(t, e.relations.Add(ctx, service.RelationFavorite, author.ID, recipe.ID))

	err := e.users.Delete(ctx, author.ID, "wrong password")
	assert.True(t, apierr.HasCode(err, apierr.CodeValidation))

	require.NoError(t, e.users.Delete(ctx, author.ID, testhelpers.TestPassword))

	_, err = e.users.Get(ctx, author.ID)
	assert.True(t, apierr.HasCode(err, apierr.CodeNotFound))

	orphan, err := e.recipes.Get(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Nil(t, orphan.AuthorID)
	assert.Nil(t, orphan.Author)
	assert.Zero(t, countRows(t, e.db, &models.Subscription{}))
	assert.Zero(t, countRows(t, e.db, &models.Favorite{}))
}

func TestSubscriptions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	reader := testhelpers.CreateUser(t, e.db, "reader")
	zed := testhelpers.CreateUser(t, e.db, "zed")
	amy := testhelpers.CreateUser(t, e.db, "amy")
	testhelpers.CreateUser(t, e.db, "ignored")

	require.NoError(t, e.relations.Add(ctx, service.RelationSubscription, reader.ID, zed.ID))
	require.NoError(t, e.relations.Add(ctx, service.RelationSubscription, reader.ID, amy.ID))

	followed, total, err := e.users.Subscriptions(ctx, reader.ID, service.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, followed, 2)
	assert.Equal(t, "amy", followed[0].Username)
	assert.Equal(t, "zed", followed[1].Username)
}
