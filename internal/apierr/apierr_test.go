package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldErrorsCollect(t *testing.T) {
	fe := FieldErrors{}
	assert.NoError(t, fe.Err())

	fe.Add("tags", "must not be empty")
	fe.Add("tags", "must not contain duplicates")
	fe.Add("image", "is required")

	err := fe.Err()
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, CodeValidation, apiErr.Code)
	assert.Len(t, apiErr.Fields["tags"], 2)
	assert.Equal(t, []string{"image", "tags"}, apiErr.Fields.Keys())
}

func TestMerge(t *testing.T) {
	fe := FieldErrors{}
	assert.True(t, fe.Merge(FieldInvalid("name", "is required")))
	assert.False(t, fe.Merge(Conflict("already there")))
	assert.False(t, fe.Merge(errors.New("db down")))
	assert.Equal(t, []string{"is required"}, fe["name"])
}

func TestHasCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("add favorite: %w", Conflict("recipe already in favorites"))
	assert.True(t, HasCode(err, CodeConflict))
	assert.False(t, HasCode(err, CodeNotRelated))
}

func TestStatuses(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, NotFound("recipe").Status)
	assert.Equal(t, "recipe not found", NotFound("recipe").Error())
	assert.Equal(t, http.StatusBadRequest, NotRelated("x").Status)
	assert.Equal(t, http.StatusForbidden, Forbidden("x").Status)
	assert.Equal(t, http.StatusUnauthorized, Unauthorized("x").Status)
}
