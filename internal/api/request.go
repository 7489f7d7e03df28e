package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/larder/backend/internal/apierr"
	"github.com/pageza/larder/backend/internal/middleware"
	"github.com/pageza/larder/backend/internal/service"
	"github.com/pageza/larder/backend/internal/validation"
)

// multipart bodies carry at most one image plus a few short fields
const maxMultipartMemory = 12 << 20

// viewer returns the authenticated user id, or nil for anonymous requests.
func viewer(c *gin.Context) *uuid.UUID {
	if id, ok := middleware.UserID(c); ok {
		return &id
	}
	return nil
}

// currentUser is for routes behind RequireAuth.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		_ = c.Error(apierr.Unauthorized("authentication credentials were not provided"))
	}
	return id, ok
}

// paramUUID parses a path id; anything that is not a UUID cannot name an
// existing row, so it is a 404.
func paramUUID(c *gin.Context, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		_ = c.Error(apierr.NotFound(what))
		return uuid.Nil, false
	}
	return id, true
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

type recipeRequest struct {
	Name        *string                  `json:"name"`
	Text        *string                  `json:"text"`
	CookingTime *int                     `json:"cooking_time"`
	Tags        []uuid.UUID              `json:"tags"`
	Ingredients []service.IngredientLine `json:"ingredients"`
	Image       *string                  `json:"image"`
}

// bindRecipe reads a recipe submission from JSON (image as a base64 data
// URI) or multipart form data (image as a file part, ingredients as a JSON
// array string).
func bindRecipe(c *gin.Context) (service.RecipeInput, error) {
	if isMultipart(c) {
		return bindRecipeForm(c)
	}

	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return service.RecipeInput{}, validation.Translate(err)
	}
	in := service.RecipeInput{
		Name:        req.Name,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		Tags:        req.Tags,
		Ingredients: req.Ingredients,
	}
	if req.Image != nil && *req.Image != "" {
		img, err := service.DecodeDataURI(*req.Image)
		if err != nil {
			return in, apierr.FieldInvalid("image", err.Error())
		}
		in.Image = img
	}
	return in, nil
}

func bindRecipeForm(c *gin.Context) (service.RecipeInput, error) {
	var in service.RecipeInput
	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		return in, apierr.BadRequest("malformed multipart body")
	}
	fields := apierr.FieldErrors{}

	if v, ok := c.GetPostForm("name"); ok {
		in.Name = &v
	}
	if v, ok := c.GetPostForm("text"); ok {
		in.Text = &v
	}
	if v, ok := c.GetPostForm("cooking_time"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			fields.Add("cooking_time", "must be a whole number of minutes")
		} else {
			in.CookingTime = &n
		}
	}

	for _, raw := range c.PostFormArray("tags") {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				fields.Add("tags", fmt.Sprintf("%q is not a valid id", part))
				continue
			}
			in.Tags = append(in.Tags, id)
		}
	}

	if raw, ok := c.GetPostForm("ingredients"); ok && strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &in.Ingredients); err != nil {
			fields.Add("ingredients", "must be a JSON array of {id, amount} objects")
		}
	}

	img, err := formImage(c, "image")
	if err != nil {
		fields.Add("image", err.Error())
	}
	in.Image = img

	return in, fields.Err()
}

// formImage returns the named file part as an image, or nil if absent.
func formImage(c *gin.Context, name string) (*service.Image, error) {
	fh, err := c.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return readImage(fh)
}

func readImage(fh *multipart.FileHeader) (*service.Image, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxMultipartMemory))
	if err != nil {
		return nil, err
	}
	return service.NewImage(data)
}
