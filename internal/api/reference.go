package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/larder/backend/internal/service"
)

// ReferenceHandler serves the read-only tag and ingredient catalogues,
// unpaginated.
type ReferenceHandler struct {
	reference *service.ReferenceService
	presenter *Presenter
}

func NewReferenceHandler(reference *service.ReferenceService, presenter *Presenter) *ReferenceHandler {
	return &ReferenceHandler{reference: reference, presenter: presenter}
}

func (h *ReferenceHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/tags", h.ListTags)
	router.GET("/tags/:id", h.GetTag)
	router.GET("/ingredients", h.ListIngredients)
	router.GET("/ingredients/:id", h.GetIngredient)
}

func (h *ReferenceHandler) ListTags(c *gin.Context) {
	tags, err := h.reference.ListTags(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.presenter.Tags(tags))
}

func (h *ReferenceHandler) GetTag(c *gin.Context) {
	id, ok := paramUUID(c, "id", "tag")
	if !ok {
		return
	}
	tag, err := h.reference.GetTag(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.presenter.Tag(*tag))
}

// ListIngredients filters by ?name, a case-insensitive prefix.
func (h *ReferenceHandler) ListIngredients(c *gin.Context) {
	ings, err := h.reference.ListIngredients(c.Request.Context(), c.Query("name"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.presenter.Ingredients(ings))
}

func (h *ReferenceHandler) GetIngredient(c *gin.Context) {
	id, ok := paramUUID(c, "id", "ingredient")
	if !ok {
		return
	}
	ing, err := h.reference.GetIngredient(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.presenter.Ingredient(*ing))
}
