package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/larder/backend/internal/middleware"
	"github.com/pageza/larder/backend/internal/service"
)

type RecipeHandler struct {
	recipes   *service.RecipeService
	relations *service.RelationService
	shopping  *service.ShoppingService
	presenter *Presenter
	auth      *middleware.Authenticator
	limiters  Limiters
	settings  Settings
}

func NewRecipeHandler(
	recipes *service.RecipeService,
	relations *service.RelationService,
	shopping *service.ShoppingService,
	presenter *Presenter,
	auth *middleware.Authenticator,
	limiters Limiters,
	settings Settings,
) *RecipeHandler {
	return &RecipeHandler{
		recipes:   recipes,
		relations: relations,
		shopping:  shopping,
		presenter: presenter,
		auth:      auth,
		limiters:  limiters,
		settings:  settings,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	recipes := router.Group("/recipes")
	{
		recipes.GET("", h.auth.OptionalAuth(), h.ListRecipes)
		recipes.POST("", h.auth.RequireAuth(), h.limiters.RecipeCreate.RateLimitMiddleware(), h.CreateRecipe)
		recipes.GET("/download_shopping_cart", h.auth.RequireAuth(), h.DownloadShoppingCart)
		recipes.GET("/:id", h.auth.OptionalAuth(), h.GetRecipe)
		recipes.PATCH("/:id", h.auth.RequireAuth(), h.limiters.RecipeUpdate.PerResourceMiddleware("id"), h.UpdateRecipe)
		recipes.DELETE("/:id", h.auth.RequireAuth(), h.DeleteRecipe)
		recipes.GET("/:id/get-link", h.GetLink)

		recipes.POST("/:id/favorite", h.auth.RequireAuth(), h.addRelation(service.RelationFavorite))
		recipes.DELETE("/:id/favorite", h.auth.RequireAuth(), h.removeRelation(service.RelationFavorite))
		recipes.POST("/:id/shopping_cart", h.auth.RequireAuth(), h.addRelation(service.RelationShoppingCart))
		recipes.DELETE("/:id/shopping_cart", h.auth.RequireAuth(), h.removeRelation(service.RelationShoppingCart))
	}
}

// ListRecipes serves GET /recipes with author, tags, is_favorited,
// is_in_shopping_cart and search filters.
func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	page, err := h.settings.parsePage(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	filter := service.RecipeFilter{
		Viewer:         viewer(c),
		TagSlugs:       c.QueryArray("tags"),
		Favorited:      c.Query("is_favorited") == "1",
		InShoppingCart: c.Query("is_in_shopping_cart") == "1",
		Search:         c.Query("search"),
	}
	if raw := c.Query("author"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			// no author can match a malformed id
			h.respondPage(c, page, 0, []RecipeView{})
			return
		}
		filter.AuthorID = &id
	}

	recipes, total, err := h.recipes.List(c.Request.Context(), filter, page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	views, err := h.presenter.Recipes(c.Request.Context(), filter.Viewer, recipes)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.respondPage(c, page, total, views)
}

func (h *RecipeHandler) respondPage(c *gin.Context, page service.Page, total int64, results interface{}) {
	body, err := h.settings.paginate(c, page, total, results)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, ok := paramUUID(c, "id", "recipe")
	if !ok {
		return
	}
	recipe, err := h.recipes.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	view, err := h.presenter.Recipe(c.Request.Context(), viewer(c), recipe)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	in, err := bindRecipe(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	recipe, err := h.recipes.Create(c.Request.Context(), userID, in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	view, err := h.presenter.Recipe(c.Request.Context(), &userID, recipe)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "recipe")
	if !ok {
		return
	}
	in, err := bindRecipe(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	recipe, err := h.recipes.Update(c.Request.Context(), userID, id, in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	view, err := h.presenter.Recipe(c.Request.Context(), &userID, recipe)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "recipe")
	if !ok {
		return
	}
	if err := h.recipes.Delete(c.Request.Context(), userID, id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// addRelation answers 201 with the recipe's short view.
func (h *RecipeHandler) addRelation(kind service.RelationKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := paramUUID(c, "id", "recipe")
		if !ok {
			return
		}
		if err := h.relations.Add(c.Request.Context(), kind, userID, id); err != nil {
			_ = c.Error(err)
			return
		}
		recipe, err := h.recipes.Get(c.Request.Context(), id)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, h.presenter.RecipeShort(*recipe))
	}
}

func (h *RecipeHandler) removeRelation(kind service.RelationKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := paramUUID(c, "id", "recipe")
		if !ok {
			return
		}
		if err := h.relations.Remove(c.Request.Context(), kind, userID, id); err != nil {
			_ = c.Error(err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	text, err := h.shopping.Export(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="shopping_list.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

func (h *RecipeHandler) GetLink(c *gin.Context) {
	id, ok := paramUUID(c, "id", "recipe")
	if !ok {
		return
	}
	code, err := h.recipes.ShortCode(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"short-link": h.settings.baseURL(c) + "/s/" + code})
}

// FollowShortLink redirects /s/{code} to the recipe page.
func (h *RecipeHandler) FollowShortLink(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	id, err := h.recipes.ResolveShortCode(c.Request.Context(), code)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("%s/recipes/%s/", h.settings.baseURL(c), id))
}
