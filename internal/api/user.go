package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/larder/backend/internal/apierr"
	"github.com/pageza/larder/backend/internal/middleware"
	"github.com/pageza/larder/backend/internal/models"
	"github.com/pageza/larder/backend/internal/service"
	"github.com/pageza/larder/backend/internal/validation"
)

type UserHandler struct {
	users     *service.UserService
	relations *service.RelationService
	presenter *Presenter
	auth      *middleware.Authenticator
	settings  Settings
}

func NewUserHandler(users *service.UserService, relations *service.RelationService, presenter *Presenter, auth *middleware.Authenticator, settings Settings) *UserHandler {
	return &UserHandler{users: users, relations: relations, presenter: presenter, auth: auth, settings: settings}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.GET("", h.auth.OptionalAuth(), h.ListUsers)
		users.POST("", h.Register)
		users.GET("/me", h.auth.RequireAuth(), h.Me)
		users.DELETE("/me", h.auth.RequireAuth(), h.DeleteMe)
		users.PUT("/me/avatar", h.auth.RequireAuth(), h.SetAvatar)
		users.DELETE("/me/avatar", h.auth.RequireAuth(), h.RemoveAvatar)
		users.GET("/subscriptions", h.auth.RequireAuth(), h.Subscriptions)
		users.GET("/:id", h.auth.OptionalAuth(), h.GetUser)
		users.POST("/:id/subscribe", h.auth.RequireAuth(), h.Subscribe)
		users.DELETE("/:id/subscribe", h.auth.RequireAuth(), h.Unsubscribe)
	}
}

type registerRequest struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	Username  string `json:"username" binding:"required,max=150,username"`
	FirstName string `json:"first_name" binding:"required,max=150"`
	LastName  string `json:"last_name" binding:"required,max=150"`
	Password  string `json:"password" binding:"required,min=8,max=128"`
}

type deleteAccountRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
}

type avatarRequest struct {
	Avatar string `json:"avatar" binding:"required"`
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	page, err := h.settings.parsePage(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	users, total, err := h.users.List(c.Request.Context(), page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	views, err := h.presenter.Users(c.Request.Context(), viewer(c), users)
	if err != nil {
		_ = c.Error(err)
		return
	}
	body, err := h.settings.paginate(c, page, total, views)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(validation.Translate(err))
		return
	}
	user, err := h.users.Register(c.Request.Context(), service.RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	view, err := h.presenter.User(c.Request.Context(), nil, user)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := paramUUID(c, "id", "user")
	if !ok {
		return
	}
	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	view, err := h.presenter.User(c.Request.Context(), viewer(c), user)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	user, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	view, err := h.presenter.User(c.Request.Context(), &userID, user)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) DeleteMe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req deleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(validation.Translate(err))
		return
	}
	if err := h.users.Delete(c.Request.Context(), userID, req.CurrentPassword); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetAvatar accepts {"avatar": "data:image/...;base64,..."} or a multipart
// "avatar" file part.
func (h *UserHandler) SetAvatar(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var img *service.Image
	var err error
	if isMultipart(c) {
		img, err = formImage(c, "avatar")
	} else {
		var req avatarRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			_ = c.Error(validation.Translate(bindErr))
			return
		}
		img, err = service.DecodeDataURI(req.Avatar)
	}
	if err != nil {
		_ = c.Error(apierr.FieldInvalid("avatar", err.Error()))
		return
	}

	user, err := h.users.SetAvatar(c.Request.Context(), userID, img)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar": h.presenter.imageURL(user.Avatar)})
}

func (h *UserHandler) RemoveAvatar(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.users.RemoveAvatar(c.Request.Context(), userID); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	page, err := h.settings.parsePage(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	authors, total, err := h.users.Subscriptions(c.Request.Context(), userID, page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	views, err := h.presenter.Subscriptions(c.Request.Context(), userID, authors, h.settings.recipesLimit(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	body, err := h.settings.paginate(c, page, total, views)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, body)
}

// Subscribe answers 201 with the author's subscription view.
func (h *UserHandler) Subscribe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	authorID, ok := paramUUID(c, "id", "user")
	if !ok {
		return
	}
	if err := h.relations.Add(c.Request.Context(), service.RelationSubscription, userID, authorID); err != nil {
		_ = c.Error(err)
		return
	}
	author, err := h.users.Get(c.Request.Context(), authorID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	views, err := h.presenter.Subscriptions(c.Request.Context(), userID, []models.User{*author}, h.settings.recipesLimit(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, views[0])
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	authorID, ok := paramUUID(c, "id", "user")
	if !ok {
		return
	}
	if err := h.relations.Remove(c.Request.Context(), service.RelationSubscription, userID, authorID); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
