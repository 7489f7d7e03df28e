package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/pageza/larder/backend/internal/models"
	"github.com/pageza/larder/backend/internal/service"
)

type TagView struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

type IngredientView struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	MeasurementUnit string    `json:"measurement_unit"`
}

// RecipeIngredientView is an ingredient line; ID is the ingredient's id.
type RecipeIngredientView struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	MeasurementUnit string    `json:"measurement_unit"`
	Amount          int       `json:"amount"`
}

type UserView struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	IsSubscribed bool      `json:"is_subscribed"`
	Avatar       *string   `json:"avatar"`
}

type RecipeView struct {
	ID               uuid.UUID              `json:"id"`
	Tags             []TagView              `json:"tags"`
	Author           *UserView              `json:"author"`
	Ingredients      []RecipeIngredientView `json:"ingredients"`
	IsFavorited      bool                   `json:"is_favorited"`
	IsInShoppingCart bool                   `json:"is_in_shopping_cart"`
	Name             string                 `json:"name"`
	Image            string                 `json:"image"`
	Text             string                 `json:"text"`
	CookingTime      int                    `json:"cooking_time"`
}

type RecipeShortView struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Image       string    `json:"image"`
	CookingTime int       `json:"cooking_time"`
}

type SubscriptionView struct {
	UserView
	Recipes      []RecipeShortView `json:"recipes"`
	RecipesCount int64             `json:"recipes_count"`
}

// Presenter maps models to response views. Per-viewer flags are looked up
// once per batch, never per row; a nil viewer gets false everywhere.
type Presenter struct {
	images    *service.ImageService
	relations *service.RelationService
	recipes   *service.RecipeService
}

func NewPresenter(images *service.ImageService, relations *service.RelationService, recipes *service.RecipeService) *Presenter {
	return &Presenter{images: images, relations: relations, recipes: recipes}
}

func (p *Presenter) imageURL(key string) string {
	if key == "" {
		return ""
	}
	return p.images.URL(key)
}

func (p *Presenter) related(ctx context.Context, kind service.RelationKind, viewer *uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	if viewer == nil || len(ids) == 0 {
		return map[uuid.UUID]bool{}, nil
	}
	return p.relations.Related(ctx, kind, *viewer, ids)
}

func (p *Presenter) Tag(t models.Tag) TagView {
	return TagView{ID: t.ID, Name: t.Name, Slug: t.Slug}
}

func (p *Presenter) Tags(tags []models.Tag) []TagView {
	out := make([]TagView, 0, len(tags))
	for _, t := range tags {
		out = append(out, p.Tag(t))
	}
	return out
}

func (p *Presenter) Ingredient(i models.Ingredient) IngredientView {
	return IngredientView{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}

func (p *Presenter) Ingredients(ings []models.Ingredient) []IngredientView {
	out := make([]IngredientView, 0, len(ings))
	for _, i := range ings {
		out = append(out, p.Ingredient(i))
	}
	return out
}

func (p *Presenter) userView(u models.User, subscribed bool) UserView {
	v := UserView{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
	if u.Avatar != "" {
		url := p.imageURL(u.Avatar)
		v.Avatar = &url
	}
	return v
}

func (p *Presenter) Users(ctx context.Context, viewer *uuid.UUID, users []models.User) ([]UserView, error) {
	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	subscribed, err := p.related(ctx, service.RelationSubscription, viewer, ids)
	if err != nil {
		return nil, err
	}
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		out = append(out, p.userView(u, subscribed[u.ID]))
	}
	return out, nil
}

func (p *Presenter) User(ctx context.Context, viewer *uuid.UUID, u *models.User) (UserView, error) {
	views, err := p.Users(ctx, viewer, []models.User{*u})
	if err != nil {
		return UserView{}, err
	}
	return views[0], nil
}

func (p *Presenter) Recipes(ctx context.Context, viewer *uuid.UUID, recipes []models.Recipe) ([]RecipeView, error) {
	ids := make([]uuid.UUID, 0, len(recipes))
	authorIDs := make([]uuid.UUID, 0, len(recipes))
	seenAuthor := map[uuid.UUID]bool{}
	for _, r := range recipes {
		ids = append(ids, r.ID)
		if r.AuthorID != nil && !seenAuthor[*r.AuthorID] {
			seenAuthor[*r.AuthorID] = true
			authorIDs = append(authorIDs, *r.AuthorID)
		}
	}

	favorited, err := p.related(ctx, service.RelationFavorite, viewer, ids)
	if err != nil {
		return nil, err
	}
	inCart, err := p.related(ctx, service.RelationShoppingCart, viewer, ids)
	if err != nil {
		return nil, err
	}
	subscribed, err := p.related(ctx, service.RelationSubscription, viewer, authorIDs)
	if err != nil {
		return nil, err
	}

	out := make([]RecipeView, 0, len(recipes))
	for _, r := range recipes {
		v := RecipeView{
			ID:               r.ID,
			Tags:             p.Tags(r.Tags),
			Ingredients:      make([]RecipeIngredientView, 0, len(r.Ingredients)),
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: inCart[r.ID],
			Name:             r.Name,
			Image:            p.imageURL(r.Image),
			Text:             r.Text,
			CookingTime:      r.CookingTime,
		}
		if r.Author != nil {
			author := p.userView(*r.Author, subscribed[r.Author.ID])
			v.Author = &author
		}
		for _, line := range r.Ingredients {
			v.Ingredients = append(v.Ingredients, RecipeIngredientView{
				ID:              line.IngredientID,
				Name:            line.Ingredient.Name,
				MeasurementUnit: line.Ingredient.MeasurementUnit,
				Amount:          line.Amount,
			})
		}
		out = append(out, v)
	}
	return out, nil
}

func (p *Presenter) Recipe(ctx context.Context, viewer *uuid.UUID, r *models.Recipe) (RecipeView, error) {
	views, err := p.Recipes(ctx, viewer, []models.Recipe{*r})
	if err != nil {
		return RecipeView{}, err
	}
	return views[0], nil
}

func (p *Presenter) RecipeShort(r models.Recipe) RecipeShortView {
	return RecipeShortView{ID: r.ID, Name: r.Name, Image: p.imageURL(r.Image), CookingTime: r.CookingTime}
}

// Subscriptions renders followed authors with up to limit of their newest
// recipes each and their total recipe count.
func (p *Presenter) Subscriptions(ctx context.Context, viewer uuid.UUID, authors []models.User, limit int) ([]SubscriptionView, error) {
	users, err := p.Users(ctx, &viewer, authors)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(authors))
	for _, a := range authors {
		ids = append(ids, a.ID)
	}
	recipes, counts, err := p.recipes.ByAuthors(ctx, ids, limit)
	if err != nil {
		return nil, err
	}

	out := make([]SubscriptionView, 0, len(authors))
	for i, a := range authors {
		short := make([]RecipeShortView, 0, len(recipes[a.ID]))
		for _, r := range recipes[a.ID] {
			short = append(short, p.RecipeShort(r))
		}
		out = append(out, SubscriptionView{UserView: users[i], Recipes: short, RecipesCount: counts[a.ID]})
	}
	return out, nil
}
