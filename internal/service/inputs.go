package service

import (
	"github.com/google/uuid"
)

// IngredientLine is one {id, amount} entry of a recipe submission.
type IngredientLine struct {
	ID     uuid.UUID `json:"id"`
	Amount int       `json:"amount"`
}

// RecipeInput is a recipe create or update submission. Nil scalar fields
// were absent from the request.
type RecipeInput struct {
	Name        *string
	Text        *string
	CookingTime *int
	Tags        []uuid.UUID
	Ingredients []IngredientLine
	Image       *Image
}

// Page selects a 1-based page of Size rows.
type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// RecipeFilter narrows a recipe listing. Favorited and InShoppingCart only
// apply when Viewer is set.
type RecipeFilter struct {
	Viewer         *uuid.UUID
	AuthorID       *uuid.UUID
	TagSlugs       []string
	Favorited      bool
	InShoppingCart bool
	Search         string
}

// RegisterInput is a new account.
type RegisterInput struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Password  string
}
