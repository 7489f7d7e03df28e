package models

import (
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

const (
	MinCookingTime = 1
	MaxCookingTime = 1440
	MinAmount      = 1
	MaxAmount      = 100
	MaxRecipeName  = 256
)

type Recipe struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// AuthorID is nulled when the author deletes their account; the recipe
	// stays visible without an author.
	AuthorID    *uuid.UUID         `gorm:"type:varchar(36);index" json:"author_id"`
	Author      *User              `gorm:"foreignKey:AuthorID;constraint:OnDelete:SET NULL" json:"-"`
	Name        string             `gorm:"size:256;not null" json:"name"`
	Text        string             `gorm:"type:text;not null" json:"text"`
	Image       string             `gorm:"size:255;not null" json:"image"`
	CookingTime int                `gorm:"not null;check:chk_recipes_cooking_time,cooking_time >= 1 AND cooking_time <= 1440" json:"cooking_time"`
	ShortCode   string             `gorm:"size:16;uniqueIndex;not null" json:"-"`
	Embedding   *pgvector.Vector   `gorm:"type:vector(64)" json:"-"`
	Tags        []Tag              `gorm:"many2many:recipe_tags;constraint:OnDelete:CASCADE" json:"-"`
	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"-"`
}

func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RecipeTag is the recipe_tags join row. Writes go through it directly so a
// tag replacement never touches the tags table.
type RecipeTag struct {
	RecipeID uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	TagID    uuid.UUID `gorm:"type:varchar(36);primaryKey"`
}

func (RecipeTag) TableName() string {
	return "recipe_tags"
}

// RecipeIngredient is one ingredient line of a recipe.
type RecipeIngredient struct {
	ID           uuid.UUID  `gorm:"type:varchar(36);primarykey" json:"id"`
	RecipeID     uuid.UUID  `gorm:"type:varchar(36);not null;uniqueIndex:idx_recipe_ingredient" json:"recipe_id"`
	IngredientID uuid.UUID  `gorm:"type:varchar(36);not null;uniqueIndex:idx_recipe_ingredient" json:"ingredient_id"`
	Ingredient   Ingredient `gorm:"foreignKey:IngredientID" json:"-"`
	Amount       int        `gorm:"not null;check:chk_recipe_ingredients_amount,amount >= 1 AND amount <= 100" json:"amount"`
}

func (ri *RecipeIngredient) BeforeCreate(tx *gorm.DB) error {
	if ri.ID == uuid.Nil {
		ri.ID = uuid.New()
	}
	return nil
}
