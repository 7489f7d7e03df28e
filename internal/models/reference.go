package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/larder/backend/internal/textnorm"
)

// Tag is seeded reference data; recipes link to it through recipe_tags.
type Tag struct {
	ID   uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	Name string    `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Slug string    `gorm:"size:64;uniqueIndex;not null" json:"slug"`
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Slug == "" {
		t.Slug = textnorm.Slugify(t.Name)
	}
	return nil
}

type Ingredient struct {
	ID              uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	Name            string    `gorm:"size:128;not null;uniqueIndex:idx_ingredient_name_unit" json:"name"`
	MeasurementUnit string    `gorm:"size:64;not null;uniqueIndex:idx_ingredient_name_unit" json:"measurement_unit"`
}

func (i *Ingredient) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
