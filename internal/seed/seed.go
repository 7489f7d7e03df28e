package seed

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pageza/larder/backend/internal/logger"
	"github.com/pageza/larder/backend/internal/models"
	"github.com/pageza/larder/backend/internal/service"
	"github.com/pageza/larder/backend/internal/validation"
)

// File is the reference data document read by cmd/seed.
//
//	tags:
//	  - name: Breakfast
//	ingredients:
//	  - name: Flour
//	    measurement_unit: g
type File struct {
	Tags        []TagEntry        `yaml:"tags" json:"tags" validate:"dive"`
	Ingredients []IngredientEntry `yaml:"ingredients" json:"ingredients" validate:"dive"`
}

type TagEntry struct {
	Name string `yaml:"name" json:"name" validate:"required,max=64"`
	Slug string `yaml:"slug" json:"slug" validate:"omitempty,max=64"`
}

type IngredientEntry struct {
	Name            string `yaml:"name" json:"name" validate:"required,max=128"`
	MeasurementUnit string `yaml:"measurement_unit" json:"measurement_unit" validate:"required,max=64"`
}

// Load decodes and validates a seed document. Unknown keys are an error.
func Load(r io.Reader, v *validation.Validator) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}
	for i := range f.Tags {
		f.Tags[i].Name = strings.TrimSpace(f.Tags[i].Name)
	}
	for i := range f.Ingredients {
		f.Ingredients[i].Name = strings.TrimSpace(f.Ingredients[i].Name)
		f.Ingredients[i].MeasurementUnit = strings.TrimSpace(f.Ingredients[i].MeasurementUnit)
	}
	if err := v.Validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Result counts the rows actually inserted; existing rows are skipped.
type Result struct {
	Tags        int64
	Ingredients int64
}

func Apply(ctx context.Context, ref *service.ReferenceService, f *File, log *logger.Logger) (Result, error) {
	tags := make([]models.Tag, 0, len(f.Tags))
	for _, t := range f.Tags {
		tags = append(tags, models.Tag{Name: t.Name, Slug: t.Slug})
	}
	ings := make([]models.Ingredient, 0, len(f.Ingredients))
	for _, i := range f.Ingredients {
		ings = append(ings, models.Ingredient{Name: i.Name, MeasurementUnit: i.MeasurementUnit})
	}

	var res Result
	var err error
	if res.Tags, err = ref.SeedTags(ctx, tags); err != nil {
		return res, fmt.Errorf("failed to seed tags: %w", err)
	}
	if res.Ingredients, err = ref.SeedIngredients(ctx, ings); err != nil {
		return res, fmt.Errorf("failed to seed ingredients: %w", err)
	}
	log.Info("reference data seeded",
		"tags", res.Tags, "tags_in_file", len(tags),
		"ingredients", res.Ingredients, "ingredients_in_file", len(ings))
	return res, nil
}
