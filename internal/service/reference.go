package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/larder/backend/internal/apierr"
	"github.com/pageza/larder/backend/internal/cache"
	"github.com/pageza/larder/backend/internal/logger"
	"github.com/pageza/larder/backend/internal/models"
)

const (
	tagsCacheKey           = "tags:all"
	ingredientsCachePrefix = "ingredients:"
)

// ReferenceService serves the read-only tag and ingredient catalogues.
type ReferenceService struct {
	db    *gorm.DB
	cache *cache.Cache
	log   *logger.Logger
}

func NewReferenceService(db *gorm.DB, c *cache.Cache, log *logger.Logger) *ReferenceService {
	return &ReferenceService{db: db, cache: c, log: log.With("service", "reference")}
}

func (s *ReferenceService) ListTags(ctx context.Context) ([]models.Tag, error) {
	return cache.Fetch(ctx, s.cache, tagsCacheKey, func(ctx context.Context) ([]models.Tag, error) {
		var tags []models.Tag
		err := s.db.WithContext(ctx).Order("name").Find(&tags).Error
		return tags, err
	})
}

func (s *ReferenceService) GetTag(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	var tag models.Tag
	err := s.db.WithContext(ctx).First(&tag, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.NotFound("tag")
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// ListIngredients returns ingredients whose name starts with prefix,
// ignoring case. An empty prefix lists everything.
func (s *ReferenceService) ListIngredients(ctx context.Context, prefix string) ([]models.Ingredient, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	return cache.Fetch(ctx, s.cache, ingredientsCachePrefix+prefix, func(ctx context.Context) ([]models.Ingredient, error) {
		q := s.db.WithContext(ctx).Order("name").Order("measurement_unit")
		if prefix != "" {
			q = q.Where("LOWER(name) LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%")
		}
		var ingredients []models.Ingredient
		err := q.Find(&ingredients).Error
		return ingredients, err
	})
}

func (s *ReferenceService) GetIngredient(ctx context.Context, id uuid.UUID) (*models.Ingredient, error) {
	var ing models.Ingredient
	err := s.db.WithContext(ctx).First(&ing, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.NotFound("ingredient")
	}
	if err != nil {
		return nil, err
	}
	return &ing, nil
}

// SeedTags inserts tags that do not exist yet and returns how many were new.
func (s *ReferenceService) SeedTags(ctx context.Context, tags []models.Tag) (int64, error) {
	if len(tags) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&tags)
	if res.Error != nil {
		return 0, res.Error
	}
	if err := s.cache.Invalidate(ctx, []string{tagsCacheKey}); err != nil {
		s.log.Warn("failed to invalidate tag cache", "error", err)
	}
	s.log.Info("tags seeded", "created", res.RowsAffected)
	return res.RowsAffected, nil
}

// SeedIngredients inserts (name, unit) pairs that do not exist yet.
func (s *ReferenceService) SeedIngredients(ctx context.Context, ingredients []models.Ingredient) (int64, error) {
	if len(ingredients) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&ingredients, 200)
	if res.Error != nil {
		return 0, res.Error
	}
	if err := s.cache.Invalidate(ctx, nil, ingredientsCachePrefix); err != nil {
		s.log.Warn("failed to invalidate ingredient cache", "error", err)
	}
	s.log.Info("ingredients seeded", "created", res.RowsAffected)
	return res.RowsAffected, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
