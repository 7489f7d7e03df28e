package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/pageza/larder/backend/internal/logger"
)

// ShoppingItem is one consolidated line of a shopping list.
type ShoppingItem struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Total           int    `json:"total"`
}

type ShoppingService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewShoppingService(db *gorm.DB, log *logger.Logger) *ShoppingService {
	return &ShoppingService{db: db, log: log.With("service", "shopping")}
}

// Items sums ingredient amounts over every recipe in the user's shopping
// cart, grouped by ingredient name and unit.
func (s *ShoppingService) Items(ctx context.Context, userID uuid.UUID) ([]ShoppingItem, error) {
	var items []ShoppingItem
	err := s.db.WithContext(ctx).Table("recipe_ingredients").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS total").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Joins("JOIN shopping_list_entries ON shopping_list_entries.recipe_id = recipe_ingredients.recipe_id").
		Where("shopping_list_entries.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name, ingredients.measurement_unit").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// RenderShoppingList formats items as "name - total (unit)" lines.
func RenderShoppingList(items []ShoppingItem) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("%s - %d (%s)", it.Name, it.Total, it.MeasurementUnit))
	}
	return strings.Join(lines, "\n")
}

// Export builds the plain-text shopping list for a user.
func (s *ShoppingService) Export(ctx context.Context, userID uuid.UUID) (string, error) {
	ctx, span := otel.Tracer("larder/shopping").Start(ctx, "ShoppingService.Export",
		trace.WithAttributes(attribute.String("user.id", userID.String())))
	defer span.End()

	items, err := s.Items(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate shopping list")
		return "", err
	}
	span.SetAttributes(attribute.Int("shopping.items", len(items)))
	s.log.Debug("shopping list exported", "user_id", userID, "items", len(items))
	return RenderShoppingList(items), nil
}
