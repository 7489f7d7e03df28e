package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/larder/backend/internal/apierr"
	"github.com/pageza/larder/backend/internal/logger"
	"github.com/pageza/larder/backend/internal/models"
)

// RelationKind names one of the per-user relation sets. Each is a binary
// (user, target) pair: present or absent.
type RelationKind string

const (
	RelationFavorite     RelationKind = "favorite"
	RelationShoppingCart RelationKind = "shopping_cart"
	RelationSubscription RelationKind = "subscription"
)

type relationDef struct {
	model         func() interface{}
	newRow        func(userID, targetID uuid.UUID) interface{}
	targetColumn  string
	targetModel   func() interface{}
	targetName    string
	conflictMsg   string
	notRelatedMsg string
}

var relationDefs = map[RelationKind]relationDef{
	RelationFavorite: {
		model: func() interface{} { return &models.Favorite{} },
		newRow: func(userID, targetID uuid.UUID) interface{} {
			return &models.Favorite{UserID: userID, RecipeID: targetID}
		},
		targetColumn:  "recipe_id",
		targetModel:   func() interface{} { return &models.Recipe{} },
		targetName:    "recipe",
		conflictMsg:   "recipe is already in favorites",
		notRelatedMsg: "recipe is not in favorites",
	},
	RelationShoppingCart: {
		model: func() interface{} { return &models.ShoppingListEntry{} },
		newRow: func(userID, targetID uuid.UUID) interface{} {
			return &models.ShoppingListEntry{UserID: userID, RecipeID: targetID}
		},
		targetColumn:  "recipe_id",
		targetModel:   func() interface{} { return &models.Recipe{} },
		targetName:    "recipe",
		conflictMsg:   "recipe is already in the shopping cart",
		notRelatedMsg: "recipe is not in the shopping cart",
	},
	RelationSubscription: {
		model: func() interface{} { return &models.Subscription{} },
		newRow: func(userID, targetID uuid.UUID) interface{} {
			return &models.Subscription{UserID: userID, AuthorID: targetID}
		},
		targetColumn:  "author_id",
		targetModel:   func() interface{} { return &models.User{} },
		targetName:    "user",
		conflictMsg:   "already subscribed to this author",
		notRelatedMsg: "not subscribed to this author",
	},
}

func defFor(kind RelationKind) (relationDef, error) {
	def, ok := relationDefs[kind]
	if !ok {
		return relationDef{}, fmt.Errorf("unknown relation kind %q", kind)
	}
	return def, nil
}

// RelationService toggles favorites, shopping cart entries and subscriptions.
type RelationService struct {
	db        *gorm.DB
	validator *RecipeValidator
	log       *logger.Logger
}

func NewRelationService(db *gorm.DB, validator *RecipeValidator, log *logger.Logger) *RelationService {
	return &RelationService{db: db, validator: validator, log: log.With("service", "relations")}
}

// Add creates the (user, target) pair. It fails with NotFound for a missing
// target, a validation error for self-subscription and Conflict when the
// pair exists, including when a concurrent Add wins the insert race.
func (s *RelationService) Add(ctx context.Context, kind RelationKind, userID, targetID uuid.UUID) error {
	def, err := defFor(kind)
	if err != nil {
		return err
	}
	if kind == RelationSubscription {
		if err := ValidateNoSelfSubscription(userID, targetID); err != nil {
			return err
		}
	}
	if err := s.requireTarget(ctx, def, targetID); err != nil {
		return err
	}
	if err := s.validator.ValidateUniqueRelation(ctx, kind, userID, targetID); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(def.newRow(userID, targetID)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apierr.Conflict(def.conflictMsg)
		}
		return err
	}
	s.log.Debug("relation added", "kind", kind, "target", targetID)
	return nil
}

// Remove deletes the (user, target) pair, failing with NotRelated when no
// row was deleted.
func (s *RelationService) Remove(ctx context.Context, kind RelationKind, userID, targetID uuid.UUID) error {
	def, err := defFor(kind)
	if err != nil {
		return err
	}
	if err := s.requireTarget(ctx, def, targetID); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND "+def.targetColumn+" = ?", userID, targetID).
		Delete(def.model())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apierr.NotRelated(def.notRelatedMsg)
	}
	s.log.Debug("relation removed", "kind", kind, "target", targetID)
	return nil
}

// Related reports which of targetIDs are paired with userID, in one query.
func (s *RelationService) Related(ctx context.Context, kind RelationKind, userID uuid.UUID, targetIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	def, err := defFor(kind)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]bool, len(targetIDs))
	if len(targetIDs) == 0 {
		return out, nil
	}
	var hits []uuid.UUID
	err = s.db.WithContext(ctx).Model(def.model()).
		Where("user_id = ? AND "+def.targetColumn+" IN ?", userID, targetIDs).
		Pluck(def.targetColumn, &hits).Error
	if err != nil {
		return nil, err
	}
	for _, id := range hits {
		out[id] = true
	}
	return out, nil
}

func (s *RelationService) requireTarget(ctx context.Context, def relationDef, id uuid.UUID) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(def.targetModel()).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apierr.NotFound(def.targetName)
	}
	return nil
}
