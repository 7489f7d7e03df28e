package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/larder/backend/internal/apierr"
	"github.com/pageza/larder/backend/internal/logger"
	"github.com/pageza/larder/backend/internal/models"
	"github.com/pageza/larder/backend/internal/search"
)

const (
	shortCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	shortCodeLength   = 8
)

type RecipeService struct {
	db        *gorm.DB
	validator *RecipeValidator
	images    *ImageService
	log       *logger.Logger
}

func NewRecipeService(db *gorm.DB, validator *RecipeValidator, images *ImageService, log *logger.Logger) *RecipeService {
	return &RecipeService{
		db:        db,
		validator: validator,
		images:    images,
		log:       log.With("service", "recipes"),
	}
}

func withDetails(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name") }).
		Preload("Ingredients.Ingredient").
		Preload("Author")
}

func sortLines(r *models.Recipe) {
	sort.SliceStable(r.Ingredients, func(i, j int) bool {
		return r.Ingredients[i].Ingredient.Name < r.Ingredients[j].Ingredient.Name
	})
}

// Get loads a recipe with tags, ingredient lines and author.
func (s *RecipeService) Get(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := withDetails(s.db.WithContext(ctx)).First(&recipe, "recipes.id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.NotFound("recipe")
	}
	if err != nil {
		return nil, err
	}
	sortLines(&recipe)
	return &recipe, nil
}

func (s *RecipeService) load(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).First(&recipe, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.NotFound("recipe")
	}
	return &recipe, err
}

// List returns one page of recipes matching f and the total match count.
// Newest first; with a search term on Postgres, nearest embedding first.
func (s *RecipeService) List(ctx context.Context, f RecipeFilter, page Page) ([]models.Recipe, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Recipe{})

	if f.AuthorID != nil {
		q = q.Where("recipes.author_id = ?", *f.AuthorID)
	}
	if len(f.TagSlugs) > 0 {
		tagged := s.db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", f.TagSlugs)
		q = q.Where("recipes.id IN (?)", tagged)
	}
	if f.Viewer != nil {
		if f.Favorited {
			q = q.Where("recipes.id IN (?)", s.db.Model(&models.Favorite{}).Select("recipe_id").Where("user_id = ?", *f.Viewer))
		}
		if f.InShoppingCart {
			q = q.Where("recipes.id IN (?)", s.db.Model(&models.ShoppingListEntry{}).Select("recipe_id").Where("user_id = ?", *f.Viewer))
		}
	}
	term := strings.TrimSpace(f.Search)
	if term != "" {
		like := "%" + escapeLike(strings.ToLower(term)) + "%"
		q = q.Where("(LOWER(recipes.name) LIKE ? ESCAPE '\\' OR LOWER(recipes.text) LIKE ? ESCAPE '\\')", like, like)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	find := withDetails(q).Offset(page.Offset()).Limit(page.Size)
	if term != "" && s.db.Dialector.Name() == "postgres" {
		// A later Order call would replace this expression, so the whole
		// ordering lives in one clause.
		find = find.Clauses(clause.OrderBy{
			Expression: clause.Expr{
				SQL:  "recipes.embedding <-> ?, recipes.created_at DESC, recipes.id",
				Vars: []interface{}{search.Embed(term)},
			},
		})
	} else {
		find = find.Order("recipes.created_at DESC").Order("recipes.id")
	}
	var recipes []models.Recipe
	if err := find.Find(&recipes).Error; err != nil {
		return nil, 0, err
	}
	for i := range recipes {
		sortLines(&recipes[i])
	}
	return recipes, total, nil
}

// Create validates and stores a recipe with its tags and ingredient lines
// in one transaction. The image is written first and removed again if the
// transaction fails.
func (s *RecipeService) Create(ctx context.Context, authorID uuid.UUID, in RecipeInput) (*models.Recipe, error) {
	if err := s.validator.ValidateRecipe(ctx, in, true); err != nil {
		return nil, err
	}
	code, err := gonanoid.Generate(shortCodeAlphabet, shortCodeLength)
	if err != nil {
		return nil, err
	}
	key, err := s.images.Save(ctx, "recipes", in.Image)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(*in.Name)
	embedding := search.Embed(name + " " + *in.Text)
	recipe := &models.Recipe{
		AuthorID:    &authorID,
		Name:        name,
		Text:        *in.Text,
		CookingTime: *in.CookingTime,
		Image:       key,
		ShortCode:   code,
		Embedding:   &embedding,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(recipe).Error; err != nil {
			return err
		}
		return writeComposition(tx, recipe.ID, in.Tags, in.Ingredients)
	})
	if err != nil {
		s.images.Discard(ctx, key)
		return nil, translateWriteError(err)
	}

	s.log.Info("recipe created", "recipe_id", recipe.ID)
	return s.Get(ctx, recipe.ID)
}

// Update replaces tags and ingredient lines and any scalar fields present
// in the submission. Only the author may update.
func (s *RecipeService) Update(ctx context.Context, userID, recipeID uuid.UUID, in RecipeInput) (*models.Recipe, error) {
	existing, err := s.load(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if err := authorize(existing, userID); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateRecipe(ctx, in, false); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	name, text := existing.Name, existing.Text
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
		updates["name"] = name
	}
	if in.Text != nil {
		text = *in.Text
		updates["text"] = text
	}
	if in.CookingTime != nil {
		updates["cooking_time"] = *in.CookingTime
	}
	updates["embedding"] = search.Embed(name + " " + text)

	var newKey string
	if in.Image != nil {
		if newKey, err = s.images.Save(ctx, "recipes", in.Image); err != nil {
			return nil, err
		}
		updates["image"] = newKey
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Recipe{}).Where("id = ?", recipeID).Updates(updates).Error; err != nil {
			return err
		}
		return writeComposition(tx, recipeID, in.Tags, in.Ingredients)
	})
	if err != nil {
		s.images.Discard(ctx, newKey)
		return nil, translateWriteError(err)
	}
	if newKey != "" {
		s.images.Discard(ctx, existing.Image)
	}

	s.log.Info("recipe updated", "recipe_id", recipeID)
	return s.Get(ctx, recipeID)
}

// Delete removes a recipe and every row that references it.
func (s *RecipeService) Delete(ctx context.Context, userID, recipeID uuid.UUID) error {
	existing, err := s.load(ctx, recipeID)
	if err != nil {
		return err
	}
	if err := authorize(existing, userID); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{&models.RecipeTag{}, &models.RecipeIngredient{}, &models.Favorite{}, &models.ShoppingListEntry{}} {
			if err := tx.Where("recipe_id = ?", recipeID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Recipe{}, "id = ?", recipeID).Error
	})
	if err != nil {
		return err
	}
	s.images.Discard(ctx, existing.Image)
	s.log.Info("recipe deleted", "recipe_id", recipeID)
	return nil
}

// ShortCode returns the code used in the recipe's short link.
func (s *RecipeService) ShortCode(ctx context.Context, recipeID uuid.UUID) (string, error) {
	recipe, err := s.load(ctx, recipeID)
	if err != nil {
		return "", err
	}
	return recipe.ShortCode, nil
}

// ResolveShortCode maps a short link code back to its recipe id.
func (s *RecipeService) ResolveShortCode(ctx context.Context, code string) (uuid.UUID, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).Select("id").First(&recipe, "short_code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, apierr.NotFound("short link")
	}
	if err != nil {
		return uuid.Nil, err
	}
	return recipe.ID, nil
}

// ByAuthors returns up to limit newest recipes per author plus each
// author's total recipe count, using two queries regardless of how many
// authors are asked for.
func (s *RecipeService) ByAuthors(ctx context.Context, authorIDs []uuid.UUID, limit int) (map[uuid.UUID][]models.Recipe, map[uuid.UUID]int64, error) {
	recipes := make(map[uuid.UUID][]models.Recipe, len(authorIDs))
	counts := make(map[uuid.UUID]int64, len(authorIDs))
	if len(authorIDs) == 0 {
		return recipes, counts, nil
	}

	var rows []struct {
		AuthorID uuid.UUID
		Total    int64
	}
	err := s.db.WithContext(ctx).Model(&models.Recipe{}).
		Select("author_id, COUNT(*) AS total").
		Where("author_id IN ?", authorIDs).
		Group("author_id").
		Scan(&rows).Error
	if err != nil {
		return nil, nil, err
	}
	for _, r := range rows {
		counts[r.AuthorID] = r.Total
	}
	if limit <= 0 {
		return recipes, counts, nil
	}

	ranked := s.db.Model(&models.Recipe{}).
		Select("recipes.*, ROW_NUMBER() OVER (PARTITION BY author_id ORDER BY created_at DESC, id) AS rn").
		Where("author_id IN ?", authorIDs)
	var list []models.Recipe
	err = s.db.WithContext(ctx).Table("(?) AS ranked", ranked).
		Where("rn <= ?", limit).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, nil, err
	}
	for _, r := range list {
		if r.AuthorID != nil {
			recipes[*r.AuthorID] = append(recipes[*r.AuthorID], r)
		}
	}
	return recipes, counts, nil
}

func authorize(recipe *models.Recipe, userID uuid.UUID) error {
	if recipe.AuthorID == nil || *recipe.AuthorID != userID {
		return apierr.Forbidden("only the author can change this recipe")
	}
	return nil
}

// writeComposition replaces the tag links and ingredient lines of a recipe.
func writeComposition(tx *gorm.DB, recipeID uuid.UUID, tags []uuid.UUID, lines []IngredientLine) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeTag{}).Error; err != nil {
		return err
	}
	links := make([]models.RecipeTag, 0, len(tags))
	for _, id := range tags {
		links = append(links, models.RecipeTag{RecipeID: recipeID, TagID: id})
	}
	if err := tx.Create(&links).Error; err != nil {
		return err
	}

	if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
		return err
	}
	rows := make([]models.RecipeIngredient, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, models.RecipeIngredient{RecipeID: recipeID, IngredientID: l.ID, Amount: l.Amount})
	}
	return tx.Omit(clause.Associations).Create(&rows).Error
}

func translateWriteError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apierr.Conflict("recipe conflicts with existing data")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return apierr.FieldInvalid("ingredients", "references data that no longer exists")
	default:
		return err
	}
}
