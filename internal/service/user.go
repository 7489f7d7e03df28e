package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/larder/backend/internal/apierr"
	"github.com/pageza/larder/backend/internal/logger"
	"github.com/pageza/larder/backend/internal/models"
)

type UserService struct {
	db     *gorm.DB
	images *ImageService
	log    *logger.Logger
}

func NewUserService(db *gorm.DB, images *ImageService, log *logger.Logger) *UserService {
	return &UserService{db: db, images: images, log: log.With("service", "users")}
}

// Register creates an account. Emails are stored lower-cased so the unique
// index and the pre-check agree. Email and username clashes are reported as
// field errors, including ones only the unique indexes catch.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)

	fields, err := s.taken(ctx, email, username)
	if err != nil {
		return nil, err
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        email,
		Username:     username,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: string(hash),
		IsActive:     true,
	}
	err = s.db.WithContext(ctx).Session(&gorm.Session{SkipDefaultTransaction: true}).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, s.duplicate(ctx, email, username)
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered", "user_id", user.ID)
	return user, nil
}

// taken reports which of email and username already belong to a user.
func (s *UserService) taken(ctx context.Context, email, username string) (apierr.FieldErrors, error) {
	fields := apierr.FieldErrors{}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		fields.Add("email", "a user with that email already exists")
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		fields.Add("username", "a user with that username already exists")
	}
	return fields, nil
}

// duplicate maps a unique index violation from a concurrent registration
// back to the field that clashed.
func (s *UserService) duplicate(ctx context.Context, email, username string) error {
	fields, err := s.taken(ctx, email, username)
	if err != nil || len(fields) == 0 {
		s.log.Warn("duplicate user without a matching row", "error", err)
		fields = apierr.FieldErrors{}
		fields.Add("email", "a user with that email or username already exists")
		fields.Add("username", "a user with that email or username already exists")
	}
	return fields.Err()
}

func (s *UserService) List(ctx context.Context, page Page) ([]models.User, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.User{}).Where("is_active = ?", true).Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	if err := q.Order("username").Offset(page.Offset()).Limit(page.Size).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.NotFound("user")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetAvatar stores img and points the user at it, removing the previous
// avatar once the row is updated.
func (s *UserService) SetAvatar(ctx context.Context, userID uuid.UUID, img *Image) (*models.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := ValidateImagePresent(img); err != nil {
		return nil, apierr.FieldInvalid("avatar", "is required")
	}
	key, err := s.images.Save(ctx, "avatars", img)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("avatar", key).Error; err != nil {
		s.images.Discard(ctx, key)
		return nil, err
	}
	old := user.Avatar
	user.Avatar = key
	s.images.Discard(ctx, old)
	return user, nil
}

func (s *UserService) RemoveAvatar(ctx context.Context, userID uuid.UUID) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.Avatar == "" {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(user).Update("avatar", "").Error; err != nil {
		return err
	}
	s.images.Discard(ctx, user.Avatar)
	return nil
}

// Delete removes an account after checking its password. The user's
// recipes stay, without an author; their relation rows go.
func (s *UserService) Delete(ctx context.Context, userID uuid.UUID, password string) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return apierr.FieldInvalid("current_password", "is incorrect")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Recipe{}).Where("author_id = ?", userID).Update("author_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.ShoppingListEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? OR author_id = ?", userID, userID).Delete(&models.Subscription{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, "id = ?", userID).Error
	})
	if err != nil {
		return err
	}
	s.images.Discard(ctx, user.Avatar)
	s.log.Info("user deleted", "user_id", userID)
	return nil
}

// Subscriptions lists the authors userID follows, ordered by username.
func (s *UserService) Subscriptions(ctx context.Context, userID uuid.UUID, page Page) ([]models.User, int64, error) {
	followed := s.db.Model(&models.Subscription{}).Select("author_id").Where("user_id = ?", userID)
	q := s.db.WithContext(ctx).Model(&models.User{}).Where("id IN (?)", followed).Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	if err := q.Order("username").Offset(page.Offset()).Limit(page.Size).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
