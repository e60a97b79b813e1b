package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vintagebeauty/storefront-backend/internal/app/model"
	"github.com/vintagebeauty/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	// FindByEmail matches case-insensitively; stored emails are lowercase.
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateProfile(ctx context.Context, id uint, name, phone string) error
	RecordLogin(ctx context.Context, id uint, at time.Time) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			logger.Error("Failed to create user", err, logger.Fields{
				"email": user.Email,
			})
		}
		return err
	}

	logger.Debug("User created", logger.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	})
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find user by ID", err, logger.Fields{
				"user_id": id,
			})
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", email).
		First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find user by email", err, logger.Fields{
				"email": email,
			})
		}
		return nil, err
	}
	return &user, nil
}

// UpdateProfile writes only the contact columns so a concurrent role change
// is never overwritten.
func (r *userRepository) UpdateProfile(ctx context.Context, id uint, name, phone string) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Select("name", "phone").
		Updates(&model.User{Name: name, Phone: phone})
	if result.Error != nil {
		logger.Error("Failed to update user profile", result.Error, logger.Fields{
			"user_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) RecordLogin(ctx context.Context, id uint, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
	if err != nil {
		logger.Warn("Failed to record login time", logger.Fields{
			"user_id": id,
			"error":   err.Error(),
		})
	}
	return err
}
