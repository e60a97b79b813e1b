package db

import (
	"errors"
	"strings"

	"github.com/vintagebeauty/storefront-backend/config"
	"github.com/vintagebeauty/storefront-backend/internal/app/model"
	"github.com/vintagebeauty/storefront-backend/internal/app/pricing"
	"github.com/vintagebeauty/storefront-backend/pkg/logger"
	"github.com/vintagebeauty/storefront-backend/pkg/util"
	"gorm.io/gorm"
)

// defaultCategories are created on first start so the admin can add products right away.
var defaultCategories = []string{
	"Perfumes",
	"Attars",
	"Body Mists",
	"Skincare",
	"Makeup",
	"Gift Sets",
}

// Models lists every persisted entity in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Category{},
		&model.Product{},
		&model.HeroSlide{},
		&model.Order{},
		&model.OrderItem{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// Seed creates the admin account and the default categories when they are missing.
func Seed(database *gorm.DB, admin config.AdminConfig) error {
	logger.Info("Seeding initial data...")

	if err := seedAdmin(database, admin); err != nil {
		logger.Error("Failed to seed admin user", err)
		return err
	}

	if err := seedCategories(database); err != nil {
		logger.Error("Failed to seed categories", err)
		return err
	}

	logger.Info("Initial data seeded successfully")
	return nil
}

func seedAdmin(database *gorm.DB, admin config.AdminConfig) error {
	if admin.Email == "" || admin.Password == "" {
		logger.Warn("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin seeding")
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(admin.Email))

	var existing model.User
	err := database.Where("email = ?", email).First(&existing).Error
	if err == nil {
		if !existing.IsAdmin() {
			logger.Info("Promoting existing user to admin", map[string]interface{}{
				"user_id": existing.ID,
				"email":   email,
			})
			return database.Model(&existing).Update("role", model.RoleAdmin).Error
		}
		logger.Debug("Admin user already exists, skipping...", map[string]interface{}{
			"email": email,
		})
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := util.HashPassword(admin.Password)
	if err != nil {
		return err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         admin.Name,
		Role:         model.RoleAdmin,
	}
	if err := database.Create(user).Error; err != nil {
		return err
	}

	logger.Info("Admin user seeded", map[string]interface{}{
		"user_id": user.ID,
		"email":   email,
	})
	return nil
}

func seedCategories(database *gorm.DB) error {
	var count int64
	if err := database.Model(&model.Category{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		logger.Info("Categories already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	for _, name := range defaultCategories {
		category := model.Category{
			Name:     name,
			Slug:     pricing.Slugify(name),
			IsActive: true,
		}
		if err := database.Create(&category).Error; err != nil {
			logger.Error("Failed to create category", err, map[string]interface{}{
				"category": name,
			})
			return err
		}
	}

	logger.Info("Categories seeded successfully", map[string]interface{}{
		"total_categories": len(defaultCategories),
	})
	return nil
}
