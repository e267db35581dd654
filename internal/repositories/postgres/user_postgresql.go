package postgres

import (
	"context"

	"github.com/certprep-labs/analysis-service/internal/models"
	"github.com/certprep-labs/analysis-service/internal/repositories"
	"gorm.io/gorm"
)

type UserPostgreSQL struct {
	db *gorm.DB
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{db: db}
}

func (u UserPostgreSQL) GetByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).
		Preload("Onboarding").
		First(&user, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
