package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	domainrepo "app/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userDataGormRepository struct {
	db *gorm.DB
}

// GORM実装
func NewUserDataRepository(db *gorm.DB) domainrepo.UserDataRepository {
	return &userDataGormRepository{db: db}
}

func (r *userDataGormRepository) Create(ctx context.Context, data *model.UserData) error {
	if err := r.db.WithContext(ctx).Create(data).Error; err != nil {
		return err
	}
	return nil
}

func (r *userDataGormRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*model.UserData, error) {
	var data model.UserData

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&data).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainrepo.ErrUserDataNotFound
		}
		return nil, err
	}

	return &data, nil
}

func (r *userDataGormRepository) Update(ctx context.Context, data *model.UserData) error {
	if err := r.db.WithContext(ctx).Save(data).Error; err != nil {
		return err
	}
	return nil
}
