package repository

import (
	"context"

	"github.com/pavra/push-dispatch/internal/audience"
	"gorm.io/gorm"
)

var _ audience.Directory = (*GormProfileRepo)(nil)

// GormProfileRepo resolves role-based audiences from the profiles table.
type GormProfileRepo struct {
	db *gorm.DB
}

func NewGormProfileRepo(db *gorm.DB) *GormProfileRepo {
	return &GormProfileRepo{db: db}
}

func (r *GormProfileRepo) UserIDsByRoles(ctx context.Context, roles []string) ([]string, error) {
	if len(roles) == 0 {
		return nil, nil
	}

	var ids []string
	err := r.db.WithContext(ctx).
		Model(&ProfileModel{}).
		Where("role IN ?", roles).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
