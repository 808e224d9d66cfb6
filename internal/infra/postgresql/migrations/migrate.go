package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/pavra/push-dispatch/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_notifications",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.NotificationModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_notifications_status ON notifications (status)`,
					`CREATE INDEX IF NOT EXISTS idx_notifications_status_created ON notifications (status, created_at)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.NotificationModel{})
			},
		},
		{
			ID: "000002_create_profiles",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&repository.ProfileModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.ProfileModel{})
			},
		},
	})

	return m.Migrate()
}
