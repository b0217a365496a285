package database

import (
	"fmt"

	"github.com/photovault/backend/internal/config"
	"github.com/photovault/backend/internal/models"
	"github.com/photovault/backend/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := applyConstraints(db); err != nil {
		return nil, err
	}

	if err := seedAdminUser(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Photo{},
		&models.Album{},
		&models.AlbumPhoto{},
		&models.Group{},
		&models.GroupMember{},
		&models.GroupSharedContent{},
		&models.ShareLink{},
		&models.AuditLog{},
	)
}

// applyConstraints adds the guards AutoMigrate cannot express: the
// photo/album exclusivity checks on tagged-union rows, and the partial unique
// index that makes concurrent AddMember calls for the same pair fail instead
// of racing past the membership check.
func applyConstraints(db *gorm.DB) error {
	statements := []string{
		`DO $$
BEGIN
  IF NOT EXISTS (
    SELECT 1 FROM pg_constraint WHERE conname = 'shared_content_target_check'
  ) THEN
    ALTER TABLE group_shared_contents
    ADD CONSTRAINT shared_content_target_check
    CHECK (
      (content_type = 'photo' AND photo_id IS NOT NULL AND album_id IS NULL)
      OR
      (content_type = 'album' AND album_id IS NOT NULL AND photo_id IS NULL)
    );
  END IF;
END $$;`,
		`DO $$
BEGIN
  IF NOT EXISTS (
    SELECT 1 FROM pg_constraint WHERE conname = 'share_link_target_check'
  ) THEN
    ALTER TABLE share_links
    ADD CONSTRAINT share_link_target_check
    CHECK (
      (type = 'photo' AND photo_id IS NOT NULL AND album_id IS NULL)
      OR
      (type = 'album' AND album_id IS NOT NULL AND photo_id IS NULL)
    );
  END IF;
END $$;`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_active_group_member
ON group_members (group_id, user_id)
WHERE left_at IS NULL;`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_active_shared_photo
ON group_shared_contents (group_id, photo_id)
WHERE removed_at IS NULL AND photo_id IS NOT NULL;`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_active_shared_album
ON group_shared_contents (group_id, album_id)
WHERE removed_at IS NULL AND album_id IS NOT NULL;`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword("admin123")
	if err != nil {
		return err
	}

	admin := models.User{
		Email:        "admin@photovault.local",
		PasswordHash: hash,
		FirstName:    "System",
		LastName:     "Admin",
		Role:         models.UserRoleAdmin,
	}

	return db.Create(&admin).Error
}
