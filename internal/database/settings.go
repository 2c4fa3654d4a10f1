package database

import (
	"gorm.io/gorm"

	"github.com/edusentry/proctor_backend_v1/internal/models"
)

// AppConfigStore reads override values from the app_configs table. Each
// lookup uses a fresh record; gorm carries a populated primary key into the
// next query's conditions otherwise.
type AppConfigStore struct {
	DB *gorm.DB
}

func (s AppConfigStore) Value(key string) (string, bool) {
	var row models.AppConfig
	if err := s.DB.Where("key = ?", key).First(&row).Error; err != nil {
		return "", false
	}
	if row.Value == "" {
		return "", false
	}
	return row.Value, true
}
