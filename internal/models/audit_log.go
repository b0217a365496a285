package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog is append-only; it does not use BaseModel because audit rows are
// never updated.
type AuditLog struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID       *uuid.UUID `json:"userID,omitempty" gorm:"type:uuid;index"`
	Action       string     `json:"action" gorm:"type:varchar(50);not null;index"`
	ResourceType string     `json:"resourceType" gorm:"type:varchar(30);not null"`
	ResourceID   *uuid.UUID `json:"resourceID,omitempty" gorm:"type:uuid"`
	Details      JSONMap    `json:"details,omitempty" gorm:"type:text"`
	IPAddress    string     `json:"ipAddress" gorm:"type:varchar(45)"`
	RequestID    string     `json:"requestID" gorm:"type:varchar(64)"`
	CreatedAt    time.Time  `json:"createdAt" gorm:"index"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("unsupported audit details type")
	}
}
