package models

import "github.com/google/uuid"

type Photo struct {
	BaseModel
	OwnerID       uuid.UUID `json:"ownerID" gorm:"type:uuid;not null;index"`
	FileName      string    `json:"fileName" gorm:"type:varchar(255);not null"`
	MimeType      string    `json:"mimeType" gorm:"type:varchar(255);not null"`
	Size          int64     `json:"size" gorm:"not null;default:0"`
	StoragePath   string    `json:"-" gorm:"type:text;not null"`
	ThumbnailPath *string   `json:"-" gorm:"type:text"`

	Owner User `json:"owner,omitempty" gorm:"foreignKey:OwnerID;references:ID"`
}

func (Photo) TableName() string {
	return "photos"
}
