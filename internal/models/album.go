package models

import (
	"time"

	"github.com/google/uuid"
)

type Album struct {
	BaseModel
	OwnerID     uuid.UUID `json:"ownerID" gorm:"type:uuid;not null;index"`
	Name        string    `json:"name" gorm:"type:varchar(150);not null"`
	Description *string   `json:"description,omitempty" gorm:"type:text"`

	Owner  User         `json:"owner,omitempty" gorm:"foreignKey:OwnerID;references:ID"`
	Photos []AlbumPhoto `json:"photos,omitempty" gorm:"foreignKey:AlbumID"`
}

func (Album) TableName() string {
	return "albums"
}

// AlbumPhoto places a photo inside an album at an explicit position. Album
// views and public share-link access both list photos ordered by SortOrder.
type AlbumPhoto struct {
	BaseModel
	AlbumID   uuid.UUID `json:"albumID" gorm:"type:uuid;not null;index;uniqueIndex:idx_album_photo"`
	PhotoID   uuid.UUID `json:"photoID" gorm:"type:uuid;not null;index;uniqueIndex:idx_album_photo"`
	SortOrder int       `json:"sortOrder" gorm:"not null;default:0"`
	AddedAt   time.Time `json:"addedAt" gorm:"not null"`

	Album Album `json:"-" gorm:"foreignKey:AlbumID;references:ID"`
	Photo Photo `json:"photo,omitempty" gorm:"foreignKey:PhotoID;references:ID"`
}

func (AlbumPhoto) TableName() string {
	return "album_photos"
}
