package models

import (
	"time"

	"github.com/google/uuid"
)

type ShareLinkType string

const (
	ShareLinkPhoto ShareLinkType = "photo"
	ShareLinkAlbum ShareLinkType = "album"
)

// ShareLink grants anonymous access to one photo or one album through an
// opaque bearer token. Revocation is logical; the row is retained. The token
// and password hash never appear in API responses except the token to its
// creator.
type ShareLink struct {
	BaseModel
	Token         string        `json:"token" gorm:"type:varchar(64);uniqueIndex;not null"`
	UserID        uuid.UUID     `json:"userID" gorm:"type:uuid;not null;index"`
	Type          ShareLinkType `json:"type" gorm:"type:varchar(10);not null"`
	PhotoID       *uuid.UUID    `json:"photoID,omitempty" gorm:"type:uuid;index"`
	AlbumID       *uuid.UUID    `json:"albumID,omitempty" gorm:"type:uuid;index"`
	PasswordHash  *string       `json:"-" gorm:"type:text"`
	ExpiresAt     *time.Time    `json:"expiresAt,omitempty"`
	AllowDownload bool          `json:"allowDownload" gorm:"not null;default:false"`
	RevokedAt     *time.Time    `json:"revokedAt,omitempty"`

	User  User   `json:"-" gorm:"foreignKey:UserID;references:ID"`
	Photo *Photo `json:"photo,omitempty" gorm:"foreignKey:PhotoID;references:ID"`
	Album *Album `json:"album,omitempty" gorm:"foreignKey:AlbumID;references:ID"`
}

func (ShareLink) TableName() string {
	return "share_links"
}

func (l *ShareLink) HasPassword() bool {
	return l.PasswordHash != nil && *l.PasswordHash != ""
}

func (l *ShareLink) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

func (l *ShareLink) IsActive(now time.Time) bool {
	return l.RevokedAt == nil && !l.IsExpired(now)
}
