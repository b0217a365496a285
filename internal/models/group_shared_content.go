package models

import (
	"time"

	"github.com/google/uuid"
)

type SharedContentType string

const (
	SharedContentPhoto SharedContentType = "photo"
	SharedContentAlbum SharedContentType = "album"
)

// GroupSharedContent records a member sharing one of their own photos or
// albums into a group. Exactly one of PhotoID/AlbumID is set, matching
// ContentType; the database enforces this with a check constraint. Removal is
// always a soft-remove so the sharing history survives.
type GroupSharedContent struct {
	BaseModel
	GroupID     uuid.UUID         `json:"groupID" gorm:"type:uuid;not null;index"`
	SharedByID  uuid.UUID         `json:"sharedByID" gorm:"type:uuid;not null;index"`
	ContentType SharedContentType `json:"contentType" gorm:"type:varchar(10);not null"`
	PhotoID     *uuid.UUID        `json:"photoID,omitempty" gorm:"type:uuid;index"`
	AlbumID     *uuid.UUID        `json:"albumID,omitempty" gorm:"type:uuid;index"`
	SharedAt    time.Time         `json:"sharedAt" gorm:"not null"`
	RemovedAt   *time.Time        `json:"removedAt,omitempty"`

	Group    Group  `json:"-" gorm:"foreignKey:GroupID;references:ID"`
	SharedBy User   `json:"sharedBy,omitempty" gorm:"foreignKey:SharedByID;references:ID"`
	Photo    *Photo `json:"photo,omitempty" gorm:"foreignKey:PhotoID;references:ID"`
	Album    *Album `json:"album,omitempty" gorm:"foreignKey:AlbumID;references:ID"`
}

func (GroupSharedContent) TableName() string {
	return "group_shared_contents"
}

func (c *GroupSharedContent) IsActive() bool {
	return c.RemovedAt == nil
}

// ContentID returns the ID of whichever target the row points at.
func (c *GroupSharedContent) ContentID() uuid.UUID {
	if c.ContentType == SharedContentPhoto && c.PhotoID != nil {
		return *c.PhotoID
	}
	if c.AlbumID != nil {
		return *c.AlbumID
	}
	return uuid.Nil
}
