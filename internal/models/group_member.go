package models

import (
	"time"

	"github.com/google/uuid"
)

// GroupMember rows are never hard-deleted while their group exists. Leaving or
// being removed sets LeftAt plus a ContentRemovalDate grace deadline; the
// sweeper soft-removes the member's shared content once that deadline passes.
type GroupMember struct {
	BaseModel
	GroupID            uuid.UUID  `json:"groupID" gorm:"type:uuid;not null;index"`
	UserID             uuid.UUID  `json:"userID" gorm:"type:uuid;not null;index"`
	JoinedAt           time.Time  `json:"joinedAt" gorm:"not null"`
	LeftAt             *time.Time `json:"leftAt,omitempty"`
	ContentRemovalDate *time.Time `json:"contentRemovalDate,omitempty"`

	Group Group `json:"-" gorm:"foreignKey:GroupID;references:ID"`
	User  User  `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID"`
}

func (GroupMember) TableName() string {
	return "group_members"
}

func (m *GroupMember) IsActive() bool {
	return m.LeftAt == nil
}

func (m *GroupMember) IsInGracePeriod(now time.Time) bool {
	return m.LeftAt != nil && m.ContentRemovalDate != nil && now.Before(*m.ContentRemovalDate)
}
