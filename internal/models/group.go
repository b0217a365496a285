package models

import (
	"time"

	"github.com/google/uuid"
)

// Group deletion axis:
//
//	ACTIVE            deletion fields null
//	PENDING_DELETION  DeletionScheduledAt set, DeletionProcessDate in the future;
//	                  owner row and OwnerID are retained so the owner can still
//	                  transfer ownership (which cancels the schedule) or delete
//	PAST_DUE          DeletionProcessDate reached; every operation is rejected
//	                  until the sweeper hard-deletes the row
type Group struct {
	BaseModel
	Name                string     `json:"name" gorm:"type:varchar(150);not null"`
	Description         *string    `json:"description,omitempty" gorm:"type:text"`
	OwnerID             uuid.UUID  `json:"ownerID" gorm:"type:uuid;not null;index"`
	DeletionScheduledAt *time.Time `json:"deletionScheduledAt,omitempty"`
	DeletionProcessDate *time.Time `json:"deletionProcessDate,omitempty"`

	Owner   User          `json:"owner,omitempty" gorm:"foreignKey:OwnerID;references:ID"`
	Members []GroupMember `json:"members,omitempty" gorm:"foreignKey:GroupID"`
}

func (Group) TableName() string {
	return "groups"
}

func (g *Group) IsDeletionScheduled() bool {
	return g.DeletionScheduledAt != nil
}

// IsPastDeletion reports whether the scheduled deletion deadline has passed.
// Such a group is treated as deleted even though the sweeper has not removed
// the row yet.
func (g *Group) IsPastDeletion(now time.Time) bool {
	return g.DeletionProcessDate != nil && !now.Before(*g.DeletionProcessDate)
}
