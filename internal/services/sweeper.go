package services

import (
	"context"
	"time"

	"github.com/photovault/backend/internal/models"
	"github.com/photovault/backend/pkg/logger"
	"gorm.io/gorm"
)

// Sweeper executes the deferred work the core only records as timestamps:
// groups whose deletion deadline has passed are hard-deleted, and shared
// content of departed members is soft-removed once the member's grace window
// closes. It runs on a ticker and consumes the same service/storage layer as
// the request path.
type Sweeper struct {
	DB       *gorm.DB
	Groups   *GroupService
	Interval time.Duration
}

func NewSweeper(db *gorm.DB, groups *GroupService, interval time.Duration) *Sweeper {
	return &Sweeper{DB: db, Groups: groups, Interval: interval}
}

type SweepStats struct {
	GroupsDeleted  int
	ContentRemoved int
}

// Run blocks until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := s.RunOnce(ctx)
			if err != nil {
				logger.Error("sweep_failed", err, nil)
				continue
			}
			if stats.GroupsDeleted > 0 || stats.ContentRemoved > 0 {
				logger.Info("sweep_completed", map[string]interface{}{
					"groups_deleted":  stats.GroupsDeleted,
					"content_removed": stats.ContentRemoved,
				})
			}
		}
	}
}

// RunOnce performs a single sweep pass.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepStats, error) {
	var stats SweepStats
	now := time.Now().UTC()

	var dueGroups []models.Group
	if err := s.DB.WithContext(ctx).
		Where("deletion_process_date IS NOT NULL AND deletion_process_date <= ?", now).
		Find(&dueGroups).Error; err != nil {
		return stats, err
	}
	for i := range dueGroups {
		if err := s.Groups.HardDelete(ctx, dueGroups[i].ID); err != nil {
			return stats, err
		}
		stats.GroupsDeleted++
	}

	var dueMembers []models.GroupMember
	if err := s.DB.WithContext(ctx).
		Where("left_at IS NOT NULL AND content_removal_date IS NOT NULL AND content_removal_date <= ?", now).
		Find(&dueMembers).Error; err != nil {
		return stats, err
	}

	for i := range dueMembers {
		member := &dueMembers[i]
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			result := tx.Model(&models.GroupSharedContent{}).
				Where("group_id = ? AND shared_by_id = ? AND removed_at IS NULL", member.GroupID, member.UserID).
				Update("removed_at", now)
			if result.Error != nil {
				return result.Error
			}
			stats.ContentRemoved += int(result.RowsAffected)

			// Clearing the deadline marks the member as processed.
			return tx.Model(&models.GroupMember{}).
				Where("id = ?", member.ID).
				Update("content_removal_date", nil).Error
		})
		if err != nil {
			return stats, err
		}
	}

	return stats, nil
}
