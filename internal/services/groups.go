package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/photovault/backend/internal/config"
	"github.com/photovault/backend/internal/models"
	"github.com/photovault/backend/pkg/logger"
	"gorm.io/gorm"
)

// GroupService owns the group membership/ownership lifecycle and the
// shared-content authorization rules. Every mutating operation validates its
// preconditions in a fixed order and returns the first sentinel error it hits.
type GroupService struct {
	DB     *gorm.DB
	Config config.GroupsConfig
}

func NewGroupService(db *gorm.DB, cfg config.GroupsConfig) *GroupService {
	return &GroupService{DB: db, Config: cfg}
}

// Create inserts the group and the owner's member record in one transaction,
// so a group always has at least one active member from the moment it exists.
func (s *GroupService) Create(ctx context.Context, ownerID uuid.UUID, name string, description *string) (*models.Group, error) {
	group := models.Group{
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}

		member := models.GroupMember{
			GroupID:  group.ID,
			UserID:   ownerID,
			JoinedAt: time.Now().UTC(),
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, err
	}

	logger.InfoWithUser(ownerID.String(), "group_created", map[string]interface{}{
		"group_id":   group.ID.String(),
		"group_name": group.Name,
	})

	return &group, nil
}

// Get returns the group with its active members. Callers must be the owner or
// an active member.
func (s *GroupService) Get(ctx context.Context, groupID, callerID uuid.UUID) (*models.Group, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.IsPastDeletion(time.Now().UTC()) {
		return nil, ErrGroupDeleted
	}
	if err := s.requireMember(ctx, group, callerID); err != nil {
		return nil, err
	}

	if err := s.DB.WithContext(ctx).
		Preload("Members", "left_at IS NULL").
		Preload("Members.User").
		First(group, "id = ?", groupID).Error; err != nil {
		return nil, err
	}
	return group, nil
}

// ListForUser returns the groups the user is currently an active member of,
// excluding groups past their deletion deadline.
func (s *GroupService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Group, error) {
	now := time.Now().UTC()
	var groups []models.Group
	err := s.DB.WithContext(ctx).
		Model(&models.Group{}).
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ? AND group_members.left_at IS NULL", userID).
		Where("groups.deletion_process_date IS NULL OR groups.deletion_process_date > ?", now).
		Order("groups.created_at DESC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// AddMember invites a user, resolved by email, into the group. Only the owner
// may invite. Checks short-circuit in order: group exists, caller owns it,
// group not deleted, user exists, not already a member, member cap not hit.
func (s *GroupService) AddMember(ctx context.Context, groupID, callerID uuid.UUID, memberEmail string) (*models.GroupMember, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.OwnerID != callerID {
		return nil, ErrNotOwner
	}
	if group.IsPastDeletion(time.Now().UTC()) {
		return nil, ErrGroupDeleted
	}

	email := strings.ToLower(strings.TrimSpace(memberEmail))
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "LOWER(email) = ?", email).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var member models.GroupMember
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.GroupMember{}).
			Where("group_id = ? AND user_id = ? AND left_at IS NULL", groupID, user.ID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyAMember
		}

		var activeCount int64
		if err := tx.Model(&models.GroupMember{}).
			Where("group_id = ? AND left_at IS NULL", groupID).
			Count(&activeCount).Error; err != nil {
			return err
		}
		if activeCount >= int64(s.Config.MaxMembers) {
			return ErrGroupFull
		}

		member = models.GroupMember{
			GroupID:  groupID,
			UserID:   user.ID,
			JoinedAt: time.Now().UTC(),
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, err
	}

	logger.InfoWithUser(callerID.String(), "group_member_added", map[string]interface{}{
		"group_id":  groupID.String(),
		"member_id": user.ID.String(),
	})

	return &member, nil
}

// RemoveMember soft-removes a member and stamps the content-removal grace
// deadline. The owner cannot be removed; transfer ownership first.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, callerID, targetUserID uuid.UUID) error {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.OwnerID != callerID {
		return ErrNotOwner
	}
	now := time.Now().UTC()
	if group.IsPastDeletion(now) {
		return ErrGroupDeleted
	}

	member, err := s.activeMember(ctx, groupID, targetUserID)
	if err != nil {
		return err
	}
	if targetUserID == group.OwnerID {
		return ErrCannotRemoveOwner
	}

	if err := s.softLeave(ctx, member, now); err != nil {
		return err
	}

	logger.InfoWithUser(callerID.String(), "group_member_removed", map[string]interface{}{
		"group_id":  groupID.String(),
		"member_id": targetUserID.String(),
	})
	return nil
}

// Leave removes the caller from the group. A departing owner does not take
// the group down with other members still present; the group enters pending
// deletion with the owner row and OwnerID retained, so the owner can still
// transfer ownership (cancelling the schedule) before the deadline. A sole
// owner leaving deletes the group immediately.
func (s *GroupService) Leave(ctx context.Context, groupID, callerID uuid.UUID) error {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if group.IsPastDeletion(now) {
		return ErrGroupDeleted
	}

	member, err := s.activeMember(ctx, groupID, callerID)
	if err != nil {
		if err == ErrMemberNotFound {
			return ErrNotAMember
		}
		return err
	}

	if callerID != group.OwnerID {
		if err := s.softLeave(ctx, member, now); err != nil {
			return err
		}
		logger.InfoWithUser(callerID.String(), "group_left", map[string]interface{}{
			"group_id": groupID.String(),
		})
		return nil
	}

	var others int64
	if err := s.DB.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id != ? AND left_at IS NULL", groupID, callerID).
		Count(&others).Error; err != nil {
		return err
	}

	if others == 0 {
		if err := s.hardDelete(ctx, groupID); err != nil {
			return err
		}
		logger.InfoWithUser(callerID.String(), "group_deleted_on_owner_leave", map[string]interface{}{
			"group_id": groupID.String(),
		})
		return nil
	}

	processDate := now.AddDate(0, 0, s.Config.DeletionGraceDays)
	if err := s.DB.WithContext(ctx).Model(&models.Group{}).
		Where("id = ?", groupID).
		Updates(map[string]interface{}{
			"deletion_scheduled_at": now,
			"deletion_process_date": processDate,
		}).Error; err != nil {
		return err
	}

	logger.InfoWithUser(callerID.String(), "group_deletion_scheduled", map[string]interface{}{
		"group_id":     groupID.String(),
		"process_date": processDate,
	})
	return nil
}

// TransferOwnership reassigns the group to an active member and cancels any
// pending deletion; it is the recovery path for a group whose owner has left.
func (s *GroupService) TransferOwnership(ctx context.Context, groupID, callerID, newOwnerID uuid.UUID) (*models.GroupMember, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.OwnerID != callerID {
		return nil, ErrNotOwner
	}
	if group.IsPastDeletion(time.Now().UTC()) {
		return nil, ErrGroupDeleted
	}
	if newOwnerID == callerID {
		return nil, ErrCannotTransferSelf
	}

	member, err := s.activeMember(ctx, groupID, newOwnerID)
	if err != nil {
		if err == ErrMemberNotFound {
			return nil, ErrNotAMember
		}
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Model(&models.Group{}).
		Where("id = ?", groupID).
		Updates(map[string]interface{}{
			"owner_id":              newOwnerID,
			"deletion_scheduled_at": nil,
			"deletion_process_date": nil,
		}).Error; err != nil {
		return nil, err
	}

	logger.InfoWithUser(callerID.String(), "group_ownership_transferred", map[string]interface{}{
		"group_id":     groupID.String(),
		"new_owner_id": newOwnerID.String(),
	})
	return member, nil
}

// Delete removes the group immediately, pending deletion or not.
func (s *GroupService) Delete(ctx context.Context, groupID, callerID uuid.UUID) error {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.OwnerID != callerID {
		return ErrNotOwner
	}
	if group.IsPastDeletion(time.Now().UTC()) {
		return ErrGroupDeleted
	}

	if err := s.hardDelete(ctx, groupID); err != nil {
		return err
	}

	logger.InfoWithUser(callerID.String(), "group_deleted", map[string]interface{}{
		"group_id": groupID.String(),
	})
	return nil
}

// HardDelete removes the group row together with its member and shared
// content rows. It performs no authorization and exists for the sweeper.
func (s *GroupService) HardDelete(ctx context.Context, groupID uuid.UUID) error {
	return s.hardDelete(ctx, groupID)
}

func (s *GroupService) hardDelete(ctx context.Context, groupID uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupSharedContent{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Group{}, "id = ?", groupID).Error
	})
}

// SharePhoto shares a photo owned by the caller into the group. Re-sharing
// already-shared content is a no-op success.
func (s *GroupService) SharePhoto(ctx context.Context, groupID, callerID, photoID uuid.UUID) error {
	return s.shareContent(ctx, groupID, callerID, models.SharedContentPhoto, photoID)
}

func (s *GroupService) ShareAlbum(ctx context.Context, groupID, callerID, albumID uuid.UUID) error {
	return s.shareContent(ctx, groupID, callerID, models.SharedContentAlbum, albumID)
}

func (s *GroupService) shareContent(ctx context.Context, groupID, callerID uuid.UUID, contentType models.SharedContentType, contentID uuid.UUID) error {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if group.IsPastDeletion(now) {
		return ErrGroupDeleted
	}
	if err := s.requireMember(ctx, group, callerID); err != nil {
		return err
	}

	switch contentType {
	case models.SharedContentPhoto:
		var photo models.Photo
		if err := s.DB.WithContext(ctx).First(&photo, "id = ?", contentID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrPhotoNotFound
			}
			return err
		}
		if photo.OwnerID != callerID {
			return ErrUnauthorizedAccess
		}
	case models.SharedContentAlbum:
		var album models.Album
		if err := s.DB.WithContext(ctx).First(&album, "id = ?", contentID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrAlbumNotFound
			}
			return err
		}
		if album.OwnerID != callerID {
			return ErrUnauthorizedAccess
		}
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.GroupSharedContent{}).
			Where("group_id = ? AND content_type = ? AND removed_at IS NULL", groupID, contentType).
			Where(s.contentColumn(contentType)+" = ?", contentID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		row := models.GroupSharedContent{
			GroupID:     groupID,
			SharedByID:  callerID,
			ContentType: contentType,
			SharedAt:    now,
		}
		if contentType == models.SharedContentPhoto {
			row.PhotoID = &contentID
		} else {
			row.AlbumID = &contentID
		}
		return tx.Create(&row).Error
	})
}

// RemoveSharedPhoto soft-removes a photo from the group. The group owner or
// the original sharer may remove it; nobody else.
func (s *GroupService) RemoveSharedPhoto(ctx context.Context, groupID, callerID, photoID uuid.UUID) error {
	return s.removeContent(ctx, groupID, callerID, models.SharedContentPhoto, photoID)
}

func (s *GroupService) RemoveSharedAlbum(ctx context.Context, groupID, callerID, albumID uuid.UUID) error {
	return s.removeContent(ctx, groupID, callerID, models.SharedContentAlbum, albumID)
}

func (s *GroupService) removeContent(ctx context.Context, groupID, callerID uuid.UUID, contentType models.SharedContentType, contentID uuid.UUID) error {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if group.IsPastDeletion(now) {
		return ErrGroupDeleted
	}

	var row models.GroupSharedContent
	err = s.DB.WithContext(ctx).
		Where("group_id = ? AND content_type = ? AND removed_at IS NULL", groupID, contentType).
		Where(s.contentColumn(contentType)+" = ?", contentID).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrContentNotShared
		}
		return err
	}

	if callerID != group.OwnerID && callerID != row.SharedByID {
		return ErrUnauthorizedAccess
	}

	if err := s.DB.WithContext(ctx).Model(&models.GroupSharedContent{}).
		Where("id = ?", row.ID).
		Update("removed_at", now).Error; err != nil {
		return err
	}

	logger.InfoWithUser(callerID.String(), "group_content_removed", map[string]interface{}{
		"group_id":     groupID.String(),
		"content_type": string(contentType),
		"content_id":   contentID.String(),
	})
	return nil
}

// ListMembers returns the group's active members.
func (s *GroupService) ListMembers(ctx context.Context, groupID, callerID uuid.UUID) ([]models.GroupMember, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.IsPastDeletion(time.Now().UTC()) {
		return nil, ErrGroupDeleted
	}
	if err := s.requireMember(ctx, group, callerID); err != nil {
		return nil, err
	}

	var members []models.GroupMember
	err = s.DB.WithContext(ctx).
		Preload("User").
		Where("group_id = ? AND left_at IS NULL", groupID).
		Order("joined_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

// ListSharedContent returns the group's active shared content.
func (s *GroupService) ListSharedContent(ctx context.Context, groupID, callerID uuid.UUID) ([]models.GroupSharedContent, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.IsPastDeletion(time.Now().UTC()) {
		return nil, ErrGroupDeleted
	}
	if err := s.requireMember(ctx, group, callerID); err != nil {
		return nil, err
	}

	var rows []models.GroupSharedContent
	err = s.DB.WithContext(ctx).
		Preload("Photo").
		Preload("Album").
		Preload("SharedBy").
		Where("group_id = ? AND removed_at IS NULL", groupID).
		Order("shared_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// IsActiveMember reports whether the user has an active member row.
func (s *GroupService) IsActiveMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ? AND left_at IS NULL", groupID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GroupService) loadGroup(ctx context.Context, groupID uuid.UUID) (*models.Group, error) {
	var group models.Group
	if err := s.DB.WithContext(ctx).First(&group, "id = ?", groupID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return &group, nil
}

func (s *GroupService) activeMember(ctx context.Context, groupID, userID uuid.UUID) (*models.GroupMember, error) {
	var member models.GroupMember
	err := s.DB.WithContext(ctx).
		First(&member, "group_id = ? AND user_id = ? AND left_at IS NULL", groupID, userID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

func (s *GroupService) requireMember(ctx context.Context, group *models.Group, userID uuid.UUID) error {
	if group.OwnerID == userID {
		return nil
	}
	active, err := s.IsActiveMember(ctx, group.ID, userID)
	if err != nil {
		return err
	}
	if !active {
		return ErrNotAMember
	}
	return nil
}

func (s *GroupService) softLeave(ctx context.Context, member *models.GroupMember, now time.Time) error {
	removalDate := now.AddDate(0, 0, s.Config.MemberContentGraceDays)
	return s.DB.WithContext(ctx).Model(&models.GroupMember{}).
		Where("id = ?", member.ID).
		Updates(map[string]interface{}{
			"left_at":              now,
			"content_removal_date": removalDate,
		}).Error
}

func (s *GroupService) contentColumn(contentType models.SharedContentType) string {
	if contentType == models.SharedContentPhoto {
		return "photo_id"
	}
	return "album_id"
}
