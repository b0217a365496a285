package services

import (
	"context"
	"testing"
	"time"

	"github.com/photovault/backend/internal/models"
)

func TestSweeper_RunOnce(t *testing.T) {
	db := setupServiceTestDB(t)
	groups := NewGroupService(db, testGroupsConfig())
	sweeper := NewSweeper(db, groups, time.Hour)
	ctx := context.TODO()

	owner := createServiceUser(t, db, "sweep-owner@test.com")
	member := createServiceUser(t, db, "sweep-member@test.com")
	photo := createServicePhoto(t, db, member, "member.jpg")

	dueGroup, err := groups.Create(ctx, owner.ID, "Due", nil)
	if err != nil {
		t.Fatalf("failed creating due group: %v", err)
	}
	pendingGroup, err := groups.Create(ctx, owner.ID, "Still Pending", nil)
	if err != nil {
		t.Fatalf("failed creating pending group: %v", err)
	}
	liveGroup, err := groups.Create(ctx, owner.ID, "Live", nil)
	if err != nil {
		t.Fatalf("failed creating live group: %v", err)
	}
	if _, err := groups.AddMember(ctx, liveGroup.ID, owner.ID, member.Email); err != nil {
		t.Fatalf("failed adding member: %v", err)
	}
	if err := groups.SharePhoto(ctx, liveGroup.ID, member.ID, photo.ID); err != nil {
		t.Fatalf("failed sharing photo: %v", err)
	}

	now := time.Now().UTC()

	// The due group's deadline has passed; the pending one is still a day out.
	err = db.Model(&models.Group{}).Where("id = ?", dueGroup.ID).Updates(map[string]interface{}{
		"deletion_scheduled_at": now.AddDate(0, 0, -8),
		"deletion_process_date": now.Add(-time.Hour),
	}).Error
	if err != nil {
		t.Fatalf("failed backdating due group: %v", err)
	}
	err = db.Model(&models.Group{}).Where("id = ?", pendingGroup.ID).Updates(map[string]interface{}{
		"deletion_scheduled_at": now,
		"deletion_process_date": now.Add(24 * time.Hour),
	}).Error
	if err != nil {
		t.Fatalf("failed scheduling pending group: %v", err)
	}

	// Walk the member out of the live group and push the grace deadline into
	// the past so the sweep picks up their shared photo.
	if err := groups.RemoveMember(ctx, liveGroup.ID, owner.ID, member.ID); err != nil {
		t.Fatalf("failed removing member: %v", err)
	}
	err = db.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", liveGroup.ID, member.ID).
		Update("content_removal_date", now.Add(-time.Minute)).Error
	if err != nil {
		t.Fatalf("failed backdating grace deadline: %v", err)
	}

	stats, err := sweeper.RunOnce(ctx)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if stats.GroupsDeleted != 1 {
		t.Fatalf("expected 1 group deleted, got %d", stats.GroupsDeleted)
	}
	if stats.ContentRemoved != 1 {
		t.Fatalf("expected 1 shared item removed, got %d", stats.ContentRemoved)
	}

	var count int64
	db.Model(&models.Group{}).Where("id = ?", dueGroup.ID).Count(&count)
	if count != 0 {
		t.Fatal("expected due group row to be gone")
	}
	db.Model(&models.GroupMember{}).Where("group_id = ?", dueGroup.ID).Count(&count)
	if count != 0 {
		t.Fatal("expected due group member rows to be gone")
	}

	db.Model(&models.Group{}).Where("id = ?", pendingGroup.ID).Count(&count)
	if count != 1 {
		t.Fatal("expected pending group to survive the sweep")
	}

	var share models.GroupSharedContent
	if err := db.First(&share, "group_id = ? AND photo_id = ?", liveGroup.ID, photo.ID).Error; err != nil {
		t.Fatalf("failed reloading share row: %v", err)
	}
	if share.RemovedAt == nil {
		t.Fatal("expected departed member's share to be soft-removed")
	}

	// The member is marked processed, so a second pass is a no-op.
	stats, err = sweeper.RunOnce(ctx)
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if stats.GroupsDeleted != 0 || stats.ContentRemoved != 0 {
		t.Fatalf("expected idempotent second sweep, got %+v", stats)
	}
}
