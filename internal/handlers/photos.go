package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/photovault/backend/internal/middleware"
	"github.com/photovault/backend/internal/models"
	"github.com/photovault/backend/internal/services"
	"github.com/photovault/backend/internal/storage"
	"github.com/photovault/backend/pkg/logger"
	"github.com/photovault/backend/pkg/utils"
	"gorm.io/gorm"
)

type PhotosHandler struct {
	DB      *gorm.DB
	Storage *storage.MinIOClient
	Audit   *services.AuditService
}

func NewPhotosHandler(db *gorm.DB, storageClient *storage.MinIOClient, audit *services.AuditService) *PhotosHandler {
	return &PhotosHandler{DB: db, Storage: storageClient, Audit: audit}
}

func (h *PhotosHandler) Upload(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "file is required")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return utils.Error(c, fiber.StatusBadRequest, "only image uploads are accepted")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed reading upload")
	}
	defer src.Close()

	photoID := uuid.New()
	storagePath := fmt.Sprintf("photos/%s/%s", currentUser.ID, photoID)

	if err := h.Storage.Upload(c.Context(), storagePath, src, fileHeader.Size, contentType); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed storing photo")
	}

	photo := models.Photo{
		BaseModel:   models.BaseModel{ID: photoID},
		OwnerID:     currentUser.ID,
		FileName:    fileHeader.Filename,
		MimeType:    contentType,
		Size:        fileHeader.Size,
		StoragePath: storagePath,
	}
	if err := h.DB.Create(&photo).Error; err != nil {
		_ = h.Storage.Delete(c.Context(), storagePath)
		return utils.Error(c, fiber.StatusInternalServerError, "failed saving photo")
	}

	logger.InfoWithUser(currentUser.ID.String(), "photo_uploaded", map[string]interface{}{
		"photo_id": photo.ID.String(),
		"size":     photo.Size,
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "photo.upload",
		ResourceType: "photo",
		ResourceID:   &photo.ID,
		Details: map[string]interface{}{
			"file_name": photo.FileName,
			"size":      photo.Size,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, photo)
}

func (h *PhotosHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	p := utils.ParsePagination(c)
	baseQuery := h.DB.Model(&models.Photo{}).Where("owner_id = ?", currentUser.ID)

	var total int64
	if err := baseQuery.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting photos")
	}

	var photos []models.Photo
	if err := utils.ApplyPagination(baseQuery.Order("created_at DESC"), p).Find(&photos).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading photos")
	}

	return utils.Paginated(c, photos, p.Page, p.Limit, total)
}

func (h *PhotosHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	photo, errResp := h.ownedPhoto(c, currentUser.ID)
	if photo == nil {
		return errResp
	}
	return utils.Success(c, fiber.StatusOK, photo)
}

func (h *PhotosHandler) Download(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	photo, errResp := h.ownedPhoto(c, currentUser.ID)
	if photo == nil {
		return errResp
	}

	return streamPhoto(c, h.Storage, photo, photo.StoragePath, true)
}

func (h *PhotosHandler) Thumbnail(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	photo, errResp := h.ownedPhoto(c, currentUser.ID)
	if photo == nil {
		return errResp
	}

	path := photo.StoragePath
	if photo.ThumbnailPath != nil && *photo.ThumbnailPath != "" {
		path = *photo.ThumbnailPath
	}
	return streamPhoto(c, h.Storage, photo, path, false)
}

func (h *PhotosHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	photo, errResp := h.ownedPhoto(c, currentUser.ID)
	if photo == nil {
		return errResp
	}

	// Share links and group shares pointing at the photo are retired in the
	// same transaction.
	now := time.Now().UTC()
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("photo_id = ?", photo.ID).Delete(&models.AlbumPhoto{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.ShareLink{}).
			Where("photo_id = ? AND revoked_at IS NULL", photo.ID).
			Update("revoked_at", now).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.GroupSharedContent{}).
			Where("photo_id = ? AND removed_at IS NULL", photo.ID).
			Update("removed_at", now).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Photo{}, "id = ?", photo.ID).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting photo")
	}

	if photo.StoragePath != "" {
		if err := h.Storage.Delete(c.Context(), photo.StoragePath); err == nil {
			if photo.ThumbnailPath != nil && *photo.ThumbnailPath != "" {
				_ = h.Storage.Delete(c.Context(), *photo.ThumbnailPath)
			}
		}
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "photo.delete",
		ResourceType: "photo",
		ResourceID:   &photo.ID,
		Details: map[string]interface{}{
			"file_name": photo.FileName,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "photo deleted"})
}

// ownedPhoto loads the :id photo and enforces ownership. On failure it writes
// the response and returns nil for the photo.
func (h *PhotosHandler) ownedPhoto(c *fiber.Ctx, ownerID uuid.UUID) (*models.Photo, error) {
	photoID, err := parseUUID(c.Params("id"))
	if err != nil {
		return nil, utils.Error(c, fiber.StatusBadRequest, "invalid photo id")
	}

	var photo models.Photo
	if err := h.DB.First(&photo, "id = ?", photoID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.Error(c, fiber.StatusNotFound, "photo not found")
		}
		return nil, utils.Error(c, fiber.StatusInternalServerError, "failed loading photo")
	}
	if photo.OwnerID != ownerID {
		return nil, utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}
	return &photo, nil
}

func streamPhoto(c *fiber.Ctx, storageClient *storage.MinIOClient, photo *models.Photo, objectPath string, attachment bool) error {
	obj, err := storageClient.Download(c.Context(), objectPath)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed downloading photo")
	}

	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return utils.Error(c, fiber.StatusInternalServerError, "failed reading object metadata")
	}

	contentType := stat.ContentType
	if contentType == "" {
		contentType = photo.MimeType
	}

	c.Set("Content-Type", contentType)
	if attachment {
		c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", photo.FileName))
	}
	return c.SendStream(obj, int(stat.Size))
}
