package handlers

import (
	"database/sql"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/photovault/backend/internal/middleware"
	"github.com/photovault/backend/internal/models"
	"github.com/photovault/backend/pkg/utils"
	"gorm.io/gorm"
)

type AlbumsHandler struct {
	DB *gorm.DB
}

func NewAlbumsHandler(db *gorm.DB) *AlbumsHandler {
	return &AlbumsHandler{DB: db}
}

type createAlbumRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (h *AlbumsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createAlbumRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}

	album := models.Album{
		OwnerID:     currentUser.ID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.DB.Create(&album).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating album")
	}

	return utils.Success(c, fiber.StatusCreated, album)
}

func (h *AlbumsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var albums []models.Album
	if err := h.DB.
		Where("owner_id = ?", currentUser.ID).
		Order("created_at DESC").
		Find(&albums).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading albums")
	}

	return utils.Success(c, fiber.StatusOK, albums)
}

func (h *AlbumsHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	album, errResp := h.ownedAlbum(c, currentUser.ID)
	if album == nil {
		return errResp
	}

	var entries []models.AlbumPhoto
	if err := h.DB.
		Preload("Photo").
		Where("album_id = ?", album.ID).
		Order("sort_order ASC").
		Find(&entries).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading album photos")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"album":  album,
		"photos": entries,
	})
}

func (h *AlbumsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	album, errResp := h.ownedAlbum(c, currentUser.ID)
	if album == nil {
		return errResp
	}

	now := time.Now().UTC()
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("album_id = ?", album.ID).Delete(&models.AlbumPhoto{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.ShareLink{}).
			Where("album_id = ? AND revoked_at IS NULL", album.ID).
			Update("revoked_at", now).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.GroupSharedContent{}).
			Where("album_id = ? AND removed_at IS NULL", album.ID).
			Update("removed_at", now).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Album{}, "id = ?", album.ID).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting album")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "album deleted"})
}

type addAlbumPhotoRequest struct {
	SortOrder *int `json:"sortOrder"`
}

func (h *AlbumsHandler) AddPhoto(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	album, errResp := h.ownedAlbum(c, currentUser.ID)
	if album == nil {
		return errResp
	}

	photoID, err := parseUUID(c.Params("photoId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid photo id")
	}

	var req addAlbumPhotoRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	var photo models.Photo
	if err := h.DB.First(&photo, "id = ?", photoID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "photo not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading photo")
	}
	if photo.OwnerID != currentUser.ID {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	sortOrder := 0
	if req.SortOrder != nil {
		sortOrder = *req.SortOrder
	} else {
		// Append to the end when no explicit position is given.
		var max sql.NullInt64
		row := h.DB.Model(&models.AlbumPhoto{}).
			Where("album_id = ?", album.ID).
			Select("MAX(sort_order)").
			Row()
		if err := row.Scan(&max); err == nil && max.Valid {
			sortOrder = int(max.Int64) + 1
		}
	}

	entry := models.AlbumPhoto{
		AlbumID:   album.ID,
		PhotoID:   photo.ID,
		SortOrder: sortOrder,
		AddedAt:   time.Now().UTC(),
	}
	if err := h.DB.Create(&entry).Error; err != nil {
		return utils.Error(c, fiber.StatusConflict, "photo is already in the album")
	}

	return utils.Success(c, fiber.StatusCreated, entry)
}

func (h *AlbumsHandler) RemovePhoto(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	album, errResp := h.ownedAlbum(c, currentUser.ID)
	if album == nil {
		return errResp
	}

	photoID, err := parseUUID(c.Params("photoId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid photo id")
	}

	result := h.DB.Where("album_id = ? AND photo_id = ?", album.ID, photoID).Delete(&models.AlbumPhoto{})
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed removing photo from album")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "photo is not in the album")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "photo removed from album"})
}

func (h *AlbumsHandler) ownedAlbum(c *fiber.Ctx, ownerID uuid.UUID) (*models.Album, error) {
	albumID, err := parseUUID(c.Params("id"))
	if err != nil {
		return nil, utils.Error(c, fiber.StatusBadRequest, "invalid album id")
	}

	var album models.Album
	if err := h.DB.First(&album, "id = ?", albumID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.Error(c, fiber.StatusNotFound, "album not found")
		}
		return nil, utils.Error(c, fiber.StatusInternalServerError, "failed loading album")
	}
	if album.OwnerID != ownerID {
		return nil, utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}
	return &album, nil
}
