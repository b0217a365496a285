package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/photovault/backend/internal/middleware"
	"github.com/photovault/backend/internal/models"
	"github.com/photovault/backend/internal/services"
	"github.com/photovault/backend/pkg/utils"
)

type ShareLinksHandler struct {
	Links *services.ShareLinkService
	Audit *services.AuditService
}

func NewShareLinksHandler(links *services.ShareLinkService, audit *services.AuditService) *ShareLinksHandler {
	return &ShareLinksHandler{Links: links, Audit: audit}
}

type createShareLinkRequest struct {
	Type          string     `json:"type"`
	PhotoID       *uuid.UUID `json:"photoID"`
	AlbumID       *uuid.UUID `json:"albumID"`
	ExpiresAt     *time.Time `json:"expiresAt"`
	Password      *string    `json:"password"`
	AllowDownload bool       `json:"allowDownload"`
}

func (h *ShareLinksHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createShareLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	params := services.CreateShareLinkParams{
		ExpiresAt:     req.ExpiresAt,
		Password:      req.Password,
		AllowDownload: req.AllowDownload,
	}
	switch models.ShareLinkType(req.Type) {
	case models.ShareLinkPhoto:
		if req.PhotoID == nil {
			return utils.Error(c, fiber.StatusBadRequest, "photoID is required for photo links")
		}
		params.Type = models.ShareLinkPhoto
		params.TargetID = *req.PhotoID
	case models.ShareLinkAlbum:
		if req.AlbumID == nil {
			return utils.Error(c, fiber.StatusBadRequest, "albumID is required for album links")
		}
		params.Type = models.ShareLinkAlbum
		params.TargetID = *req.AlbumID
	default:
		return utils.Error(c, fiber.StatusBadRequest, "type must be photo or album")
	}

	info, err := h.Links.Create(c.Context(), currentUser.ID, params)
	if err != nil {
		return serviceError(c, err)
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "sharelink.create",
		ResourceType: "share_link",
		ResourceID:   &info.ID,
		Details: map[string]interface{}{
			"type":      string(info.Type),
			"protected": info.HasPassword,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, info)
}

func (h *ShareLinksHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	links, err := h.Links.List(c.Context(), currentUser.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, links)
}

func (h *ShareLinksHandler) Revoke(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	linkID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid share link id")
	}

	if err := h.Links.Revoke(c.Context(), linkID, currentUser.ID); err != nil {
		return serviceError(c, err)
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "sharelink.revoke",
		ResourceType: "share_link",
		ResourceID:   &linkID,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "share link revoked"})
}
