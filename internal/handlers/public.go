package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/photovault/backend/internal/services"
	"github.com/photovault/backend/internal/storage"
	"github.com/photovault/backend/pkg/utils"
)

// PublicHandler serves the unauthenticated /shared surface. Every request
// carries the token in the path; link state is re-checked on each call.
type PublicHandler struct {
	Links   *services.ShareLinkService
	Storage *storage.MinIOClient
	Audit   *services.AuditService
}

func NewPublicHandler(links *services.ShareLinkService, storageClient *storage.MinIOClient, audit *services.AuditService) *PublicHandler {
	return &PublicHandler{Links: links, Storage: storageClient, Audit: audit}
}

func (h *PublicHandler) Metadata(c *fiber.Ctx) error {
	meta, err := h.Links.Metadata(c.Context(), c.Params("token"))
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, meta)
}

type accessRequest struct {
	Password *string `json:"password"`
}

func (h *PublicHandler) Access(c *fiber.Ctx) error {
	var req accessRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	content, err := h.Links.Access(c.Context(), c.Params("token"), req.Password)
	if err != nil {
		return serviceError(c, err)
	}

	h.Audit.LogAsync(services.AuditEntry{
		Action:       "sharelink.access",
		ResourceType: "share_link",
		Details:      map[string]interface{}{"type": string(content.Type)},
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, content)
}

func (h *PublicHandler) Thumbnail(c *fiber.Ctx) error {
	return h.servePhoto(c, false)
}

func (h *PublicHandler) File(c *fiber.Ctx) error {
	return h.servePhoto(c, true)
}

func (h *PublicHandler) servePhoto(c *fiber.Ctx, original bool) error {
	photoID, err := parseUUID(c.Params("photoId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid photo id")
	}

	photo, err := h.Links.AuthorizePhoto(c.Context(), c.Params("token"), headerPassword(c), photoID, original)
	if err != nil {
		return serviceError(c, err)
	}

	if original {
		return streamPhoto(c, h.Storage, photo, photo.StoragePath, true)
	}

	path := photo.StoragePath
	if photo.ThumbnailPath != nil && *photo.ThumbnailPath != "" {
		path = *photo.ThumbnailPath
	}
	return streamPhoto(c, h.Storage, photo, path, false)
}

// headerPassword reads the link password from X-Share-Password so image GETs
// can be gated without a body.
func headerPassword(c *fiber.Ctx) *string {
	if v := c.Get("X-Share-Password"); v != "" {
		return &v
	}
	return nil
}
