package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/photovault/backend/internal/middleware"
	"github.com/photovault/backend/internal/models"
	"github.com/photovault/backend/internal/services"
	"github.com/photovault/backend/pkg/utils"
)

type GroupsHandler struct {
	Groups *services.GroupService
	Audit  *services.AuditService
}

func NewGroupsHandler(groups *services.GroupService, audit *services.AuditService) *GroupsHandler {
	return &GroupsHandler{Groups: groups, Audit: audit}
}

type createGroupRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (h *GroupsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}

	group, err := h.Groups.Create(c.Context(), currentUser.ID, req.Name, req.Description)
	if err != nil {
		return serviceError(c, err)
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "group.create",
		ResourceType: "group",
		ResourceID:   &group.ID,
		Details:      map[string]interface{}{"group_name": group.Name},
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, group)
}

func (h *GroupsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groups, err := h.Groups.ListForUser(c.Context(), currentUser.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, groups)
}

func (h *GroupsHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	group, err := h.Groups.Get(c.Context(), groupID, currentUser.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, group)
}

func (h *GroupsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	if err := h.Groups.Delete(c.Context(), groupID, currentUser.ID); err != nil {
		return serviceError(c, err)
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "group.delete",
		ResourceType: "group",
		ResourceID:   &groupID,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "group deleted"})
}

type addMemberRequest struct {
	Email string `json:"email"`
}

func (h *GroupsHandler) AddMember(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	var req addMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" {
		return utils.Error(c, fiber.StatusBadRequest, "email is required")
	}

	member, err := h.Groups.AddMember(c.Context(), groupID, currentUser.ID, req.Email)
	if err != nil {
		return serviceError(c, err)
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "group.member_add",
		ResourceType: "group",
		ResourceID:   &groupID,
		Details:      map[string]interface{}{"member_id": member.UserID.String()},
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, member)
}

func (h *GroupsHandler) RemoveMember(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}
	targetUserID, err := parseUUID(c.Params("userId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	if err := h.Groups.RemoveMember(c.Context(), groupID, currentUser.ID, targetUserID); err != nil {
		return serviceError(c, err)
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "group.member_remove",
		ResourceType: "group",
		ResourceID:   &groupID,
		Details:      map[string]interface{}{"member_id": targetUserID.String()},
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "member removed"})
}

func (h *GroupsHandler) Leave(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	if err := h.Groups.Leave(c.Context(), groupID, currentUser.ID); err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "left group"})
}

type transferOwnershipRequest struct {
	NewOwnerID uuid.UUID `json:"newOwnerID"`
}

func (h *GroupsHandler) TransferOwnership(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	var req transferOwnershipRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.NewOwnerID == uuid.Nil {
		return utils.Error(c, fiber.StatusBadRequest, "newOwnerID is required")
	}

	member, err := h.Groups.TransferOwnership(c.Context(), groupID, currentUser.ID, req.NewOwnerID)
	if err != nil {
		return serviceError(c, err)
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "group.ownership_transfer",
		ResourceType: "group",
		ResourceID:   &groupID,
		Details:      map[string]interface{}{"new_owner_id": req.NewOwnerID.String()},
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, member)
}

func (h *GroupsHandler) ListMembers(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	members, err := h.Groups.ListMembers(c.Context(), groupID, currentUser.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, members)
}

func (h *GroupsHandler) ListSharedContent(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	content, err := h.Groups.ListSharedContent(c.Context(), groupID, currentUser.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, content)
}

func (h *GroupsHandler) SharePhoto(c *fiber.Ctx) error {
	return h.shareContent(c, models.SharedContentPhoto)
}

func (h *GroupsHandler) ShareAlbum(c *fiber.Ctx) error {
	return h.shareContent(c, models.SharedContentAlbum)
}

func (h *GroupsHandler) RemoveSharedPhoto(c *fiber.Ctx) error {
	return h.removeSharedContent(c, models.SharedContentPhoto)
}

func (h *GroupsHandler) RemoveSharedAlbum(c *fiber.Ctx) error {
	return h.removeSharedContent(c, models.SharedContentAlbum)
}

func (h *GroupsHandler) shareContent(c *fiber.Ctx, contentType models.SharedContentType) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, contentID, errResp := h.groupContentParams(c, contentType)
	if errResp != nil {
		return errResp
	}

	var err error
	if contentType == models.SharedContentPhoto {
		err = h.Groups.SharePhoto(c.Context(), groupID, currentUser.ID, contentID)
	} else {
		err = h.Groups.ShareAlbum(c.Context(), groupID, currentUser.ID, contentID)
	}
	if err != nil {
		return serviceError(c, err)
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "group.content_share",
		ResourceType: "group",
		ResourceID:   &groupID,
		Details: map[string]interface{}{
			"content_type": string(contentType),
			"content_id":   contentID.String(),
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "content shared"})
}

func (h *GroupsHandler) removeSharedContent(c *fiber.Ctx, contentType models.SharedContentType) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, contentID, errResp := h.groupContentParams(c, contentType)
	if errResp != nil {
		return errResp
	}

	var err error
	if contentType == models.SharedContentPhoto {
		err = h.Groups.RemoveSharedPhoto(c.Context(), groupID, currentUser.ID, contentID)
	} else {
		err = h.Groups.RemoveSharedAlbum(c.Context(), groupID, currentUser.ID, contentID)
	}
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "content removed"})
}

func (h *GroupsHandler) groupContentParams(c *fiber.Ctx, contentType models.SharedContentType) (uuid.UUID, uuid.UUID, error) {
	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	param := "photoId"
	label := "invalid photo id"
	if contentType == models.SharedContentAlbum {
		param = "albumId"
		label = "invalid album id"
	}
	contentID, err := parseUUID(c.Params(param))
	if err != nil {
		return uuid.Nil, uuid.Nil, utils.Error(c, fiber.StatusBadRequest, label)
	}

	return groupID, contentID, nil
}
