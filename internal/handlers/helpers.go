package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/photovault/backend/internal/services"
	"github.com/photovault/backend/pkg/utils"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

func getRequestID(c *fiber.Ctx) string {
	if value := c.Locals("requestID"); value != nil {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}

// serviceError translates a domain sentinel into the HTTP envelope; anything
// unrecognized is a storage fault and becomes a 500.
func serviceError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, services.ErrGroupNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrMemberNotFound),
		errors.Is(err, services.ErrPhotoNotFound),
		errors.Is(err, services.ErrAlbumNotFound),
		errors.Is(err, services.ErrShareLinkNotFound),
		errors.Is(err, services.ErrContentNotShared):
		status = fiber.StatusNotFound
		message = err.Error()
	case errors.Is(err, services.ErrNotOwner),
		errors.Is(err, services.ErrNotAMember),
		errors.Is(err, services.ErrCannotRemoveOwner),
		errors.Is(err, services.ErrUnauthorizedAccess),
		errors.Is(err, services.ErrDownloadNotAllowed):
		status = fiber.StatusForbidden
		message = err.Error()
	case errors.Is(err, services.ErrAlreadyAMember),
		errors.Is(err, services.ErrGroupFull):
		status = fiber.StatusConflict
		message = err.Error()
	case errors.Is(err, services.ErrCannotTransferSelf):
		status = fiber.StatusBadRequest
		message = err.Error()
	case errors.Is(err, services.ErrGroupDeleted),
		errors.Is(err, services.ErrShareLinkRevoked),
		errors.Is(err, services.ErrShareLinkExpired):
		status = fiber.StatusGone
		message = err.Error()
	// Same status for both password failures so the response code never
	// reveals whether a link is password protected.
	case errors.Is(err, services.ErrPasswordRequired),
		errors.Is(err, services.ErrIncorrectPassword):
		status = fiber.StatusUnauthorized
		message = err.Error()
	}

	return utils.Error(c, status, message)
}
