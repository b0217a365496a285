package services

import "errors"

// Expected business failures are returned as sentinel errors so handlers can
// translate them to HTTP statuses in one place. Anything not in this list is
// treated as a storage fault and surfaces as a 500.
var (
	ErrGroupNotFound     = errors.New("group not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrMemberNotFound    = errors.New("member not found")
	ErrPhotoNotFound     = errors.New("photo not found")
	ErrAlbumNotFound     = errors.New("album not found")
	ErrShareLinkNotFound = errors.New("share link not found")

	ErrNotOwner           = errors.New("caller is not the group owner")
	ErrNotAMember         = errors.New("caller is not a group member")
	ErrAlreadyAMember     = errors.New("user is already a member")
	ErrGroupFull          = errors.New("group member limit reached")
	ErrGroupDeleted       = errors.New("group is deleted")
	ErrCannotRemoveOwner  = errors.New("cannot remove group owner")
	ErrCannotTransferSelf = errors.New("cannot transfer ownership to yourself")
	ErrContentNotShared   = errors.New("content is not shared in this group")
	ErrUnauthorizedAccess = errors.New("caller does not own this content")
	ErrDownloadNotAllowed = errors.New("download is not allowed for this link")
	ErrShareLinkRevoked   = errors.New("share link has been revoked")
	ErrShareLinkExpired   = errors.New("share link has expired")
	ErrPasswordRequired   = errors.New("password required")
	ErrIncorrectPassword  = errors.New("incorrect password")
)
