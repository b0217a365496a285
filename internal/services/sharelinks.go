package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/photovault/backend/internal/models"
	"github.com/photovault/backend/pkg/logger"
	"github.com/photovault/backend/pkg/utils"
	"gorm.io/gorm"
)

// ShareLinkService owns the public token access protocol. Every public-facing
// read re-resolves the token and re-checks its state from scratch; there is no
// authenticated-session cache, so revocation and expiry take effect on the
// very next call.
type ShareLinkService struct {
	DB      *gorm.DB
	BaseURL string
}

func NewShareLinkService(db *gorm.DB, baseURL string) *ShareLinkService {
	return &ShareLinkService{DB: db, BaseURL: baseURL}
}

type CreateShareLinkParams struct {
	Type          models.ShareLinkType
	TargetID      uuid.UUID
	ExpiresAt     *time.Time
	Password      *string
	AllowDownload bool
}

// ShareLinkInfo is a link annotated with state derived at read time, never
// persisted.
type ShareLinkInfo struct {
	models.ShareLink
	URL         string `json:"url"`
	TargetName  string `json:"targetName"`
	HasPassword bool   `json:"hasPassword"`
	IsExpired   bool   `json:"isExpired"`
	IsActive    bool   `json:"isActive"`
}

// ShareLinkMetadata is the public, contentless shape returned for any token
// that resolves, active or not, so clients can render expired/revoked states.
type ShareLinkMetadata struct {
	Type        models.ShareLinkType `json:"type"`
	HasPassword bool                 `json:"hasPassword"`
	IsExpired   bool                 `json:"isExpired"`
	IsActive    bool                 `json:"isActive"`
}

// SharedPhoto is a photo as seen through a share link, stamped with the
// link's download permission.
type SharedPhoto struct {
	ID            uuid.UUID `json:"id"`
	FileName      string    `json:"fileName"`
	MimeType      string    `json:"mimeType"`
	Size          int64     `json:"size"`
	AllowDownload bool      `json:"allowDownload"`
}

type SharedAlbum struct {
	Name        string        `json:"name"`
	Description *string       `json:"description,omitempty"`
	Photos      []SharedPhoto `json:"photos"`
}

type SharedContent struct {
	Type  models.ShareLinkType `json:"type"`
	Photo *SharedPhoto         `json:"photo,omitempty"`
	Album *SharedAlbum         `json:"album,omitempty"`
}

// Create validates target ownership, generates the bearer token and stores
// only the hash of an optional password. ExpiresAt is normalized to UTC.
func (s *ShareLinkService) Create(ctx context.Context, callerID uuid.UUID, params CreateShareLinkParams) (*ShareLinkInfo, error) {
	var targetName string

	switch params.Type {
	case models.ShareLinkPhoto:
		var photo models.Photo
		if err := s.DB.WithContext(ctx).First(&photo, "id = ?", params.TargetID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, ErrPhotoNotFound
			}
			return nil, err
		}
		if photo.OwnerID != callerID {
			return nil, ErrUnauthorizedAccess
		}
		targetName = photo.FileName
	case models.ShareLinkAlbum:
		var album models.Album
		if err := s.DB.WithContext(ctx).First(&album, "id = ?", params.TargetID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, ErrAlbumNotFound
			}
			return nil, err
		}
		if album.OwnerID != callerID {
			return nil, ErrUnauthorizedAccess
		}
		targetName = album.Name
	default:
		return nil, fmt.Errorf("unknown share link type %q", params.Type)
	}

	token, err := utils.GenerateShareToken()
	if err != nil {
		return nil, err
	}

	link := models.ShareLink{
		Token:         token,
		UserID:        callerID,
		Type:          params.Type,
		AllowDownload: params.AllowDownload,
	}
	if params.Type == models.ShareLinkPhoto {
		id := params.TargetID
		link.PhotoID = &id
	} else {
		id := params.TargetID
		link.AlbumID = &id
	}
	if params.ExpiresAt != nil {
		expires := params.ExpiresAt.UTC()
		link.ExpiresAt = &expires
	}
	if params.Password != nil && *params.Password != "" {
		hash, err := utils.HashPassword(*params.Password)
		if err != nil {
			return nil, err
		}
		link.PasswordHash = &hash
	}

	// The unique index on the token column turns a generator collision into
	// a hard insert failure instead of a silent overwrite.
	if err := s.DB.WithContext(ctx).Create(&link).Error; err != nil {
		return nil, err
	}

	logger.InfoWithUser(callerID.String(), "share_link_created", map[string]interface{}{
		"share_link_id": link.ID.String(),
		"type":          string(link.Type),
		"has_password":  link.HasPassword(),
		"expires_at":    link.ExpiresAt,
	})

	return s.annotate(&link, targetName, time.Now().UTC()), nil
}

// List returns the caller's links with derived state and display names.
func (s *ShareLinkService) List(ctx context.Context, callerID uuid.UUID) ([]ShareLinkInfo, error) {
	var links []models.ShareLink
	err := s.DB.WithContext(ctx).
		Preload("Photo").
		Preload("Album").
		Where("user_id = ?", callerID).
		Order("created_at DESC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	infos := make([]ShareLinkInfo, 0, len(links))
	for i := range links {
		name := ""
		if links[i].Photo != nil {
			name = links[i].Photo.FileName
		} else if links[i].Album != nil {
			name = links[i].Album.Name
		}
		infos = append(infos, *s.annotate(&links[i], name, now))
	}
	return infos, nil
}

// Revoke marks the link revoked. Revoking twice succeeds and refreshes the
// timestamp.
func (s *ShareLinkService) Revoke(ctx context.Context, linkID, callerID uuid.UUID) error {
	var link models.ShareLink
	if err := s.DB.WithContext(ctx).First(&link, "id = ?", linkID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrShareLinkNotFound
		}
		return err
	}
	if link.UserID != callerID {
		return ErrUnauthorizedAccess
	}

	now := time.Now().UTC()
	if err := s.DB.WithContext(ctx).Model(&models.ShareLink{}).
		Where("id = ?", linkID).
		Update("revoked_at", now).Error; err != nil {
		return err
	}

	logger.InfoWithUser(callerID.String(), "share_link_revoked", map[string]interface{}{
		"share_link_id": linkID.String(),
	})
	return nil
}

// Metadata resolves a token to its contentless public shape. Only a token
// that resolves to nothing yields NotFound; expired or revoked links still
// report their state.
func (s *ShareLinkService) Metadata(ctx context.Context, token string) (*ShareLinkMetadata, error) {
	link, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &ShareLinkMetadata{
		Type:        link.Type,
		HasPassword: link.HasPassword(),
		IsExpired:   link.IsExpired(now),
		IsActive:    link.IsActive(now),
	}, nil
}

// Access runs the full gate: resolve, active, password. Password failures
// share a status (translated to 401) and differ only in message.
func (s *ShareLinkService) Access(ctx context.Context, token string, password *string) (*SharedContent, error) {
	link, err := s.authorize(ctx, token, password)
	if err != nil {
		return nil, err
	}

	if link.Type == models.ShareLinkPhoto {
		var photo models.Photo
		if err := s.DB.WithContext(ctx).First(&photo, "id = ?", *link.PhotoID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, ErrPhotoNotFound
			}
			return nil, err
		}
		shared := s.sharedPhoto(&photo, link)
		return &SharedContent{Type: link.Type, Photo: &shared}, nil
	}

	var album models.Album
	if err := s.DB.WithContext(ctx).First(&album, "id = ?", *link.AlbumID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrAlbumNotFound
		}
		return nil, err
	}

	var entries []models.AlbumPhoto
	if err := s.DB.WithContext(ctx).
		Preload("Photo").
		Where("album_id = ?", album.ID).
		Order("sort_order ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	photos := make([]SharedPhoto, 0, len(entries))
	for i := range entries {
		photos = append(photos, s.sharedPhoto(&entries[i].Photo, link))
	}

	return &SharedContent{
		Type: link.Type,
		Album: &SharedAlbum{
			Name:        album.Name,
			Description: album.Description,
			Photos:      photos,
		},
	}, nil
}

// AuthorizePhoto re-runs the whole gate for a single photo fetch and confirms
// the photo is actually in the link's scope: the photo target itself, or a
// member of the target album. Original-resolution fetches additionally
// require the link's download flag; thumbnails only need access.
func (s *ShareLinkService) AuthorizePhoto(ctx context.Context, token string, password *string, photoID uuid.UUID, original bool) (*models.Photo, error) {
	link, err := s.authorize(ctx, token, password)
	if err != nil {
		return nil, err
	}

	inScope := false
	switch link.Type {
	case models.ShareLinkPhoto:
		inScope = *link.PhotoID == photoID
	case models.ShareLinkAlbum:
		var count int64
		if err := s.DB.WithContext(ctx).Model(&models.AlbumPhoto{}).
			Where("album_id = ? AND photo_id = ?", *link.AlbumID, photoID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		inScope = count > 0
	}
	if !inScope {
		return nil, ErrPhotoNotFound
	}

	if original && !link.AllowDownload {
		return nil, ErrDownloadNotAllowed
	}

	var photo models.Photo
	if err := s.DB.WithContext(ctx).First(&photo, "id = ?", photoID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrPhotoNotFound
		}
		return nil, err
	}
	return &photo, nil
}

// PublicURL builds the link handed to the creator.
func (s *ShareLinkService) PublicURL(token string) string {
	return fmt.Sprintf("%s/shared/%s", s.BaseURL, token)
}

func (s *ShareLinkService) authorize(ctx context.Context, token string, password *string) (*models.ShareLink, error) {
	link, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if link.RevokedAt != nil {
		return nil, ErrShareLinkRevoked
	}
	if link.IsExpired(now) {
		return nil, ErrShareLinkExpired
	}

	if link.HasPassword() {
		if password == nil {
			return nil, ErrPasswordRequired
		}
		if !utils.CheckPassword(*password, *link.PasswordHash) {
			return nil, ErrIncorrectPassword
		}
	}

	return link, nil
}

func (s *ShareLinkService) resolve(ctx context.Context, token string) (*models.ShareLink, error) {
	var link models.ShareLink
	if err := s.DB.WithContext(ctx).First(&link, "token = ?", token).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrShareLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (s *ShareLinkService) sharedPhoto(photo *models.Photo, link *models.ShareLink) SharedPhoto {
	return SharedPhoto{
		ID:            photo.ID,
		FileName:      photo.FileName,
		MimeType:      photo.MimeType,
		Size:          photo.Size,
		AllowDownload: link.AllowDownload,
	}
}

func (s *ShareLinkService) annotate(link *models.ShareLink, targetName string, now time.Time) *ShareLinkInfo {
	return &ShareLinkInfo{
		ShareLink:   *link,
		URL:         s.PublicURL(link.Token),
		TargetName:  targetName,
		HasPassword: link.HasPassword(),
		IsExpired:   link.IsExpired(now),
		IsActive:    link.IsActive(now),
	}
}
