package handlers

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/photovault/backend/internal/config"
	"github.com/photovault/backend/internal/middleware"
	"github.com/photovault/backend/internal/models"
	"github.com/photovault/backend/internal/services"
	"github.com/photovault/backend/pkg/logger"
	"github.com/photovault/backend/pkg/utils"
	"gorm.io/gorm"
)

type testEnv struct {
	app    *fiber.App
	db     *gorm.DB
	groups *services.GroupService
	links  *services.ShareLinkService
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		gosqlite.MustRegisterScalarFunction("NOW", 0, func(ctx *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return time.Now().UTC(), nil
		})
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.User{},
		&models.Photo{},
		&models.Album{},
		&models.AlbumPhoto{},
		&models.Group{},
		&models.GroupMember{},
		&models.GroupSharedContent{},
		&models.ShareLink{},
		&models.AuditLog{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	groupsCfg := config.GroupsConfig{
		MaxMembers:             5,
		DeletionGraceDays:      7,
		MemberContentGraceDays: 30,
	}

	auditService := services.NewAuditService(db)
	t.Cleanup(auditService.Close)
	groupService := services.NewGroupService(db, groupsCfg)
	linkService := services.NewShareLinkService(db, "http://localhost:3001")

	authHandler := NewAuthHandler(db)
	photosHandler := NewPhotosHandler(db, nil, auditService)
	albumsHandler := NewAlbumsHandler(db)
	groupsHandler := NewGroupsHandler(groupService, auditService)
	linksHandler := NewShareLinksHandler(linkService, auditService)
	publicHandler := NewPublicHandler(linkService, nil, auditService)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 100 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)

	photoRoutes := api.Group("/photos", authMiddleware.RequireAuth)
	photoRoutes.Post("/", photosHandler.Upload)
	photoRoutes.Get("/", photosHandler.List)
	photoRoutes.Get("/:id", photosHandler.Get)
	photoRoutes.Delete("/:id", photosHandler.Delete)

	albumRoutes := api.Group("/albums", authMiddleware.RequireAuth)
	albumRoutes.Post("/", albumsHandler.Create)
	albumRoutes.Get("/", albumsHandler.List)
	albumRoutes.Get("/:id", albumsHandler.Get)
	albumRoutes.Delete("/:id", albumsHandler.Delete)
	albumRoutes.Post("/:id/photos/:photoId", albumsHandler.AddPhoto)
	albumRoutes.Delete("/:id/photos/:photoId", albumsHandler.RemovePhoto)

	groupRoutes := api.Group("/groups", authMiddleware.RequireAuth)
	groupRoutes.Post("/", groupsHandler.Create)
	groupRoutes.Get("/", groupsHandler.List)
	groupRoutes.Get("/:id", groupsHandler.Get)
	groupRoutes.Delete("/:id", groupsHandler.Delete)
	groupRoutes.Post("/:id/members", groupsHandler.AddMember)
	groupRoutes.Delete("/:id/members/:userId", groupsHandler.RemoveMember)
	groupRoutes.Get("/:id/members", groupsHandler.ListMembers)
	groupRoutes.Post("/:id/leave", groupsHandler.Leave)
	groupRoutes.Post("/:id/transfer", groupsHandler.TransferOwnership)
	groupRoutes.Get("/:id/content", groupsHandler.ListSharedContent)
	groupRoutes.Post("/:id/photos/:photoId", groupsHandler.SharePhoto)
	groupRoutes.Delete("/:id/photos/:photoId", groupsHandler.RemoveSharedPhoto)
	groupRoutes.Post("/:id/albums/:albumId", groupsHandler.ShareAlbum)
	groupRoutes.Delete("/:id/albums/:albumId", groupsHandler.RemoveSharedAlbum)

	linkRoutes := api.Group("/share-links", authMiddleware.RequireAuth)
	linkRoutes.Post("/", linksHandler.Create)
	linkRoutes.Get("/", linksHandler.List)
	linkRoutes.Delete("/:id", linksHandler.Revoke)

	shared := app.Group("/shared")
	shared.Get("/:token", publicHandler.Metadata)
	shared.Post("/:token/access", publicHandler.Access)
	shared.Get("/:token/photos/:photoId/thumbnail", publicHandler.Thumbnail)
	shared.Get("/:token/photos/:photoId/file", publicHandler.File)

	return &testEnv{app: app, db: db, groups: groupService, links: linkService}
}

func createTestUser(t *testing.T, db *gorm.DB, email, password string, role models.UserRole) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func createTestPhoto(t *testing.T, db *gorm.DB, owner *models.User, fileName string) *models.Photo {
	t.Helper()

	photo := &models.Photo{
		OwnerID:     owner.ID,
		FileName:    fileName,
		MimeType:    "image/jpeg",
		Size:        2048,
		StoragePath: "photos/" + owner.ID.String() + "/" + fileName,
	}
	if err := db.Create(photo).Error; err != nil {
		t.Fatalf("failed creating test photo: %v", err)
	}
	return photo
}

func createTestAlbum(t *testing.T, db *gorm.DB, owner *models.User, name string, photos ...*models.Photo) *models.Album {
	t.Helper()

	album := &models.Album{
		OwnerID: owner.ID,
		Name:    name,
	}
	if err := db.Create(album).Error; err != nil {
		t.Fatalf("failed creating test album: %v", err)
	}
	for i, photo := range photos {
		entry := &models.AlbumPhoto{
			AlbumID:   album.ID,
			PhotoID:   photo.ID,
			SortOrder: i,
			AddedAt:   time.Now().UTC(),
		}
		if err := db.Create(entry).Error; err != nil {
			t.Fatalf("failed adding photo to test album: %v", err)
		}
	}
	return album
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func dataMap(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %+v", body)
	}
	return data
}

func dataSlice(t *testing.T, body map[string]any) []any {
	t.Helper()
	data, ok := body["data"].([]any)
	if !ok {
		t.Fatalf("expected data array, got %+v", body)
	}
	return data
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}
