package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/photovault/backend/internal/config"
	"github.com/photovault/backend/internal/database"
	"github.com/photovault/backend/internal/handlers"
	"github.com/photovault/backend/internal/middleware"
	"github.com/photovault/backend/internal/services"
	"github.com/photovault/backend/internal/storage"
	"github.com/photovault/backend/pkg/logger"
	"github.com/photovault/backend/pkg/utils"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	storageClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("minio initialization failed: %v", err)
	}
	if err := storageClient.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("failed ensuring minio bucket: %v", err)
	}

	auditService := services.NewAuditService(db)
	groupService := services.NewGroupService(db, cfg.Groups)
	linkService := services.NewShareLinkService(db, cfg.Server.PublicBaseURL)

	sweeper := services.NewSweeper(db, groupService, cfg.Sweeper.Interval)
	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	go sweeper.Run(sweeperCtx)

	authHandler := handlers.NewAuthHandler(db)
	photosHandler := handlers.NewPhotosHandler(db, storageClient, auditService)
	albumsHandler := handlers.NewAlbumsHandler(db)
	groupsHandler := handlers.NewGroupsHandler(groupService, auditService)
	linksHandler := handlers.NewShareLinksHandler(linkService, auditService)
	publicHandler := handlers.NewPublicHandler(linkService, storageClient, auditService)

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
	photoRoutes.Get("/:id/file", photosHandler.Download)
	photoRoutes.Get("/:id/thumbnail", photosHandler.Thumbnail)
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

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":             cfg.Server.Port,
		"address":          listenAddr,
		"sweeper_interval": cfg.Sweeper.Interval.String(),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		stopSweeper()
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
		auditService.Close()
	case err := <-errCh:
		stopSweeper()
		auditService.Close()
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
