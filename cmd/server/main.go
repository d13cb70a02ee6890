package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docuvault/backend/internal/config"
	"github.com/docuvault/backend/internal/database"
	"github.com/docuvault/backend/internal/handlers"
	"github.com/docuvault/backend/internal/middleware"
	"github.com/docuvault/backend/internal/services"
	"github.com/docuvault/backend/internal/storage"
	"github.com/docuvault/backend/internal/stores"
	"github.com/docuvault/backend/pkg/logger"
	"github.com/docuvault/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
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

	documentStore := stores.NewDocuments(db)
	folderStore := stores.NewFolders(db)
	userStore := stores.NewUsers(db)
	tagStore := stores.NewTags(db)

	auditService := services.NewAuditService(db, storageClient)
	auditService.StartExporter(cfg.Audit.ExportInterval)

	accessService := services.NewAccessService(folderStore)
	folderService := services.NewFolderService(folderStore, accessService)
	deleteService := services.NewDeleteService(documentStore, folderStore, storageClient)
	versionService := services.NewVersionService(documentStore, userStore, storageClient, auditService)

	authHandler := handlers.NewAuthHandler(db, auditService)
	usersHandler := handlers.NewUsersHandler(db)
	tagsHandler := handlers.NewTagsHandler(db)
	documentsHandler := handlers.NewDocumentsHandler(db, storageClient, versionService, accessService, folderStore, tagStore, auditService)
	foldersHandler := handlers.NewFoldersHandler(folderStore, documentStore, userStore, accessService, folderService, deleteService, auditService)
	activitiesHandler := handlers.NewActivitiesHandler(db)
	auditHandler := handlers.NewAuditHandler(db)

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

	api.Get("/users/search", authMiddleware.RequireAuth, usersHandler.Search)

	userRoutes := api.Group("/users", authMiddleware.RequireAuth, middleware.AdminOnly)
	userRoutes.Get("/", usersHandler.List)
	userRoutes.Get("/:id", usersHandler.Get)
	userRoutes.Put("/:id", usersHandler.Update)

	tagRoutes := api.Group("/tags", authMiddleware.RequireAuth)
	tagRoutes.Post("/", tagsHandler.Create)
	tagRoutes.Get("/", tagsHandler.List)

	folderRoutes := api.Group("/folders", authMiddleware.RequireAuth)
	folderRoutes.Post("/", foldersHandler.Create)
	folderRoutes.Get("/tree", foldersHandler.Tree)
	folderRoutes.Get("/:id/contents", foldersHandler.Contents)
	folderRoutes.Put("/:id/access", foldersHandler.UpdateAccess)
	folderRoutes.Post("/:id/permissions", foldersHandler.GrantPermission)
	folderRoutes.Get("/:id", foldersHandler.Get)
	folderRoutes.Delete("/:id", foldersHandler.Delete)

	documentRoutes := api.Group("/documents", authMiddleware.RequireAuth)
	documentRoutes.Post("/upload", documentsHandler.Upload)
	documentRoutes.Get("/:id/download", documentsHandler.Download)
	documentRoutes.Get("/:id/versions", documentsHandler.ListVersions)
	documentRoutes.Post("/:id/versions", documentsHandler.UploadVersion)
	documentRoutes.Post("/:id/restore", documentsHandler.Restore)
	documentRoutes.Get("/:id/collaborators", documentsHandler.Collaborators)
	documentRoutes.Get("/:id", documentsHandler.Get)
	documentRoutes.Delete("/:id", documentsHandler.Delete)

	activityRoutes := api.Group("/activities", authMiddleware.RequireAuth)
	activityRoutes.Get("/", activitiesHandler.List)
	activityRoutes.Get("/unread-count", activitiesHandler.UnreadCount)
	activityRoutes.Put("/read-all", activitiesHandler.MarkAllRead)
	activityRoutes.Put("/:id/read", activitiesHandler.MarkRead)

	api.Get("/audit/export", authMiddleware.RequireAuth, auditHandler.ExportMyLog)
	api.Get("/audit", authMiddleware.RequireAuth, middleware.AdminOnly, auditHandler.List)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":       cfg.Server.Port,
		"address":    listenAddr,
		"body_limit": "100MB",
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
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
