package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/archivohistorico/heritage/app/controllers"
	"github.com/archivohistorico/heritage/app/repository"
	"github.com/archivohistorico/heritage/internal/pkg/cache"
	"github.com/archivohistorico/heritage/internal/pkg/database"
	"github.com/archivohistorico/heritage/internal/pkg/env"
	"github.com/archivohistorico/heritage/internal/pkg/imageprocessor"
	"github.com/archivohistorico/heritage/internal/pkg/router"
	"github.com/archivohistorico/heritage/internal/pkg/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := NewApplication(ctx)
	if err != nil {
		log.Fatalf("[Server] Startup failed: %v", err)
	}
	defer cleanup()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
	go func() {
		if err := app.Listen(addr); err != nil {
			log.Errorf("[Server] Listen failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("[Server] Shutting down...")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Errorf("[Server] Shutdown failed: %v", err)
	}
}

// NewApplication wires storage, database, cache and routes.
func NewApplication(ctx context.Context) (*fiber.App, func(), error) {
	env.SetupEnvFile()

	if err := database.SetupDatabase(); err != nil {
		return nil, nil, err
	}
	cache.SetupCache(ctx)
	repository.InitializeFactory(database.GetDB())

	storageCfg := storage.LoadConfig()
	disk := storage.NewPublicDisk(storageCfg)
	mediaStore, err := storage.NewMediaStore(ctx, storageCfg)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("media store: %w", err)
	}

	imageCfg := imageprocessor.LoadConfig()
	policies, err := imageprocessor.LoadPolicies(imageCfg.PoliciesFile)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	log.Infof("[Server] %d image policies loaded, WebP enabled: %v", policies.Len(), imageCfg.WebPEnabled)
	images := imageprocessor.NewService(disk, policies, imageCfg)

	monitor := storage.NewMonitor(
		time.Duration(env.GetEnvInt("STORAGE_HEALTH_INTERVAL_SECONDS", 60))*time.Second,
		map[string]storage.Backend{"public": disk, "media": mediaStore},
	)
	monitor.Start()

	controllers.InitializeAdminControllers(images, mediaStore, monitor)

	app := fiber.New(fiber.Config{
		BodyLimit: env.GetEnvInt("APP_BODY_LIMIT_MB", 100) * 1024 * 1024,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// stored image variants
	router.InstallStatic(app, storageCfg.PublicURL, disk.Root())

	router.InstallRouter(app, env.GetEnv("ADMIN_API_KEY", ""))

	cleanup := func() {
		monitor.Stop()
		if c, ok := mediaStore.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				log.Warnf("[Server] Media store close failed: %v", err)
			}
		}
		cache.Close()
		database.Close()
	}
	return app, cleanup, nil
}
