package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"play-llm-server/config"
	"play-llm-server/handlers"
	"play-llm-server/models"
	"play-llm-server/services"
	"play-llm-server/utils"
	"play-llm-server/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/gorm"
)

// App owns every long-lived resource of the server. New builds them in
// dependency order and Close releases them in reverse.
type App struct {
	Config *config.Config
	DB     *gorm.DB
	Pool   *workers.Pool
	Queue  *workers.TaskQueue // nil when no broker is configured
	Store  services.ArtifactStore

	Auth      *services.AuthService
	Games     *services.GameService
	Models    *services.ModelService
	Play      *services.PlayService
	Inference *services.InferenceClient
	Sweeper   *services.SessionSweeper

	HTTP *fiber.App
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	db, err := utils.OpenDB(cfg.Database)
	if err != nil {
		return nil, err
	}
	a.DB = db

	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	a.Pool = workers.NewPool(cfg.WorkerPoolSize)

	if cfg.Broker.Enabled() {
		client, err := workers.NewRedisClient(ctx, cfg.Broker.URL())
		if err != nil {
			return err
		}
		a.Queue = workers.NewTaskQueue(client, cfg.Broker.QueueKey, a.Pool)
	}

	if cfg.Storage.R2Enabled() {
		store, err := utils.NewR2Store(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		a.Store = store
	} else {
		store, err := utils.NewLocalStore(cfg.Storage.UploadDir)
		if err != nil {
			return err
		}
		a.Store = store
	}

	a.Auth = services.NewAuthService(a.DB, cfg.SessionTTL)
	a.Games = services.NewGameService(a.DB)
	a.Play = services.NewPlayService(a.DB)
	if a.Queue != nil {
		a.Models = services.NewModelService(a.DB, a.Store, a.Queue)
		a.Queue.Register(services.TaskArtifactDelete, a.Models.HandleArtifactDelete)
	} else {
		a.Models = services.NewModelService(a.DB, a.Store, nil)
	}
	if cfg.Inference.Enabled() {
		a.Inference = services.NewInferenceClient(cfg.Inference.URL())
	}
	a.Sweeper = services.NewSessionSweeper(a.DB, cfg.SessionTTL, cfg.SessionSweepInterval)

	a.HTTP = fiber.New(fiber.Config{
		BodyLimit: 5 * 1024 * 1024 * 1024, // 5GB model artifacts
	})
	a.HTTP.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-Session-Token",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	handlers.SetupRoutes(a.HTTP, handlers.Services{
		Auth:      a.Auth,
		Games:     a.Games,
		Models:    a.Models,
		Play:      a.Play,
		Inference: a.Inference,
	})
	if !cfg.Storage.R2Enabled() {
		a.HTTP.Static("/uploads", cfg.Storage.UploadDir)
	}
	return nil
}

// Migrate creates or updates the schema.
func (a *App) Migrate() error {
	if err := models.AutoMigrate(a.DB); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Println("✅ Database schema up to date")
	return nil
}

// Serve runs the HTTP server, the session sweeper and the task consumer
// until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	if err := a.Sweeper.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	consumerDone := make(chan struct{})
	if a.Queue != nil {
		go func() {
			defer close(consumerDone)
			if err := a.Queue.Run(ctx); err != nil {
				log.Printf("❌ [Queue] consumer exited: %v", err)
			}
		}()
	} else {
		close(consumerDone)
		log.Println("⚠️  No broker configured, artifact cleanup runs inline")
	}

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- a.HTTP.Listen(a.Config.HTTPAddr)
	}()
	log.Printf("✅ Server listening on %s", a.Config.HTTPAddr)
	log.Printf("✅ CORS configured for origins: %s", strings.Join(a.Config.AllowedOrigins, ","))

	var err error
	select {
	case <-ctx.Done():
		log.Println("Shutting down server...")
	case err = <-listenErr:
	}

	cancel()
	if serr := a.HTTP.ShutdownWithTimeout(10 * time.Second); serr != nil && err == nil {
		err = serr
	}
	<-consumerDone
	return err
}

// Close releases resources in reverse construction order. It is safe to call
// on a partially built App.
func (a *App) Close() error {
	var errs []error
	if a.Sweeper != nil {
		errs = append(errs, a.Sweeper.Stop())
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
	if a.Queue != nil {
		errs = append(errs, a.Queue.Close())
	}
	if a.DB != nil {
		errs = append(errs, utils.CloseDB(a.DB))
	}
	return errors.Join(errs...)
}
