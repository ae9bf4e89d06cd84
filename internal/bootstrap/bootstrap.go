package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/classroom/internal/app/controllers"
	appMigrations "github.com/yigit/classroom/internal/app/migrations"
	"github.com/yigit/classroom/internal/app/models"
	appRepos "github.com/yigit/classroom/internal/app/repositories"
	"github.com/yigit/classroom/internal/app/repositories/memory"
	appRoutes "github.com/yigit/classroom/internal/app/routes"
	appServices "github.com/yigit/classroom/internal/app/services"
	"github.com/yigit/classroom/internal/config"
	"github.com/yigit/classroom/internal/db"
	appMiddleware "github.com/yigit/classroom/internal/middleware"
	pkgAuth "github.com/yigit/classroom/internal/pkg/auth"
	"github.com/yigit/classroom/internal/pkg/email"
	"github.com/yigit/classroom/internal/pkg/filestorage"
	"github.com/yigit/classroom/internal/pkg/helpers"
	"github.com/yigit/classroom/internal/pkg/logger"
	"github.com/yigit/classroom/internal/pkg/validation"
	"github.com/yigit/classroom/internal/pkg/websocket"
)

// DefaultConfigPath is where the YAML configuration is read from
var DefaultConfigPath = filepath.Join("configs", "config.yaml")

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos          *appRepos.Repositories
	JWTService     *pkgAuth.JWTService
	FileStorage    filestorage.FileStorage
	Hub            *websocket.Hub
	Relay          *websocket.RedisRelay // nil unless redis is enabled
	RedisClient    *redis.Client
	Services       *appServices.Services
	Controllers    appRoutes.Controllers
	AuthMiddleware *appMiddleware.AuthMiddleware
	Logger         zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	lgr := logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: strings.EqualFold(cfg.Logging.Format, "text"),
	})

	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// ConnectDatabase opens the postgres pool. The memory driver returns a nil pool.
func ConnectDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	if cfg.Database.Driver == "memory" {
		lgr.Warn().Msg("Using in-memory storage, data will not survive a restart")
		return nil, nil
	}

	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(ctx, cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")
	return database.Pool, nil
}

// SetupDatabase connects and runs migrations.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	pool, err := ConnectDatabase(ctx, cfg, lgr)
	if err != nil || pool == nil {
		return pool, err
	}

	if err := RunMigrations(ctx, cfg, pool, lgr); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// RunMigrations applies every pending file in the configured migrations directory
func RunMigrations(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, lgr zerolog.Logger) error {
	migrationsDir := cfg.Database.MigrationsDir
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	lgr.Info().Msg("Running database migrations...")
	applied, err := appMigrations.NewMigrator(pool, lgr).MigrateFromDirectory(ctx, migrationsDir)
	if err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return fmt.Errorf("database migrations failed: %w", err)
	}

	lgr.Info().Int("applied", applied).Msg("Database migrations successfully applied.")
	return nil
}

// NewRepositories picks the repository backend for the configured driver
func NewRepositories(cfg *config.Config, pool *pgxpool.Pool) *appRepos.Repositories {
	if cfg.Database.Driver == "memory" || pool == nil {
		return memory.NewRepositories()
	}
	return appRepos.NewRepositories(pool)
}

// NewFileStorage builds the configured upload backend
func NewFileStorage(ctx context.Context, cfg *config.Config) (filestorage.FileStorage, error) {
	switch cfg.Storage.Driver {
	case "b2":
		return filestorage.NewB2Storage(ctx, cfg.Storage.B2KeyID, cfg.Storage.B2AppKey, cfg.Storage.B2BucketName)
	default:
		baseURL := strings.TrimRight(cfg.Server.BaseURL, "/") + cfg.Storage.PublicURL
		return filestorage.NewLocalStorage(cfg.Storage.LocalPath, baseURL)
	}
}

// NewJWTService builds the token service from configuration
func NewJWTService(cfg *config.Config) *pkgAuth.JWTService {
	return pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 1*time.Hour),
		RefreshTokenExp: helpers.ParseDuration(cfg.JWT.RefreshTokenExpiration, 720*time.Hour),
		TokenIssuer:     cfg.JWT.Issuer,
	})
}

// NewMailer returns nil when email is disabled
func NewMailer(cfg *config.Config, lgr zerolog.Logger) (email.Sender, error) {
	if !cfg.Email.Enabled {
		return nil, nil
	}
	return email.NewSender(email.Config{
		Driver:         cfg.Email.Driver,
		FromName:       cfg.Email.FromName,
		FromEmail:      cfg.Email.FromEmail,
		SendGridAPIKey: cfg.Email.SendGridAPIKey,
		SMTP: email.SMTPConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
			UseTLS:   cfg.Email.SMTPUseTLS,
		},
	}, logger.Component("email"))
}

// BuildServices wires repositories, storage, token service and mailer into the services.
// Events go straight to the hub unless redis fans them out across instances.
func BuildServices(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = NewRepositories(cfg, pool)

	var err error
	deps.FileStorage, err = NewFileStorage(ctx, cfg)
	if err != nil {
		lgr.Error().Err(err).Str("driver", cfg.Storage.Driver).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	deps.JWTService = NewJWTService(cfg)

	deps.Hub = websocket.NewHub(logger.Component("websocket"))
	var publisher websocket.Publisher = deps.Hub
	if cfg.Redis.Enabled {
		deps.RedisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		deps.Relay = websocket.NewRedisRelay(deps.RedisClient, cfg.Redis.Channel, deps.Hub, logger.Component("relay"))
		publisher = deps.Relay
	}

	mailer, err := NewMailer(cfg, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	deps.Services = appServices.NewServices(appServices.Dependencies{
		Repos:          deps.Repos,
		JWT:            deps.JWTService,
		Storage:        deps.FileStorage,
		MaxUploadBytes: int64(cfg.Storage.MaxUploadMB) << 20,
		Publisher:      publisher,
		Mailer:         mailer,
		Grading: appServices.GradingDefaults{
			DefaultPartialCredit: cfg.Grading.DefaultPartialCredit,
			DefaultRelease:       models.ScoreRelease(cfg.Grading.DefaultRelease),
		},
		Logger: lgr,
	})

	return deps, nil
}

// BuildDependencies initializes services, controllers and middleware.
func BuildDependencies(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps, err := BuildServices(ctx, cfg, pool, lgr)
	if err != nil {
		return nil, err
	}

	if err := validation.RegisterWithGin(); err != nil {
		return nil, fmt.Errorf("failed to register validation rules: %w", err)
	}

	svc := deps.Services
	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)
	deps.Controllers = appRoutes.Controllers{
		Auth:         appControllers.NewAuthController(svc.Auth, lgr),
		User:         appControllers.NewUserController(svc.User),
		Class:        appControllers.NewClassController(svc.Class),
		Assignment:   appControllers.NewAssignmentController(svc.Assignment),
		Form:         appControllers.NewFormController(svc.Form, svc.Response),
		Material:     appControllers.NewMaterialController(svc.Material, svc.Upload),
		Comment:      appControllers.NewCommentController(svc.Comment),
		Notification: appControllers.NewNotificationController(svc.Notification),
		Export:       appControllers.NewExportController(svc.Export),
		WebSocket:    websocket.NewHandler(deps.Hub, cfg.Server.AllowedOrigins, logger.Component("websocket")),
	}

	return deps, nil
}

// Close releases the redis client
func (d *Dependencies) Close() {
	if d.RedisClient != nil {
		if err := d.RedisClient.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("Failed to close redis client")
		}
	}
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(appMiddleware.RequestLogger(logger.Component("http")))
	router.Use(appMiddleware.CORS(cfg.Server.AllowedOrigins))

	appRoutes.SetupSwagger(router)
	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware)

	if cfg.Storage.Driver != "b2" {
		router.Static(cfg.Storage.PublicURL, cfg.Storage.LocalPath)
		lgr.Info().Str("path", cfg.Storage.LocalPath).Str("url", cfg.Storage.PublicURL).Msg("Static file serving configured for uploads")
	}

	return router
}
