package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/AnshRaj112/vcard-backend/internal/config"
	"github.com/AnshRaj112/vcard-backend/internal/database"
	"github.com/AnshRaj112/vcard-backend/internal/handlers"
	"github.com/AnshRaj112/vcard-backend/internal/middleware"
	"github.com/AnshRaj112/vcard-backend/internal/repository"
	"github.com/AnshRaj112/vcard-backend/internal/routes"
	"github.com/AnshRaj112/vcard-backend/internal/services"
	"github.com/AnshRaj112/vcard-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func main() {
	// Load env
	envErr := godotenv.Load()
	// Load configuration
	cfg := config.Load()

	zl, err := logger.New(cfg.Environment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync()

	if envErr != nil {
		zl.Info("No .env file found")
	}
	if cfg.UsesDevSecret() {
		if cfg.IsProduction() {
			zl.Fatal("SECRET_KEY must be set in production")
		}
		zl.Warn("SECRET_KEY not set; using development placeholder. Confirmation links will not survive a key change.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	zl.Info("Connecting to MongoDB...")
	mongoClient, db, err := database.Connect(ctx, cfg.MongoURI, zl)
	if err != nil {
		zl.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer database.Disconnect(mongoClient)

	if err := database.EnsureIndexes(ctx, db); err != nil {
		zl.Fatal("Failed to ensure MongoDB indexes", zap.Error(err))
	}
	zl.Info("MongoDB indexes ensured")

	zl.Info("Connecting to Redis...")
	rdb, err := database.ConnectRedis(ctx, cfg.RedisURI, zl)
	if err != nil {
		zl.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer rdb.Close()

	var storage services.AssetStorage
	if cfg.UploadsEnabled() {
		cld, err := services.NewCloudinaryStorage(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.UploadFolder)
		if err != nil {
			zl.Warn("Failed to initialize Cloudinary; profile image uploads will not be available", zap.Error(err))
		} else {
			storage = cld
			zl.Info("Cloudinary storage initialized", zap.String("folder", cfg.UploadFolder))
		}
	} else {
		zl.Warn("Cloudinary credentials not found; profile image uploads will not be available")
	}

	if cfg.SendGridAPIKey == "" {
		zl.Warn("SENDGRID_API_KEY not set; verification emails will fail and users must use resend")
	}
	mailer := services.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailSenderName, cfg.MailSender, zl)

	sessions := services.NewSessionStore(rdb, cfg.SessionTTL)
	authService := services.NewAuthService(
		repository.NewUserRepository(db),
		sessions,
		services.NewTokenCodec(cfg.SecretKey),
		mailer,
		cfg.PublicURL,
		zl,
	)
	cardService := services.NewCardService(repository.NewCardRepository(db), storage, zl)

	// Setup router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(zl))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost) {
			r.Use(mw)
		}
		zl.Info("Production security enabled (security headers, host check)")
	}

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	routes.SetupRoutes(r, routes.Dependencies{
		Auth:      handlers.NewAuthHandler(authService, cfg.SessionTTL, cfg.IsProduction(), zl),
		Cards:     handlers.NewCardHandler(cardService, zl),
		Sessions:  sessions,
		Logger:    zl,
		DevRoutes: !cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("Visiting card backend running", zap.String("addr", srv.Addr), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zl.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("Graceful shutdown failed", zap.Error(err))
	}
}
