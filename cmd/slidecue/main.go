package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/slidecue/slidecue/internal/database"
	"github.com/slidecue/slidecue/internal/email"
	"github.com/slidecue/slidecue/internal/geoip"
	"github.com/slidecue/slidecue/internal/server"
	"github.com/slidecue/slidecue/internal/storage"
	"github.com/slidecue/slidecue/internal/validate"
)

func main() {
	if err := godotenv.Load(); err == nil {
		log.Println("loaded .env")
	}

	port := getEnv("PORT", "8080")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		slog.Warn("JWT_SECRET not set, session and transcript writes are unauthenticated")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, databaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(databaseURL); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}
	log.Println("database migrations applied")

	baseURL := getEnv("BASE_URL", "http://localhost:8080")

	store, err := storage.New(ctx, storage.Config{
		Endpoint:       getEnv("S3_ENDPOINT", "http://localhost:3900"),
		PublicEndpoint: os.Getenv("S3_PUBLIC_ENDPOINT"),
		Bucket:         getEnv("S3_BUCKET", "slidecue"),
		AccessKey:      os.Getenv("S3_ACCESS_KEY"),
		SecretKey:      os.Getenv("S3_SECRET_KEY"),
		Region:         getEnv("S3_REGION", "eu-central-1"),
		MaxImageBytes:  getEnvInt64("MAX_IMAGE_BYTES", 20*1024*1024),
	})
	if err != nil {
		log.Fatalf("storage initialization failed: %v", err)
	}

	if err := store.EnsureBucket(ctx); err != nil {
		log.Fatalf("storage bucket check failed: %v", err)
	}
	if err := store.SetCORS(ctx, []string{baseURL}); err != nil {
		slog.Warn("storage CORS not applied, browser image uploads may fail", "error", err)
	}
	log.Println("storage bucket ready")

	geoResolver, _ := geoip.New(os.Getenv("GEOIP_DB_PATH"))
	defer func() { _ = geoResolver.Close() }()

	emailClient := email.New(email.Config{
		BaseURL:    os.Getenv("LISTMONK_URL"),
		Username:   getEnv("LISTMONK_USER", "admin"),
		Password:   os.Getenv("LISTMONK_PASSWORD"),
		TemplateID: int(getEnvInt64("LISTMONK_TEMPLATE_ID", 0)),
		Allowlist:  email.ParseAllowlist(os.Getenv("EMAIL_ALLOWLIST")),
	})

	srv := server.New(server.Config{
		DB:                    db.Pool,
		Pinger:                db,
		Storage:               store,
		Mailer:                emailClient,
		GeoIP:                 geoResolver,
		JWTSecret:             jwtSecret,
		BaseURL:               baseURL,
		S3PublicEndpoint:      os.Getenv("S3_PUBLIC_ENDPOINT"),
		AllowedFrameAncestors: os.Getenv("ALLOWED_FRAME_ANCESTORS"),
		MaxScriptBytes:        getEnvInt64("MAX_SCRIPT_BYTES", validate.MaxScriptLength),
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("slidecue listening on :%s", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-shutdownCh
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown failed: %v", err)
	}
	log.Println("shutdown complete")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
