package main

import (
	"context"                             // Lifecycle of store clients
	"errors"                              // Server shutdown sentinel
	"net/http"                            // HTTP server
	"os/signal"                           // Stop on SIGINT/SIGTERM
	"stroke_registry/internal/api"        // Custom package for API handlers
	"stroke_registry/internal/config"     // Custom package for configuration
	"stroke_registry/internal/db"         // Store connections
	"stroke_registry/internal/repository" // Credential and patient stores
	"stroke_registry/internal/service"    // Auth and patient services
	"stroke_registry/internal/session"    // Signed cookie sessions
	"syscall"                             // Signal numbers
	"time"                                // Time durations

	"github.com/gin-gonic/gin"          // Gin web framework
	"github.com/sirupsen/logrus"        // Logrus for structured logging
	"go.mongodb.org/mongo-driver/mongo" // MongoDB client
)

const shutdownTimeout = 10 * time.Second

// Main function to set up and run the server
func main() {
	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Credential store
	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		logrus.Fatalf("failed to get sql DB: %v", err)
	}
	defer sqlDB.Close()
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("migration failed: %v", err)
	}

	// Patient store
	var patientStore repository.PatientStore
	switch cfg.PatientStore {
	case config.PatientStoreMemory:
		logrus.Warn("patients are kept in memory and will be lost on restart")
		patientStore = repository.NewMemoryPatientStore()
	default:
		mongoClient, err := db.ConnectMongo(ctx, cfg)
		if err != nil {
			logrus.Fatalf("failed to connect to MongoDB: %v", err)
		}
		defer disconnectMongo(mongoClient)
		patientStore = repository.NewMongoPatientStore(mongoClient.Database(cfg.MongoDB).Collection(cfg.MongoCollection))
	}

	// Session revocation store
	var revoker session.Revoker = session.NewMemoryRevoker()
	redisClient, err := db.ConnectRedis(ctx, cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		revoker = session.NewRedisRevoker(redisClient)
	}

	sessions, err := session.NewManager(cfg.SecretKey, session.Options{
		CookieName: cfg.SessionCookieName,
		Secure:     cfg.SessionCookieSecure,
		TTL:        cfg.SessionTTL,
	}, revoker)
	if err != nil {
		logrus.Fatalf("session manager: %v", err)
	}
	auth, err := service.NewAuthService(repository.NewUserRepository(gdb), sessions, cfg.BcryptCost)
	if err != nil {
		logrus.Fatalf("auth service: %v", err)
	}
	patients := service.NewPatientService(patientStore)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}
	if !cfg.SessionCookieSecure {
		logrus.Warn("session cookie is not restricted to HTTPS; set SESSION_COOKIE_SECURE=true behind TLS")
	}

	csrfKey, err := session.DeriveKey(cfg.SecretKey, "csrf")
	if err != nil {
		logrus.Fatalf("csrf key: %v", err)
	}
	handler, err := api.NewRouter(api.Deps{
		Auth:     auth,
		Patients: patients,
		Sessions: sessions,
		Health:   sqlDB.PingContext,
	}, api.Options{
		CSRFEnabled:    cfg.CSRFEnabled,
		CSRFKey:        csrfKey,
		SecureCookie:   cfg.SessionCookieSecure,
		TrustedProxies: []string{"127.0.0.1"},
	})
	if err != nil {
		logrus.Fatalf("router: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.Info("Server running on " + cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("shutdown: %v", err)
	}
}

func setupLogger(cfg *config.Config) {
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Warnf("unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func disconnectMongo(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logrus.Errorf("disconnect mongo: %v", err)
	}
}
