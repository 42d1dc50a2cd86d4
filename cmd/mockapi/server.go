package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Livingbruce/nextstep-mentorship-sub001/pkg/jwt"
	"github.com/Livingbruce/nextstep-mentorship-sub001/pkg/logger"
)

// mockapi is a local stand-in for the NextStep platform backend. It serves
// the two auth endpoints the client consumes, with the production wire
// shapes, so the client and its demo can run without the real backend.

func run() error {
	logCfg := logger.DefaultConfig()
	logCfg.Level = getEnv("NEXTSTEP_LOG_LEVEL", "info")
	logCfg.EnableFile = false
	log, err := logger.New(logCfg, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()
	logger.SetDefault(log)

	addr := getEnv("NEXTSTEP_MOCKAPI_ADDR", "127.0.0.1:5000")
	secret := getEnv("NEXTSTEP_MOCKAPI_SECRET", "mockapi-dev-secret")
	tokenTTL := getEnvDuration("NEXTSTEP_MOCKAPI_TOKEN_TTL", time.Hour)

	jwtManager := jwt.NewManager("nextstep-mockapi", []byte(secret))

	handler, err := newAuthHandler(jwtManager, tokenTTL, log)
	if err != nil {
		return fmt.Errorf("failed to seed accounts: %w", err)
	}

	router := newRouter(handler, log)

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return startServer(server, log)
}

func newRouter(handler *authHandler, log logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(log))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := engine.Group("/api/auth")
	{
		auth.POST("/login", handler.Login)
		auth.GET("/me", handler.Me)
		auth.POST("/revoke", handler.Revoke)
	}

	return engine
}

func startServer(server *http.Server, log logger.Logger) error {
	errChan := make(chan error, 1)
	go func() {
		log.Info("Mock API listening",
			logger.Component("mockapi"),
			logger.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Info("Shutting down mock API...",
			logger.Component("mockapi"),
			logger.String("signal", sig.String()),
		)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Mock API exited", logger.Component("mockapi"))
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
