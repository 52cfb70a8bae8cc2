package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.temporal.io/sdk/client"

	"github.com/bravebird/rdie/internal/config"
	"github.com/bravebird/rdie/internal/rdielog"
	"github.com/bravebird/rdie/pkg/api"
	"github.com/bravebird/rdie/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := rdielog.New(cfg.Logging.Level, cfg.Logging.JSON)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting RDIE API server")

	db, err := database.New(cfg.MySQL.DSN)
	if err != nil {
		logger.Warnw("running without database persistence", "error", err)
		db = nil
	}
	if db != nil {
		defer db.Close()
	}

	temporalClient, err := client.Dial(client.Options{HostPort: cfg.Temporal.HostPort})
	if err != nil {
		logger.Fatalw("failed to create Temporal client", "error", err)
	}
	defer temporalClient.Close()

	handlers := api.NewHandlers(db, temporalClient, cfg.Temporal.TaskQueue, cfg.Browser.ScreenshotDir, logger)

	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}).Methods("GET")

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/runs", handlers.SubmitCheckoutRun).Methods("POST")
	apiRouter.HandleFunc("/runs", handlers.ListCheckoutRuns).Methods("GET")
	apiRouter.HandleFunc("/runs/{id}", handlers.GetCheckoutRun).Methods("GET")
	apiRouter.HandleFunc("/runs/{id}/cancel", handlers.CancelCheckoutRun).Methods("POST")
	apiRouter.HandleFunc("/runs/{id}/stream", handlers.StreamCheckoutRun).Methods("GET")
	apiRouter.HandleFunc("/screenshots/{filename}", handlers.ServeScreenshot).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      c.Handler(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * cfg.Server.ReadTimeout,
	}

	go func() {
		logger.Infow("API server listening", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatalw("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}
