package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hanloto/fortuna/config"
	"github.com/hanloto/fortuna/internal/adapter/oracle"
	"github.com/hanloto/fortuna/internal/adapter/orders"
	"github.com/hanloto/fortuna/internal/adapter/rounds"
	"github.com/hanloto/fortuna/internal/domain"
	store "github.com/hanloto/fortuna/internal/repository"
	"github.com/hanloto/fortuna/internal/service"
	"github.com/hanloto/fortuna/internal/transport/http/internalapi"
	v1 "github.com/hanloto/fortuna/internal/transport/http/v1"
	"github.com/hanloto/fortuna/policy"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARN: failed to load .env: %v", err)
	}

	cfg := config.Load()

	log.Printf("Starting fortuna...")
	log.Printf("Public HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Internal HTTP Port: %d", cfg.InternalPort)
	log.Printf("Database: %s", cfg.DatabaseURL)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize collaborators
	orc := oracle.NewOracle(cfg.OracleURL, cfg.OracleAPIKey, cfg.OracleTimeout)

	var orderGateway orders.Gateway
	if cfg.OrderServiceURL != "" {
		orderGateway = orders.NewClient(cfg.OrderServiceURL, cfg.LookupTimeout)
	} else {
		orderGateway = orders.NewStoreGateway(db)
	}

	roundSource := rounds.NewSource(cfg.RoundServiceURL, cfg.LookupTimeout)

	// Initialize payment gate
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gate, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize payment gate: %v", err)
	}

	// Initialize service
	metrics := service.NewMetrics("fortuna")
	svc := service.New(db, orc, orderGateway, roundSource, gate, domain.ShuffledSuggestions{}, cfg, metrics)

	// Background sweeper
	svc.StartSweeper(ctx, cfg.SweepInterval)

	// Initialize handlers
	h := v1.NewHandler(svc)
	internalH := internalapi.NewHandler(svc)

	// Create public Echo server
	publicServer := echo.New()
	publicServer.HideBanner = true

	// Middleware
	publicServer.Use(middleware.Logger())
	publicServer.Use(middleware.Recover())
	publicServer.Use(middleware.CORS())

	h.RegisterRoutes(publicServer)

	// Create internal Echo server (sweeps + metrics)
	internalServer := echo.New()
	internalServer.HideBanner = true

	internalServer.Use(middleware.Logger())
	internalServer.Use(middleware.Recover())

	internalH.RegisterRoutes(internalServer)

	// Start public server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := publicServer.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start public server: %v", err)
		}
	}()

	// Start internal server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.InternalPort)
		if err := internalServer.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start internal server: %v", err)
		}
	}()

	log.Printf("Public API started on port %d", cfg.HTTPPort)
	log.Printf("Internal API started on port %d", cfg.InternalPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down fortuna...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := publicServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown public server gracefully: %v", err)
	}
	if err := internalServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown internal server gracefully: %v", err)
	}

	log.Println("Fortuna stopped")
}
