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

	"github.com/gin-gonic/gin"
	"redfishd/api"
	"redfishd/api/redfish"
	"redfishd/database"
	"redfishd/middleware"
	"redfishd/services/account"
	"redfishd/services/session"
	"redfishd/utils/config"
)

func main() {
	log.Println("Starting redfishd...")

	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	if err := database.Initialize(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// Ensure the default account exists for first boot
	accounts := account.New(database.GetDB())
	if err := accounts.EnsureDefault(cfg.Auth.DefaultUsername, cfg.Auth.DefaultPassword); err != nil {
		log.Fatalf("Failed to bootstrap default account: %v", err)
	}

	// Session store with background expiry
	sessions := session.New(database.GetDB(), cfg.Auth.SessionTimeout)
	reaper := session.NewReaper(sessions, time.Minute)
	go reaper.Start()
	defer reaper.Stop()

	// Build the resource tree once; every listener shares it read-only
	serviceTree, err := redfish.NewServiceTree(sessions)
	if err != nil {
		log.Fatalf("Failed to build resource tree: %v", err)
	}

	// Set Gin mode based on log level
	if config.IsDebugMode() {
		gin.SetMode(gin.DebugMode)
		log.Println("Running in DEBUG mode")
	} else {
		gin.SetMode(gin.ReleaseMode)
		log.Println("Running in RELEASE mode")
	}

	// Plain-HTTP listener: no TLS, no authentication
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:           httpAddr,
		Handler:        api.NewEngine(middleware.Policy{}, serviceTree, accounts, sessions),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Printf("Redfish service listening on http://%s", httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// TLS listener: requires TLS and HTTP Basic authentication
	var tlsServer *http.Server
	if cfg.TLS.Enabled {
		tlsAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.TLS.Port)
		tlsServer = &http.Server{
			Addr:           tlsAddr,
			Handler:        api.NewEngine(middleware.Policy{RequiresTLS: true, RequiresAuth: true}, serviceTree, accounts, sessions),
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			IdleTimeout:    cfg.Server.IdleTimeout,
			MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		}

		go func() {
			log.Printf("Redfish service listening on https://%s", tlsAddr)
			if err := tlsServer.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile); err != nil && err != http.ErrServerClosed {
				log.Fatalf("TLS server failed: %v", err)
			}
		}()
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Error during HTTP shutdown: %v", err)
	}
	if tlsServer != nil {
		if err := tlsServer.Shutdown(ctx); err != nil {
			log.Printf("Error during TLS shutdown: %v", err)
		}
	}

	log.Println("Service stopped gracefully")
}
