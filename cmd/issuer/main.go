package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mt5bridge/internal/config"
	"mt5bridge/internal/issuer"
	"mt5bridge/internal/terminal"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// The real terminal runs out of process; this service always talks to
	// it through the terminal.Terminal interface. Outside demo mode a
	// platform-specific bridge would be wired in here.
	var term terminal.Terminal = terminal.NewSimulator()
	if !cfg.DemoMode {
		log.Println("No terminal bridge configured, falling back to simulator")
	}

	store := issuer.NewMemoryStore()
	codec := issuer.NewTokenCodec(cfg.SecretKey)
	handler := issuer.NewHandler(store, codec, term, cfg.SessionTimeout)
	authMiddleware := issuer.NewAuthMiddleware(codec, store, cfg.SessionTimeout)

	router := issuer.NewRouter(handler, authMiddleware)

	server := &http.Server{
		Addr:         cfg.IssuerAddress(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Issuer starting on http://%s", cfg.IssuerAddress())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down issuer...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	term.Shutdown()
	log.Println("Issuer stopped")
}
