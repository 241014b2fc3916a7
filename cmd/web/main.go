package main

import (
	"context"
	"html/template"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"mt5bridge/internal/auth"
	"mt5bridge/internal/config"
	"mt5bridge/internal/database"
	"mt5bridge/internal/handlers"
	"mt5bridge/internal/middleware"
	"mt5bridge/internal/mt5"
	"mt5bridge/internal/services"
)

// App holds the web backend's dependencies.
type App struct {
	config         *config.Config
	db             *database.DB
	router         *chi.Mux
	sessionManager *auth.SessionManager
	authMiddleware *middleware.AuthMiddleware
	authHandler    *handlers.AuthHandler
	dashHandler    *handlers.DashboardHandler
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Parse templates
	templates, err := parseTemplates()
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}

	encryptor, err := auth.NewEncryptor(cfg.EncryptionSecret)
	if err != nil {
		log.Fatalf("Failed to create encryptor: %v", err)
	}

	// Create session manager and drop leftover expired mirrors
	sessionManager := auth.NewSessionManager(db, encryptor)
	if removed, err := sessionManager.CleanExpired(); err != nil {
		log.Printf("Failed to clean expired sessions: %v", err)
	} else if removed > 0 {
		log.Printf("Removed %d expired sessions", removed)
	}

	auditService := services.NewAuditService(db)

	// A fresh client per request; the mirror carries the token between them
	newClient := func() *mt5.Client {
		return mt5.NewClient(cfg.MT5APIURL)
	}

	// Create middleware
	authMiddleware := middleware.NewAuthMiddleware(sessionManager)

	// Create handlers
	authHandler := handlers.NewAuthHandler(templates, sessionManager, auditService, newClient)
	dashHandler := handlers.NewDashboardHandler(templates, sessionManager, newClient)

	app := &App{
		config:         cfg,
		db:             db,
		sessionManager: sessionManager,
		authMiddleware: authMiddleware,
		authHandler:    authHandler,
		dashHandler:    dashHandler,
	}

	app.setupRouter()

	server := &http.Server{
		Addr:         cfg.WebAddress(),
		Handler:      app.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Web backend starting on http://%s", cfg.WebAddress())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func (app *App) setupRouter() {
	r := chi.NewRouter()

	// Chi middleware (aliased as chimw to avoid conflict with our middleware package)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(chimw.Compress(5))

	// Security headers for all responses
	r.Use(middleware.SecurityHeaders)

	// Load the session mirror for all routes
	r.Use(app.authMiddleware.LoadSession)

	// Health check
	r.Get("/health", app.handleHealth)

	// Login routes (redirect if already authenticated)
	// Rate limited to prevent brute force attacks
	r.Group(func(r chi.Router) {
		r.Use(app.authMiddleware.RedirectIfAuthenticated)
		r.Use(middleware.LimitAuth)
		r.Get("/login", app.authHandler.LoginPage)
		r.Post("/login", app.authHandler.Login)
	})

	r.Post("/logout", app.authHandler.Logout)

	// Protected dashboard
	r.Group(func(r chi.Router) {
		r.Use(app.authMiddleware.RequireAuth)
		r.Get("/", app.dashHandler.Dashboard)
	})

	app.router = r
}

func (app *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// parseTemplates loads and parses all page templates against the base layout.
func parseTemplates() (map[string]*template.Template, error) {
	pages := []string{"login.html", "dashboard.html"}

	cache := make(map[string]*template.Template)
	base := filepath.Join("web", "templates", "base.html")
	for _, page := range pages {
		tmpl, err := template.ParseFiles(base, filepath.Join("web", "templates", page))
		if err != nil {
			return nil, err
		}
		cache[page] = tmpl
	}

	return cache, nil
}
