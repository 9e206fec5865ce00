package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"remi/internal/config"
	"remi/internal/handlers"
	"remi/internal/logging"
	"remi/internal/middleware"
	"remi/internal/services"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting Remi Agenda Tracker...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Agenda: %s)", cfg.Port, cfg.AgendaFile)

	// Connection registry doubles as the state broadcaster
	connManager := services.NewConnectionManager()
	services.InitMetrics(connManager)

	// Analysis oracle: without an API key the tracker still records the
	// transcript, it just never infers status changes
	var oracle services.AnalysisOracle
	if cfg.OpenAIAPIKey != "" {
		oracle = services.NewOpenAIOracle(services.OpenAIOracleConfig{
			APIKey:   cfg.OpenAIAPIKey,
			BaseURL:  cfg.OpenAIBaseURL,
			Model:    cfg.OracleModel,
			Timeout:  cfg.OracleTimeout,
			Rate:     cfg.OracleRate,
			CacheTTL: cfg.OracleCacheTTL,
		})
		log.Printf("🤖 Analysis oracle initialized (model: %s)", cfg.OracleModel)
	} else {
		log.Println("⚠️ OPENAI_API_KEY not set - agenda analysis disabled, transcript recording only")
	}

	sessionManager, err := services.NewSessionManager(oracle, connManager, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("❌ Failed to initialize session manager: %v", err)
	}

	// Bootstrap the default session from the agenda file, generating the
	// example agenda when none exists yet
	if _, err := os.Stat(cfg.AgendaFile); os.IsNotExist(err) {
		log.Printf("📝 No agenda file at %s, writing example agenda", cfg.AgendaFile)
		if err := config.WriteExampleAgenda(cfg.AgendaFile); err != nil {
			log.Fatalf("❌ Failed to write example agenda: %v", err)
		}
	}
	if err := loadDefaultSession(cfg.AgendaFile, sessionManager); err != nil {
		log.Fatalf("❌ Failed to load agenda: %v", err)
	}

	// Re-create the default session whenever the agenda file changes
	go watchAgendaFile(cfg.AgendaFile, sessionManager)

	app := fiber.New(fiber.Config{
		AppName:               "Remi Agenda Tracker",
		DisableStartupMessage: false,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	prometheus := fiberprometheus.New("remi")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
	}))

	rateLimitConfig := middleware.LoadRateLimitConfig()
	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))
	log.Println("🛡️  [RATE-LIMIT] Global API rate limiter enabled")

	healthHandler := handlers.NewHealthHandler(connManager, sessionManager)
	sessionHandler := handlers.NewSessionHandler(sessionManager, connManager)
	wsHandler := handlers.NewWebSocketHandler(connManager, sessionManager)

	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")
	sessionCreateLimiter := middleware.SessionCreateRateLimiter(rateLimitConfig)
	api.Post("/sessions", sessionCreateLimiter, sessionHandler.Create)
	api.Get("/sessions", sessionHandler.List)
	api.Get("/sessions/:id/state", sessionHandler.GetState)
	api.Delete("/sessions/:id", sessionHandler.Delete)

	// WebSocket route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			c.Locals("client_ip", c.IP())
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	wsConnectionLimiter := middleware.WebSocketRateLimiter(rateLimitConfig)
	app.Use("/ws/meeting", wsConnectionLimiter)
	app.Get("/ws/meeting", websocket.New(wsHandler.Handle))

	// Graceful shutdown on SIGINT/SIGTERM
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("🛑 Shutting down...")
		sessionManager.Shutdown()
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Server shutdown error: %v", err)
		}
	}()

	log.Printf("🌐 Server listening on :%s (ws://localhost:%s/ws/meeting)", cfg.Port, cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}
}

// loadDefaultSession parses the agenda file and (re)creates the default session
func loadDefaultSession(filePath string, sessionManager *services.SessionManager) error {
	def, err := config.LoadAgendaDefinition(filePath)
	if err != nil {
		return err
	}
	store, err := sessionManager.CreateSession(services.DefaultSessionID, def)
	if err != nil {
		return err
	}
	log.Printf("✅ Loaded agenda: %s", store.MeetingTitle())
	return nil
}

// watchAgendaFile reloads the default session when the agenda file changes.
// A fresh session replaces the old one; live state is never patched in place.
func watchAgendaFile(filePath string, sessionManager *services.SessionManager) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("⚠️ File watcher unavailable: %v", err)
		return
	}
	defer watcher.Close()

	dir := filepath.Dir(filePath)
	filename := filepath.Base(filePath)
	if err := watcher.Add(dir); err != nil {
		log.Printf("⚠️ Failed to watch %s: %v", dir, err)
		return
	}

	// Debounce timer to avoid multiple reloads for rapid file changes
	var debounceTimer *time.Timer
	debounceDuration := 500 * time.Millisecond

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					log.Printf("🔄 Detected changes in %s, reloading agenda...", filePath)
					if err := loadDefaultSession(filePath, sessionManager); err != nil {
						log.Printf("❌ Failed to reload agenda: %v", err)
					}
				})
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  File watcher error: %v", err)
		}
	}
}
