package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/gin-gonic/gin"

	"github.com/edusentry/proctor_backend_v1/internal/config"
	"github.com/edusentry/proctor_backend_v1/internal/database"
	"github.com/edusentry/proctor_backend_v1/internal/proctoring"
	"github.com/edusentry/proctor_backend_v1/internal/routes"
	"github.com/edusentry/proctor_backend_v1/internal/ws"
)

func main() {
	// Load .env (non-fatal if missing in production)
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	if err := database.SeedAdmin(db, cfg); err != nil {
		log.Fatalf("admin seed failed: %v", err)
	}

	hubs := ws.NewHubs()
	go hubs.Monitor.Run()
	go hubs.Student.Run()

	engine := proctoring.NewEngine(proctoring.Config{
		Thresholds: proctoring.Thresholds{
			Medium:   cfg.RiskMediumThreshold,
			High:     cfg.RiskHighThreshold,
			Critical: cfg.RiskCriticalThreshold,
		},
		RefireAlerts: cfg.AlertRefire,
	}, proctoring.Sinks{
		Alerts:     hubs.Monitor,
		Broadcast:  hubs.Monitor,
		Directives: hubs.Student,
		Archive:    database.NewArchive(db),
	})
	defer engine.Close()

	r := gin.Default()
	routes.Register(r, db, cfg, engine, hubs)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Println("server exited with error:", err)
		os.Exit(1)
	}
}
