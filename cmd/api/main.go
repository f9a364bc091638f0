package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"prepaid-reconcile/internal/api/handlers"
	"prepaid-reconcile/internal/api/middleware"
	"prepaid-reconcile/internal/data"
	"prepaid-reconcile/internal/metrics"
	"prepaid-reconcile/internal/store/sqlite"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Get configuration from environment
	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}

	tariffDir := handlers.DefaultTariffDir()
	if info, err := os.Stat(tariffDir); err == nil && info.IsDir() {
		log.Printf("Tariff directory found: %s", tariffDir)
	} else {
		log.Printf("Tariff directory not found at: %s (error: %v)", tariffDir, err)
	}

	timeout := 30 * time.Second
	if v := os.Getenv("LEDGER_API_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			timeout = time.Duration(n) * time.Second
		}
	}
	ledgerClient := data.NewLedgerClient(os.Getenv("LEDGER_API_BASE"), timeout)
	log.Printf("Ledger API: %s", ledgerClient.BaseURL)

	var runs handlers.RunStore
	runsDB := os.Getenv("RUNS_DB")
	if runsDB == "" {
		runsDB = "./data/runs.db"
	}
	if runsDB != "off" {
		if err := os.MkdirAll(filepath.Dir(runsDB), 0755); err != nil {
			log.Fatalf("Failed to create run store directory: %v", err)
		}
		store, err := sqlite.New(runsDB)
		if err != nil {
			log.Fatalf("Failed to open run store: %v", err)
		}
		defer store.Close()
		runs = store
		log.Printf("Storing runs in %s", runsDB)
	}

	m := metrics.New(prometheus.NewRegistry())

	// Set up Gin router
	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// Apply middleware
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	// Initialize handlers
	computeHandler := handlers.NewComputeHandler(tariffDir)
	reconcileHandler := handlers.NewReconcileHandler(tariffDir, ledgerClient, runs, m)
	tariffHandler := handlers.NewTariffHandler(tariffDir)

	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	// API routes
	api := router.Group("/api/v1")
	{
		api.POST("/compute", computeHandler.Compute)

		api.POST("/reconcile", reconcileHandler.Reconcile)
		api.GET("/reconcile", reconcileHandler.ListRuns)
		api.GET("/reconcile/:id", reconcileHandler.GetRun)
		api.GET("/reconcile/:id/report/:format", reconcileHandler.DownloadReport)

		api.GET("/tariffs", tariffHandler.ListTariffs)
		api.GET("/tariffs/:id", tariffHandler.GetTariff)
		api.GET("/columns", handlers.ListColumns)
	}

	// Serve static files from web/dist (if it exists)
	staticDir := os.Getenv("STATIC_DIR")
	if staticDir == "" {
		staticDir = "./web/dist"
	}
	if _, err := os.Stat(staticDir); err == nil {
		router.Static("/assets", staticDir+"/assets")
		router.StaticFile("/favicon.ico", staticDir+"/favicon.ico")

		// Serve index.html for all non-API routes (SPA routing)
		router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api") {
				c.JSON(404, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
			} else {
				c.File(staticDir + "/index.html")
			}
		})
		log.Printf("Serving static files from %s", staticDir)
	} else {
		log.Printf("Static directory %s not found, skipping static file serving", staticDir)
	}

	// Start server
	addr := fmt.Sprintf(":%s", port)
	log.Printf("Starting API server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
