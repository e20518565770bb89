package main

import (
	"log"
	"net/http"

	"ultimate-fantasy/internal/api"
	"ultimate-fantasy/internal/cache"
	"ultimate-fantasy/internal/config"
	"ultimate-fantasy/internal/database"
	"ultimate-fantasy/internal/scheduler"
	"ultimate-fantasy/internal/services"
	"ultimate-fantasy/internal/services/statsfeed"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	rdb, err := cache.Initialize(cfg.RedisAddr)
	if err != nil {
		log.Println("Redis unavailable, standings cache disabled:", err)
		rdb = nil
	}

	var feed *statsfeed.Client
	if cfg.StatsFeedURL != "" {
		feed = statsfeed.NewClient(cfg.StatsFeedURL)
	}

	scoreSvc := services.NewScoreService(db)
	transferSvc := services.NewTransferService(db)
	budgetSvc := services.NewBudgetService(db)
	rosterSvc := services.NewRosterService(db, transferSvc, budgetSvc)
	priceSvc := services.NewPriceService(db)
	windowSvc := services.NewWindowService(db)
	standingsSvc := services.NewStandingsService(db, rdb)
	statsSvc := services.NewStatsService(db, scoreSvc, priceSvc, standingsSvc, feed)

	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	apiGroup := r.Group("/api")
	api.SetupRoutes(apiGroup, db, api.Services{
		Scores:    scoreSvc,
		Transfers: transferSvc,
		Rosters:   rosterSvc,
		Prices:    priceSvc,
		Windows:   windowSvc,
		Standings: standingsSvc,
		Stats:     statsSvc,
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	sched, err := scheduler.NewScheduler(db, windowSvc, priceSvc)
	if err != nil {
		log.Fatal("Failed to create scheduler:", err)
	}
	if err := sched.Start(); err != nil {
		log.Fatal("Failed to start scheduler:", err)
	}
	defer sched.Stop()

	log.Printf("Starting server on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to run server:", err)
	}
}
