// Command recalc re-runs score and price cascades after historical stat
// corrections that bypassed the API.
package main

import (
	"flag"
	"log"

	"ultimate-fantasy/internal/config"
	"ultimate-fantasy/internal/database"
	"ultimate-fantasy/internal/services"

	"github.com/joho/godotenv"
)

var (
	teamID   = flag.Uint("team", 0, "fantasy team id to re-score (0 = skip scores)")
	fromWeek = flag.Uint("from-week", 0, "week id to re-score from (required with -team)")
	seasonID = flag.Uint("season", 0, "season id to re-price (0 = skip prices)")
	fromWin  = flag.Int("from-window", 1, "window number to re-price from")
)

func main() {
	flag.Parse()

	if *teamID == 0 && *seasonID == 0 {
		log.Fatal("nothing to do: pass -team/-from-week and/or -season")
	}

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

	if *teamID != 0 {
		if *fromWeek == 0 {
			log.Fatal("-from-week is required with -team")
		}
		scores := services.NewScoreService(db)
		if err := scores.RecalculateAllSubsequentWeeks(*teamID, *fromWeek); err != nil {
			log.Fatalf("Score recalculation failed: %v", err)
		}
		log.Printf("Re-scored team %d from week %d", *teamID, *fromWeek)
	}

	if *seasonID != 0 {
		prices := services.NewPriceService(db)
		if err := prices.CalculateFromWindow(*seasonID, *fromWin); err != nil {
			log.Fatalf("Price recalculation failed: %v", err)
		}
		log.Printf("Re-priced season %d from window %d", *seasonID, *fromWin)
	}
}
