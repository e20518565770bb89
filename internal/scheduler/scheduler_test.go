package scheduler

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"ultimate-fantasy/internal/database"
	"ultimate-fantasy/internal/models"
	"ultimate-fantasy/internal/services"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestScheduler seeds one active season with a single completed week so
// the price job has exactly one pending window.
func newTestScheduler(t *testing.T) (*Scheduler, *gorm.DB, models.Season) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("getting sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	mustCreate := func(value interface{}) {
		t.Helper()
		if err := db.Create(value).Error; err != nil {
			t.Fatalf("creating %T: %v", value, err)
		}
	}

	season := models.Season{Name: "Test Season", IsActive: true}
	mustCreate(&season)
	week := models.Week{SeasonID: season.ID, WeekNumber: 1}
	mustCreate(&week)
	home := models.Club{Name: "Condors"}
	away := models.Club{Name: "Sockeye"}
	mustCreate(&home)
	mustCreate(&away)
	game := models.Game{
		WeekID:       week.ID,
		HomeClubID:   home.ID,
		AwayClubID:   away.ID,
		StartTime:    time.Now(),
		Completed:    true,
		StatsEntered: true,
	}
	mustCreate(&game)
	player := models.Player{
		Name:          "handler-0",
		ClubID:        home.ID,
		Position:      models.PositionHandler,
		StartingValue: 50,
		CurrentValue:  50,
	}
	mustCreate(&player)

	s, err := NewScheduler(db, services.NewWindowService(db), services.NewPriceService(db))
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	return s, db, season
}

func TestCalculatePendingPricesComputesReadyWindow(t *testing.T) {
	s, db, season := newTestScheduler(t)

	s.calculatePendingPrices()

	var window models.PriceWindow
	err := db.Where("season_id = ? AND window_number = 1", season.ID).First(&window).Error
	if err != nil {
		t.Fatalf("loading window 1: %v", err)
	}
	if !window.Calculated {
		t.Error("window 1 should be calculated")
	}

	// The lone player had no stat line: price decays from 50 to 37.5.
	var price models.PlayerPrice
	if err := db.Where("window_number = 1").First(&price).Error; err != nil {
		t.Fatalf("loading window 1 price: %v", err)
	}
	if price.Price != 37.5 {
		t.Errorf("window 1 price = %v, want 37.5", price.Price)
	}
}

func TestCalculatePendingPricesReportsCheckFailure(t *testing.T) {
	s, db, _ := newTestScheduler(t)

	if err := db.Exec("DROP TABLE price_windows").Error; err != nil {
		t.Fatalf("dropping table: %v", err)
	}

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	s.calculatePendingPrices()

	if !strings.Contains(buf.String(), "Failed to check") {
		t.Errorf("log output %q should report the failed window check", buf.String())
	}
}
