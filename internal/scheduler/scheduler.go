package scheduler

import (
	"errors"
	"fmt"
	"log"
	"time"

	"ultimate-fantasy/internal/models"
	"ultimate-fantasy/internal/services"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// Scheduler runs the periodic league jobs: closing transfer windows whose
// cutoff has passed and computing prices for windows that became stat-ready.
type Scheduler struct {
	s       gocron.Scheduler
	db      *gorm.DB
	windows *services.WindowService
	prices  *services.PriceService
}

func NewScheduler(db *gorm.DB, windows *services.WindowService, prices *services.PriceService) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Scheduler{s: s, db: db, windows: windows, prices: prices}, nil
}

func (s *Scheduler) Start() error {
	_, err := s.s.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(s.closeExpiredWindows),
	)
	if err != nil {
		return fmt.Errorf("failed to create window close job: %w", err)
	}

	_, err = s.s.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(s.calculatePendingPrices),
	)
	if err != nil {
		return fmt.Errorf("failed to create price job: %w", err)
	}

	s.s.Start()
	return nil
}

func (s *Scheduler) Stop() error {
	return s.s.Shutdown()
}

func (s *Scheduler) closeExpiredWindows() {
	if _, err := s.windows.CloseExpired(time.Now()); err != nil {
		log.Printf("Failed to close expired windows: %v", err)
	}
}

// calculatePendingPrices finds, per active season, the first uncalculated
// window and tries to compute from there. StatsNotReady just means the week
// is still in progress.
func (s *Scheduler) calculatePendingPrices() {
	var seasons []models.Season
	if err := s.db.Where("is_active = ?", true).Find(&seasons).Error; err != nil {
		log.Printf("Failed to list active seasons: %v", err)
		return
	}

	for _, season := range seasons {
		var weeks []models.Week
		if err := s.db.Where("season_id = ?", season.ID).Order("week_number asc").Find(&weeks).Error; err != nil {
			log.Printf("Failed to list season %d weeks: %v", season.ID, err)
			continue
		}

		for _, week := range weeks {
			var calculated int64
			err := s.db.Model(&models.PriceWindow{}).
				Where("season_id = ? AND window_number = ? AND calculated = ?", season.ID, week.WeekNumber, true).
				Count(&calculated).Error
			if err != nil {
				log.Printf("Failed to check season %d window %d: %v", season.ID, week.WeekNumber, err)
				break
			}
			if calculated > 0 {
				continue
			}
			err = s.prices.CalculateFromWindow(season.ID, week.WeekNumber)
			if err != nil && !errors.Is(err, services.ErrStatsNotReady) {
				log.Printf("Price calculation for season %d window %d: %v", season.ID, week.WeekNumber, err)
			}
			break
		}
	}
}
