package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"ultimate-fantasy/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PriceService struct {
	db *gorm.DB
}

func NewPriceService(db *gorm.DB) *PriceService {
	return &PriceService{db: db}
}

// nextPrice applies the market formula: the price moves a quarter of the way
// from its previous value toward ten times the trailing average points.
func nextPrice(previous, avgPoints float64) float64 {
	return previous + (10*avgPoints-previous)/4
}

// SeedStartingPrices creates window 0 for a season from each player's
// manually set starting value. Idempotent; existing rows are left alone.
func (s *PriceService) SeedStartingPrices(seasonID uint) error {
	var players []models.Player
	if err := s.db.Find(&players).Error; err != nil {
		return fmt.Errorf("loading players: %w", err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		window := models.PriceWindow{SeasonID: seasonID, WindowNumber: 0, Calculated: true}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "season_id"}, {Name: "window_number"}},
			DoNothing: true,
		}).Create(&window).Error
		if err != nil {
			return err
		}

		for _, p := range players {
			price := models.PlayerPrice{
				SeasonID:     seasonID,
				PlayerID:     p.ID,
				WindowNumber: 0,
				Price:        p.StartingValue,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "season_id"}, {Name: "player_id"}, {Name: "window_number"}},
				DoNothing: true,
			}).Create(&price).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// HasRequiredStats reports whether every game of the week is completed with
// stats entered. A week with no scheduled games is never ready.
func (s *PriceService) HasRequiredStats(weekID uint) (bool, error) {
	var total, ready int64
	if err := s.db.Model(&models.Game{}).Where("week_id = ?", weekID).Count(&total).Error; err != nil {
		return false, fmt.Errorf("counting week %d games: %w", weekID, err)
	}
	if total == 0 {
		return false, nil
	}
	err := s.db.Model(&models.Game{}).
		Where("week_id = ? AND completed = ? AND stats_entered = ?", weekID, true, true).
		Count(&ready).Error
	if err != nil {
		return false, fmt.Errorf("counting week %d ready games: %w", weekID, err)
	}
	return ready == total, nil
}

// CalculateFromWindow recomputes window startWindow and every subsequent
// window up through the last one whose week has required stats, in ascending
// order. Each window's price depends on the previous window's freshly stored
// price, so cascades for the same season serialize and never run out of
// order. A failure halts the cascade; windows already written stay valid.
func (s *PriceService) CalculateFromWindow(seasonID uint, startWindow int) error {
	if startWindow < 1 {
		startWindow = 1
	}

	key := fmt.Sprintf("season:%d", seasonID)
	cascadeLocks.Lock(key)
	defer cascadeLocks.Unlock(key)

	last, err := s.lastWindowWithStats(seasonID)
	if err != nil {
		return err
	}
	if last < startWindow {
		return fmt.Errorf("season %d window %d: %w", seasonID, startWindow, ErrStatsNotReady)
	}

	for n := startWindow; n <= last; n++ {
		if err := s.calculateWindow(seasonID, n); err != nil {
			return err
		}
		log.Printf("Calculated prices for season %d window %d", seasonID, n)
	}
	return nil
}

// lastWindowWithStats finds the highest week number whose stats are complete.
// Returns 0 when no week is ready yet.
func (s *PriceService) lastWindowWithStats(seasonID uint) (int, error) {
	var weeks []models.Week
	err := s.db.Where("season_id = ?", seasonID).Order("week_number asc").Find(&weeks).Error
	if err != nil {
		return 0, fmt.Errorf("listing season %d weeks: %w", seasonID, err)
	}

	last := 0
	for _, w := range weeks {
		ready, err := s.HasRequiredStats(w.ID)
		if err != nil {
			return 0, err
		}
		if !ready {
			break
		}
		last = w.WeekNumber
	}
	return last, nil
}

// calculateWindow computes window n prices for every player and marks the
// window calculated. Recalculating an already calculated window overwrites
// the stored prices without touching window state.
func (s *PriceService) calculateWindow(seasonID uint, n int) error {
	week, err := s.weekByNumber(seasonID, n)
	if err != nil {
		return err
	}

	ready, err := s.HasRequiredStats(week.ID)
	if err != nil {
		return err
	}
	if !ready {
		return fmt.Errorf("season %d window %d: %w", seasonID, n, ErrStatsNotReady)
	}

	currentPoints, err := s.weekPoints(week.ID)
	if err != nil {
		return err
	}
	var priorPoints map[uint]int
	if n >= 2 {
		priorWeek, err := s.weekByNumber(seasonID, n-1)
		if err != nil {
			return err
		}
		priorPoints, err = s.weekPoints(priorWeek.ID)
		if err != nil {
			return err
		}
	}

	previousPrices, err := s.windowPrices(seasonID, n-1)
	if err != nil {
		return err
	}

	var players []models.Player
	if err := s.db.Find(&players).Error; err != nil {
		return fmt.Errorf("loading players: %w", err)
	}

	now := time.Now()
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, p := range players {
			previous, ok := previousPrices[p.ID]
			if !ok {
				previous = p.StartingValue
			}

			// A player who did not play contributes 0 points to the
			// average, not a missing value.
			avg := float64(currentPoints[p.ID])
			if n >= 2 {
				avg = float64(priorPoints[p.ID]+currentPoints[p.ID]) / 2
			}
			price := nextPrice(previous, avg)

			row := models.PlayerPrice{
				SeasonID:     seasonID,
				PlayerID:     p.ID,
				WindowNumber: n,
				Price:        price,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "season_id"}, {Name: "player_id"}, {Name: "window_number"}},
				DoUpdates: clause.AssignmentColumns([]string{"price", "updated_at"}),
			}).Create(&row).Error
			if err != nil {
				return fmt.Errorf("saving price for player %d window %d: %w", p.ID, n, err)
			}

			err = tx.Model(&models.Player{}).Where("id = ?", p.ID).
				Update("current_value", price).Error
			if err != nil {
				return fmt.Errorf("updating player %d value: %w", p.ID, err)
			}
		}

		window := models.PriceWindow{
			SeasonID:     seasonID,
			WindowNumber: n,
			Calculated:   true,
			CalculatedAt: &now,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "season_id"}, {Name: "window_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"calculated", "calculated_at", "updated_at"}),
		}).Create(&window).Error
	})
}

func (s *PriceService) weekByNumber(seasonID uint, number int) (*models.Week, error) {
	var week models.Week
	err := s.db.Where("season_id = ? AND week_number = ?", seasonID, number).First(&week).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("season %d has no week %d", seasonID, number)
	}
	if err != nil {
		return nil, err
	}
	return &week, nil
}

// weekPoints computes each player's fantasy points for the week. Players
// without a played stat line are absent from the map and count as zero.
func (s *PriceService) weekPoints(weekID uint) (map[uint]int, error) {
	var rows []models.PlayerGameStat
	err := s.db.
		Select("player_game_stats.*").
		Joins("JOIN games ON games.id = player_game_stats.game_id").
		Where("games.week_id = ?", weekID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading week %d stats: %w", weekID, err)
	}

	points := make(map[uint]int, len(rows))
	for _, r := range rows {
		if r.Played {
			points[r.PlayerID] = r.FantasyPoints()
		}
	}
	return points, nil
}

// windowPrices loads the stored prices for one window keyed by player id.
func (s *PriceService) windowPrices(seasonID uint, n int) (map[uint]float64, error) {
	var rows []models.PlayerPrice
	err := s.db.Where("season_id = ? AND window_number = ?", seasonID, n).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading window %d prices: %w", n, err)
	}
	prices := make(map[uint]float64, len(rows))
	for _, r := range rows {
		prices[r.PlayerID] = r.Price
	}
	return prices, nil
}
