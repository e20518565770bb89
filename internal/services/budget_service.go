package services

import (
	"fmt"

	"ultimate-fantasy/internal/models"

	"gorm.io/gorm"
)

// SalaryCap is the fixed total value a fantasy roster may not exceed.
const SalaryCap = 550.0

type BudgetService struct {
	db *gorm.DB
}

func NewBudgetService(db *gorm.DB) *BudgetService {
	return &BudgetService{db: db}
}

// ComputeFirstWeekBudget returns the cap minus the full roster cost. The
// result may be negative, which is a save-time validation failure rather than
// a computation failure.
func ComputeFirstWeekBudget(entries []models.RosterEntry) float64 {
	budget := SalaryCap
	for _, e := range entries {
		budget -= e.Value
	}
	return budget
}

// ComputeSubsequentBudget carries the previous week's budget forward through
// the week's transfers at current market values. Price drift on held players
// never moves the budget; only transfers do.
func ComputeSubsequentBudget(previousBudget float64, pairs []TransferPair, marketValues map[uint]float64) float64 {
	budget := previousBudget
	for _, p := range pairs {
		budget += marketValues[p.PlayerOutID] - marketValues[p.PlayerInID]
	}
	return budget
}

// ValidateBudget reports whether a computed budget may be persisted.
func ValidateBudget(budget float64) bool {
	return budget >= 0
}

// MarketValues loads the current market value for each player id.
func (s *BudgetService) MarketValues(playerIDs []uint) (map[uint]float64, error) {
	var players []models.Player
	if err := s.db.Where("id IN ?", playerIDs).Find(&players).Error; err != nil {
		return nil, fmt.Errorf("loading player values: %w", err)
	}
	values := make(map[uint]float64, len(players))
	for _, p := range players {
		values[p.ID] = p.CurrentValue
	}
	return values, nil
}
