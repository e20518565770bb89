package services

import (
	"errors"
	"fmt"

	"ultimate-fantasy/internal/models"

	"gorm.io/gorm"
)

// RosterInput is one requested roster slot for a snapshot save. The player's
// position and market value are resolved server-side.
type RosterInput struct {
	PlayerID uint `json:"player_id"`
	Bench    bool `json:"bench"`
	Captain  bool `json:"captain"`
}

// RosterService owns the weekly snapshot save: it validates roster shape,
// enforces the transfer cap against the previous stored snapshot, computes
// and validates the budget, and persists the snapshot with its transfer audit
// rows in one transaction.
type RosterService struct {
	db        *gorm.DB
	transfers *TransferService
	budgets   *BudgetService
}

func NewRosterService(db *gorm.DB, transfers *TransferService, budgets *BudgetService) *RosterService {
	return &RosterService{db: db, transfers: transfers, budgets: budgets}
}

// SaveSnapshot persists a team's roster for a week. Captain presence is
// deliberately not checked here; scoring validates it lazily. While a week's
// window is open a resubmission replaces that week's snapshot; prior weeks
// are never touched.
//
// The save holds both cascade keys (the team's score key and the season's
// price key) from the first validation read through the commit, so budget and
// transfer checks never see a snapshot or market value that a concurrent
// recalculation is mid-way through rewriting.
func (s *RosterService) SaveSnapshot(teamID, weekID uint, inputs []RosterInput) (*models.RosterSnapshot, error) {
	var week models.Week
	if err := s.db.First(&week, weekID).Error; err != nil {
		return nil, fmt.Errorf("loading week %d: %w", weekID, err)
	}

	teamKey := fmt.Sprintf("team:%d", teamID)
	seasonKey := fmt.Sprintf("season:%d", week.SeasonID)
	cascadeLocks.Lock(teamKey)
	defer cascadeLocks.Unlock(teamKey)
	cascadeLocks.Lock(seasonKey)
	defer cascadeLocks.Unlock(seasonKey)

	entries, err := s.buildEntries(inputs)
	if err != nil {
		return nil, err
	}
	if err := validateRosterShape(entries); err != nil {
		return nil, err
	}

	first, err := s.transfers.IsFirstWeek(teamID, weekID)
	if err != nil {
		return nil, err
	}

	var budget float64
	var pairs []TransferPair
	var values map[uint]float64
	if first {
		budget = ComputeFirstWeekBudget(entries)
	} else {
		previous, err := s.transfers.PreviousSnapshot(teamID, weekID)
		if err != nil {
			return nil, err
		}
		pairs, err = ComputeTransfersFromSnapshots(entries, previous.Entries)
		if err != nil {
			return nil, err
		}
		if len(pairs) > MaxTransfersPerWeek {
			return nil, fmt.Errorf("%d changes, %d allowed: %w",
				len(pairs), MaxTransfersPerWeek, ErrTransferLimitExceeded)
		}

		playerIDs := make([]uint, 0, len(pairs)*2)
		for _, p := range pairs {
			playerIDs = append(playerIDs, p.PlayerOutID, p.PlayerInID)
		}
		values, err = s.budgets.MarketValues(playerIDs)
		if err != nil {
			return nil, err
		}
		budget = ComputeSubsequentBudget(previous.BudgetRemaining, pairs, values)
	}

	if !ValidateBudget(budget) {
		return nil, fmt.Errorf("budget %.2f: %w", budget, ErrInvalidBudget)
	}

	totalValue := 0.0
	for _, e := range entries {
		totalValue += e.Value
	}

	snapshot := &models.RosterSnapshot{
		FantasyTeamID:   teamID,
		WeekID:          weekID,
		TotalValue:      totalValue,
		BudgetRemaining: budget,
		Entries:         entries,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Resubmission during an open window replaces this week's
		// snapshot and its audit rows.
		var existing models.RosterSnapshot
		err := tx.Where("fantasy_team_id = ? AND week_id = ?", teamID, weekID).First(&existing).Error
		if err == nil {
			if err := tx.Where("snapshot_id = ?", existing.ID).Delete(&models.RosterEntry{}).Error; err != nil {
				return err
			}
			if err := tx.Where("fantasy_team_id = ? AND week_id = ?", teamID, weekID).Delete(&models.Transfer{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(snapshot).Error; err != nil {
			return err
		}

		// Audit deltas come from the same value read the budget used,
		// so the persisted delta always matches the budget movement.
		for _, p := range pairs {
			transfer := models.Transfer{
				FantasyTeamID: teamID,
				WeekID:        weekID,
				PlayerOutID:   p.PlayerOutID,
				PlayerInID:    p.PlayerInID,
				ValueDelta:    values[p.PlayerOutID] - values[p.PlayerInID],
			}
			if err := tx.Create(&transfer).Error; err != nil {
				return err
			}
		}

		return tx.Model(&models.FantasyTeam{}).Where("id = ?", teamID).
			Update("budget", budget).Error
	})
	if err != nil {
		return nil, fmt.Errorf("saving snapshot for team %d week %d: %w", teamID, weekID, err)
	}
	return snapshot, nil
}

// buildEntries resolves requested slots into snapshot entries with position
// and market value pinned from the player records.
func (s *RosterService) buildEntries(inputs []RosterInput) ([]models.RosterEntry, error) {
	entries := make([]models.RosterEntry, 0, len(inputs))
	for _, in := range inputs {
		var player models.Player
		if err := s.db.First(&player, in.PlayerID).Error; err != nil {
			return nil, fmt.Errorf("loading player %d: %w", in.PlayerID, err)
		}
		entries = append(entries, models.RosterEntry{
			PlayerID: player.ID,
			Position: player.Position,
			Bench:    in.Bench,
			Captain:  in.Captain,
			Value:    player.CurrentValue,
		})
	}
	return entries, nil
}

// validateRosterShape enforces the fixed roster size and position quotas:
// 7 starters (2 handlers, 3 cutters, 2 receivers) and 3 bench players (one
// per position).
func validateRosterShape(entries []models.RosterEntry) error {
	if len(entries) != models.RosterSize {
		return fmt.Errorf("roster has %d players, needs %d", len(entries), models.RosterSize)
	}

	starters := make(map[models.Position]int)
	bench := make(map[models.Position]int)
	seen := make(map[uint]bool)
	for _, e := range entries {
		if seen[e.PlayerID] {
			return fmt.Errorf("player %d appears twice in roster", e.PlayerID)
		}
		seen[e.PlayerID] = true
		if e.Bench {
			bench[e.Position]++
		} else {
			starters[e.Position]++
		}
	}

	for pos, want := range models.StarterQuota {
		if starters[pos] != want {
			return fmt.Errorf("roster needs %d starting %ss, has %d", want, pos, starters[pos])
		}
	}
	for pos, want := range models.BenchQuota {
		if bench[pos] != want {
			return fmt.Errorf("roster needs %d bench %s, has %d", want, pos, bench[pos])
		}
	}
	return nil
}
