package services

import (
	"errors"
	"fmt"

	"ultimate-fantasy/internal/models"

	"gorm.io/gorm"
)

// MaxTransfersPerWeek caps roster changes between consecutive weekly
// snapshots once a team is past its first active week.
const MaxTransfersPerWeek = 2

// TransferPair is one player-out/player-in change derived from diffing two
// snapshots. Pairing order carries no meaning; only the count does.
type TransferPair struct {
	PlayerOutID uint `json:"player_out_id"`
	PlayerInID  uint `json:"player_in_id"`
}

type TransferService struct {
	db *gorm.DB
}

func NewTransferService(db *gorm.DB) *TransferService {
	return &TransferService{db: db}
}

// IsFirstWeek reports whether the team has no snapshot at any earlier week of
// the same season. A first active week is a free roster build, not a set of
// transfers.
func (s *TransferService) IsFirstWeek(teamID, weekID uint) (bool, error) {
	var week models.Week
	if err := s.db.First(&week, weekID).Error; err != nil {
		return false, fmt.Errorf("loading week %d: %w", weekID, err)
	}

	var count int64
	err := s.db.Model(&models.RosterSnapshot{}).
		Joins("JOIN weeks ON weeks.id = roster_snapshots.week_id").
		Where("roster_snapshots.fantasy_team_id = ?", teamID).
		Where("weeks.season_id = ? AND weeks.week_number < ?", week.SeasonID, week.WeekNumber).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("counting earlier snapshots: %w", err)
	}
	return count == 0, nil
}

// GetRemainingTransfers returns how many transfers the team still has for the
// week. unlimited is true on a team's first active week. The remaining count
// can be negative when the stored snapshots already violate the cap.
func (s *TransferService) GetRemainingTransfers(teamID, weekID uint) (remaining int, unlimited bool, err error) {
	first, err := s.IsFirstWeek(teamID, weekID)
	if err != nil {
		return 0, false, err
	}
	if first {
		return 0, true, nil
	}

	current, err := s.snapshotEntries(teamID, weekID)
	if err != nil {
		return 0, false, err
	}
	previous, err := s.PreviousSnapshot(teamID, weekID)
	if err != nil {
		return 0, false, err
	}

	pairs, err := ComputeTransfersFromSnapshots(current, previous.Entries)
	if err != nil {
		return 0, false, err
	}
	return MaxTransfersPerWeek - len(pairs), false, nil
}

// PreviousSnapshot loads the team's snapshot with the greatest week number
// below the given week's, entries included.
func (s *TransferService) PreviousSnapshot(teamID, weekID uint) (*models.RosterSnapshot, error) {
	var week models.Week
	if err := s.db.First(&week, weekID).Error; err != nil {
		return nil, fmt.Errorf("loading week %d: %w", weekID, err)
	}

	var snapshot models.RosterSnapshot
	err := s.db.Preload("Entries").
		Select("roster_snapshots.*").
		Joins("JOIN weeks ON weeks.id = roster_snapshots.week_id").
		Where("roster_snapshots.fantasy_team_id = ?", teamID).
		Where("weeks.season_id = ? AND weeks.week_number < ?", week.SeasonID, week.WeekNumber).
		Order("weeks.week_number desc").
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("team %d before week %d: %w", teamID, weekID, ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *TransferService) snapshotEntries(teamID, weekID uint) ([]models.RosterEntry, error) {
	var snapshot models.RosterSnapshot
	err := s.db.Preload("Entries").
		Where("fantasy_team_id = ? AND week_id = ?", teamID, weekID).
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("team %d week %d: %w", teamID, weekID, ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, err
	}
	return snapshot.Entries, nil
}

// ComputeTransfersFromSnapshots diffs two rosters into out/in pairs. Players
// present only in before were sold; players present only in after were
// bought. Removed and added players pair up in arbitrary order. Unequal
// add/remove counts cannot come from two fixed-size rosters and are reported
// as ErrUnpairedRosterChange instead of being silently counted.
func ComputeTransfersFromSnapshots(after, before []models.RosterEntry) ([]TransferPair, error) {
	beforeIDs := make(map[uint]bool, len(before))
	for _, e := range before {
		beforeIDs[e.PlayerID] = true
	}
	afterIDs := make(map[uint]bool, len(after))
	for _, e := range after {
		afterIDs[e.PlayerID] = true
	}

	var removed, added []uint
	for _, e := range before {
		if !afterIDs[e.PlayerID] {
			removed = append(removed, e.PlayerID)
		}
	}
	for _, e := range after {
		if !beforeIDs[e.PlayerID] {
			added = append(added, e.PlayerID)
		}
	}

	if len(removed) != len(added) {
		return nil, fmt.Errorf("%d removed vs %d added: %w", len(removed), len(added), ErrUnpairedRosterChange)
	}

	pairs := make([]TransferPair, 0, len(removed))
	for i := range removed {
		pairs = append(pairs, TransferPair{PlayerOutID: removed[i], PlayerInID: added[i]})
	}
	return pairs, nil
}
