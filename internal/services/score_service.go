package services

import (
	"errors"
	"fmt"
	"log"

	"ultimate-fantasy/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Substitution records a bench player standing in for a starter who did not
// play.
type Substitution struct {
	PlayerOutID uint `json:"player_out_id"`
	PlayerInID  uint `json:"player_in_id"`
}

// ScoreResult is one team's computed score for one week. CaptainPoints is the
// doubled captain slot; TotalPoints is the sum of the remaining scoring
// starters. The combined score is CaptainPoints + TotalPoints.
type ScoreResult struct {
	CaptainPoints int            `json:"captain_points"`
	TotalPoints   int            `json:"total_points"`
	Substitutions []Substitution `json:"substitutions"`
}

type ScoreService struct {
	db *gorm.DB

	// OnScoreSaved, when set, is called after each persisted score. The
	// API layer uses it to push live updates.
	OnScoreSaved func(score models.WeekScore)
}

func NewScoreService(db *gorm.DB) *ScoreService {
	return &ScoreService{db: db}
}

// CalculateWeekScore computes the week's fantasy points for a team without
// persisting anything. It is a pure function of the stored snapshot and stat
// lines: running it twice on unchanged data returns identical results.
func (s *ScoreService) CalculateWeekScore(teamID, weekID uint) (*ScoreResult, error) {
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

	var captain *models.RosterEntry
	for i := range snapshot.Entries {
		e := &snapshot.Entries[i]
		if e.Captain && !e.Bench {
			captain = e
			break
		}
	}
	if captain == nil {
		return nil, fmt.Errorf("team %d week %d: %w", teamID, weekID, ErrNoCaptain)
	}

	stats, err := s.weekStats(weekID, snapshot.Entries)
	if err != nil {
		return nil, err
	}

	// One bench entry per position by the roster quota invariant.
	benchByPosition := make(map[models.Position]*models.RosterEntry)
	for i := range snapshot.Entries {
		e := &snapshot.Entries[i]
		if e.Bench {
			benchByPosition[e.Position] = e
		}
	}

	result := &ScoreResult{Substitutions: []Substitution{}}
	for i := range snapshot.Entries {
		starter := &snapshot.Entries[i]
		if starter.Bench {
			continue
		}

		scoringStat, substitute := resolveSlot(starter, benchByPosition, stats)
		if scoringStat == nil {
			continue // nobody in this slot played; it scores zero
		}
		if substitute != nil {
			result.Substitutions = append(result.Substitutions, Substitution{
				PlayerOutID: starter.PlayerID,
				PlayerInID:  substitute.PlayerID,
			})
		}

		points := scoringStat.FantasyPoints()
		if starter.PlayerID == captain.PlayerID {
			result.CaptainPoints = points * 2
		} else {
			result.TotalPoints += points
		}
	}

	return result, nil
}

// resolveSlot picks the stat line that scores for a starter's slot. The
// starter scores when they played; otherwise the same-position bench player
// scores if they played; otherwise the slot is empty.
func resolveSlot(
	starter *models.RosterEntry,
	benchByPosition map[models.Position]*models.RosterEntry,
	stats map[uint]models.PlayerGameStat,
) (*models.PlayerGameStat, *models.RosterEntry) {
	if stat, ok := stats[starter.PlayerID]; ok && stat.Played {
		return &stat, nil
	}

	bench, ok := benchByPosition[starter.Position]
	if !ok {
		return nil, nil
	}
	if stat, ok := stats[bench.PlayerID]; ok && stat.Played {
		return &stat, bench
	}
	return nil, nil
}

// weekStats loads the stat lines for the roster's players across the week's
// games, keyed by player id.
func (s *ScoreService) weekStats(weekID uint, entries []models.RosterEntry) (map[uint]models.PlayerGameStat, error) {
	playerIDs := make([]uint, 0, len(entries))
	for _, e := range entries {
		playerIDs = append(playerIDs, e.PlayerID)
	}

	var rows []models.PlayerGameStat
	err := s.db.
		Select("player_game_stats.*").
		Joins("JOIN games ON games.id = player_game_stats.game_id").
		Where("games.week_id = ? AND player_game_stats.player_id IN ?", weekID, playerIDs).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading week %d stats: %w", weekID, err)
	}

	stats := make(map[uint]models.PlayerGameStat, len(rows))
	for _, r := range rows {
		stats[r.PlayerID] = r
	}
	return stats, nil
}

// CalculateAndSaveWeekScore computes the week's score and upserts it for the
// (team, week) pair.
func (s *ScoreService) CalculateAndSaveWeekScore(teamID, weekID uint) error {
	result, err := s.CalculateWeekScore(teamID, weekID)
	if err != nil {
		return err
	}

	score := models.WeekScore{
		FantasyTeamID: teamID,
		WeekID:        weekID,
		CaptainPoints: result.CaptainPoints,
		TotalPoints:   result.TotalPoints,
	}
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fantasy_team_id"}, {Name: "week_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"captain_points", "total_points", "updated_at"}),
	}).Create(&score).Error
	if err != nil {
		return fmt.Errorf("saving score for team %d week %d: %w", teamID, weekID, err)
	}

	if s.OnScoreSaved != nil {
		s.OnScoreSaved(score)
	}
	return nil
}

// RecalculateAllSubsequentWeeks re-runs and re-persists scores for fromWeek
// and every later week the team has a snapshot for, in week order. Called
// after historical stat lines are corrected. Cascades for the same team
// serialize; the first failure halts the cascade and leaves earlier weeks in
// their last written state.
func (s *ScoreService) RecalculateAllSubsequentWeeks(teamID, fromWeekID uint) error {
	key := fmt.Sprintf("team:%d", teamID)
	cascadeLocks.Lock(key)
	defer cascadeLocks.Unlock(key)

	var from models.Week
	if err := s.db.First(&from, fromWeekID).Error; err != nil {
		return fmt.Errorf("loading week %d: %w", fromWeekID, err)
	}

	var weeks []models.Week
	err := s.db.
		Select("weeks.*").
		Joins("JOIN roster_snapshots ON roster_snapshots.week_id = weeks.id AND roster_snapshots.fantasy_team_id = ?", teamID).
		Where("weeks.season_id = ? AND weeks.week_number >= ?", from.SeasonID, from.WeekNumber).
		Order("weeks.week_number asc").
		Find(&weeks).Error
	if err != nil {
		return fmt.Errorf("listing weeks to recalculate: %w", err)
	}

	for _, week := range weeks {
		if err := s.CalculateAndSaveWeekScore(teamID, week.ID); err != nil {
			return err
		}
		log.Printf("Recalculated score for team %d week %d", teamID, week.WeekNumber)
	}
	return nil
}
