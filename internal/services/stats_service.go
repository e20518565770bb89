package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"ultimate-fantasy/internal/models"
	"ultimate-fantasy/internal/services/statsfeed"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatsService records final game statistics and drives the downstream
// recomputation: team scores, player prices, and the standings cache.
type StatsService struct {
	db        *gorm.DB
	scores    *ScoreService
	prices    *PriceService
	standings *StandingsService
	feed      *statsfeed.Client
}

func NewStatsService(db *gorm.DB, scores *ScoreService, prices *PriceService, standings *StandingsService, feed *statsfeed.Client) *StatsService {
	return &StatsService{db: db, scores: scores, prices: prices, standings: standings, feed: feed}
}

// EnterGameStats upserts a game's stat lines, marks the game completed with
// its final score, and cascades recomputation from the game's week. Entering
// corrected lines for an already completed game re-runs the same cascade.
func (s *StatsService) EnterGameStats(gameID uint, homeScore, awayScore int, lines []statsfeed.StatLine) error {
	var game models.Game
	if err := s.db.First(&game, gameID).Error; err != nil {
		return fmt.Errorf("loading game %d: %w", gameID, err)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, line := range lines {
			stat := models.PlayerGameStat{
				PlayerID:   line.PlayerID,
				GameID:     gameID,
				Played:     line.Played,
				Goals:      line.Goals,
				Assists:    line.Assists,
				Blocks:     line.Blocks,
				Drops:      line.Drops,
				Throwaways: line.Throwaways,
			}
			// A player who did not play carries an all-zero line.
			if !line.Played {
				stat.Goals, stat.Assists, stat.Blocks, stat.Drops, stat.Throwaways = 0, 0, 0, 0, 0
			}
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "player_id"}, {Name: "game_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"played", "goals", "assists", "blocks", "drops", "throwaways", "updated_at",
				}),
			}).Create(&stat).Error
			if err != nil {
				return fmt.Errorf("saving stat line for player %d: %w", line.PlayerID, err)
			}
		}

		return tx.Model(&game).Updates(map[string]interface{}{
			"completed":     true,
			"stats_entered": true,
			"home_score":    homeScore,
			"away_score":    awayScore,
		}).Error
	})
	if err != nil {
		return err
	}

	return s.CascadeFromWeek(game.WeekID)
}

// ImportGame pulls the provider's final box score for a game and enters it.
func (s *StatsService) ImportGame(gameID uint) error {
	if s.feed == nil {
		return fmt.Errorf("no stats feed configured")
	}
	report, err := s.feed.FetchGameReport(gameID)
	if err != nil {
		return fmt.Errorf("fetching box score for game %d: %w", gameID, err)
	}
	return s.EnterGameStats(gameID, report.HomeScore, report.AwayScore, report.Lines)
}

// CascadeFromWeek re-scores every team in the week's season from that week
// forward, then recomputes prices from the matching window. Score failures
// for one team do not block the others; the first price failure halts the
// price cascade.
func (s *StatsService) CascadeFromWeek(weekID uint) error {
	var week models.Week
	if err := s.db.First(&week, weekID).Error; err != nil {
		return fmt.Errorf("loading week %d: %w", weekID, err)
	}

	var teams []models.FantasyTeam
	if err := s.db.Where("season_id = ?", week.SeasonID).Find(&teams).Error; err != nil {
		return fmt.Errorf("listing season %d teams: %w", week.SeasonID, err)
	}

	for _, team := range teams {
		if err := s.scores.RecalculateAllSubsequentWeeks(team.ID, weekID); err != nil {
			log.Printf("Score recalculation failed for team %d from week %d: %v", team.ID, week.WeekNumber, err)
		}
	}

	// Prices wait until every game of the week is final; anything else is a
	// real failure.
	err := s.prices.CalculateFromWindow(week.SeasonID, week.WeekNumber)
	if err != nil && !errors.Is(err, ErrStatsNotReady) {
		return err
	}

	if s.standings != nil {
		s.standings.InvalidateSeason(context.Background(), week.SeasonID)
	}
	return nil
}
