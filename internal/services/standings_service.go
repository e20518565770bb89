package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ultimate-fantasy/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// StandingRow is one fantasy team's season total.
type StandingRow struct {
	Rank          int    `json:"rank"`
	FantasyTeamID uint   `json:"fantasy_team_id"`
	TeamName      string `json:"team_name"`
	ManagerName   string `json:"manager_name"`
	TotalPoints   int    `json:"total_points"`
}

// standingsTTL keeps the cached table near real time without hammering the
// database on every scoreboard poll.
const standingsTTL = 15 * time.Second

type StandingsService struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewStandingsService builds the service. rdb may be nil, which disables
// caching.
func NewStandingsService(db *gorm.DB, rdb *redis.Client) *StandingsService {
	return &StandingsService{db: db, rdb: rdb}
}

// SeasonStandings returns the season table ordered by combined points,
// serving from the redis cache when warm.
func (s *StandingsService) SeasonStandings(ctx context.Context, seasonID uint) ([]StandingRow, error) {
	cacheKey := fmt.Sprintf("standings:season:%d", seasonID)
	if s.rdb != nil {
		if val, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var rows []StandingRow
			if json.Unmarshal([]byte(val), &rows) == nil {
				return rows, nil
			}
		}
	}

	type teamTotal struct {
		FantasyTeamID uint
		TeamName      string
		ManagerName   string
		TotalPoints   int
	}
	var totals []teamTotal
	err := s.db.Table("fantasy_teams t").
		Select("t.id as fantasy_team_id, t.name as team_name, t.manager_name, COALESCE(SUM(s.captain_points + s.total_points), 0) as total_points").
		Joins("LEFT JOIN week_scores s ON s.fantasy_team_id = t.id").
		Where("t.season_id = ?", seasonID).
		Group("t.id, t.name, t.manager_name").
		Order("total_points desc").
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("computing season %d standings: %w", seasonID, err)
	}

	rows := make([]StandingRow, 0, len(totals))
	for i, t := range totals {
		rows = append(rows, StandingRow{
			Rank:          i + 1,
			FantasyTeamID: t.FantasyTeamID,
			TeamName:      t.TeamName,
			ManagerName:   t.ManagerName,
			TotalPoints:   t.TotalPoints,
		})
	}

	if s.rdb != nil {
		if data, err := json.Marshal(rows); err == nil {
			s.rdb.Set(ctx, cacheKey, data, standingsTTL)
		}
	}
	return rows, nil
}

// InvalidateSeason drops cached standings after scores change.
func (s *StandingsService) InvalidateSeason(ctx context.Context, seasonID uint) {
	if s.rdb == nil {
		return
	}
	key := fmt.Sprintf("standings:season:%d", seasonID)
	s.rdb.Del(ctx, key)
}

// ExportStandings renders the season table to a spreadsheet for the admins.
func (s *StandingsService) ExportStandings(ctx context.Context, seasonID uint) (*excelize.File, error) {
	rows, err := s.SeasonStandings(ctx, seasonID)
	if err != nil {
		return nil, err
	}

	var season models.Season
	if err := s.db.First(&season, seasonID).Error; err != nil {
		return nil, fmt.Errorf("loading season %d: %w", seasonID, err)
	}

	f := excelize.NewFile()
	sheet := "Standings"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Rank", "Team", "Manager", "Points"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	for i, row := range rows {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", i+2), row.Rank)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", i+2), row.TeamName)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", i+2), row.ManagerName)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", i+2), row.TotalPoints)
	}

	return f, nil
}
