package services

import (
	"testing"

	"ultimate-fantasy/internal/models"
	"ultimate-fantasy/internal/services/statsfeed"
)

func newStatsService(f *fixture) (*StatsService, *ScoreService) {
	scores := NewScoreService(f.db)
	prices := NewPriceService(f.db)
	standings := NewStandingsService(f.db, nil)
	return NewStatsService(f.db, scores, prices, standings, nil), scores
}

func TestEnterGameStatsCompletesGame(t *testing.T) {
	f := newFixture(t)
	svc, _ := newStatsService(f)

	lines := []statsfeed.StatLine{
		{PlayerID: f.handlers[0].ID, Played: true, Goals: 2, Assists: 1},
		{PlayerID: f.cutters[0].ID, Played: false, Goals: 99}, // ignored counters
	}
	if err := svc.EnterGameStats(f.games[0].ID, 15, 12, lines); err != nil {
		t.Fatalf("EnterGameStats: %v", err)
	}

	var game models.Game
	if err := f.db.First(&game, f.games[0].ID).Error; err != nil {
		t.Fatalf("loading game: %v", err)
	}
	if !game.Completed || !game.StatsEntered {
		t.Error("game should be completed with stats entered")
	}
	if game.HomeScore != 15 || game.AwayScore != 12 {
		t.Errorf("score = %d-%d, want 15-12", game.HomeScore, game.AwayScore)
	}

	// The benched line is stored zeroed.
	var stat models.PlayerGameStat
	err := f.db.Where("player_id = ? AND game_id = ?", f.cutters[0].ID, f.games[0].ID).First(&stat).Error
	if err != nil {
		t.Fatalf("loading stat line: %v", err)
	}
	if stat.Played || stat.Goals != 0 {
		t.Errorf("non-playing line = %+v, want zeroed", stat)
	}
}

func TestEnterGameStatsCorrectionUpserts(t *testing.T) {
	f := newFixture(t)
	svc, _ := newStatsService(f)

	first := []statsfeed.StatLine{{PlayerID: f.handlers[0].ID, Played: true, Goals: 1}}
	if err := svc.EnterGameStats(f.games[0].ID, 15, 10, first); err != nil {
		t.Fatalf("first entry: %v", err)
	}
	corrected := []statsfeed.StatLine{{PlayerID: f.handlers[0].ID, Played: true, Goals: 3}}
	if err := svc.EnterGameStats(f.games[0].ID, 15, 10, corrected); err != nil {
		t.Fatalf("correction: %v", err)
	}

	var count int64
	f.db.Model(&models.PlayerGameStat{}).
		Where("player_id = ? AND game_id = ?", f.handlers[0].ID, f.games[0].ID).Count(&count)
	if count != 1 {
		t.Fatalf("have %d stat rows, want 1", count)
	}
	var stat models.PlayerGameStat
	f.db.Where("player_id = ? AND game_id = ?", f.handlers[0].ID, f.games[0].ID).First(&stat)
	if stat.Goals != 3 {
		t.Errorf("goals = %d, want 3", stat.Goals)
	}
}

// Entering final stats re-scores existing snapshots and recomputes prices in
// one pass.
func TestEnterGameStatsCascades(t *testing.T) {
	f := newFixture(t)
	svc, _ := newStatsService(f)
	prices := NewPriceService(f.db)
	if err := prices.SeedStartingPrices(f.season.ID); err != nil {
		t.Fatalf("SeedStartingPrices: %v", err)
	}

	team := f.newTeam(t, "Hucks")
	f.saveSnapshot(t, team.ID, 1, f.defaultRoster(), 50)

	lines := []statsfeed.StatLine{
		{PlayerID: f.handlers[0].ID, Played: true, Goals: 2}, // captain, doubled
		{PlayerID: f.handlers[1].ID, Played: true, Goals: 1},
	}
	for _, p := range []models.Player{f.cutters[0], f.cutters[1], f.cutters[2], f.receivers[0], f.receivers[1]} {
		lines = append(lines, statsfeed.StatLine{PlayerID: p.ID, Played: true})
	}
	if err := svc.EnterGameStats(f.games[0].ID, 15, 13, lines); err != nil {
		t.Fatalf("EnterGameStats: %v", err)
	}

	var score models.WeekScore
	err := f.db.Where("fantasy_team_id = ? AND week_id = ?", team.ID, f.weeks[0].ID).First(&score).Error
	if err != nil {
		t.Fatalf("loading week score: %v", err)
	}
	if score.CaptainPoints != 4 || score.TotalPoints != 1 {
		t.Errorf("score = captain %d total %d, want captain 4 total 1", score.CaptainPoints, score.TotalPoints)
	}

	var price models.PlayerPrice
	err = f.db.Where("player_id = ? AND window_number = 1", f.handlers[0].ID).First(&price).Error
	if err != nil {
		t.Fatalf("loading window 1 price: %v", err)
	}
	if price.Price != 42.5 { // 50 + (20-50)/4
		t.Errorf("window 1 price = %v, want 42.5", price.Price)
	}
}
