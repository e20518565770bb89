package services

import (
	"fmt"
	"testing"
	"time"

	"ultimate-fantasy/internal/database"
	"ultimate-fantasy/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database. Capping open connections
// at one keeps every query on the same sqlite memory instance.
func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

// fixture is a small seeded league: one season with four weeks, two clubs,
// one game per week between them, and a player pool wide enough for roster
// quotas plus transfer targets.
type fixture struct {
	db        *gorm.DB
	season    models.Season
	weeks     []models.Week // weeks[0] is week 1
	clubs     []models.Club
	games     []models.Game // games[0] belongs to week 1
	handlers  []models.Player
	cutters   []models.Player
	receivers []models.Player
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{db: db}

	f.season = models.Season{Name: "Test Season", IsActive: true}
	mustCreate(t, db, &f.season)

	for n := 1; n <= 4; n++ {
		week := models.Week{SeasonID: f.season.ID, WeekNumber: n}
		mustCreate(t, db, &week)
		f.weeks = append(f.weeks, week)
	}

	for _, name := range []string{"Condors", "Sockeye"} {
		club := models.Club{Name: name}
		mustCreate(t, db, &club)
		f.clubs = append(f.clubs, club)
	}

	for i, week := range f.weeks {
		game := models.Game{
			WeekID:     week.ID,
			HomeClubID: f.clubs[0].ID,
			AwayClubID: f.clubs[1].ID,
			StartTime:  time.Now().AddDate(0, 0, 7*i),
		}
		mustCreate(t, db, &game)
		f.games = append(f.games, game)
	}

	newPlayer := func(pos models.Position, i int) models.Player {
		p := models.Player{
			Name:          fmt.Sprintf("%s-%d", pos, i),
			ClubID:        f.clubs[i%2].ID,
			Position:      pos,
			StartingValue: 50,
			CurrentValue:  50,
		}
		mustCreate(t, db, &p)
		return p
	}
	for i := 0; i < 4; i++ {
		f.handlers = append(f.handlers, newPlayer(models.PositionHandler, i))
	}
	for i := 0; i < 5; i++ {
		f.cutters = append(f.cutters, newPlayer(models.PositionCutter, i))
	}
	for i := 0; i < 4; i++ {
		f.receivers = append(f.receivers, newPlayer(models.PositionReceiver, i))
	}

	return f
}

func mustCreate(t *testing.T, db *gorm.DB, value interface{}) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("creating %T: %v", value, err)
	}
}

func (f *fixture) newTeam(t *testing.T, name string) models.FantasyTeam {
	t.Helper()
	team := models.FantasyTeam{SeasonID: f.season.ID, Name: name, ManagerName: "mgr"}
	mustCreate(t, f.db, &team)
	return team
}

// defaultRoster builds a quota-valid 10-player roster. The first handler is
// captain unless the caller clears the flag.
func (f *fixture) defaultRoster() []models.RosterEntry {
	entries := []models.RosterEntry{
		{PlayerID: f.handlers[0].ID, Position: models.PositionHandler, Captain: true},
		{PlayerID: f.handlers[1].ID, Position: models.PositionHandler},
		{PlayerID: f.cutters[0].ID, Position: models.PositionCutter},
		{PlayerID: f.cutters[1].ID, Position: models.PositionCutter},
		{PlayerID: f.cutters[2].ID, Position: models.PositionCutter},
		{PlayerID: f.receivers[0].ID, Position: models.PositionReceiver},
		{PlayerID: f.receivers[1].ID, Position: models.PositionReceiver},
		{PlayerID: f.handlers[2].ID, Position: models.PositionHandler, Bench: true},
		{PlayerID: f.cutters[3].ID, Position: models.PositionCutter, Bench: true},
		{PlayerID: f.receivers[2].ID, Position: models.PositionReceiver, Bench: true},
	}
	for i := range entries {
		entries[i].Value = 50
	}
	return entries
}

// saveSnapshot persists a snapshot directly, bypassing the save gate, for
// tests that need historical state in place.
func (f *fixture) saveSnapshot(t *testing.T, teamID uint, weekNumber int, entries []models.RosterEntry, budget float64) models.RosterSnapshot {
	t.Helper()
	total := 0.0
	for _, e := range entries {
		total += e.Value
	}
	snapshot := models.RosterSnapshot{
		FantasyTeamID:   teamID,
		WeekID:          f.weeks[weekNumber-1].ID,
		TotalValue:      total,
		BudgetRemaining: budget,
		Entries:         entries,
	}
	mustCreate(t, f.db, &snapshot)
	return snapshot
}

// addStat records a stat line for the player in the week's game.
func (f *fixture) addStat(t *testing.T, playerID uint, weekNumber int, played bool, goals, assists, blocks, drops, throwaways int) {
	t.Helper()
	stat := models.PlayerGameStat{
		PlayerID:   playerID,
		GameID:     f.games[weekNumber-1].ID,
		Played:     played,
		Goals:      goals,
		Assists:    assists,
		Blocks:     blocks,
		Drops:      drops,
		Throwaways: throwaways,
	}
	mustCreate(t, f.db, &stat)
}

// completeWeek marks the week's game completed with stats entered.
func (f *fixture) completeWeek(t *testing.T, weekNumber int) {
	t.Helper()
	err := f.db.Model(&models.Game{}).Where("id = ?", f.games[weekNumber-1].ID).
		Updates(map[string]interface{}{"completed": true, "stats_entered": true}).Error
	if err != nil {
		t.Fatalf("completing week %d: %v", weekNumber, err)
	}
}

// setValue updates a player's current market value.
func (f *fixture) setValue(t *testing.T, playerID uint, value float64) {
	t.Helper()
	err := f.db.Model(&models.Player{}).Where("id = ?", playerID).
		Update("current_value", value).Error
	if err != nil {
		t.Fatalf("setting player %d value: %v", playerID, err)
	}
}
