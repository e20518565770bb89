package models

import (
	"time"
)

// Position is a player's fixed position category.
type Position string

const (
	PositionHandler  Position = "handler"
	PositionCutter   Position = "cutter"
	PositionReceiver Position = "receiver"
)

// Roster composition rules. A snapshot always carries exactly
// RosterSize entries: StarterCount starters and BenchCount bench players.
const (
	RosterSize   = 10
	StarterCount = 7
	BenchCount   = 3
)

// StarterQuota and BenchQuota define how many entries of each position a
// valid roster carries.
var (
	StarterQuota = map[Position]int{
		PositionHandler:  2,
		PositionCutter:   3,
		PositionReceiver: 2,
	}
	BenchQuota = map[Position]int{
		PositionHandler:  1,
		PositionCutter:   1,
		PositionReceiver: 1,
	}
)

// Season is a bounded competition period owning an ordered sequence of weeks.
type Season struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsActive  bool      `json:"is_active" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Week is an ordered unit within a season. It carries the transfer-window
// flags; pricing state lives on the matching PriceWindow.
type Week struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	SeasonID         uint       `json:"season_id" gorm:"not null;index"`
	Season           Season     `json:"-" gorm:"foreignKey:SeasonID"`
	WeekNumber       int        `json:"week_number" gorm:"not null"`
	TransferOpen     bool       `json:"transfer_open" gorm:"default:false"`
	TransferCutoff   *time.Time `json:"transfer_cutoff"`
	TransferClosedAt *time.Time `json:"transfer_closed_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Club is a real-world team whose players make up the player pool.
type Club struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:100;unique;not null"`
	City      string    `json:"city" gorm:"size:100"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Player is a real athlete with a fixed position and a mutable market value.
// StartingValue is the window-0 price set manually before the season.
type Player struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Name          string    `json:"name" gorm:"size:100;not null"`
	ClubID        uint      `json:"club_id" gorm:"not null;index"`
	Club          Club      `json:"club" gorm:"foreignKey:ClubID"`
	Position      Position  `json:"position" gorm:"size:20;not null"`
	StartingValue float64   `json:"starting_value" gorm:"not null"`
	CurrentValue  float64   `json:"current_value" gorm:"not null"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Game is a scheduled match between two clubs within a week. Player
// statistics are only authoritative once Completed and StatsEntered are set.
type Game struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	WeekID       uint      `json:"week_id" gorm:"not null;index"`
	Week         Week      `json:"-" gorm:"foreignKey:WeekID"`
	HomeClubID   uint      `json:"home_club_id" gorm:"not null"`
	HomeClub     Club      `json:"home_club" gorm:"foreignKey:HomeClubID"`
	AwayClubID   uint      `json:"away_club_id" gorm:"not null"`
	AwayClub     Club      `json:"away_club" gorm:"foreignKey:AwayClubID"`
	StartTime    time.Time `json:"start_time"`
	Completed    bool      `json:"completed" gorm:"default:false"`
	StatsEntered bool      `json:"stats_entered" gorm:"default:false"`
	HomeScore    int       `json:"home_score"`
	AwayScore    int       `json:"away_score"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PlayerGameStat is one stat line per (player, game). When Played is false
// every counter is zero.
type PlayerGameStat struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	PlayerID   uint      `json:"player_id" gorm:"not null;uniqueIndex:idx_player_game"`
	GameID     uint      `json:"game_id" gorm:"not null;uniqueIndex:idx_player_game"`
	Played     bool      `json:"played" gorm:"default:false"`
	Goals      int       `json:"goals"`
	Assists    int       `json:"assists"`
	Blocks     int       `json:"blocks"`
	Drops      int       `json:"drops"`
	Throwaways int       `json:"throwaways"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FantasyPoints applies the scoring formula to this stat line.
func (s PlayerGameStat) FantasyPoints() int {
	return s.Goals + 2*s.Assists + 3*s.Blocks - s.Drops - s.Throwaways
}

// FantasyTeam is a manager-owned virtual team scoped to one season. Budget is
// a carried running total moved only by transfers, never by price drift.
type FantasyTeam struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	SeasonID    uint      `json:"season_id" gorm:"not null;index"`
	Season      Season    `json:"-" gorm:"foreignKey:SeasonID"`
	Name        string    `json:"name" gorm:"size:100;not null"`
	ManagerName string    `json:"manager_name" gorm:"size:100"`
	Budget      float64   `json:"budget"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RosterSnapshot is the immutable per-(team, week) roster record. A new
// week's roster is a new snapshot, never a mutation of a prior one.
type RosterSnapshot struct {
	ID              uint          `json:"id" gorm:"primaryKey"`
	FantasyTeamID   uint          `json:"fantasy_team_id" gorm:"not null;uniqueIndex:idx_team_week"`
	FantasyTeam     FantasyTeam   `json:"-" gorm:"foreignKey:FantasyTeamID"`
	WeekID          uint          `json:"week_id" gorm:"not null;uniqueIndex:idx_team_week"`
	Week            Week          `json:"-" gorm:"foreignKey:WeekID"`
	TotalValue      float64       `json:"total_value"`
	BudgetRemaining float64       `json:"budget_remaining"`
	Entries         []RosterEntry `json:"entries" gorm:"foreignKey:SnapshotID"`
	CreatedAt       time.Time     `json:"created_at"`
}

// RosterEntry is one (snapshot, player) row. Value is the player's market
// value pinned at snapshot time, not a live reference.
type RosterEntry struct {
	ID         uint     `json:"id" gorm:"primaryKey"`
	SnapshotID uint     `json:"snapshot_id" gorm:"not null;index"`
	PlayerID   uint     `json:"player_id" gorm:"not null"`
	Player     Player   `json:"player" gorm:"foreignKey:PlayerID"`
	Position   Position `json:"position" gorm:"size:20;not null"`
	Bench      bool     `json:"bench" gorm:"default:false"`
	Captain    bool     `json:"captain" gorm:"default:false"`
	Value      float64  `json:"value"`
}

// Transfer is a persisted audit record of one out/in pair between two
// consecutive weekly snapshots. Counting authority stays with the snapshot
// diff; these rows are never read back to enforce the cap.
type Transfer struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	FantasyTeamID uint      `json:"fantasy_team_id" gorm:"not null;index"`
	WeekID        uint      `json:"week_id" gorm:"not null;index"`
	PlayerOutID   uint      `json:"player_out_id" gorm:"not null"`
	PlayerOut     Player    `json:"player_out" gorm:"foreignKey:PlayerOutID"`
	PlayerInID    uint      `json:"player_in_id" gorm:"not null"`
	PlayerIn      Player    `json:"player_in" gorm:"foreignKey:PlayerInID"`
	ValueDelta    float64   `json:"value_delta"`
	CreatedAt     time.Time `json:"created_at"`
}

// WeekScore is the persisted scoring result for one (team, week). Captain and
// non-captain components are stored separately; the combined total is always
// derived.
type WeekScore struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	FantasyTeamID uint      `json:"fantasy_team_id" gorm:"not null;uniqueIndex:idx_score_team_week"`
	WeekID        uint      `json:"week_id" gorm:"not null;uniqueIndex:idx_score_team_week"`
	CaptainPoints int       `json:"captain_points"`
	TotalPoints   int       `json:"total_points"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CombinedPoints is the team's full score for the week.
func (ws WeekScore) CombinedPoints() int {
	return ws.CaptainPoints + ws.TotalPoints
}

// PriceWindow is the per-week pricing state. Window 0 holds the manually set
// starting prices; window N holds prices after week N's stats.
type PriceWindow struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	SeasonID     uint       `json:"season_id" gorm:"not null;uniqueIndex:idx_season_window"`
	WindowNumber int        `json:"window_number" gorm:"not null;uniqueIndex:idx_season_window"`
	Calculated   bool       `json:"calculated" gorm:"default:false"`
	CalculatedAt *time.Time `json:"calculated_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// PlayerPrice is one player's computed market price for one window.
type PlayerPrice struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	SeasonID     uint      `json:"season_id" gorm:"not null;uniqueIndex:idx_player_window"`
	PlayerID     uint      `json:"player_id" gorm:"not null;uniqueIndex:idx_player_window"`
	WindowNumber int       `json:"window_number" gorm:"not null;uniqueIndex:idx_player_window"`
	Price        float64   `json:"price" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
