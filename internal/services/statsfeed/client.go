// Package statsfeed pulls final box scores from the league's stats provider.
package statsfeed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// StatLine is one player's line in a provider box score.
type StatLine struct {
	PlayerID   uint `json:"player_id"`
	Played     bool `json:"played"`
	Goals      int  `json:"goals"`
	Assists    int  `json:"assists"`
	Blocks     int  `json:"blocks"`
	Drops      int  `json:"drops"`
	Throwaways int  `json:"throwaways"`
}

// GameReport is a completed game's final score with its stat lines.
type GameReport struct {
	GameID    uint       `json:"game_id"`
	HomeScore int        `json:"home_score"`
	AwayScore int        `json:"away_score"`
	Final     bool       `json:"final"`
	Lines     []StatLine `json:"lines"`
}

type Client struct {
	baseURL string
	client  *resty.Client
}

func NewClient(baseURL string) *Client {
	client := resty.New()
	client.SetTimeout(30 * time.Second)

	return &Client{baseURL: baseURL, client: client}
}

// FetchGameReport retrieves the provider's box score for one game.
func (c *Client) FetchGameReport(gameID uint) (*GameReport, error) {
	url := fmt.Sprintf("%s/games/%d/boxscore", c.baseURL, gameID)

	resp, err := c.client.R().Get(url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("stats feed returned status %d for game %d", resp.StatusCode(), gameID)
	}

	var report GameReport
	if err := json.Unmarshal(resp.Body(), &report); err != nil {
		return nil, fmt.Errorf("decoding box score for game %d: %w", gameID, err)
	}
	if !report.Final {
		return nil, fmt.Errorf("game %d box score is not final yet", gameID)
	}
	return &report, nil
}
