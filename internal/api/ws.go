package api

import (
	"log"
	"net/http"
	"sync"

	"ultimate-fantasy/internal/models"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// scoreUpdate is the payload pushed to connected admin scoreboards.
type scoreUpdate struct {
	Type          string `json:"type"`
	FantasyTeamID uint   `json:"fantasy_team_id"`
	WeekID        uint   `json:"week_id"`
	CaptainPoints int    `json:"captain_points"`
	TotalPoints   int    `json:"total_points"`
	Combined      int    `json:"combined"`
}

// Hub fans saved score updates out to websocket clients.
type Hub struct {
	mu        sync.Mutex
	clients   map[*websocket.Conn]bool
	broadcast chan scoreUpdate
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan scoreUpdate, 64),
	}
}

func (h *Hub) Run() {
	for update := range h.broadcast {
		h.mu.Lock()
		for conn := range h.clients {
			if err := conn.WriteJSON(update); err != nil {
				conn.Close()
				delete(h.clients, conn)
			}
		}
		h.mu.Unlock()
	}
}

// BroadcastScore queues a saved score for delivery. Drops the update when the
// channel is full rather than blocking a recalculation cascade.
func (h *Hub) BroadcastScore(score models.WeekScore) {
	update := scoreUpdate{
		Type:          "score",
		FantasyTeamID: score.FantasyTeamID,
		WeekID:        score.WeekID,
		CaptainPoints: score.CaptainPoints,
		TotalPoints:   score.TotalPoints,
		Combined:      score.CombinedPoints(),
	}
	select {
	case h.broadcast <- update:
	default:
	}
}

func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	// Reader loop only detects disconnects; clients never send.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.mu.Lock()
				delete(h.clients, conn)
				h.mu.Unlock()
				conn.Close()
				return
			}
		}
	}()
}
