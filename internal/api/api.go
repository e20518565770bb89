package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"ultimate-fantasy/internal/services"
	"ultimate-fantasy/internal/services/statsfeed"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type APIHandler struct {
	db        *gorm.DB
	scores    *services.ScoreService
	transfers *services.TransferService
	rosters   *services.RosterService
	prices    *services.PriceService
	windows   *services.WindowService
	standings *services.StandingsService
	stats     *services.StatsService
	hub       *Hub
}

type Services struct {
	Scores    *services.ScoreService
	Transfers *services.TransferService
	Rosters   *services.RosterService
	Prices    *services.PriceService
	Windows   *services.WindowService
	Standings *services.StandingsService
	Stats     *services.StatsService
}

func SetupRoutes(r *gin.RouterGroup, db *gorm.DB, svc Services) *APIHandler {
	handler := &APIHandler{
		db:        db,
		scores:    svc.Scores,
		transfers: svc.Transfers,
		rosters:   svc.Rosters,
		prices:    svc.Prices,
		windows:   svc.Windows,
		standings: svc.Standings,
		stats:     svc.Stats,
		hub:       NewHub(),
	}
	go handler.hub.Run()

	// Push saved scores to connected scoreboards.
	svc.Scores.OnScoreSaved = handler.hub.BroadcastScore

	teams := r.Group("/teams")
	{
		teams.POST("/:id/weeks/:weekId/roster", handler.SaveRoster)
		teams.GET("/:id/weeks/:weekId/score", handler.GetWeekScore)
		teams.POST("/:id/weeks/:weekId/score/recalculate", handler.RecalculateScores)
		teams.GET("/:id/weeks/:weekId/transfers/remaining", handler.GetRemainingTransfers)
	}

	seasons := r.Group("/seasons")
	{
		seasons.GET("/:id/standings", handler.GetStandings)
		seasons.GET("/:id/standings/export", handler.ExportStandings)
		seasons.POST("/:id/prices/recalculate", handler.RecalculatePrices)
		seasons.POST("/:id/prices/seed", handler.SeedPrices)
	}

	weeks := r.Group("/weeks")
	{
		weeks.GET("/:id/window", handler.GetWindowState)
		weeks.POST("/:id/window/open", handler.OpenWindow)
		weeks.POST("/:id/window/close", handler.CloseWindow)
	}

	games := r.Group("/games")
	{
		games.POST("/:id/stats", handler.EnterGameStats)
		games.POST("/:id/stats/import", handler.ImportGameStats)
	}

	r.GET("/live", handler.ServeLive)

	return handler
}

// errStatus maps domain failures to HTTP statuses; anything unexpected is a
// 500.
func errStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrSnapshotNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNoCaptain),
		errors.Is(err, services.ErrInvalidBudget),
		errors.Is(err, services.ErrTransferLimitExceeded),
		errors.Is(err, services.ErrUnpairedRosterChange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrStatsNotReady),
		errors.Is(err, services.ErrPricesNotCalculated):
		return http.StatusConflict
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(errStatus(err), gin.H{"error": err.Error()})
}

func paramUint(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(v), true
}

func (h *APIHandler) SaveRoster(c *gin.Context) {
	teamID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	weekID, ok := paramUint(c, "weekId")
	if !ok {
		return
	}

	var req struct {
		Entries []services.RosterInput `json:"entries"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snapshot, err := h.rosters.SaveSnapshot(teamID, weekID, req.Entries)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snapshot)
}

func (h *APIHandler) GetWeekScore(c *gin.Context) {
	teamID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	weekID, ok := paramUint(c, "weekId")
	if !ok {
		return
	}

	result, err := h.scores.CalculateWeekScore(teamID, weekID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *APIHandler) RecalculateScores(c *gin.Context) {
	teamID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	weekID, ok := paramUint(c, "weekId")
	if !ok {
		return
	}

	if err := h.scores.RecalculateAllSubsequentWeeks(teamID, weekID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recalculated"})
}

func (h *APIHandler) GetRemainingTransfers(c *gin.Context) {
	teamID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	weekID, ok := paramUint(c, "weekId")
	if !ok {
		return
	}

	remaining, unlimited, err := h.transfers.GetRemainingTransfers(teamID, weekID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"remaining": remaining, "unlimited": unlimited})
}

func (h *APIHandler) GetStandings(c *gin.Context) {
	seasonID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	rows, err := h.standings.SeasonStandings(c.Request.Context(), seasonID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"standings": rows})
}

func (h *APIHandler) ExportStandings(c *gin.Context) {
	seasonID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	f, err := h.standings.ExportStandings(c.Request.Context(), seasonID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=standings.xlsx")
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		abortWithError(c, err)
	}
}

func (h *APIHandler) RecalculatePrices(c *gin.Context) {
	seasonID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	from, err := strconv.Atoi(c.DefaultQuery("from", "1"))
	if err != nil || from < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from window"})
		return
	}

	if err := h.prices.CalculateFromWindow(seasonID, from); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recalculated"})
}

func (h *APIHandler) SeedPrices(c *gin.Context) {
	seasonID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	if err := h.prices.SeedStartingPrices(seasonID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "seeded"})
}

func (h *APIHandler) GetWindowState(c *gin.Context) {
	weekID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	state, err := h.windows.State(weekID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *APIHandler) OpenWindow(c *gin.Context) {
	weekID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var req struct {
		Cutoff *time.Time `json:"cutoff"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.windows.OpenTransferWindow(weekID, req.Cutoff); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "open"})
}

func (h *APIHandler) CloseWindow(c *gin.Context) {
	weekID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	if err := h.windows.CloseTransferWindow(weekID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

func (h *APIHandler) EnterGameStats(c *gin.Context) {
	gameID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var req struct {
		HomeScore int                  `json:"home_score"`
		AwayScore int                  `json:"away_score"`
		Lines     []statsfeed.StatLine `json:"lines"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.stats.EnterGameStats(gameID, req.HomeScore, req.AwayScore, req.Lines); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "entered"})
}

func (h *APIHandler) ImportGameStats(c *gin.Context) {
	gameID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	if err := h.stats.ImportGame(gameID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "imported"})
}

func (h *APIHandler) ServeLive(c *gin.Context) {
	h.hub.Serve(c.Writer, c.Request)
}
