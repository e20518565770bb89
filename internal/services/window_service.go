package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"ultimate-fantasy/internal/models"

	"gorm.io/gorm"
)

// WindowState is the derived lifecycle state of a week's transfer window.
type WindowState string

const (
	WindowUpcoming  WindowState = "upcoming"
	WindowReady     WindowState = "ready"
	WindowOpen      WindowState = "open"
	WindowCompleted WindowState = "completed"
)

type WindowService struct {
	db *gorm.DB
}

func NewWindowService(db *gorm.DB) *WindowService {
	return &WindowService{db: db}
}

// DeriveWindowState combines the week's transfer flags with the price
// window's calculated flag. Transitions only move forward; recalculating
// prices while ready or open changes stored prices, never the state.
func DeriveWindowState(week models.Week, priceWindow models.PriceWindow, now time.Time) WindowState {
	if week.TransferClosedAt != nil {
		return WindowCompleted
	}
	if week.TransferCutoff != nil && now.After(*week.TransferCutoff) {
		return WindowCompleted
	}
	if week.TransferOpen {
		return WindowOpen
	}
	if priceWindow.Calculated {
		return WindowReady
	}
	return WindowUpcoming
}

// State returns the derived window state for a week.
func (s *WindowService) State(weekID uint) (WindowState, error) {
	week, priceWindow, err := s.weekWithWindow(weekID)
	if err != nil {
		return "", err
	}
	return DeriveWindowState(*week, *priceWindow, time.Now()), nil
}

// OpenTransferWindow opens a week's window for roster changes. Prices must
// already be calculated for the window.
func (s *WindowService) OpenTransferWindow(weekID uint, cutoff *time.Time) error {
	week, priceWindow, err := s.weekWithWindow(weekID)
	if err != nil {
		return err
	}
	if !priceWindow.Calculated {
		return fmt.Errorf("week %d: %w", week.WeekNumber, ErrPricesNotCalculated)
	}
	if week.TransferClosedAt != nil {
		return fmt.Errorf("week %d transfer window already closed", week.WeekNumber)
	}

	return s.db.Model(week).Updates(map[string]interface{}{
		"transfer_open":   true,
		"transfer_cutoff": cutoff,
	}).Error
}

// CloseTransferWindow explicitly completes a week's window.
func (s *WindowService) CloseTransferWindow(weekID uint) error {
	now := time.Now()
	return s.db.Model(&models.Week{}).Where("id = ?", weekID).
		Update("transfer_closed_at", &now).Error
}

// CloseExpired completes every open window whose cutoff has passed. Run
// periodically by the scheduler.
func (s *WindowService) CloseExpired(now time.Time) (int, error) {
	res := s.db.Model(&models.Week{}).
		Where("transfer_open = ? AND transfer_closed_at IS NULL", true).
		Where("transfer_cutoff IS NOT NULL AND transfer_cutoff < ?", now).
		Update("transfer_closed_at", &now)
	if res.Error != nil {
		return 0, fmt.Errorf("closing expired windows: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		log.Printf("Closed %d expired transfer windows", res.RowsAffected)
	}
	return int(res.RowsAffected), nil
}

// weekWithWindow loads a week and its matching price window. A missing price
// window row behaves as an uncalculated one.
func (s *WindowService) weekWithWindow(weekID uint) (*models.Week, *models.PriceWindow, error) {
	var week models.Week
	if err := s.db.First(&week, weekID).Error; err != nil {
		return nil, nil, fmt.Errorf("loading week %d: %w", weekID, err)
	}

	var priceWindow models.PriceWindow
	err := s.db.Where("season_id = ? AND window_number = ?", week.SeasonID, week.WeekNumber).
		First(&priceWindow).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		priceWindow = models.PriceWindow{SeasonID: week.SeasonID, WindowNumber: week.WeekNumber}
	} else if err != nil {
		return nil, nil, err
	}
	return &week, &priceWindow, nil
}
