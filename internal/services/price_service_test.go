package services

import (
	"errors"
	"math"
	"testing"

	"ultimate-fantasy/internal/models"
)

func TestNextPrice(t *testing.T) {
	tests := []struct {
		previous  float64
		avgPoints float64
		want      float64
	}{
		{50, 20, 87.5},   // strong week pulls the price up
		{50, 0, 37.5},    // a scoreless week decays the price
		{100, 10, 100},   // price at equilibrium holds
		{87.5, 15, 103.125},
	}
	for _, tt := range tests {
		if got := nextPrice(tt.previous, tt.avgPoints); got != tt.want {
			t.Errorf("nextPrice(%v, %v) = %v, want %v", tt.previous, tt.avgPoints, got, tt.want)
		}
	}
}

// twentyPointLine is a stat line worth exactly 20 fantasy points.
func twentyPointLine(f *fixture, t *testing.T, playerID uint, weekNumber int) {
	t.Helper()
	f.addStat(t, playerID, weekNumber, true, 5, 3, 3, 0, 0) // 5 + 6 + 9
}

func TestCalculateFromWindowFirstWindow(t *testing.T) {
	f := newFixture(t)
	svc := NewPriceService(f.db)
	if err := svc.SeedStartingPrices(f.season.ID); err != nil {
		t.Fatalf("SeedStartingPrices: %v", err)
	}

	twentyPointLine(f, t, f.handlers[0].ID, 1)
	f.completeWeek(t, 1)

	if err := svc.CalculateFromWindow(f.season.ID, 1); err != nil {
		t.Fatalf("CalculateFromWindow: %v", err)
	}

	var price models.PlayerPrice
	err := f.db.Where("player_id = ? AND window_number = 1", f.handlers[0].ID).First(&price).Error
	if err != nil {
		t.Fatalf("loading window 1 price: %v", err)
	}
	if price.Price != 87.5 {
		t.Errorf("window 1 price = %v, want 87.5", price.Price)
	}

	var player models.Player
	if err := f.db.First(&player, f.handlers[0].ID).Error; err != nil {
		t.Fatalf("loading player: %v", err)
	}
	if player.CurrentValue != 87.5 {
		t.Errorf("current value = %v, want 87.5", player.CurrentValue)
	}

	// A player with no stat line decays toward zero production.
	var idle models.PlayerPrice
	err = f.db.Where("player_id = ? AND window_number = 1", f.receivers[3].ID).First(&idle).Error
	if err != nil {
		t.Fatalf("loading idle player price: %v", err)
	}
	if idle.Price != 37.5 {
		t.Errorf("idle player window 1 price = %v, want 37.5", idle.Price)
	}
}

func TestCalculateFromWindowTrailingAverage(t *testing.T) {
	f := newFixture(t)
	svc := NewPriceService(f.db)
	if err := svc.SeedStartingPrices(f.season.ID); err != nil {
		t.Fatalf("SeedStartingPrices: %v", err)
	}

	twentyPointLine(f, t, f.handlers[0].ID, 1)
	f.addStat(t, f.handlers[0].ID, 2, true, 10, 0, 0, 0, 0) // 10 points
	f.completeWeek(t, 1)
	f.completeWeek(t, 2)

	if err := svc.CalculateFromWindow(f.season.ID, 1); err != nil {
		t.Fatalf("CalculateFromWindow: %v", err)
	}

	// Window 2 averages weeks 1 and 2: (20+10)/2 = 15.
	var price models.PlayerPrice
	err := f.db.Where("player_id = ? AND window_number = 2", f.handlers[0].ID).First(&price).Error
	if err != nil {
		t.Fatalf("loading window 2 price: %v", err)
	}
	want := 87.5 + (10*15-87.5)/4
	if math.Abs(price.Price-want) > 1e-9 {
		t.Errorf("window 2 price = %v, want %v", price.Price, want)
	}
}

func TestCalculateFromWindowStatsNotReady(t *testing.T) {
	f := newFixture(t)
	svc := NewPriceService(f.db)
	if err := svc.SeedStartingPrices(f.season.ID); err != nil {
		t.Fatalf("SeedStartingPrices: %v", err)
	}

	err := svc.CalculateFromWindow(f.season.ID, 1)
	if !errors.Is(err, ErrStatsNotReady) {
		t.Errorf("err = %v, want ErrStatsNotReady", err)
	}
}

func TestCalculateFromWindowStopsAtFirstUnreadyWeek(t *testing.T) {
	f := newFixture(t)
	svc := NewPriceService(f.db)
	if err := svc.SeedStartingPrices(f.season.ID); err != nil {
		t.Fatalf("SeedStartingPrices: %v", err)
	}

	twentyPointLine(f, t, f.handlers[0].ID, 1)
	f.completeWeek(t, 1)
	// Week 2 games are not final; the cascade must stop after window 1.

	if err := svc.CalculateFromWindow(f.season.ID, 1); err != nil {
		t.Fatalf("CalculateFromWindow: %v", err)
	}

	var count int64
	f.db.Model(&models.PlayerPrice{}).Where("window_number = 2").Count(&count)
	if count != 0 {
		t.Errorf("window 2 has %d price rows, want 0", count)
	}
}

func TestCalculateFromWindowCascadesCorrections(t *testing.T) {
	f := newFixture(t)
	svc := NewPriceService(f.db)
	if err := svc.SeedStartingPrices(f.season.ID); err != nil {
		t.Fatalf("SeedStartingPrices: %v", err)
	}

	twentyPointLine(f, t, f.handlers[0].ID, 1)
	f.addStat(t, f.handlers[0].ID, 2, true, 10, 0, 0, 0, 0)
	f.completeWeek(t, 1)
	f.completeWeek(t, 2)

	if err := svc.CalculateFromWindow(f.season.ID, 1); err != nil {
		t.Fatalf("initial calculation: %v", err)
	}

	var window2Before models.PlayerPrice
	if err := f.db.Where("player_id = ? AND window_number = 2", f.handlers[0].ID).First(&window2Before).Error; err != nil {
		t.Fatalf("loading window 2 price: %v", err)
	}

	// Week 1 correction: 20 points becomes 30.
	err := f.db.Model(&models.PlayerGameStat{}).
		Where("player_id = ? AND game_id = ?", f.handlers[0].ID, f.games[0].ID).
		Update("goals", 15).Error
	if err != nil {
		t.Fatalf("correcting stat: %v", err)
	}

	if err := svc.CalculateFromWindow(f.season.ID, 1); err != nil {
		t.Fatalf("recalculation: %v", err)
	}

	// Window 0 never moves.
	var window0 models.PlayerPrice
	if err := f.db.Where("player_id = ? AND window_number = 0", f.handlers[0].ID).First(&window0).Error; err != nil {
		t.Fatalf("loading window 0 price: %v", err)
	}
	if window0.Price != 50 {
		t.Errorf("window 0 price = %v, want 50", window0.Price)
	}

	// Window 1 reflects the corrected 30-point week: 50 + (300-50)/4.
	var window1 models.PlayerPrice
	if err := f.db.Where("player_id = ? AND window_number = 1", f.handlers[0].ID).First(&window1).Error; err != nil {
		t.Fatalf("loading window 1 price: %v", err)
	}
	if window1.Price != 112.5 {
		t.Errorf("window 1 price = %v, want 112.5", window1.Price)
	}

	// Window 2 rebuilds from the new window 1 price and the new average.
	var window2 models.PlayerPrice
	if err := f.db.Where("player_id = ? AND window_number = 2", f.handlers[0].ID).First(&window2).Error; err != nil {
		t.Fatalf("reloading window 2 price: %v", err)
	}
	want := 112.5 + (10*20-112.5)/4
	if math.Abs(window2.Price-want) > 1e-9 {
		t.Errorf("window 2 price = %v, want %v", window2.Price, want)
	}
	if window2.Price == window2Before.Price {
		t.Error("window 2 price should have changed after the correction")
	}
}

func TestRecalculatingLaterWindowLeavesEarlierOnesAlone(t *testing.T) {
	f := newFixture(t)
	svc := NewPriceService(f.db)
	if err := svc.SeedStartingPrices(f.season.ID); err != nil {
		t.Fatalf("SeedStartingPrices: %v", err)
	}

	twentyPointLine(f, t, f.handlers[0].ID, 1)
	f.addStat(t, f.handlers[0].ID, 2, true, 10, 0, 0, 0, 0)
	f.completeWeek(t, 1)
	f.completeWeek(t, 2)

	if err := svc.CalculateFromWindow(f.season.ID, 1); err != nil {
		t.Fatalf("initial calculation: %v", err)
	}
	if err := svc.CalculateFromWindow(f.season.ID, 2); err != nil {
		t.Fatalf("recalculating from window 2: %v", err)
	}

	var window1 models.PlayerPrice
	if err := f.db.Where("player_id = ? AND window_number = 1", f.handlers[0].ID).First(&window1).Error; err != nil {
		t.Fatalf("loading window 1 price: %v", err)
	}
	if window1.Price != 87.5 {
		t.Errorf("window 1 price = %v, want 87.5 untouched", window1.Price)
	}
}
