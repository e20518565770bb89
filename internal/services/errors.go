package services

import "errors"

// Domain failures surfaced to callers. All are returned wrapped with enough
// context to identify the team/week/window involved; none are retried
// internally.
var (
	// ErrSnapshotNotFound means no roster snapshot exists for the
	// requested (team, week).
	ErrSnapshotNotFound = errors.New("roster snapshot not found")

	// ErrNoCaptain means the snapshot lacks exactly one captain among its
	// starters. Detected at scoring time, not at save time.
	ErrNoCaptain = errors.New("no captain found in roster")

	// ErrInvalidBudget means the computed budget came out negative; the
	// snapshot save is rejected.
	ErrInvalidBudget = errors.New("budget would be negative")

	// ErrTransferLimitExceeded means a roster differs from the previous
	// week's by more than the per-week transfer cap.
	ErrTransferLimitExceeded = errors.New("transfer limit exceeded")

	// ErrStatsNotReady means price calculation was attempted before all of
	// the week's games are completed with stats entered.
	ErrStatsNotReady = errors.New("game stats not ready for week")

	// ErrPricesNotCalculated means a transfer window was asked to open
	// before its prices were calculated.
	ErrPricesNotCalculated = errors.New("prices not calculated for window")

	// ErrUnpairedRosterChange means a snapshot diff produced unequal
	// add/remove counts, which cannot happen for fixed-size rosters.
	ErrUnpairedRosterChange = errors.New("unpaired roster change between snapshots")
)
