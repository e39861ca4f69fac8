package accrual

import (
	"errors"
	"fmt"
	"math/big"
	"time"
)

// CooldownWindow is the point in time at which the pool leaves its cooldown.
// The canonical unit is unix seconds.
type CooldownWindow struct {
	Enabled             bool
	DurationSec         uint64
	LastUpdatedRewardAt uint64
	CooldownAtUnixSec   uint64
}

// ComputeCooldown computes lastUpdatedRewardAt + totalStakedAmt / cooldownConstant.
//
// A zero cooldown constant means there is no cooldown at all.
func ComputeCooldown(global GlobalAccrualState) *CooldownWindow {
	window := &CooldownWindow{
		LastUpdatedRewardAt: global.LastUpdatedRewardAt,
		CooldownAtUnixSec:   global.LastUpdatedRewardAt,
	}

	cooldownConstant := orZero(global.CooldownConstant)
	if cooldownConstant.Sign() <= 0 {
		return window
	}
	window.Enabled = true

	duration := new(big.Int).Quo(orZero(global.TotalStakedAmt), cooldownConstant)
	if duration.Sign() <= 0 {
		return window
	}
	if !duration.IsUint64() || duration.Uint64() > maxUnixSec-global.LastUpdatedRewardAt {
		window.DurationSec = maxUnixSec - global.LastUpdatedRewardAt
	} else {
		window.DurationSec = duration.Uint64()
	}
	window.CooldownAtUnixSec = global.LastUpdatedRewardAt + window.DurationSec
	return window
}

// maxUnixSec keeps CooldownAtMs representable as an int64 millisecond count.
const maxUnixSec = uint64(1<<63-1) / 1000

// CooldownAtMs is for display only.
func (c *CooldownWindow) CooldownAtMs() int64 {
	return int64(c.CooldownAtUnixSec) * 1000
}

func (c *CooldownWindow) CooldownAt() time.Time {
	return time.Unix(int64(c.CooldownAtUnixSec), 0)
}

func (c *CooldownWindow) IsCoolingDown(now time.Time) bool {
	if !c.Enabled {
		return false
	}
	return now.UnixMilli() < c.CooldownAtMs()
}

// TimeLeft returns how long until the cooldown ends, never less than zero.
func (c *CooldownWindow) TimeLeft(now time.Time) time.Duration {
	if !c.IsCoolingDown(now) {
		return 0
	}
	return time.Duration(c.CooldownAtMs()-now.UnixMilli()) * time.Millisecond
}

var ErrNegativeDuration = errors.New("time to cooldown represents a duration and cannot be negative")

// FormatTimeToCooldown renders a duration as "HH hours MM mins SS seconds",
// dropping leading zero units.
func FormatTimeToCooldown(d time.Duration) (string, error) {
	if d < 0 {
		return "", ErrNegativeDuration
	}
	totalSecs := int64(d / time.Second)
	secs := totalSecs % 60
	mins := (totalSecs / 60) % 60
	hours := totalSecs / 3600

	result := fmt.Sprintf("%02d seconds", secs)
	if mins != 0 {
		result = fmt.Sprintf("%02d mins %s", mins, result)
	}
	if hours != 0 {
		result = fmt.Sprintf("%02d hours %s", hours, result)
	}
	return result, nil
}
