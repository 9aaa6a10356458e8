package timelock

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const LamportsPerSol = 1_000_000_000

func LamportsToSol(lamports uint64) float64 {
	return float64(lamports) / LamportsPerSol
}

// SolToLamports converts an amount of SOL, rounding to the nearest lamport.
func SolToLamports(sol float64) (uint64, error) {
	if math.IsNaN(sol) || math.IsInf(sol, 0) {
		return 0, &ValidationError{Field: "amount", Reason: "must be a finite number"}
	}
	if sol < 0 {
		return 0, &ValidationError{Field: "amount", Reason: "must not be negative"}
	}

	lamports := math.Round(sol * LamportsPerSol)
	if lamports >= math.MaxUint64 {
		return 0, &ValidationError{Field: "amount", Reason: "too large"}
	}
	return uint64(lamports), nil
}

// FutureTimestamp returns the unix timestamp d after now.
func FutureTimestamp(now time.Time, d time.Duration) int64 {
	return now.Add(d).Unix()
}

// TimeRemaining returns how long until unlockTimestamp, or zero once it has
// passed.
func TimeRemaining(unlockTimestamp int64, now time.Time) time.Duration {
	remaining := unlockTimestamp - now.Unix()
	if remaining <= 0 {
		return 0
	}
	if remaining > int64(math.MaxInt64/time.Second) {
		return math.MaxInt64
	}
	return time.Duration(remaining) * time.Second
}

// FormatDuration renders a remaining lock time as "1d 2h 3m". Zero reads as
// "Unlocked", anything under a minute as "< 1m".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "Unlocked"
	}

	seconds := int64(d / time.Second)
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}

	if len(parts) == 0 {
		return "< 1m"
	}
	return strings.Join(parts, " ")
}
