package intel

import "fmt"

// DefaultFreeTierHours is the free-tier lookback ceiling: 30 days.
const DefaultFreeTierHours = 720

// TierPolicy clamps requested lookback windows to the caller's tier
// ceiling. Today there is a single free tier; a paid tier is a
// different TierPolicy value, not new code.
type TierPolicy struct {
	MaxHours int
}

// Clamp returns the effective window and, when the request exceeded
// the ceiling, an advisory naming both values. Clamp is idempotent.
func (p TierPolicy) Clamp(hours int) (int, string) {
	if hours <= p.MaxHours {
		return hours, ""
	}
	return p.MaxHours, fmt.Sprintf("Free tier limited to %dh (%d days). Requested %dh was clamped.",
		p.MaxHours, p.MaxHours/24, hours)
}
