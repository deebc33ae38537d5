// Package entity contains the core business objects of the library.
package entity

import "time"

// AttemptState is the server-authoritative free-attempt and bonus-cycle
// economy. It is held in memory only and re-fetched on demand; it is not
// guaranteed to survive a process restart.
type AttemptState struct {
	AttemptsRemaining     int        // Free attempts left in the current cycle.
	TotalAttemptsPerCycle int        // Attempts granted per renewal cycle.
	NextRenewalTime       *time.Time // When the free-attempt counter renews; nil if unknown.

	CyclesRemaining  int        // Bonus cycles left.
	AttemptsPerCycle int        // Attempts granted per bonus cycle.
	BonusRenewalTime *time.Time // When the bonus counter renews; nil if unknown.
}
