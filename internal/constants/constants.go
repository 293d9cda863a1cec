// Package constants holds the backend polling timeouts shared by the CRB
// and FIFO translators. Naming follows the PC Client Platform TPM Profile's
// timeout classes (A/B/C/D), not what the values are used for, because the
// same class applies to different registers in the two interface styles.
package constants

import "time"

// Poll timeouts for waiting on TPM register bits.
//
// TimeoutA bounds locality request/relinquish and the go-idle and
// command-ready transitions.
// TimeoutD bounds each wait for a non-zero FIFO burst count.
// TimeoutMax bounds command execution after a start (90s, matching the
// platform profile's absolute maximum).
// TimeoutB and TimeoutC are carried through to the translators, but no
// backend primitive currently waits on them.
const (
	TimeoutA   = 750 * time.Millisecond
	TimeoutB   = 2 * time.Second
	TimeoutC   = 750 * time.Millisecond
	TimeoutD   = 750 * time.Millisecond
	TimeoutMax = 90 * time.Second
)

// PollInterval is the fixed delay between register re-reads while waiting
// on any of the timeouts above. The firmware this models uses a flat 30us spin; we use
// the same interval here so timeout math stays directly comparable.
const PollInterval = 30 * time.Microsecond
