// Package testbridge implements the TPM Test/Notification Bridge: a small
// service that lets the unit-test driver ask the partition to raise a
// notification bit by cookie, without needing its own registered
// mappings, so test scenarios can exercise the Notification Service path
// end to end.
package testbridge

import "github.com/ffa-sp/tpmsp/internal/notif"

// TestStatus is the bridge's result code.
type TestStatus int32

const (
	TestStatusSuccess TestStatus = 0
	TestStatusFailure TestStatus = 1
)

// delayedSRIBit is the position of the delayed System Resource Interrupt
// flag bit. TestNotification does not pass it on: Raise takes no flags
// argument, so the flags word it delivers carries only the per-vCPU bit.
const delayedSRIBit = 1

// Bridge forwards TEST_NOTIFICATION requests into the Notification
// Service's Raise path.
type Bridge struct {
	notif *notif.Service
}

// New constructs a Bridge bound to the given Notification Service.
func New(n *notif.Service) *Bridge {
	return &Bridge{notif: n}
}

// TestNotification raises the notification registered under (uuidHi/lo,
// cookie), collapsing the Notification Service's richer status taxonomy
// down to a simple success/failure result.
func (b *Bridge) TestNotification(uuidHi, uuidLo uint64, cookie uint32) TestStatus {
	serviceUUID := notif.ExtractUUID(uuidHi, uuidLo)
	if b.notif.Raise(serviceUUID, cookie) == notif.StatusSuccess {
		return TestStatusSuccess
	}
	return TestStatusFailure
}
