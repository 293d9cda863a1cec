package backend

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// RegWidth selects how wide a register read pollRegister performs: the
// FIFO interface's status register is 8 bits, the CRB interface's control
// registers are 32 bits.
type RegWidth int

const (
	Width8 RegWidth = iota
	Width32
)

// pollRegister waits until mmio's register at off has all of bitsSet set
// and all of bitsClear clear, re-reading every PollInterval until timeout
// elapses. The two-width branch and the single poll-and-delay loop mirror
// the one utility both interface styles share in the firmware this models,
// rather than duplicating the loop per register width.
func pollRegister(mmio MMIO, off uintptr, width RegWidth, bitsSet, bitsClear uint32, timeout, interval time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		var v uint32
		if width == Width8 {
			v = uint32(mmio.Read8(off))
		} else {
			v = mmio.Read32(off)
		}
		if v&bitsSet == bitsSet && v&bitsClear == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("poll register %#x timed out after %s", off, timeout)
		}
		sleep(interval)
	}
}

// sleep delays for d using a nanosecond-precision sleep instead of
// time.Sleep, keeping jitter low for the 30us poll interval.
func sleep(d time.Duration) {
	ts := unix.NsecToTimespec(d.Nanoseconds())
	_ = unix.Nanosleep(&ts, nil)
}
