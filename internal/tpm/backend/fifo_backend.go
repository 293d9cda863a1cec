package backend

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Physical FIFO (legacy TIS) register offsets, relative to a locality's
// base address.
const (
	fifoRegAccess      = 0x00
	fifoRegSts         = 0x18
	fifoRegBurstCountLo = 0x19
	fifoRegDataFIFO    = 0x24

	fifoAccessRequestUse    = 1 << 1
	fifoAccessActiveLoc     = 1 << 5

	fifoStsCommandReady = 1 << 5
	fifoStsGo           = 1 << 3
	fifoStsDataAvail    = 1 << 4
)

// fifoBackend drives a physical TPM that exposes the legacy FIFO/TIS
// interface instead of a native CRB: bytes move through a single data
// register, paced by the burst-count field in the status register rather
// than a flat buffer write.
type fifoBackend struct {
	mmio       MMIO
	stride     uintptr
	timeouts   Timeouts
	idleBypass bool
}

func (b *fifoBackend) base(locality uint8) uintptr { return localityOffset(locality, b.stride) }

// burstCount reads the 16-bit burst-count field, little-endian across two
// byte registers as the legacy interface defines it.
func (b *fifoBackend) burstCount(off uintptr) uint16 {
	lo := b.mmio.Read8(off + fifoRegBurstCountLo)
	hi := b.mmio.Read8(off + fifoRegBurstCountLo + 1)
	return uint16(lo) | uint16(hi)<<8
}

func (b *fifoBackend) waitBurstCount(off uintptr) error {
	deadline := time.Now().Add(b.timeouts.D)
	for b.burstCount(off) == 0 {
		if time.Now().After(deadline) {
			return fmt.Errorf("fifo burst count timed out after %s", b.timeouts.D)
		}
		sleep(b.timeouts.PollInterval)
	}
	return nil
}

// GoIdle is a no-op on the legacy interface: there is no explicit idle
// register write, idle is simply the absence of Command Ready.
func (b *fifoBackend) GoIdle(uint8) error { return nil }

func (b *fifoBackend) CmdReady(locality uint8) error {
	off := b.base(locality)
	b.mmio.Write8(off+fifoRegSts, fifoStsCommandReady)
	return pollRegister(b.mmio, off+fifoRegSts, Width8, fifoStsCommandReady, 0, b.timeouts.A, b.timeouts.PollInterval)
}

func (b *fifoBackend) LocalityRequest(locality uint8) error {
	off := b.base(locality)
	b.mmio.Write8(off+fifoRegAccess, fifoAccessRequestUse)
	return pollRegister(b.mmio, off+fifoRegAccess, Width8, fifoAccessActiveLoc, 0, b.timeouts.A, b.timeouts.PollInterval)
}

func (b *fifoBackend) LocalityRelinquish(locality uint8) error {
	off := b.base(locality)
	b.mmio.Write8(off+fifoRegAccess, fifoAccessActiveLoc)
	return pollRegister(b.mmio, off+fifoRegAccess, Width8, 0, fifoAccessActiveLoc, b.timeouts.A, b.timeouts.PollInterval)
}

func (b *fifoBackend) CopyCommandData(locality uint8, data []byte) error {
	off := b.base(locality)
	for i := 0; i < len(data); {
		if err := b.waitBurstCount(off); err != nil {
			return err
		}
		n := int(b.burstCount(off))
		for ; n > 0 && i < len(data); n-- {
			b.mmio.Write8(off+fifoRegDataFIFO, data[i])
			i++
		}
	}
	return nil
}

func (b *fifoBackend) StartCommand(locality uint8) error {
	off := b.base(locality)
	b.mmio.Write8(off+fifoRegSts, fifoStsGo)
	return pollRegister(b.mmio, off+fifoRegSts, Width8, fifoStsDataAvail, 0, b.timeouts.Max, b.timeouts.PollInterval)
}

// CopyResponseData reads the 6-byte TPM2 response header (tag + size)
// first to learn how long the full response is, then reads the remainder,
// both paced by the burst-count field.
func (b *fifoBackend) CopyResponseData(locality uint8, buf []byte) (int, error) {
	off := b.base(locality)
	n, err := b.readFIFO(off, buf, 6)
	if err != nil || n < 6 {
		return n, err
	}
	tag := binary.BigEndian.Uint16(buf[0:2])
	if tag == legacyRspCommandTag {
		return 0, ErrUnsupportedResponseTag
	}
	size := binary.BigEndian.Uint32(buf[2:6])
	if int(size) > len(buf) {
		return 0, ErrResponseTooLarge
	}
	rest, err := b.readFIFO(off, buf[n:size], int(size)-n)
	return n + rest, err
}

func (b *fifoBackend) readFIFO(off uintptr, buf []byte, want int) (int, error) {
	read := 0
	for read < want {
		if err := b.waitBurstCount(off); err != nil {
			return read, err
		}
		n := int(b.burstCount(off))
		for ; n > 0 && read < want; n-- {
			buf[read] = b.mmio.Read8(off + fifoRegDataFIFO)
			read++
		}
	}
	return read, nil
}

func (b *fifoBackend) IsCRBInterface() bool        { return false }
func (b *fifoBackend) IsIdleBypassSupported() bool { return b.idleBypass }
