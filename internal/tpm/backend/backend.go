// Package backend translates the CRB state machine's primitives into
// register operations against a physical TPM, in either of its two wire
// styles (CRB-native or legacy FIFO/TIS), auto-detected from the physical
// interface-ID register.
package backend

import (
	"errors"
	"time"

	"github.com/ffa-sp/tpmsp/internal/constants"
)

// ErrResponseTooLarge is returned by CopyResponseData when the physical TPM's
// response doesn't fit the caller's buffer, per the Backend Start
// procedure's BUFFER_TOO_SMALL/NOMEM step.
var ErrResponseTooLarge = errors.New("tpm response too large for buffer")

// ErrUnsupportedResponseTag is returned by CopyResponseData when the
// response carries the legacy TPM_ST_RSP_COMMAND tag, which this interface
// does not support.
var ErrUnsupportedResponseTag = errors.New("tpm response tag unsupported")

// legacyRspCommandTag is the TPM 1.x TPM_ST_RSP_COMMAND response tag.
const legacyRspCommandTag = 0x00C4

// NumLocalities is the number of TPM localities a physical device and the
// CRB interface above it both multiplex (0 through 4).
const NumLocalities = 5

// Backend is the set of primitives the CRB state machine drives against a
// physical TPM. Implementations are per-locality: every method takes the
// locality it applies to.
type Backend interface {
	GoIdle(locality uint8) error
	CmdReady(locality uint8) error
	LocalityRequest(locality uint8) error
	LocalityRelinquish(locality uint8) error
	CopyCommandData(locality uint8, data []byte) error
	StartCommand(locality uint8) error
	CopyResponseData(locality uint8, buf []byte) (int, error)
	IsCRBInterface() bool
	IsIdleBypassSupported() bool
}

// MMIO is a byte-addressable register window. Production code backs this
// with an actual memory-mapped physical-address range; tests back it with
// an in-memory fake.
type MMIO interface {
	Read8(off uintptr) uint8
	Read32(off uintptr) uint32
	Write8(off uintptr, v uint8)
	Write32(off uintptr, v uint32)
}

// Timeouts bundles the poll-timeout classes the translator waits with.
type Timeouts struct {
	A, B, C, D, Max time.Duration
	PollInterval    time.Duration
}

// DefaultTimeouts mirrors internal/constants' platform-profile defaults.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		A: constants.TimeoutA, B: constants.TimeoutB, C: constants.TimeoutC, D: constants.TimeoutD,
		Max: constants.TimeoutMax, PollInterval: constants.PollInterval,
	}
}

// interfaceIDOffset is the fixed address of the InterfaceId register,
// present in both CRB and FIFO interface styles, used to detect which one
// a physical TPM exposes.
const interfaceIDOffset = 0x30

const (
	interfaceTypeMask    = 0xF
	interfaceTypeCRB     = 1
	idleBypassSupported  = 1 << 9
)

// New probes mmio's InterfaceId register and returns the matching
// translator.
func New(mmio MMIO, localityStride uintptr, timeouts Timeouts) (Backend, error) {
	id := mmio.Read32(interfaceIDOffset)
	isCRB := id&interfaceTypeMask == interfaceTypeCRB
	idleBypass := id&idleBypassSupported != 0

	if isCRB {
		return &crbBackend{mmio: mmio, stride: localityStride, timeouts: timeouts, idleBypass: idleBypass}, nil
	}
	return &fifoBackend{mmio: mmio, stride: localityStride, timeouts: timeouts, idleBypass: idleBypass}, nil
}

func localityOffset(locality uint8, stride uintptr) uintptr {
	return uintptr(locality) * stride
}
