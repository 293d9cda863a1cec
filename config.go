package tpmsp

import (
	"time"

	"github.com/ffa-sp/tpmsp/internal/constants"
)

// Config parameterizes a Partition: the poll timeouts the TPM backend
// translator uses and the physical register window it talks to. There is
// no file or environment-variable layer; callers build one in Go, the same
// way the device parameters of the teacher repo are built in Go.
type Config struct {
	// TimeoutA through TimeoutMax are the PC Client Platform TPM Profile
	// poll-timeout classes; see internal/constants for what each bounds.
	TimeoutA, TimeoutB, TimeoutC, TimeoutD, TimeoutMax time.Duration
	PollInterval                                        time.Duration

	// LocalityStride is the distance between successive localities'
	// register windows: CreateAndServe hands it to the backend, which
	// places locality N at N*LocalityStride within the MMIO region.
	// LocalityBase is not applied by CreateAndServe or the backend;
	// locality 0 always starts at offset 0.
	LocalityBase   uintptr
	LocalityStride uintptr
}

// DefaultConfig returns the platform-profile-standard timeouts and the
// standard 4KiB-per-locality CRB register layout.
func DefaultConfig() *Config {
	return &Config{
		TimeoutA:       constants.TimeoutA,
		TimeoutB:       constants.TimeoutB,
		TimeoutC:       constants.TimeoutC,
		TimeoutD:       constants.TimeoutD,
		TimeoutMax:     constants.TimeoutMax,
		PollInterval:   constants.PollInterval,
		LocalityBase:   0,
		LocalityStride: 0x1000,
	}
}
