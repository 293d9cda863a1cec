package tpmsp

import (
	"github.com/ffa-sp/tpmsp/internal/dispatch"
	"github.com/ffa-sp/tpmsp/internal/tpm/backend"
)

// Fixed service UUIDs the Service Dispatcher demuxes incoming messages on,
// re-exported for callers building Message values outside this module.
var (
	NotificationServiceUUID = dispatch.NotificationServiceUUID
	TPMServiceUUID          = dispatch.TPMServiceUUID
	TestServiceUUID         = dispatch.TestServiceUUID
)

// NumLocalities is the number of TPM localities a CRB interface multiplexes
// (0 through 4, matching the PC Client Platform TPM Profile).
const NumLocalities = backend.NumLocalities

// MaxServices and MaxMappingsPerService bound the Notification Service's
// fixed-size tables; both mirror the original firmware's compiled-in limits.
const (
	MaxServices           = 16
	MaxMappingsPerService = 64
)
