package dispatch

import "github.com/google/uuid"

// Fixed service UUIDs the dispatcher demuxes on. Canonical string forms
// per the partition's service manifest; parsed once at init so nothing
// hand-encodes byte order at a call site.
var (
	NotificationServiceUUID = uuidBytes("bdcd76d7-825e-4751-953b-d40a0e65b06e")
	TPMServiceUUID          = uuidBytes("17a24f1c-5d41-4b92-8e52-2e0ad4d4d64b")
	TestServiceUUID         = uuidBytes("211a3238-c4fc-4ae0-92f3-fe3f5f0ec8c1")
)

func uuidBytes(s string) [16]byte {
	u := uuid.MustParse(s)
	var b [16]byte
	copy(b[:], u[:])
	return b
}
