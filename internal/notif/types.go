package notif

// Status is the Notification Service's result code, returned to the caller
// in the partition-message response's Arg0.
type Status int32

const (
	StatusSuccess       Status = 0
	StatusNotFound      Status = -1
	StatusInvalidParam  Status = -2
	StatusNoMemory      Status = -3
)

const (
	maxServices           = 16
	maxMappingsPerService = 64
)

// MaxBatchSize is the largest batch REGISTER/UNREGISTER accepts in a
// single call: one entry per argument slot the wire format sets aside for
// the mapping array (7 slots), independent of maxMappingsPerService (the
// table's total per-service capacity).
const MaxBatchSize = 7

// mapping is one registered (cookie -> global bit) entry for a service.
type mapping struct {
	inUse             bool
	perVCPU           bool
	id                uint16
	cookie            uint32
	sourcePartitionID uint16
}

// serviceEntry is one of the fixed 16 service slots.
type serviceEntry struct {
	inUse    bool
	uuid     [16]byte
	mappings [maxMappingsPerService]mapping
}
