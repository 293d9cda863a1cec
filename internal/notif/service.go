// Package notif implements the Notification Service: it maps
// (service-UUID, cookie) pairs onto bit positions in a single 64-bit
// global notification bitmask and raises them on request.
package notif

import (
	"sync"

	"github.com/ffa-sp/tpmsp/internal/interfaces"
)

// perVCPUFlag is set in the flags word passed to NotificationSet when the
// mapping being raised was registered as per-vCPU.
const perVCPUFlag uint32 = 1 << 0

// Service holds the fixed-size service/mapping tables and the single
// 64-bit global bitmask those mappings carve bits out of. All exported
// methods take the service-wide mutex: the Service Dispatcher is the only
// caller and processes one message to completion before the next, so this
// lock exists to make that invariant checkable under the race detector,
// not to arbitrate real contention.
type Service struct {
	mu       sync.Mutex
	entries  [maxServices]serviceEntry
	bitmask  uint64
	setter   interfaces.NotificationSetter
	logger   interfaces.Logger
	observer interfaces.Observer
}

// NewService constructs a Service. setter must not be nil; logger and
// observer default to no-ops.
func NewService(setter interfaces.NotificationSetter, logger interfaces.Logger, observer interfaces.Observer) *Service {
	if logger == nil {
		logger = interfaces.NoOpLogger{}
	}
	if observer == nil {
		observer = interfaces.NoOpObserver{}
	}
	return &Service{setter: setter, logger: logger, observer: observer}
}

// locate returns the index of the service entry matching uuid, or -1.
func (s *Service) locate(uuid [16]byte) int {
	for i := range s.entries {
		if s.entries[i].inUse && s.entries[i].uuid == uuid {
			return i
		}
	}
	return -1
}

// locateOrAllocate returns an existing matching entry's index, or the
// first free slot if none matches. ok is false if the table is full and
// no match exists.
func (s *Service) locateOrAllocate(uuid [16]byte) (idx int, ok bool) {
	if i := s.locate(uuid); i >= 0 {
		return i, true
	}
	for i := range s.entries {
		if !s.entries[i].inUse {
			return i, true
		}
	}
	return -1, false
}

func firstFreeMapping(e *serviceEntry) int {
	for i := range e.mappings {
		if !e.mappings[i].inUse {
			return i
		}
	}
	return -1
}

// Register applies a batch of wire-packed mapping requests for serviceUUID
// as a single transaction: every entry in the batch is validated against a
// working copy of the service's table and the global bitmask before any of
// it is committed. A single invalid entry discards the whole batch,
// leaving existing registrations untouched.
func (s *Service) Register(serviceUUID [16]byte, sourcePartitionID uint16, batch []PackedMapping) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(batch) == 0 || len(batch) > MaxBatchSize {
		s.observer.ObserveMapping("register", false)
		return StatusInvalidParam
	}

	idx, ok := s.locateOrAllocate(serviceUUID)
	if !ok {
		s.observer.ObserveMapping("register", false)
		return StatusNoMemory
	}

	tempEntry := s.entries[idx]
	tempBitmask := s.bitmask

	for _, pm := range batch {
		perVCPU, id, cookie := pm.Unpack()
		if id >= 64 {
			s.logger.Debug("notif register rejected: id outside the 64-bit bitmask", "id", id)
			s.observer.ObserveMapping("register", false)
			return StatusInvalidParam
		}
		for i := range tempEntry.mappings {
			if tempEntry.mappings[i].inUse && tempEntry.mappings[i].cookie == cookie {
				s.logger.Debug("notif register rejected: cookie already registered", "cookie", cookie)
				s.observer.ObserveMapping("register", false)
				return StatusInvalidParam
			}
		}
		bit := uint64(1) << id
		if tempBitmask&bit != 0 {
			s.logger.Debug("notif register rejected: bit already claimed", "id", id)
			s.observer.ObserveMapping("register", false)
			return StatusInvalidParam
		}
		slot := firstFreeMapping(&tempEntry)
		if slot < 0 {
			s.observer.ObserveMapping("register", false)
			return StatusNoMemory
		}
		tempEntry.mappings[slot] = mapping{
			inUse:             true,
			perVCPU:           perVCPU,
			id:                id,
			cookie:            cookie,
			sourcePartitionID: sourcePartitionID,
		}
		tempBitmask |= bit
	}

	tempEntry.inUse = true
	tempEntry.uuid = serviceUUID
	s.entries[idx] = tempEntry
	s.bitmask = tempBitmask
	s.observer.ObserveMapping("register", true)
	return StatusSuccess
}

// Unregister removes the mappings named by batch from serviceUUID's table,
// as an all-or-nothing batch: every entry's cookie must currently be
// registered with the same id it was registered under, and owned by
// sourcePartitionID (only the registrar may unregister its own mapping) —
// the first entry that fails either check aborts the whole call.
func (s *Service) Unregister(serviceUUID [16]byte, sourcePartitionID uint16, batch []PackedMapping) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(batch) == 0 || len(batch) > MaxBatchSize {
		s.observer.ObserveMapping("unregister", false)
		return StatusInvalidParam
	}

	idx := s.locate(serviceUUID)
	if idx < 0 {
		s.observer.ObserveMapping("unregister", false)
		return StatusNotFound
	}

	tempEntry := s.entries[idx]
	tempBitmask := s.bitmask

	for _, pm := range batch {
		_, id, cookie := pm.Unpack()
		slot := -1
		for i := range tempEntry.mappings {
			if tempEntry.mappings[i].inUse && tempEntry.mappings[i].cookie == cookie {
				slot = i
				break
			}
		}
		if slot < 0 {
			s.observer.ObserveMapping("unregister", false)
			return StatusNotFound
		}
		m := tempEntry.mappings[slot]
		if m.id != id {
			s.logger.Debug("notif unregister rejected: id mismatch", "cookie", cookie)
			s.observer.ObserveMapping("unregister", false)
			return StatusInvalidParam
		}
		if m.sourcePartitionID != sourcePartitionID {
			s.logger.Warn("notif unregister denied: not the registrar", "cookie", cookie, "source", sourcePartitionID)
			s.observer.ObserveMapping("unregister", false)
			return StatusInvalidParam
		}
		tempBitmask &^= uint64(1) << m.id
		tempEntry.mappings[slot] = mapping{}
	}

	s.entries[idx] = tempEntry
	s.bitmask = tempBitmask
	s.observer.ObserveMapping("unregister", true)
	return StatusSuccess
}

// Raise looks up serviceUUID's mapping for cookie and, if found, delivers
// an FFA_NOTIFICATION_SET through the configured NotificationSetter using
// that mapping's global bit and per-vCPU flag.
func (s *Service) Raise(serviceUUID [16]byte, cookie uint32) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.locate(serviceUUID)
	if idx < 0 {
		s.observer.ObserveNotify(false)
		return StatusNotFound
	}

	entry := &s.entries[idx]
	var found *mapping
	for i := range entry.mappings {
		if entry.mappings[i].inUse && entry.mappings[i].cookie == cookie {
			found = &entry.mappings[i]
			break
		}
	}
	if found == nil {
		s.observer.ObserveNotify(false)
		return StatusNotFound
	}

	var flags uint32
	if found.perVCPU {
		flags |= perVCPUFlag
	}
	bitmask := uint64(1) << found.id

	if err := s.setter.NotificationSet(found.sourcePartitionID, flags, bitmask); err != nil {
		s.logger.Warn("notification set failed", "error", err)
		s.observer.ObserveNotify(false)
		return StatusInvalidParam
	}
	s.observer.ObserveNotify(true)
	return StatusSuccess
}
