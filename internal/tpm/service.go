// Package tpm implements the TPM 2.0 Service: a PC-Client CRB interface
// multiplexed across up to five localities, enforcing the IDLE/READY/
// COMPLETE state machine and forwarding commands to a physical TPM
// through a backend.Backend translator.
package tpm

import (
	"sync"

	"github.com/ffa-sp/tpmsp/internal/interfaces"
	"github.com/ffa-sp/tpmsp/internal/tpm/backend"
)

// Status is the TPM Service's result code, matching the handful of FF-A
// error codes the partition-message ABI defines plus the service's own
// "results returned" success variant.
type Status int32

const (
	StatusSuccess               Status = 0
	StatusSuccessResultsReturned Status = 2
	StatusNotSupported          Status = -1
	StatusInvalidParameters     Status = -2
	StatusNoMemory              Status = -3
	StatusDenied                Status = -6
)

// CurrentState is the CRB command state machine's state.
type CurrentState int

const (
	StateIdle CurrentState = iota
	StateReady
	StateComplete
)

// NoLocality indicates no locality currently holds the active slot.
const NoLocality = -1

// Function qualifiers for the START opcode.
const (
	FuncCommand       uint8 = 0
	FuncLocalityReq   uint8 = 1
)

// Locality management operations for MANAGE_LOCALITY, issued only by the
// trusted monitor caller (checked via sourcePartitionID against
// monitorPartitionID).
const (
	LocalityOpen  uint8 = 0
	LocalityClose uint8 = 1
)

const interfaceMajorVersion = 1
const interfaceMinorVersion = 0

// Service is the process-wide TPM service instance. One caller at a time:
// the Service Dispatcher processes a message to completion before the
// next arrives, so mu exists for race-detector provability, not real
// contention.
type Service struct {
	mu sync.Mutex

	crbs  [backend.NumLocalities]VirtualCRB
	open  [backend.NumLocalities]bool // explicit open/closed flag, toggled only by ManageLocality
	state CurrentState
	active int // NoLocality if none

	monitorPartitionID uint16
	backend            backend.Backend
	logger              interfaces.Logger
	observer             interfaces.Observer
}

// NewService constructs a Service bound to be, with monitorPartitionID the
// only source ID permitted to call ManageLocality.
func NewService(be backend.Backend, monitorPartitionID uint16, logger interfaces.Logger, observer interfaces.Observer) *Service {
	if logger == nil {
		logger = interfaces.NoOpLogger{}
	}
	if observer == nil {
		observer = interfaces.NoOpObserver{}
	}
	s := &Service{
		backend:            be,
		monitorPartitionID: monitorPartitionID,
		active:              NoLocality,
		logger:              logger,
		observer:             observer,
	}
	return s
}

func (s *Service) stateName() string {
	switch s.state {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// GetInterfaceVersion returns the packed (major<<16 | minor) CRB interface
// version, always reporting success with results returned.
func (s *Service) GetInterfaceVersion() (Status, uint32) {
	return StatusSuccessResultsReturned, (uint32(interfaceMajorVersion) << 16) | interfaceMinorVersion
}

// GetFeatureInfo, RegisterForNotification, UnregisterFromNotification, and
// FinishNotified are not implemented by this partition; every call is
// rejected uniformly.
func (s *Service) GetFeatureInfo(uint32) Status           { return StatusNotSupported }
func (s *Service) RegisterForNotification(uint32) Status  { return StatusNotSupported }
func (s *Service) UnregisterFromNotification(uint32) Status { return StatusNotSupported }
func (s *Service) FinishNotified(uint8) Status            { return StatusNotSupported }

// ManageLocality opens or closes locality for MANAGE_LOCALITY requests.
// Only sourcePartitionID == monitorPartitionID may call this; every other
// caller is denied, regardless of what op or locality it names.
func (s *Service) ManageLocality(op uint8, locality uint8, sourcePartitionID uint16) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sourcePartitionID != s.monitorPartitionID {
		s.logger.Warn("manage locality denied: not the monitor", "source", sourcePartitionID)
		return StatusDenied
	}
	if int(locality) >= backend.NumLocalities {
		return StatusInvalidParameters
	}

	switch op {
	case LocalityOpen:
		s.open[locality] = true
		s.observer.ObserveLocalityTransition(locality, true)
	case LocalityClose:
		s.open[locality] = false
		if s.active == int(locality) {
			s.active = NoLocality
		}
		s.observer.ObserveLocalityTransition(locality, false)
	default:
		return StatusInvalidParameters
	}
	return StatusSuccess
}

// Start dispatches a START opcode by its function qualifier: a command
// (run the CRB state machine) or a locality request/relinquish. Once the
// locality is in range and open, that locality's CRB is rewritten to its
// canonical clean layout before returning, whatever the handler's outcome;
// when a different locality holds the active slot, its CRB is not
// rewritten.
func (s *Service) Start(functionQualifier uint8, locality uint8) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if int(locality) >= backend.NumLocalities {
		return StatusInvalidParameters
	}
	if !s.open[locality] {
		return StatusDenied
	}

	var status Status
	switch functionQualifier {
	case FuncCommand:
		status = s.runCommandQualifier(locality)
	case FuncLocalityReq:
		status = s.runLocalityQualifier(locality)
	default:
		status = StatusInvalidParameters
	}

	active := s.active
	granted := active == int(locality)
	s.crbs[locality].clean(locality, active, granted)
	return status
}

// runCommandQualifier implements the IDLE -> READY -> COMPLETE -> IDLE
// state machine against the active locality's CRB and the backend. A
// locality mismatch is a malformed call (INVALID_PARAMETERS); once inside
// a known state, a request that doesn't match any trigger bit that state
// recognizes is simply refused (DENIED), matching ground truth's
// HandleCommand, which defaults Status to ACCESS_DENIED before its state
// switch and only overrides it on a recognized transition.
func (s *Service) runCommandQualifier(locality uint8) Status {
	if s.active != int(locality) {
		return StatusInvalidParameters
	}
	crb := &s.crbs[locality]
	req := crb.u32(offCtrlReq)
	idleBypass := s.backend.IsIdleBypassSupported()

	switch s.state {
	case StateIdle:
		if req&ctrlReqCmdReady == 0 {
			s.observer.ObserveCommand(s.stateName(), false)
			return StatusDenied
		}
		if err := s.backend.CmdReady(locality); err != nil {
			s.observer.ObserveCommand(s.stateName(), false)
			return StatusInvalidParameters
		}
		s.state = StateReady
		s.observer.ObserveCommand("idle", true)
		return StatusSuccess

	case StateReady:
		switch {
		case req&ctrlReqGoIdle != 0:
			if err := s.backend.GoIdle(locality); err != nil {
				s.observer.ObserveCommand(s.stateName(), false)
				return StatusInvalidParameters
			}
			s.state = StateIdle
			s.observer.ObserveCommand("ready", true)
			return StatusSuccess

		case req&ctrlReqCmdReady != 0:
			if err := s.backend.CmdReady(locality); err != nil {
				s.observer.ObserveCommand(s.stateName(), false)
				return StatusInvalidParameters
			}
			s.observer.ObserveCommand("ready", true)
			return StatusSuccess

		case crb.CtrlStart()&ctrlStart != 0:
			if err := s.runCommand(locality, crb); err != nil {
				s.observer.ObserveCommand(s.stateName(), false)
				return StatusInvalidParameters
			}
			s.state = StateComplete
			s.observer.ObserveCommand("ready", true)
			return StatusSuccess

		default:
			s.observer.ObserveCommand(s.stateName(), false)
			return StatusDenied
		}

	case StateComplete:
		switch {
		case req&ctrlReqGoIdle != 0:
			if err := s.backend.GoIdle(locality); err != nil {
				s.observer.ObserveCommand(s.stateName(), false)
				return StatusInvalidParameters
			}
			s.state = StateIdle
			s.observer.ObserveCommand("complete", true)
			return StatusSuccess

		case req&ctrlReqCmdReady != 0:
			if !idleBypass {
				s.observer.ObserveCommand(s.stateName(), false)
				return StatusDenied
			}
			if err := s.backend.CmdReady(locality); err != nil {
				s.observer.ObserveCommand(s.stateName(), false)
				return StatusInvalidParameters
			}
			crb.zeroDataBuffer()
			s.state = StateReady
			s.observer.ObserveCommand("complete", true)
			return StatusSuccess

		case crb.CtrlStart()&ctrlStart != 0:
			if !idleBypass {
				s.observer.ObserveCommand(s.stateName(), false)
				return StatusDenied
			}
			if err := s.runCommand(locality, crb); err != nil {
				s.observer.ObserveCommand(s.stateName(), false)
				return StatusInvalidParameters
			}
			s.observer.ObserveCommand("complete", true)
			return StatusSuccess

		default:
			s.observer.ObserveCommand(s.stateName(), false)
			return StatusDenied
		}

	default:
		// Unreachable in correct operation: fall back to go-idle and
		// wipe the data buffer, matching the firmware's defensive catch-all.
		_ = s.backend.GoIdle(locality)
		crb.zeroDataBuffer()
		s.state = StateIdle
		s.observer.ObserveCommand("unknown", false)
		return StatusInvalidParameters
	}
}

// runCommand forwards the active command to the backend and copies its
// response back into the CRB, shared by the READY->COMPLETE transition and
// the idle-bypass COMPLETE->COMPLETE re-run.
func (s *Service) runCommand(locality uint8, crb *VirtualCRB) error {
	if err := s.backend.CopyCommandData(locality, crb.CommandBytes()); err != nil {
		return err
	}
	if err := s.backend.StartCommand(locality); err != nil {
		return err
	}
	respBuf := getResponseBuffer()
	defer putResponseBuffer(respBuf)
	n, err := s.backend.CopyResponseData(locality, respBuf)
	if err != nil {
		return err
	}
	crb.SetResponse(respBuf[:n])
	return nil
}

// runLocalityQualifier grants or relinquishes the active locality slot,
// reading the caller's intent from the CRB's LocalityControl register
// rather than inferring it from current state: REQUEST_ACCESS while this
// locality already holds the active slot is a no-op success, REQUEST_ACCESS
// while another locality holds it is DENIED, and RELINQUISH while this
// locality doesn't hold it is DENIED.
func (s *Service) runLocalityQualifier(locality uint8) Status {
	ctrl := s.crbs[locality].LocalityControl()

	switch {
	case ctrl&locCtrlRequestAccess != 0:
		if s.active == int(locality) {
			return StatusSuccess
		}
		if s.active != NoLocality {
			return StatusDenied
		}
		if err := s.backend.LocalityRequest(locality); err != nil {
			return StatusInvalidParameters
		}
		s.active = int(locality)
		s.state = StateIdle
		return StatusSuccess

	case ctrl&locCtrlRelinquish != 0:
		if s.active != int(locality) {
			return StatusDenied
		}
		if err := s.backend.LocalityRelinquish(locality); err != nil {
			return StatusInvalidParameters
		}
		s.active = NoLocality
		s.state = StateIdle
		return StatusSuccess

	default:
		return StatusInvalidParameters
	}
}
