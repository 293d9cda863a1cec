package dispatch

import (
	"github.com/ffa-sp/tpmsp/internal/interfaces"
	"github.com/ffa-sp/tpmsp/internal/notif"
	"github.com/ffa-sp/tpmsp/internal/testbridge"
	"github.com/ffa-sp/tpmsp/internal/tpm"
)

// Notification Service opcodes, carried in Arg2.
const (
	opNotifRegister   = 0
	opNotifUnregister = 1
	opNotifRaise      = 2
)

// TPM Service opcodes, carried in Arg2.
const (
	opTPMGetInterfaceVersion          = 0
	opTPMGetFeatureInfo               = 1
	opTPMStart                        = 2
	opTPMManageLocality               = 3
	opTPMRegisterForNotification      = 4
	opTPMUnregisterFromNotification   = 5
	opTPMFinishNotified               = 6
)

// Test Service opcodes, carried in Arg2.
const opTestNotification = 0

// Dispatcher demultiplexes incoming Messages by target-service UUID.
type Dispatcher struct {
	notif   *notif.Service
	tpm     *tpm.Service
	bridge  *testbridge.Bridge
	logger  interfaces.Logger
}

// New builds a Dispatcher over the three service instances.
func New(n *notif.Service, t *tpm.Service, b *testbridge.Bridge, logger interfaces.Logger) *Dispatcher {
	if logger == nil {
		logger = interfaces.NoOpLogger{}
	}
	return &Dispatcher{notif: n, tpm: t, bridge: b, logger: logger}
}

// Handle routes req to the service named by its destination UUID and
// returns the response message, with Arg0 carrying the service's status
// code as every service in this partition reports it.
func (d *Dispatcher) Handle(req Message) Message {
	switch req.serviceUUID() {
	case NotificationServiceUUID:
		return d.handleNotif(req)
	case TPMServiceUUID:
		return d.handleTPM(req)
	case TestServiceUUID:
		return d.handleTest(req)
	default:
		d.logger.Warn("dispatch: unknown destination service")
		resp := req.response()
		resp.Arg[0] = uint64(^uint32(0)) // NOT_SUPPORTED (-1) as 32 bits, zero-extended
		return resp
	}
}

// handleNotif decodes the Notification Service opcodes. The routing UUID
// in Arg0/Arg1 only gets the request here; the registrant's own service
// UUID — distinct per caller, up to maxServices of them — is a separate
// field carried in Arg3 (hi) / Arg4 (lo), the same hi/lo convention the
// Test Service bridge uses for its own service-UUID argument.
func (d *Dispatcher) handleNotif(req Message) Message {
	resp := req.response()
	serviceUUID := notif.ExtractUUID(req.Arg[3], req.Arg[4])

	switch req.opcode() {
	case opNotifRegister:
		sourcePartitionID := uint16(req.Arg[5])
		count := int(req.Arg[6])
		if count < 1 || count > notif.MaxBatchSize {
			resp.Arg[0] = uint64(int64(notif.StatusInvalidParam))
			return resp
		}
		batch := make([]notif.PackedMapping, count)
		for i := 0; i < count; i++ {
			batch[i] = notif.PackedMapping(req.Arg[7+i])
		}
		status := d.notif.Register(serviceUUID, sourcePartitionID, batch)
		resp.Arg[0] = uint64(int64(status))
	case opNotifUnregister:
		sourcePartitionID := uint16(req.Arg[5])
		count := int(req.Arg[6])
		if count < 1 || count > notif.MaxBatchSize {
			resp.Arg[0] = uint64(int64(notif.StatusInvalidParam))
			return resp
		}
		batch := make([]notif.PackedMapping, count)
		for i := 0; i < count; i++ {
			batch[i] = notif.PackedMapping(req.Arg[7+i])
		}
		status := d.notif.Unregister(serviceUUID, sourcePartitionID, batch)
		resp.Arg[0] = uint64(int64(status))
	case opNotifRaise:
		cookie := uint32(req.Arg[5])
		status := d.notif.Raise(serviceUUID, cookie)
		resp.Arg[0] = uint64(int64(status))
	default:
		resp.Arg[0] = uint64(int64(notif.StatusInvalidParam))
	}
	return resp
}

func (d *Dispatcher) handleTPM(req Message) Message {
	resp := req.response()

	switch req.opcode() {
	case opTPMGetInterfaceVersion:
		status, version := d.tpm.GetInterfaceVersion()
		resp.Arg[0] = uint64(int64(status))
		resp.Arg[1] = uint64(version)
	case opTPMGetFeatureInfo:
		status := d.tpm.GetFeatureInfo(uint32(req.Arg[3]))
		resp.Arg[0] = uint64(int64(status))
	case opTPMStart:
		functionQualifier := uint8(req.Arg[3])
		locality := uint8(req.Arg[4])
		status := d.tpm.Start(functionQualifier, locality)
		resp.Arg[0] = uint64(int64(status))
	case opTPMManageLocality:
		op := uint8(req.Arg[3])
		locality := uint8(req.Arg[4])
		status := d.tpm.ManageLocality(op, locality, req.SourceID)
		resp.Arg[0] = uint64(int64(status))
	case opTPMRegisterForNotification:
		status := d.tpm.RegisterForNotification(uint32(req.Arg[3]))
		resp.Arg[0] = uint64(int64(status))
	case opTPMUnregisterFromNotification:
		status := d.tpm.UnregisterFromNotification(uint32(req.Arg[3]))
		resp.Arg[0] = uint64(int64(status))
	case opTPMFinishNotified:
		status := d.tpm.FinishNotified(uint8(req.Arg[3]))
		resp.Arg[0] = uint64(int64(status))
	default:
		resp.Arg[0] = uint64(int64(tpm.StatusInvalidParameters))
	}
	return resp
}

func (d *Dispatcher) handleTest(req Message) Message {
	resp := req.response()

	switch req.opcode() {
	case opTestNotification:
		status := d.bridge.TestNotification(req.Arg[3], req.Arg[4], uint32(req.Arg[5]))
		resp.Arg[0] = uint64(int64(status))
	default:
		resp.Arg[0] = uint64(int64(testbridge.TestStatusFailure))
	}
	return resp
}
