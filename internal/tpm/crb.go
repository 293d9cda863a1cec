package tpm

import "encoding/binary"

// crbSize is the byte size of one locality's virtual CRB register window.
const crbSize = 0x1000

// Register byte offsets within a locality's CRB window, matching the TCG
// PC Client Platform TPM Profile's locality register block.
const (
	offLocState   = 0x00
	offLocCtrl    = 0x08
	offLocSts     = 0x0C
	offIntfID     = 0x30
	offCtrlExt    = 0x38
	offCtrlReq    = 0x40
	offCtrlSts    = 0x44
	offCtrlCancel = 0x48
	offCtrlStart  = 0x4C
	offCmdSize    = 0x58
	offCmdLAddr   = 0x5C
	offCmdHAddr   = 0x60
	offRspSize    = 0x64
	offRspAddr    = 0x68
	offDataBuffer = 0x80
)

// Bits within locState/locCtrl/locSts.
const (
	locStateTPMEstablished = 1 << 0
	locStateLocAssigned    = 1 << 1
	locStateActiveLocShift = 2
	locStateActiveLocMask  = 0x7 << locStateActiveLocShift
	locStateRegValidSts    = 1 << 7

	locCtrlRequestAccess = 1 << 0
	locCtrlRelinquish    = 1 << 1

	locStsGranted    = 1 << 0
	locStsBeenSeized = 1 << 1
)

// Bits within ctrlReq/ctrlSts/ctrlStart.
const (
	ctrlReqCmdReady = 1 << 0
	ctrlReqGoIdle   = 1 << 1

	ctrlStsTPMIdle  = 1 << 1
	ctrlStsTPMError = 1 << 0

	ctrlStart = 1 << 0
)

// VirtualCRB is the byte-exact register window one locality presents to
// its caller. The TPM Service mutates it directly in response to incoming
// opcodes and keeps it in sync with the state machine's current state.
type VirtualCRB [crbSize]byte

func (c *VirtualCRB) u32(off int) uint32 { return binary.LittleEndian.Uint32(c[off:]) }
func (c *VirtualCRB) setU32(off int, v uint32) { binary.LittleEndian.PutUint32(c[off:], v) }

func (c *VirtualCRB) LocState() uint32     { return c.u32(offLocState) }
func (c *VirtualCRB) setLocState(v uint32) { c.setU32(offLocState, v) }
func (c *VirtualCRB) CtrlSts() uint32      { return c.u32(offCtrlSts) }
func (c *VirtualCRB) setCtrlSts(v uint32)  { c.setU32(offCtrlSts, v) }
func (c *VirtualCRB) CtrlStart() uint32    { return c.u32(offCtrlStart) }
func (c *VirtualCRB) setCtrlStart(v uint32) { c.setU32(offCtrlStart, v) }
func (c *VirtualCRB) CmdSize() uint32      { return c.u32(offCmdSize) }
func (c *VirtualCRB) RspSize() uint32      { return c.u32(offRspSize) }

// LocalityControl returns the caller-written LocalityControl register: the
// REQUEST_ACCESS / RELINQUISH trigger bits the locality qualifier of START
// reads to decide which of the two locality transitions the caller wants.
func (c *VirtualCRB) LocalityControl() uint32 { return c.u32(offLocCtrl) }

// CommandBytes returns the data buffer truncated to the currently declared
// command size.
func (c *VirtualCRB) CommandBytes() []byte {
	n := c.CmdSize()
	if int(n) > crbSize-offDataBuffer {
		n = crbSize - offDataBuffer
	}
	return c[offDataBuffer : offDataBuffer+n]
}

// SetResponse writes resp into the data buffer and sets the response size.
func (c *VirtualCRB) SetResponse(resp []byte) {
	n := copy(c[offDataBuffer:], resp)
	c.setU32(offRspSize, uint32(n))
}

// zeroDataBuffer wipes the command/response data buffer, as happens when
// COMMAND_READY moves a COMPLETE locality with idle-bypass support
// straight back to READY without an intervening GO_IDLE.
func (c *VirtualCRB) zeroDataBuffer() {
	for i := range c[offDataBuffer:] {
		c[offDataBuffer+i] = 0
	}
}

// clean rewrites the CRB to the canonical idle layout for locality, the
// same rewrite the original firmware performs unconditionally at the end
// of every START call: control/status registers reset, and LocState's
// TPM_ESTABLISHED / ACTIVE_LOCALITY / REG_VALID_STS / LOC_ASSIGNED bits
// brought back in line with whether this locality is still the active one.
func (c *VirtualCRB) clean(locality uint8, active int, granted bool) {
	c.setCtrlSts(ctrlStsTPMIdle)
	c.setCtrlStart(0)
	c.setU32(offCtrlReq, 0)
	c.setU32(offCmdSize, 0)
	c.setU32(offRspSize, 0)

	state := uint32(locStateTPMEstablished | locStateRegValidSts)
	if granted {
		state |= locStateLocAssigned
	}
	if active == int(locality) {
		state |= (uint32(locality) << locStateActiveLocShift) & locStateActiveLocMask
	}
	c.setLocState(state)

	sts := uint32(0)
	if granted {
		sts |= locStsGranted
	}
	c.setU32(offLocSts, sts)
}
