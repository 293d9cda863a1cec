package backend

// Physical CRB register offsets, relative to a locality's base address.
const (
	crbRegLocCtrl    = 0x08
	crbRegLocSts     = 0x0C
	crbRegCtrlReq    = 0x40
	crbRegCtrlSts    = 0x44
	crbRegCtrlStart  = 0x4C
	crbRegCmdSize    = 0x58
	crbRegRspSize    = 0x64
	crbRegDataBuffer = 0x80

	crbLocCtrlRequestAccess = 1 << 0
	crbLocCtrlRelinquish    = 1 << 1
	crbLocStsGranted        = 1 << 0

	crbCtrlReqCmdReady = 1 << 0
	crbCtrlReqGoIdle    = 1 << 1
	crbCtrlStsTPMIdle   = 1 << 1

	crbCtrlStart = 1 << 0
)

// crbBackend drives a physical TPM that natively exposes a CRB interface:
// every primitive is a direct register write followed by a poll for the
// corresponding status bit.
type crbBackend struct {
	mmio       MMIO
	stride     uintptr
	timeouts   Timeouts
	idleBypass bool
}

func (b *crbBackend) base(locality uint8) uintptr { return localityOffset(locality, b.stride) }

func (b *crbBackend) GoIdle(locality uint8) error {
	off := b.base(locality)
	b.mmio.Write32(off+crbRegCtrlReq, crbCtrlReqGoIdle)
	return pollRegister(b.mmio, off+crbRegCtrlSts, Width32, crbCtrlStsTPMIdle, 0, b.timeouts.A, b.timeouts.PollInterval)
}

func (b *crbBackend) CmdReady(locality uint8) error {
	off := b.base(locality)
	b.mmio.Write32(off+crbRegCtrlReq, crbCtrlReqCmdReady)
	return pollRegister(b.mmio, off+crbRegCtrlSts, Width32, 0, crbCtrlStsTPMIdle, b.timeouts.A, b.timeouts.PollInterval)
}

func (b *crbBackend) LocalityRequest(locality uint8) error {
	off := b.base(locality)
	b.mmio.Write32(off+crbRegLocCtrl, crbLocCtrlRequestAccess)
	return pollRegister(b.mmio, off+crbRegLocSts, Width32, crbLocStsGranted, 0, b.timeouts.A, b.timeouts.PollInterval)
}

func (b *crbBackend) LocalityRelinquish(locality uint8) error {
	off := b.base(locality)
	b.mmio.Write32(off+crbRegLocCtrl, crbLocCtrlRelinquish)
	return pollRegister(b.mmio, off+crbRegLocSts, Width32, 0, crbLocStsGranted, b.timeouts.A, b.timeouts.PollInterval)
}

func (b *crbBackend) CopyCommandData(locality uint8, data []byte) error {
	off := b.base(locality)
	for i, by := range data {
		b.mmio.Write8(off+crbRegDataBuffer+uintptr(i), by)
	}
	b.mmio.Write32(off+crbRegCmdSize, uint32(len(data)))
	return nil
}

func (b *crbBackend) StartCommand(locality uint8) error {
	off := b.base(locality)
	b.mmio.Write32(off+crbRegCtrlStart, crbCtrlStart)
	return pollRegister(b.mmio, off+crbRegCtrlStart, Width32, 0, crbCtrlStart, b.timeouts.Max, b.timeouts.PollInterval)
}

func (b *crbBackend) CopyResponseData(locality uint8, buf []byte) (int, error) {
	off := b.base(locality)
	size := b.mmio.Read32(off + crbRegRspSize)
	if int(size) > len(buf) {
		return 0, ErrResponseTooLarge
	}
	if size >= 2 {
		tag := uint16(b.mmio.Read8(off+crbRegDataBuffer))<<8 | uint16(b.mmio.Read8(off+crbRegDataBuffer+1))
		if tag == legacyRspCommandTag {
			return 0, ErrUnsupportedResponseTag
		}
	}
	for i := uint32(0); i < size; i++ {
		buf[i] = b.mmio.Read8(off + crbRegDataBuffer + uintptr(i))
	}
	return int(size), nil
}

func (b *crbBackend) IsCRBInterface() bool        { return true }
func (b *crbBackend) IsIdleBypassSupported() bool { return b.idleBypass }
