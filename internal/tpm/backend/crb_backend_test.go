package backend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testTimeouts() Timeouts {
	return Timeouts{A: 50 * time.Millisecond, B: 50 * time.Millisecond, C: 50 * time.Millisecond, D: 50 * time.Millisecond, Max: time.Second, PollInterval: time.Millisecond}
}

func TestNewDetectsCRBInterface(t *testing.T) {
	mmio := NewFakeMMIO(NumLocalities * 0x1000)
	mmio.Write32(interfaceIDOffset, interfaceTypeCRB)

	be, err := New(mmio, 0x1000, testTimeouts())
	require.NoError(t, err)
	require.True(t, be.IsCRBInterface())
}

func TestNewDetectsFIFOInterface(t *testing.T) {
	mmio := NewFakeMMIO(NumLocalities * 0x1000)
	mmio.Write32(interfaceIDOffset, 0) // interface type 0 = FIFO

	be, err := New(mmio, 0x1000, testTimeouts())
	require.NoError(t, err)
	require.False(t, be.IsCRBInterface())
}

func TestCRBCmdReadyWritesRequestAndWaitsForClear(t *testing.T) {
	mmio := NewFakeMMIO(0x1000)
	be := &crbBackend{mmio: mmio, stride: 0x1000, timeouts: testTimeouts()}

	// Simulate the TPM firmware clearing TPM_IDLE once it sees the request.
	go func() {
		time.Sleep(2 * time.Millisecond)
		mmio.Write32(crbRegCtrlSts, 0)
	}()
	mmio.Write32(crbRegCtrlSts, crbCtrlStsTPMIdle)

	err := be.CmdReady(0)
	require.NoError(t, err)
	require.Equal(t, uint32(crbCtrlReqCmdReady), mmio.Read32(crbRegCtrlReq))
}

func TestCRBCopyCommandAndResponseRoundTrip(t *testing.T) {
	mmio := NewFakeMMIO(0x1000)
	be := &crbBackend{mmio: mmio, stride: 0x1000, timeouts: testTimeouts()}

	cmd := []byte{0x80, 0x01, 0, 0, 0, 10, 0, 0, 1, 2}
	require.NoError(t, be.CopyCommandData(0, cmd))
	require.Equal(t, uint32(len(cmd)), mmio.Read32(crbRegCmdSize))

	resp := []byte{0x80, 0x01, 0, 0, 0, 6, 0, 0, 0, 0}
	mmio.Write32(crbRegRspSize, uint32(len(resp)))
	for i, by := range resp {
		mmio.Write8(crbRegDataBuffer+uintptr(i), by)
	}

	buf := make([]byte, 64)
	n, err := be.CopyResponseData(0, buf)
	require.NoError(t, err)
	require.Equal(t, resp, buf[:n])
}
