package tpmsp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ffa-sp/tpmsp/internal/dispatch"
)

func TestCreateAndServeWiresDispatcher(t *testing.T) {
	mmio := NewFakeMMIO(NumLocalities * 0x1000)
	// interface-id register at 0x30: leave at 0 -> detected as FIFO.
	setter := &MockNotificationSetter{}

	p, err := CreateAndServe(nil, setter, mmio, 0xF00D, nil)
	require.NoError(t, err)
	require.NotNil(t, p.Dispatcher)

	var req dispatch.Message
	req.Arg[0], req.Arg[1] = packTestUUID(TPMServiceUUID)
	resp := p.Dispatcher.Handle(req)
	require.Equal(t, uint64(2), resp.Arg[0]) // tpm.StatusSuccessResultsReturned
}

func packTestUUID(u [16]byte) (hi, lo uint64) {
	for i := 0; i < 8; i++ {
		hi |= uint64(u[i]) << (8 * (7 - i))
		lo |= uint64(u[8+i]) << (8 * (7 - i))
	}
	return
}
