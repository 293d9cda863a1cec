package notif

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSetter struct {
	calls   int
	lastSrc uint16
	lastBM  uint64
	lastFl  uint32
	fail    bool
}

func (f *fakeSetter) NotificationSet(sourcePartitionID uint16, flags uint32, bitmask uint64) error {
	f.calls++
	f.lastSrc = sourcePartitionID
	f.lastBM = bitmask
	f.lastFl = flags
	if f.fail {
		return errors.New("injected failure")
	}
	return nil
}

var testUUID = [16]byte{0xbd, 0xcd, 0x76, 0xd7, 0x82, 0x5e, 0x47, 0x51, 0x95, 0x3b, 0xd4, 0x0a, 0x0e, 0x65, 0xb0, 0x6e}

func TestRegisterThenRaise(t *testing.T) {
	setter := &fakeSetter{}
	svc := NewService(setter, nil, nil)

	status := svc.Register(testUUID, 0xBEEF, []PackedMapping{Pack(true, 5, 0xCAFE)})
	require.Equal(t, StatusSuccess, status)

	status = svc.Raise(testUUID, 0xCAFE)
	require.Equal(t, StatusSuccess, status)
	require.Equal(t, 1, setter.calls)
	require.Equal(t, uint16(0xBEEF), setter.lastSrc)
	require.Equal(t, uint64(1)<<5, setter.lastBM)
	require.Equal(t, perVCPUFlag, setter.lastFl)
}

func TestRegisterRejectsDuplicateBit(t *testing.T) {
	svc := NewService(&fakeSetter{}, nil, nil)

	require.Equal(t, StatusSuccess, svc.Register(testUUID, 1, []PackedMapping{Pack(false, 2, 10)}))
	require.Equal(t, StatusInvalidParam, svc.Register(testUUID, 1, []PackedMapping{Pack(false, 2, 11)}))
}

func TestRegisterBatchIsAllOrNothing(t *testing.T) {
	svc := NewService(&fakeSetter{}, nil, nil)

	// second entry collides with the first within the same batch
	status := svc.Register(testUUID, 1, []PackedMapping{
		Pack(false, 3, 100),
		Pack(false, 3, 101),
	})
	require.Equal(t, StatusInvalidParam, status)

	// neither mapping should have been committed
	require.Equal(t, StatusNotFound, svc.Raise(testUUID, 100))
}

func TestUnregisterThenRaiseNotFound(t *testing.T) {
	svc := NewService(&fakeSetter{}, nil, nil)
	require.Equal(t, StatusSuccess, svc.Register(testUUID, 1, []PackedMapping{Pack(false, 4, 77)}))
	require.Equal(t, StatusSuccess, svc.Unregister(testUUID, 1, []PackedMapping{Pack(false, 4, 77)}))
	require.Equal(t, StatusNotFound, svc.Raise(testUUID, 77))
}

func TestUnregisterRejectsIDMismatch(t *testing.T) {
	svc := NewService(&fakeSetter{}, nil, nil)
	require.Equal(t, StatusSuccess, svc.Register(testUUID, 1, []PackedMapping{Pack(false, 4, 77)}))
	require.Equal(t, StatusInvalidParam, svc.Unregister(testUUID, 1, []PackedMapping{Pack(false, 5, 77)}))
	require.Equal(t, StatusSuccess, svc.Raise(testUUID, 77))
}

func TestUnregisterDeniesNonRegistrar(t *testing.T) {
	svc := NewService(&fakeSetter{}, nil, nil)
	require.Equal(t, StatusSuccess, svc.Register(testUUID, 1, []PackedMapping{Pack(false, 4, 77)}))
	require.Equal(t, StatusInvalidParam, svc.Unregister(testUUID, 2, []PackedMapping{Pack(false, 4, 77)}))
	require.Equal(t, StatusSuccess, svc.Raise(testUUID, 77))
}

func TestUnregisterRejectsOversizedBatch(t *testing.T) {
	svc := NewService(&fakeSetter{}, nil, nil)
	batch := make([]PackedMapping, MaxBatchSize+1)
	require.Equal(t, StatusInvalidParam, svc.Unregister(testUUID, 1, batch))
}

func TestRegisterRejectsOversizedBatch(t *testing.T) {
	svc := NewService(&fakeSetter{}, nil, nil)
	batch := make([]PackedMapping, MaxBatchSize+1)
	for i := range batch {
		batch[i] = Pack(false, uint16(i), uint32(i))
	}
	require.Equal(t, StatusInvalidParam, svc.Register(testUUID, 1, batch))
}

func TestRaiseUnknownServicePropagatesNotFound(t *testing.T) {
	svc := NewService(&fakeSetter{}, nil, nil)
	require.Equal(t, StatusNotFound, svc.Raise([16]byte{}, 1))
}

func TestRaisePropagatesSetterFailure(t *testing.T) {
	setter := &fakeSetter{fail: true}
	svc := NewService(setter, nil, nil)
	require.Equal(t, StatusSuccess, svc.Register(testUUID, 1, []PackedMapping{Pack(false, 1, 1)}))
	require.Equal(t, StatusInvalidParam, svc.Raise(testUUID, 1))
}
