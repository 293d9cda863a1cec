package tpm

import "sync"

// responseBufferSize is the largest response a backend can hand back: the
// CRB data buffer window, minus its register header.
const responseBufferSize = crbSize - offDataBuffer

// responsePool recycles the byte slice runCommand hands the
// backend for CopyResponseData, avoiding a fresh allocation on every
// READY -> COMPLETE transition. Uses the *[]byte pattern to avoid the
// sync.Pool interface-boxing allocation a bare []byte would incur.
var responsePool = sync.Pool{
	New: func() any {
		b := make([]byte, responseBufferSize)
		return &b
	},
}

func getResponseBuffer() []byte {
	return (*responsePool.Get().(*[]byte))[:responseBufferSize]
}

func putResponseBuffer(buf []byte) {
	if cap(buf) != responseBufferSize {
		return
	}
	buf = buf[:responseBufferSize]
	responsePool.Put(&buf)
}
