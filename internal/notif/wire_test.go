package notif

import "testing"

func TestPackUnpackRoundTrip(t *testing.T) {
	cases := []struct {
		perVCPU bool
		id      uint16
		cookie  uint32
	}{
		{true, 0, 0},
		{false, 511, 0xFFFFFFFF},
		{true, 255, 0xDEADBEEF},
	}
	for _, c := range cases {
		p := Pack(c.perVCPU, c.id, c.cookie)
		gotVCPU, gotID, gotCookie := p.Unpack()
		if gotVCPU != c.perVCPU || gotID != c.id || gotCookie != c.cookie {
			t.Errorf("Pack/Unpack(%v,%d,%x) round-tripped to (%v,%d,%x)",
				c.perVCPU, c.id, c.cookie, gotVCPU, gotID, gotCookie)
		}
	}
}

func TestExtractUUID(t *testing.T) {
	hi := uint64(0x0102030405060708)
	lo := uint64(0x090a0b0c0d0e0f10)
	got := ExtractUUID(hi, lo)
	want := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	if got != want {
		t.Errorf("ExtractUUID() = %x, want %x", got, want)
	}
}
