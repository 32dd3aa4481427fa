package sim

import "testing"

func TestControlPlaneReadsPreviousWindow(t *testing.T) {
	h := newTestHasher(t, 2)
	cp, err := NewControlPlane(h, []int{16}, []int{8})
	if err != nil {
		t.Fatalf("NewControlPlane: %v", err)
	}
	cp.CoMonitor(0, []byte("k"), []int64{5, 5}, OpPlus, 0)
	if read := cp.Read(0, []byte("k"), 0); anyNonZero(read) {
		t.Errorf("read of currentWindow=0 should consult untouched window 1, got %v", read)
	}
	if read := cp.Read(0, []byte("k"), 1); read[0] != 5 {
		t.Errorf("read of currentWindow=1 should consult window 0 (just written), got %v", read)
	}
}

func TestControlPlaneCoMonitorSaturatesAtMax(t *testing.T) {
	h := newTestHasher(t, 1)
	cp, err := NewControlPlane(h, []int{4}, []int{4}) // max = 2^3-1 = 7
	if err != nil {
		t.Fatalf("NewControlPlane: %v", err)
	}
	read := cp.CoMonitor(0, []byte("k"), []int64{100}, OpPlus, 0)
	if read[0] != 7 {
		t.Errorf("CoMonitor should saturate at max=7, got %d", read[0])
	}
}

func TestControlPlaneCoMonitorMinusCanGoNegative(t *testing.T) {
	h := newTestHasher(t, 1)
	cp, err := NewControlPlane(h, []int{4}, []int{4})
	if err != nil {
		t.Fatalf("NewControlPlane: %v", err)
	}
	read := cp.CoMonitor(0, []byte("k"), []int64{-1}, OpMinus, 0)
	if read[0] != -1 {
		t.Errorf("CoMonitor minus underflow = %d, want -1 (no lower clamp)", read[0])
	}
}

func TestControlPlaneSendAndReceiveRoundTrip(t *testing.T) {
	h := newTestHasher(t, 2)
	cp, err := NewControlPlane(h, []int{10}, []int{4})
	if err != nil {
		t.Fatalf("NewControlPlane: %v", err)
	}
	cp.CoMonitor(0, []byte("k"), []int64{200, 200}, OpPlus, 0)
	before := make([]int64, 2)
	copy(before, cp.CMS(0, 0).Read([]byte("k")))

	sent := cp.SendToDataplane(0, 0, 3)
	if sent == nil {
		t.Fatal("SendToDataplane must return the shed low bits")
	}
	cp.ReceiveFromDataplane(0, 0, -3, sent)

	after := cp.CMS(0, 0).Read([]byte("k"))
	for i := range before {
		if after[i] != before[i] {
			t.Errorf("round trip: row %d = %d, want %d (original)", i, after[i], before[i])
		}
	}
}

func TestControlPlaneReceiveFromDataplaneElephant(t *testing.T) {
	h := newTestHasher(t, 1)
	cp, err := NewControlPlane(h, []int{10}, []int{4})
	if err != nil {
		t.Fatalf("NewControlPlane: %v", err)
	}
	cp.ReceiveFromDataplaneElephant(0, map[string][]int64{"hot": {12}}, 0)
	if read := cp.Read(0, []byte("hot"), 1); read[0] != 12 {
		t.Errorf("read after elephant ingest = %d, want 12", read[0])
	}
}

func TestControlPlaneClear(t *testing.T) {
	h := newTestHasher(t, 1)
	cp, err := NewControlPlane(h, []int{10}, []int{4})
	if err != nil {
		t.Fatalf("NewControlPlane: %v", err)
	}
	cp.CoMonitor(0, []byte("k"), []int64{5}, OpPlus, 0)
	cp.Clear(0, 0)
	if read := cp.CMS(0, 0).Read([]byte("k")); anyNonZero(read) {
		t.Errorf("read after Clear = %v, want all zero", read)
	}
}

func TestNewControlPlaneRejectsMismatchedLengths(t *testing.T) {
	h := newTestHasher(t, 1)
	if _, err := NewControlPlane(h, []int{8, 8}, []int{4}); err == nil {
		t.Error("mismatched counter_sizes/array_sizes lengths should be rejected")
	}
}
