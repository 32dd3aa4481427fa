package sim

import "testing"

func TestRegisterRoutesToCMSByDefault(t *testing.T) {
	h := newTestHasher(t, 4)
	r, err := NewRegister(h, []int{8}, []int{16}, nil, 32)
	if err != nil {
		t.Fatalf("NewRegister: %v", err)
	}
	overflow, read := r.UpdateCMS(0, OpPlus, []byte("k"), 5)
	if read[0] != 5 {
		t.Errorf("read = %d, want 5", read[0])
	}
	if anyNonZero(overflow) {
		t.Error("unexpected overflow for a small plus")
	}
}

func TestRegisterElephantRoutingAndOverflowScaling(t *testing.T) {
	h := newTestHasher(t, 2)
	// task CMS counter_size=8 (max 127); elephant region uses the fixed
	// register default counter_size=32. A promoted key's counter accumulates
	// against the wider elephant width, and overflow out of the elephant
	// region is scaled up to the task's own (narrower) bit position before
	// being handed back as CMS-row overflow.
	r, err := NewRegister(h, []int{8}, []int{16}, []int{4}, 32)
	if err != nil {
		t.Fatalf("NewRegister: %v", err)
	}
	key := "elephant-key"
	r.ChangeTopK(0, []string{key}, nil)

	mod := int64(1) << 31 // 2^(registerDefault-1)
	overflow, _ := r.UpdateCMS(0, OpPlus, []byte(key), mod)
	taskCS := r.CMS(0).CounterSize()
	wantScaled := int64(1) << (32 - taskCS)
	for _, o := range overflow {
		if o != wantScaled {
			t.Errorf("elephant overflow = %d, want %d (scaled to task counter size %d)", o, wantScaled, taskCS)
		}
	}
}

func TestRegisterChangeTopKEvictsIntoCMS(t *testing.T) {
	h := newTestHasher(t, 3)
	r, err := NewRegister(h, []int{8}, []int{16}, []int{4}, 32)
	if err != nil {
		t.Fatalf("NewRegister: %v", err)
	}
	key := "hot-key"
	r.ChangeTopK(0, []string{key}, nil)
	r.UpdateCMS(0, OpPlus, []byte(key), 42)

	received := r.ChangeTopK(0, nil, []string{key})
	if _, ok := received[key]; !ok {
		t.Error("ChangeTopK must return an overflow entry for every evicted key")
	}
	if r.isElephant(0, key) {
		t.Error("key should no longer live in the elephant region after eviction")
	}
	read := r.Read(0, []byte(key))
	if read[0] != 42 {
		t.Errorf("CMS read after eviction = %d, want 42 (the evicted counter folded in via Plus)", read[0])
	}
}

func TestRegisterClearAndClearElephant(t *testing.T) {
	h := newTestHasher(t, 2)
	r, err := NewRegister(h, []int{8, 8}, []int{4, 4}, []int{2, 2}, 32)
	if err != nil {
		t.Fatalf("NewRegister: %v", err)
	}
	r.UpdateCMS(0, OpPlus, []byte("a"), 10)
	r.ChangeTopK(1, []string{"b"}, nil)

	r.Clear()
	if read := r.Read(0, []byte("a")); anyNonZero(read) {
		t.Errorf("read after Clear = %v, want all zero", read)
	}

	r.ClearElephant()
	if r.isElephant(1, "b") {
		t.Error("elephant map should be empty after ClearElephant")
	}
}

func TestRegisterHasElephantAndCapacity(t *testing.T) {
	h := newTestHasher(t, 1)
	withElephant, _ := NewRegister(h, []int{8}, []int{4}, []int{7}, 32)
	if !withElephant.HasElephant() {
		t.Error("HasElephant should be true when elephantSizes is non-nil")
	}
	if withElephant.ElephantCapacity(0) != 7 {
		t.Errorf("ElephantCapacity = %d, want 7", withElephant.ElephantCapacity(0))
	}

	withoutElephant, _ := NewRegister(h, []int{8}, []int{4}, nil, 32)
	if withoutElephant.HasElephant() {
		t.Error("HasElephant should be false when elephantSizes is nil")
	}
	if withoutElephant.ElephantCapacity(0) != 0 {
		t.Errorf("ElephantCapacity without elephant region = %d, want 0", withoutElephant.ElephantCapacity(0))
	}
}

func TestNewRegisterRejectsMismatchedLengths(t *testing.T) {
	h := newTestHasher(t, 1)
	if _, err := NewRegister(h, []int{8, 8}, []int{4}, nil, 32); err == nil {
		t.Error("mismatched counter_sizes/array_sizes lengths should be rejected")
	}
	if _, err := NewRegister(h, []int{8}, []int{4}, []int{1, 2}, 32); err == nil {
		t.Error("mismatched elephant_sizes length should be rejected")
	}
}
