package sim

import "testing"

func TestBlocklistSetThenTest(t *testing.T) {
	h := newTestHasher(t, 4)
	bl, err := NewBlocklist(h, 10)
	if err != nil {
		t.Fatalf("NewBlocklist: %v", err)
	}
	key := []byte("10.0.0.1|10.0.0.2")
	if bl.Test(key, 0) {
		t.Fatal("key should not test positive before Set")
	}
	bl.Set(key, 0)
	if !bl.Test(key, 0) {
		t.Error("key should test positive after Set")
	}
	if bl.Test(key, 1) {
		t.Error("Set on window 0 must not affect window 1")
	}
}

func TestBlocklistClear(t *testing.T) {
	h := newTestHasher(t, 4)
	bl, err := NewBlocklist(h, 10)
	if err != nil {
		t.Fatalf("NewBlocklist: %v", err)
	}
	key := []byte("victim-pair")
	bl.Set(key, 0)
	bl.Clear(0)
	if bl.Test(key, 0) {
		t.Error("key should test negative after Clear")
	}
}

func TestNewBlocklistRejectsNegativeSize(t *testing.T) {
	h := newTestHasher(t, 1)
	if _, err := NewBlocklist(h, -1); err == nil {
		t.Error("negative blocklist_size should be rejected")
	}
}
