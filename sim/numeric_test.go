package sim

import "testing"

func TestIntlog2(t *testing.T) {
	cases := []struct {
		n    int64
		want int
	}{
		{1, 0}, {2, 1}, {3, 1}, {4, 2}, {7, 2}, {8, 3}, {1023, 9}, {1024, 10},
	}
	for _, c := range cases {
		if got := intlog2(c.n); got != c.want {
			t.Errorf("intlog2(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestIntlog2PanicsOnNonPositive(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for intlog2(0)")
		}
	}()
	intlog2(0)
}

func TestBitsUsed(t *testing.T) {
	if got := bitsUsed(0); got != 0 {
		t.Errorf("bitsUsed(0) = %f, want 0", got)
	}
	if got := bitsUsed(1); got != 1 {
		t.Errorf("bitsUsed(1) = %f, want 1", got)
	}
	if got := bitsUsed(8); got != 4 {
		t.Errorf("bitsUsed(8) = %f, want 4", got)
	}
}

func TestReluAndReluF(t *testing.T) {
	if relu(-3) != 0 || relu(3) != 3 {
		t.Error("relu failed to clamp correctly")
	}
	if reluF(-1.5) != 0 || reluF(1.5) != 1.5 {
		t.Error("reluF failed to clamp correctly")
	}
}

// floorDivMod must replicate Python's floor-division/non-negative-modulo
// semantics, not Go's truncating native operators, for negative raw values
// (see spec open question 1).
func TestFloorDivMod(t *testing.T) {
	cases := []struct {
		raw, mod int64
		wantQ    int64
		wantR    int64
	}{
		{7, 8, 0, 7},
		{8, 8, 1, 0},
		{-1, 8, -1, 7},
		{-8, 8, -1, 0},
		{-9, 8, -2, 7},
	}
	for _, c := range cases {
		q, r := floorDivMod(c.raw, c.mod)
		if q != c.wantQ || r != c.wantR {
			t.Errorf("floorDivMod(%d, %d) = (%d, %d), want (%d, %d)", c.raw, c.mod, q, r, c.wantQ, c.wantR)
		}
		if r < 0 || r >= c.mod {
			t.Errorf("floorDivMod(%d, %d): r=%d out of range [0, %d)", c.raw, c.mod, r, c.mod)
		}
	}
}
