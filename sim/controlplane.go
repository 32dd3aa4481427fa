package sim

import "fmt"

// ControlPlane holds a per-task pair of CMS (one per window), receiving
// overflow values from the data plane (§4.E).
type ControlPlane struct {
	cms [2][]*CountMinSketch // cms[window][task]
}

// NewControlPlane builds the per-task, per-window CMS set. counterSizes and
// arraySizes are indexed by task, same length as n_task.
func NewControlPlane(hasher *Hasher, counterSizes, arraySizes []int) (*ControlPlane, error) {
	if len(counterSizes) != len(arraySizes) {
		return nil, newConfigError("ControlPlane", "counter_sizes (%d) and array_sizes (%d) length mismatch", len(counterSizes), len(arraySizes))
	}
	cp := &ControlPlane{}
	for w := 0; w < 2; w++ {
		cp.cms[w] = make([]*CountMinSketch, len(counterSizes))
		for i := range counterSizes {
			c, err := NewCountMinSketch(hasher, counterSizes[i], arraySizes[i])
			if err != nil {
				return nil, err
			}
			cp.cms[w][i] = c
		}
	}
	return cp, nil
}

// Read reads the *previous* window's CMS for a task (currentWindow-1 mod 2).
func (cp *ControlPlane) Read(task int, key []byte, currentWindow int) []int64 {
	prev := (currentWindow + 1) % 2
	return cp.cms[prev][task].Read(key)
}

// CoMonitor writes the data-plane overflow into the task's current-window
// CMS: plus/minus add/subtract the overflow onto the existing cell, setbitTrue
// OR-combines, setbitFalse assigns outright. Only the upper bound (CMS max) is
// clamped; a minus whose overflow is negative can drive a cell negative, same
// as the reference. Returns the read-back values.
func (cp *ControlPlane) CoMonitor(task int, key []byte, overflow []int64, op Op, currentWindow int) []int64 {
	c := cp.cms[currentWindow][task]
	read := make([]int64, c.Depth())
	for i := 0; i < c.Depth(); i++ {
		idx := c.index(key, i)
		var result int64
		switch op {
		case OpPlus, OpMinus:
			result = c.cells[i][idx] + overflow[i]
		case OpSetBitTrue:
			result = c.cells[i][idx] | overflow[i]
		case OpSetBitFalse:
			result = overflow[i]
		default:
			panic(fmt.Sprintf("ControlPlane.CoMonitor: unknown operation %d", int(op)))
		}
		if result > c.max {
			result = c.max
		}
		c.cells[i][idx] = result
		read[i] = result
	}
	return read
}

// SendToDataplane splits out the low s bits of every cell to ship to the
// data plane, retaining the high bits. Returns the d x w matrix of low bits.
func (cp *ControlPlane) SendToDataplane(window, task, s int) [][]int64 {
	c := cp.cms[window][task]
	shift := int64(1) << s
	sending := make([][]int64, c.Depth())
	for i := 0; i < c.Depth(); i++ {
		sending[i] = make([]int64, c.Width())
		for j := 0; j < c.Width(); j++ {
			sending[i][j] = c.cells[i][j] % shift
			c.cells[i][j] = c.cells[i][j] / shift
		}
	}
	return sending
}

// ReceiveFromDataplane multiplies each cell by 2^|s| and adds the received
// low bits, saturating at the CMS max. s is negative in this direction
// (narrowing the data-plane counter sends |s| bits up to the control plane).
func (cp *ControlPlane) ReceiveFromDataplane(window, task, s int, received [][]int64) {
	c := cp.cms[window][task]
	shift := int64(1) << (-s)
	for i := 0; i < c.Depth(); i++ {
		for j := 0; j < c.Width(); j++ {
			v := c.cells[i][j]*shift + received[i][j]
			if v > c.max {
				v = c.max
			}
			c.cells[i][j] = v
		}
	}
}

// ReceiveFromDataplaneElephant ingests per-promoted-key overflow contributed
// by an elephant eviction, saturating at the CMS max.
func (cp *ControlPlane) ReceiveFromDataplaneElephant(task int, received map[string][]int64, currentWindow int) {
	c := cp.cms[currentWindow][task]
	for key, contribution := range received {
		for i := 0; i < c.Depth(); i++ {
			idx := c.index([]byte(key), i)
			v := c.cells[i][idx] + contribution[i]
			if v > c.max {
				v = c.max
			}
			c.cells[i][idx] = v
		}
	}
}

// ResizeCMS resizes the control-plane CMS array size for a task/window (used
// when the data-plane array size changes in lockstep; the control plane's
// counter size itself is changed only via SendToDataplane/ReceiveFromDataplane).
func (cp *ControlPlane) ResizeCMS(window, task, newWidth int) {
	cp.cms[window][task].ResizeBucket(0, newWidth, nil)
}

// CMS exposes the underlying sketch for a (window, task) pair, used by
// statistics collection and tests.
func (cp *ControlPlane) CMS(window, task int) *CountMinSketch { return cp.cms[window][task] }

// Clear zeroes a task's CMS in the given window (window refresh).
func (cp *ControlPlane) Clear(window, task int) { cp.cms[window][task].Clear() }
