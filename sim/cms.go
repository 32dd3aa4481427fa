package sim

import "fmt"

// Op is the sum type of per-cell update operations (§9 DESIGN NOTES: a
// four-variant sum type, exhaustively handled everywhere it's switched on).
type Op int

const (
	OpPlus Op = iota
	OpMinus
	OpSetBitTrue
	OpSetBitFalse
)

func (o Op) String() string {
	switch o {
	case OpPlus:
		return "plus"
	case OpMinus:
		return "minus"
	case OpSetBitTrue:
		return "setbitTrue"
	case OpSetBitFalse:
		return "setbitFalse"
	default:
		panic(fmt.Sprintf("Op.String: unknown operation %d", int(o)))
	}
}

// ParseOp maps the wire/config operation label to an Op. Returns an error
// (not a panic) because it's reached from config parsing, not a runtime
// CMS update.
func ParseOp(label string) (Op, error) {
	switch label {
	case "plus":
		return OpPlus, nil
	case "minus":
		return OpMinus, nil
	case "setbitTrue":
		return OpSetBitTrue, nil
	case "setbitFalse":
		return OpSetBitFalse, nil
	default:
		return 0, fmt.Errorf("unknown operation label %q", label)
	}
}

// CountMinSketch is a d x w grid of saturating counters (§4.B). Each cell
// holds a non-negative integer strictly less than 2^(counterSize-1); the
// effective max per cell is 2^(counterSize-1)-1. hasher and depth are shared
// references so every CMS in a simulation hashes identically.
type CountMinSketch struct {
	hasher      *Hasher
	depth       int
	width       int
	counterSize int
	max         int64
	cells       [][]int64
}

// NewCountMinSketch builds a d x w grid where d = hasher.Depth().
// counterSize must be >= 1 (cells hold values in [0, 2^(counterSize-1))).
func NewCountMinSketch(hasher *Hasher, counterSize, width int) (*CountMinSketch, error) {
	if counterSize < 1 {
		return nil, newConfigError("CountMinSketch", "counter_size must be >= 1, got %d", counterSize)
	}
	if width < 1 {
		return nil, newConfigError("CountMinSketch", "array_size must be >= 1, got %d", width)
	}
	c := &CountMinSketch{
		hasher:      hasher,
		depth:       hasher.Depth(),
		width:       width,
		counterSize: counterSize,
		max:         (1 << (counterSize - 1)) - 1,
	}
	c.cells = make([][]int64, c.depth)
	for i := range c.cells {
		c.cells[i] = make([]int64, width)
	}
	return c, nil
}

func (c *CountMinSketch) Depth() int        { return c.depth }
func (c *CountMinSketch) Width() int        { return c.width }
func (c *CountMinSketch) CounterSize() int  { return c.counterSize }
func (c *CountMinSketch) Max() int64        { return c.max }

func (c *CountMinSketch) index(key []byte, row int) int {
	return int(c.hasher.Hash(key, row)) % c.width
}

// operate applies action to the cell addressed by key in each of the d
// rows: raw = action(old); overflowRow = floor(raw / 2^(cs-1)); storedRow =
// raw mod 2^(cs-1) (non-negative modulo, per the §9 open question). Returns
// (overflow vector, stored/read-back vector), both length d.
func (c *CountMinSketch) operate(key []byte, action func(old int64) int64) (overflow []int64, read []int64) {
	mod := int64(1) << (c.counterSize - 1)
	overflow = make([]int64, c.depth)
	read = make([]int64, c.depth)
	for i := 0; i < c.depth; i++ {
		idx := c.index(key, i)
		raw := action(c.cells[i][idx])
		q, r := floorDivMod(raw, mod)
		c.cells[i][idx] = r
		overflow[i] = q
		read[i] = r
	}
	return overflow, read
}

// Plus applies `old + v` per row.
func (c *CountMinSketch) Plus(key []byte, v int64) (overflow, read []int64) {
	return c.operate(key, func(old int64) int64 { return old + v })
}

// Minus applies `old - v` per row; raw may go negative, in which case
// overflow is negative too (see DESIGN.md open-question 1).
func (c *CountMinSketch) Minus(key []byte, v int64) (overflow, read []int64) {
	return c.operate(key, func(old int64) int64 { return old - v })
}

// SetBitOr applies `old | v` per row.
func (c *CountMinSketch) SetBitOr(key []byte, v int64) (overflow, read []int64) {
	return c.operate(key, func(old int64) int64 { return old | v })
}

// SetBitAssign applies `v` per row, discarding old.
func (c *CountMinSketch) SetBitAssign(key []byte, v int64) (overflow, read []int64) {
	return c.operate(key, func(old int64) int64 { return v })
}

// Apply dispatches to the four operations by Op, the single choke point
// every caller (Register, ControlPlane) routes dynamic operation labels
// through. An unknown Op is a runtime invariant violation: panic.
func (c *CountMinSketch) Apply(op Op, key []byte, v int64) (overflow, read []int64) {
	switch op {
	case OpPlus:
		return c.Plus(key, v)
	case OpMinus:
		return c.Minus(key, v)
	case OpSetBitTrue:
		return c.SetBitOr(key, v)
	case OpSetBitFalse:
		return c.SetBitAssign(key, v)
	default:
		panic(fmt.Sprintf("CountMinSketch.Apply: unknown operation %d", int(op)))
	}
}

// Read returns the stored values per row with no overflow applied.
func (c *CountMinSketch) Read(key []byte) []int64 {
	read := make([]int64, c.depth)
	for i := 0; i < c.depth; i++ {
		read[i] = c.cells[i][c.index(key, i)]
	}
	return read
}

// Clear zeroes every cell, used on window-refresh boundaries.
func (c *CountMinSketch) Clear() {
	for i := range c.cells {
		for j := range c.cells[i] {
			c.cells[i][j] = 0
		}
	}
}

// ResizeBucket performs §4.B's two-stage resize: column resize first (by
// replication on enlargement, by max-collapse on compression), then
// counter-width resize (receiving upperBits on widen, emitting high bits on
// narrow). newWidth == width and deltaCounterSize == 0 is a valid no-op in
// either dimension. Returns the d x w matrix of bits the control plane must
// absorb on narrowing (nil otherwise).
func (c *CountMinSketch) ResizeBucket(deltaCounterSize int, newWidth int, upperBits [][]int64) [][]int64 {
	if newWidth < 0 {
		panic(fmt.Sprintf("ResizeBucket: new array size can't be negative: %d", newWidth))
	}

	switch {
	case newWidth > c.width:
		ratio := newWidth / c.width
		if ratio*c.width != newWidth {
			panic(fmt.Sprintf("ResizeBucket: new array size %d is not a multiple of current %d", newWidth, c.width))
		}
		enlarged := make([][]int64, c.depth)
		for i := 0; i < c.depth; i++ {
			enlarged[i] = make([]int64, newWidth)
			for j := 0; j < c.width; j++ {
				for k := 0; k < ratio; k++ {
					enlarged[i][j+c.width*k] = c.cells[i][j]
				}
			}
		}
		c.cells = enlarged
		c.width = newWidth
	case newWidth < c.width:
		if newWidth == 0 {
			panic("ResizeBucket: new array size can't be zero on compression")
		}
		ratio := c.width / newWidth
		if ratio*newWidth != c.width {
			panic(fmt.Sprintf("ResizeBucket: current array size %d is not a multiple of new %d", c.width, newWidth))
		}
		compressed := make([][]int64, c.depth)
		for i := 0; i < c.depth; i++ {
			compressed[i] = make([]int64, newWidth)
			for j := 0; j < newWidth; j++ {
				maxVal := c.cells[i][j]
				for row := j; row < c.width; row += newWidth {
					if c.cells[i][row] > maxVal {
						maxVal = c.cells[i][row]
					}
				}
				compressed[i][j] = maxVal
			}
		}
		c.cells = compressed
		c.width = newWidth
	}

	newCounterSize := c.counterSize + deltaCounterSize
	if newCounterSize < 1 {
		panic(fmt.Sprintf("ResizeBucket: new counter size must be >= 1, got %d", newCounterSize))
	}

	var result [][]int64
	switch {
	case newCounterSize > c.counterSize:
		if upperBits == nil {
			panic("ResizeBucket: widening counter size requires upperBits from the control plane")
		}
		shift := int64(1) << (c.counterSize - 1)
		for i := 0; i < c.depth; i++ {
			for j := 0; j < c.width; j++ {
				c.cells[i][j] = c.cells[i][j] + upperBits[i][j]*shift
			}
		}
		c.counterSize = newCounterSize
		c.max = (1 << (c.counterSize - 1)) - 1
	case newCounterSize < c.counterSize:
		result = make([][]int64, c.depth)
		mod := int64(1) << (newCounterSize - 1)
		for i := 0; i < c.depth; i++ {
			result[i] = make([]int64, c.width)
			for j := 0; j < c.width; j++ {
				result[i][j] = c.cells[i][j] / mod
				c.cells[i][j] = c.cells[i][j] % mod
			}
		}
		c.counterSize = newCounterSize
		c.max = (1 << (c.counterSize - 1)) - 1
	}
	return result
}
