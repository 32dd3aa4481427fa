package sim

import "fmt"

// Register bundles the CMS instances for every task sharing one memory
// register, plus an optional per-task elephant region (§4.C). Invariant for
// *adaptive* registers: every CMS in the register shares the same width;
// Cerberus enforces that at construction (see sim/config.go).
type Register struct {
	hasher          *Hasher
	cms             []*CountMinSketch
	elephant        []map[string]int64 // nil if elephant region disabled
	elephantMaxSize []int              // per-task capacity (k), mirrors elephant array size
	registerDefault int                // register_default_cs used for elephant counters
}

// NewRegister builds the n_task CMS set for a register. elephantSizes may be
// nil to disable the elephant region entirely; otherwise it must have one
// entry per task (0 disables it for that one task).
func NewRegister(hasher *Hasher, counterSizes, arraySizes, elephantSizes []int, registerDefaultCS int) (*Register, error) {
	if len(counterSizes) != len(arraySizes) {
		return nil, newConfigError("Register", "counter_sizes (%d) and array_sizes (%d) length mismatch", len(counterSizes), len(arraySizes))
	}
	if elephantSizes != nil && len(elephantSizes) != len(counterSizes) {
		return nil, newConfigError("Register", "elephant_sizes (%d) and counter_sizes (%d) length mismatch", len(elephantSizes), len(counterSizes))
	}
	r := &Register{hasher: hasher, registerDefault: registerDefaultCS}
	r.cms = make([]*CountMinSketch, len(counterSizes))
	for i := range counterSizes {
		c, err := NewCountMinSketch(hasher, counterSizes[i], arraySizes[i])
		if err != nil {
			return nil, err
		}
		r.cms[i] = c
	}
	if elephantSizes != nil {
		r.elephant = make([]map[string]int64, len(counterSizes))
		r.elephantMaxSize = make([]int, len(counterSizes))
		for i := range elephantSizes {
			r.elephant[i] = make(map[string]int64)
			r.elephantMaxSize[i] = elephantSizes[i]
		}
	}
	return r, nil
}

func (r *Register) NumTasks() int { return len(r.cms) }

func (r *Register) CMS(task int) *CountMinSketch { return r.cms[task] }

func (r *Register) isElephant(task int, key string) bool {
	return r.elephant != nil && r.elephant[task] != nil && func() bool {
		_, ok := r.elephant[task][key]
		return ok
	}()
}

// UpdateCMS routes to the task CMS unless key is currently held in the
// task's elephant map, in which case it updates the elephant counter with
// the same modulo/overflow semantics (counter_size = register default),
// scaling overflow up to the task CMS's magnitude so the control plane sees
// the contribution at the right bit position.
func (r *Register) UpdateCMS(task int, op Op, key []byte, value int64) (overflow, read []int64) {
	ks := string(key)
	if r.isElephant(task, ks) {
		return r.updateElephant(task, op, ks, value)
	}
	return r.cms[task].Apply(op, key, value)
}

func (r *Register) updateElephant(task int, op Op, ks string, value int64) (overflow, read []int64) {
	old := r.elephant[task][ks]
	var raw int64
	switch op {
	case OpPlus:
		raw = old + value
	case OpMinus:
		raw = old - value
	case OpSetBitTrue:
		raw = old | value
	case OpSetBitFalse:
		raw = value
	default:
		panic(fmt.Sprintf("Register.updateElephant: unknown operation %d", int(op)))
	}
	mod := int64(1) << (r.registerDefault - 1)
	q, rem := floorDivMod(raw, mod)
	r.elephant[task][ks] = rem
	taskCS := r.cms[task].CounterSize()
	scaled := q << (r.registerDefault - taskCS)
	n := r.hasher.Depth()
	overflow = make([]int64, n)
	for i := range overflow {
		overflow[i] = scaled
	}
	return overflow, r.Read(task, []byte(ks))
}

// Read returns the per-row read value, adding in the elephant counter (if
// the key lives there) to every row.
func (r *Register) Read(task int, key []byte) []int64 {
	read := r.cms[task].Read(key)
	ks := string(key)
	if r.isElephant(task, ks) {
		extra := r.elephant[task][ks]
		out := make([]int64, len(read))
		for i, v := range read {
			out[i] = v + extra
		}
		return out
	}
	return read
}

// ChangeTopK moves `inserted` keys into a zeroed elephant entry and
// `evicted` keys back out: each evicted counter is fed into the task CMS via
// a single Plus, and its overflow (if any) is returned so the caller can
// forward it to the control plane exactly like any other overflow.
func (r *Register) ChangeTopK(task int, inserted, evicted []string) map[string][]int64 {
	result := make(map[string][]int64, len(evicted))
	for _, key := range evicted {
		counter := r.elephant[task][key]
		delete(r.elephant[task], key)
		overflow, _ := r.cms[task].Plus([]byte(key), counter)
		result[key] = overflow
	}
	for _, key := range inserted {
		r.elephant[task][key] = 0
	}
	return result
}

// HasElephant reports whether this register carries an elephant region at
// all (used by the orchestrator to gate elephant-rotation ticks).
func (r *Register) HasElephant() bool { return r.elephant != nil }

// ElephantCapacity returns the configured top-k capacity for a task.
func (r *Register) ElephantCapacity(task int) int {
	if r.elephantMaxSize == nil {
		return 0
	}
	return r.elephantMaxSize[task]
}

// ClearElephant re-creates every task's elephant map empty, used on window
// refresh.
func (r *Register) ClearElephant() {
	if r.elephant == nil {
		return
	}
	for i := range r.elephant {
		r.elephant[i] = make(map[string]int64)
	}
}

// Clear zeroes every task CMS in this register (window refresh).
func (r *Register) Clear() {
	for _, c := range r.cms {
		c.Clear()
	}
}

// ResizeCMS resizes a single task's CMS, forwarding to CountMinSketch.ResizeBucket.
func (r *Register) ResizeCMS(task int, deltaCounterSize, newWidth int, upperBits [][]int64) [][]int64 {
	return r.cms[task].ResizeBucket(deltaCounterSize, newWidth, upperBits)
}
