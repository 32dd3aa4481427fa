package sim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// registerDefaultCounterSize is the fixed counter width the elephant region
// uses regardless of a task's own (possibly narrower) CMS counter size,
// matching register.py's Register constructor default.
const registerDefaultCounterSize = 32

// Cerberus is the per-packet/per-tick orchestrator (§4.G): it owns the data
// plane, control plane, blocklist, and the per-task flow-key/defense tables,
// and drives window rotation, elephant rotation, and adaptive memory
// reallocation off the tick counter.
type Cerberus struct {
	param *Config

	taskPerReg         [][]int // register index -> task ids it holds, in order
	adaptiveTaskPerReg [][]int // same, excluding bloom-filter tasks
	nTask              int

	dataPlane    *DataPlane
	controlPlane *ControlPlane
	blocklist    *Blocklist

	flowkeyTable  []FlowKeyEntry
	defenseTable  []DefenseEntry

	currentWindow []int
	hpsI          []map[string]float64
	rtps          []float64
	cb            []float64
	cpMax         []int64
	cpMaxBits     []int

	bandwidthUtilization float64
	overflowedPacket     []int64 // length nTask+1, last slot is the aggregate
	uploadedPacket       []int64
	numPacket            []int64
	cpNotProcessedPacket int64

	Stats *Statistics
}

// NewCerberus builds the whole orchestrator from cfg in one shot: no
// partially constructed Cerberus is ever returned on error.
func NewCerberus(cfg *Config) (*Cerberus, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hasher, err := NewHasher(cfg.NHash)
	if err != nil {
		return nil, err
	}

	nTask := 0
	for _, ids := range cfg.TaskPerReg {
		nTask += len(ids)
	}

	flowkeyTable := make([]FlowKeyEntry, nTask)
	defenseTable := make([]DefenseEntry, nTask)
	isBloom := make([]bool, nTask)
	for taskID := 0; taskID < nTask; taskID++ {
		fk, de, err := cfg.resolveTask(taskID)
		if err != nil {
			return nil, err
		}
		flowkeyTable[taskID] = fk
		defenseTable[taskID] = de
		isBloom[taskID] = fk.IsBloom
	}

	dataPlane, err := NewDataPlane(func() ([]*Register, error) {
		regs := make([]*Register, len(cfg.TaskPerReg))
		for r, taskIDs := range cfg.TaskPerReg {
			dpCS := make([]int, len(taskIDs))
			arr := make([]int, len(taskIDs))
			var elephant []int
			if cfg.ElephantRegion {
				elephant = make([]int, len(taskIDs))
			}
			for i, taskID := range taskIDs {
				alloc := cfg.RegAllocTable[taskID]
				dpCS[i] = alloc.DPCounterSize
				arr[i] = 1 << alloc.ArraySizeLog2
				if elephant != nil {
					elephant[i] = 1 << alloc.ElephantArraySizeLog2
				}
			}
			reg, err := NewRegister(hasher, dpCS, arr, elephant, registerDefaultCounterSize)
			if err != nil {
				return nil, err
			}
			regs[r] = reg
		}
		return regs, nil
	})
	if err != nil {
		return nil, err
	}

	cpCS := make([]int, nTask)
	cpArr := make([]int, nTask)
	for taskID := 0; taskID < nTask; taskID++ {
		alloc := cfg.RegAllocTable[taskID]
		cpCS[taskID] = alloc.CPCounterSize
		cpArr[taskID] = 1 << alloc.ArraySizeLog2
	}
	controlPlane, err := NewControlPlane(hasher, cpCS, cpArr)
	if err != nil {
		return nil, err
	}

	blocklist, err := NewBlocklist(hasher, cfg.BlocklistSize)
	if err != nil {
		return nil, err
	}

	c := &Cerberus{
		param:         cfg,
		taskPerReg:    cfg.TaskPerReg,
		nTask:         nTask,
		dataPlane:     dataPlane,
		controlPlane:  controlPlane,
		blocklist:     blocklist,
		flowkeyTable:  flowkeyTable,
		defenseTable:  defenseTable,
		currentWindow: make([]int, nTask),
		hpsI:          make([]map[string]float64, nTask),
		rtps:          make([]float64, nTask),
		cb:            make([]float64, nTask),
		cpMax:         make([]int64, nTask),
		cpMaxBits:     make([]int, nTask),

		overflowedPacket: make([]int64, nTask+1),
		uploadedPacket:   make([]int64, nTask+1),
		numPacket:        make([]int64, nTask+1),
		Stats:            NewStatistics(nTask),
	}
	for i := range c.hpsI {
		c.hpsI[i] = make(map[string]float64)
	}

	c.adaptiveTaskPerReg = make([][]int, len(cfg.TaskPerReg))
	for r, taskIDs := range cfg.TaskPerReg {
		var kept []int
		for _, taskID := range taskIDs {
			if !isBloom[taskID] {
				kept = append(kept, taskID)
			}
		}
		c.adaptiveTaskPerReg[r] = kept
	}

	return c, nil
}

// findTask maps a flat task id to (register index, index within register),
// matching the reference's find_task. Panics on out-of-range ids: a caller
// bug, never reachable from packet data.
func (c *Cerberus) findTask(taskID int) (regIndex, taskIndex int) {
	remaining := taskID
	for r, ids := range c.taskPerReg {
		if remaining < len(ids) {
			return r, remaining
		}
		remaining -= len(ids)
	}
	panic(fmt.Sprintf("Cerberus.findTask: task id %d exceeds number of tasks", taskID))
}

// Update classifies one packet against every task's flow-key/defense tables,
// in ascending task-id order, and returns the current per-window blocked
// status of the packet's (src, dst) pair (§4.G step 1-5).
func (c *Cerberus) Update(p *Packet) [2]bool {
	c2Key := concatFields([]Field{FieldSrcAddr, FieldDstAddr}, p)
	var blocked [2]bool
	for w := 0; w < 2; w++ {
		blocked[w] = c.blocklist.Test(c2Key, w)
	}

	overflow := make([]bool, c.nTask)
	blocklistRequest := make([]bool, c.nTask)
	cpActive := c.bandwidthUtilization <= float64(c.param.CPProcessingThreshold)/float64(c.param.TickDivisor)

	for taskID := 0; taskID < c.nTask; taskID++ {
		fk := c.flowkeyTable[taskID]
		de := c.defenseTable[taskID]

		matched, flowKey := FindFlowKey(fk.Conditions, fk.TaskKey, p)
		defenseMatched, defenseFlowKey := FindFlowKey(de.Conditions, de.TaskKey, p)

		if matched {
			amount := p.PacketSize
			if fk.Value != 0 {
				amount = fk.Value
			}
			sameKeyFields := fieldsEqual(fk.TaskKey, de.TaskKey)
			dfActive := defenseMatched && sameKeyFields && !blocked[c.currentWindow[0]]
			for _, op := range fk.Operations {
				overflow[taskID], blocklistRequest[taskID] = c.updateTask(taskID, op, flowKey, amount, p.PacketSize, cpActive, de.Threshold, dfActive)
			}
		} else if defenseMatched {
			regIndex, taskIndex := c.findTask(taskID)
			if c.dataPlane.ReadAll(regIndex, taskIndex, defenseFlowKey) < scaledThreshold(de.Threshold, c.param.ShrinkRatioExp) {
				blocklistRequest[taskID] = !blocked[c.currentWindow[0]]
			}
		}

		if overflow[taskID] {
			c.overflowedPacket[taskID]++
		}
		if overflow[taskID] || blocklistRequest[taskID] {
			c.uploadedPacket[taskID]++
		}
		if matched || defenseMatched {
			c.numPacket[taskID]++
		}
	}

	anyRequest := false
	for _, r := range blocklistRequest {
		if r {
			anyRequest = true
			break
		}
	}
	if cpActive && anyRequest {
		c.blocklist.Set(c2Key, c.currentWindow[0])
		blocked[c.currentWindow[0]] = true
	}

	anyOverflow := false
	for _, o := range overflow {
		if o {
			anyOverflow = true
			break
		}
	}
	if anyOverflow {
		c.overflowedPacket[c.nTask]++
	}
	if anyOverflow || anyRequest {
		c.bandwidthUtilization += float64(p.PacketSize)
		c.uploadedPacket[c.nTask]++
	}
	if !cpActive {
		c.cpNotProcessedPacket++
	}
	c.numPacket[c.nTask]++
	return blocked
}

func fieldsEqual(a, b []Field) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func scaledThreshold(threshold int64, shrinkRatioExp int) float64 {
	return float64(threshold) / math.Pow(2, float64(shrinkRatioExp))
}

// updateTask applies one flow-key operation to the data plane (and, on
// overflow while the control-plane budget is open, to the control plane too),
// folding in HPS accounting, and returns (overflowed, blocklistRequested).
func (c *Cerberus) updateTask(task int, op Op, key []byte, value int64, packetSize int64, cpActive bool, threshold int64, dfActive bool) (bool, bool) {
	blocklistRequest := false
	regIndex, taskIndex := c.findTask(task)
	window := c.currentWindow[task]

	overflowValue, dpRead := c.dataPlane.UpdateRegister(regIndex, taskIndex, op, key, value, window)
	dpPrevRead := c.dataPlane.Read(regIndex, taskIndex, key, window)

	scaled := scaledThreshold(threshold, c.param.ShrinkRatioExp)
	if dfActive && float64(minInt64(dpRead)+minInt64(dpPrevRead)) >= scaled {
		blocklistRequest = true
	}

	if cpActive && anyNonZero(overflowValue) {
		cpRead := c.controlPlane.CoMonitor(task, key, overflowValue, op, window)
		cpPrevRead := c.controlPlane.Read(task, key, window)

		diff := make([]int64, len(cpRead))
		for i := range diff {
			diff[i] = cpRead[i] - overflowValue[i]
		}
		cpData := minOverIndices(overflowValue, argminIndices(diff))

		hpsIJ := c.calcHPSij(task, cpData, packetSize)
		ks := string(key)
		c.hpsI[task][ks] += hpsIJ
		c.rtps[task] += hpsIJ
		c.cb[task] += hpsIJ * float64(packetSize)

		cpMaxVal := maxInt64(cpRead)
		maxBit := 0
		if cpMaxVal > 0 {
			maxBit = intlog2(cpMaxVal) + 1
		}
		if cpMaxVal > c.cpMax[task] {
			c.cpMax[task] = cpMaxVal
		}
		if maxBit > c.cpMaxBits[task] {
			c.cpMaxBits[task] = maxBit
		}

		dpCS := c.dataPlane.Register(window, regIndex).CMS(taskIndex).CounterSize()
		if dfActive && float64(minInt64(cpRead)+minInt64(cpPrevRead))*float64(int64(1)<<(dpCS-1)) >= scaled {
			blocklistRequest = true
		}
	}

	return anyNonZero(overflowValue), blocklistRequest
}

// argminIndices returns every index of xs attaining the minimum value.
func argminIndices(xs []int64) []int {
	m := minInt64(xs)
	var out []int
	for i, x := range xs {
		if x == m {
			out = append(out, i)
		}
	}
	return out
}

// minOverIndices returns the minimum of xs restricted to the given indices.
func minOverIndices(xs []int64, indices []int) int64 {
	m := xs[indices[0]]
	for _, i := range indices[1:] {
		if xs[i] < m {
			m = xs[i]
		}
	}
	return m
}

// calcHPSij derives the per-packet heavy-per-second contribution for a flow
// key: the control-plane overflow mass, divided by the task's refresh cycle
// (in ticks) times either the flow-key's fixed value or the packet size.
func (c *Cerberus) calcHPSij(taskID int, cpData int64, packetSize int64) float64 {
	controlPlaneData := reluF(math.Floor(float64(cpData)))
	fk := c.flowkeyTable[taskID]
	denom := packetSize
	if fk.Value != 0 {
		denom = fk.Value
	}
	return controlPlaneData / float64(int64(c.param.RefreshCycle[taskID])*denom)
}

// UpdateSubtick runs the per-subtick statistics boundary (§4.G tick events).
func (c *Cerberus) UpdateSubtick(subtick int) {
	if (subtick+1)%c.param.StatisticsCycleSubtick == 0 {
		c.collectStatisticsSubtick()
	}
}

// UpdateTick runs every per-tick boundary event in the reference's fixed
// order: elephant rotation, statistics, adaptive memory, then per-task
// window refresh.
func (c *Cerberus) UpdateTick(tick int) {
	if c.param.ElephantRegion && (tick+1)%c.param.ElephantCycle == 0 && c.dataPlane.Register(0, 0).HasElephant() {
		c.changeTopK()
	}
	if (tick+1)%c.param.StatisticsCycleTick == 0 {
		c.collectStatisticsTick()
	}
	if c.param.AdaptiveMemory && (tick+1)%c.param.AdaptiveMemoryCycle == 0 {
		c.changeAdaptiveMemory()
	}
	for taskID := 0; taskID < c.nTask; taskID++ {
		if (tick+1)%c.param.RefreshCycle[taskID] == 0 {
			c.changeCurrentWindow(taskID)
		}
	}
}

// Read returns the ground-truth estimate for a flow key's counter (data
// plane plus control plane scaled up to data-plane bit-magnitude, minimum
// across hash rows).
func (c *Cerberus) Read(task int, key []byte) int64 {
	regIndex, taskIndex := c.findTask(task)
	window := c.currentWindow[task]
	dpRead := c.dataPlane.Read(regIndex, taskIndex, key, window)
	cpRead := c.controlPlane.Read(task, key, window)

	prevWindow := (window + 1) % 2
	dpCS := c.dataPlane.Register(prevWindow, regIndex).CMS(taskIndex).CounterSize()
	scale := int64(1) << (dpCS - 1)

	combined := make([]int64, len(dpRead))
	for i := range combined {
		combined[i] = dpRead[i] + cpRead[i]*scale
	}
	return minInt64(combined)
}

// changeAdaptiveMemory recomputes ideal counter-size shares for every
// register holding >= 2 non-bloom tasks and reallocates bits between the
// data-plane and control-plane counters accordingly (§4.G adaptive memory).
func (c *Cerberus) changeAdaptiveMemory() {
	for regIndex, tasks := range c.adaptiveTaskPerReg {
		if len(tasks) <= 1 {
			continue
		}
		currentCS := make([]int, len(tasks))
		idealShares := make([]float64, len(tasks))
		newArraySizesLog2 := make([]int, len(tasks))
		for i, taskID := range tasks {
			_, taskIndex := c.findTask(taskID)
			window := c.currentWindow[taskID]
			cms := c.dataPlane.Register(window, regIndex).CMS(taskIndex)
			currentCS[i] = cms.CounterSize()
			idealShares[i] = float64(currentCS[i]-1) + bitsUsed(float64(c.cpMax[taskID]))
			newArraySizesLog2[i] = intlog2(int64(cms.Width()))
		}
		registerSize := 0
		for _, cs := range currentCS {
			registerSize += cs
		}
		baseShares := ShareAllocator{}.Allocate(registerSize, idealShares, true)

		slicings := make([]int, len(tasks))
		for i := range tasks {
			slicings[i] = baseShares[i] - currentCS[i]
		}
		c.resize(tasks, slicings, newArraySizesLog2)

		for i, taskID := range tasks {
			c.cpMax[taskID] = int64(float64(c.cpMax[taskID]) * math.Pow(2, float64(-slicings[i])))
			c.cpMaxBits[taskID] = relu(c.cpMaxBits[taskID] - slicings[i])
		}
	}
}

// resize performs the ship-then-receive bit transfer for every task in
// taskIDs, across both windows, so windows stay symmetric (§5: transactional
// at tick granularity).
func (c *Cerberus) resize(taskIDs []int, slicings []int, arraySizesLog2 []int) {
	for w := 0; w < 2; w++ {
		for i, taskID := range taskIDs {
			regIndex, taskIndex := c.findTask(taskID)
			newWidth := 1 << arraySizesLog2[i]

			c.controlPlane.ResizeCMS(w, taskID, newWidth)

			var sending [][]int64
			if slicings[i] > 0 {
				sending = c.controlPlane.SendToDataplane(w, taskID, slicings[i])
			}

			received := c.dataPlane.Register(w, regIndex).ResizeCMS(taskIndex, slicings[i], newWidth, sending)

			if slicings[i] < 0 {
				c.controlPlane.ReceiveFromDataplane(w, taskID, slicings[i], received)
			}
		}
	}
}

func (c *Cerberus) collectStatisticsSubtick() {
	statsDivisor := float64(c.param.StatisticsCycleSubtick) / float64(c.param.TickDivisor)
	bandwidthPct := c.bandwidthUtilization / statsDivisor / c.param.DataToControlChannelBandwidth * 100

	uploaded := make([]float64, c.nTask+1)
	overflowedRatio := make([]float64, c.nTask+1)
	uploadedRatio := make([]float64, c.nTask+1)
	for t := 0; t <= c.nTask; t++ {
		uploaded[t] = float64(c.uploadedPacket[t]) / 1_000_000 * 10 * math.Pow(2, float64(c.param.ShrinkRatioExp))
		if c.numPacket[t] != 0 {
			overflowedRatio[t] = float64(c.overflowedPacket[t]) / float64(c.numPacket[t]) * 100
			uploadedRatio[t] = float64(c.uploadedPacket[t]) / float64(c.numPacket[t]) * 100
		}
	}
	var cpNotProcessedPct float64
	if c.numPacket[c.nTask] != 0 {
		cpNotProcessedPct = float64(c.cpNotProcessedPacket) / float64(c.numPacket[c.nTask]) * 100
	}

	c.Stats.recordSubtick(bandwidthPct, uploaded, overflowedRatio, uploadedRatio, cpNotProcessedPct)

	c.cpNotProcessedPacket = 0
	c.bandwidthUtilization = 0
	for t := range c.overflowedPacket {
		c.overflowedPacket[t] = 0
		c.uploadedPacket[t] = 0
		c.numPacket[t] = 0
	}
}

func (c *Cerberus) collectStatisticsTick() {
	counterSizes := make([]int, c.nTask)
	for taskID := 0; taskID < c.nTask; taskID++ {
		regIndex, taskIndex := c.findTask(taskID)
		counterSizes[taskID] = c.dataPlane.Register(c.currentWindow[taskID], regIndex).CMS(taskIndex).CounterSize()
	}
	c.Stats.recordTick(counterSizes, c.cpMax, c.cpMaxBits)
}

// changeCurrentWindow advances a task's window cursor, zeroes the new
// current window's state for that task, and clears its HPS/RTPS/CB
// accumulators (shared across all tasks, matching the reference's
// unconditional reset of hps_i/rtps/cb on every window rotation).
func (c *Cerberus) changeCurrentWindow(taskID int) {
	c.currentWindow[taskID] = (c.currentWindow[taskID] + 1) % 2
	c.clearRegister(taskID)
	for i := range c.hpsI {
		c.hpsI[i] = make(map[string]float64)
	}
	for i := range c.rtps {
		c.rtps[i] = 0
		c.cb[i] = 0
	}
}

func (c *Cerberus) clearRegister(taskID int) {
	window := c.currentWindow[taskID]
	c.controlPlane.Clear(window, taskID)
	c.cpMax[taskID] = 0
	c.cpMaxBits[taskID] = 0

	regIndex, taskIndex := c.findTask(taskID)
	reg := c.dataPlane.Register(window, regIndex)
	reg.CMS(taskIndex).Clear()
	if reg.HasElephant() {
		reg.elephant[taskIndex] = make(map[string]int64)
	}

	if taskID == 0 {
		c.blocklist.Clear(window)
	}
}

// changeTopK runs elephant promotion/eviction for every task, by HPS rank.
func (c *Cerberus) changeTopK() {
	for taskID := 0; taskID < c.nTask; taskID++ {
		regIndex, taskIndex := c.findTask(taskID)
		window := c.currentWindow[taskID]
		topK := c.topKKeysWithLargestValues(taskID, regIndex, taskIndex)

		existing := make(map[string]bool)
		reg := c.dataPlane.Register(window, regIndex)
		for key := range reg.elephant[taskIndex] {
			existing[key] = true
		}
		wanted := make(map[string]bool, len(topK))
		var inserted, evicted []string
		for _, key := range topK {
			wanted[key] = true
			if !existing[key] {
				inserted = append(inserted, key)
			}
		}
		for key := range existing {
			if !wanted[key] {
				evicted = append(evicted, key)
			}
		}

		received := c.dataPlane.ChangeTopK(regIndex, taskIndex, inserted, evicted, window)
		c.controlPlane.ReceiveFromDataplaneElephant(taskID, received, window)
	}
}

// topKKeysWithLargestValues selects the k flow keys (k = the task's elephant
// array size) with the largest accumulated HPS estimate this refresh cycle.
// Sorts the negated values ascending with gonum's Argsort (descending HPS)
// and keeps the permutation's first k keys.
func (c *Cerberus) topKKeysWithLargestValues(task, regIndex, taskIndex int) []string {
	window := c.currentWindow[task]
	k := c.dataPlane.Register(window, regIndex).ElephantCapacity(taskIndex)
	if k == 0 {
		return nil
	}

	keys := make([]string, 0, len(c.hpsI[task]))
	values := make([]float64, 0, len(c.hpsI[task]))
	for key, v := range c.hpsI[task] {
		keys = append(keys, key)
		values = append(values, -v) // ascending sort on negated values = descending on values
	}
	if len(keys) == 0 {
		return nil
	}

	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	floats.Argsort(values, order)

	if k > len(keys) {
		k = len(keys)
	}
	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = keys[order[i]]
	}
	return out
}
