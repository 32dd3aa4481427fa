package sim

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// MatchSpec is the JSON-shaped form of a single condition-disjunct slot:
// omitted (nil) matches anything, "exact" matches raw bytes, "prefix"
// matches a string prefix (used for Protocol).
type MatchSpec struct {
	Exact  []byte `json:"exact,omitempty"`
	Prefix string `json:"prefix,omitempty"`
}

func (m *MatchSpec) toMatcher() Matcher {
	if m == nil {
		return NoMatcher()
	}
	if m.Prefix != "" {
		return StringPrefix(m.Prefix)
	}
	return ExactBytes(m.Exact)
}

// ConditionSpec is the JSON-shaped form of a ConditionDisjunct: named fields
// rather than the reference's positional 5-tuple, since this is config read
// by a Go program rather than a literal port of the Python layout.
type ConditionSpec struct {
	SrcAddr  *MatchSpec `json:"src_addr,omitempty"`
	SrcPort  *MatchSpec `json:"src_port,omitempty"`
	DstAddr  *MatchSpec `json:"dst_addr,omitempty"`
	DstPort  *MatchSpec `json:"dst_port,omitempty"`
	Protocol *MatchSpec `json:"protocol,omitempty"`
}

func (c ConditionSpec) toDisjunct() ConditionDisjunct {
	return ConditionDisjunct{
		c.SrcAddr.toMatcher(), c.SrcPort.toMatcher(), c.DstAddr.toMatcher(),
		c.DstPort.toMatcher(), c.Protocol.toMatcher(),
	}
}

// TaskConfig is one entry of task_match_action_table: either a reference to
// a built-in defense (DefenseNo) or a fully explicit flow-key/defense pair.
type TaskConfig struct {
	DefenseNo *int `json:"defense_no,omitempty"`

	Conditions []ConditionSpec `json:"condition_key,omitempty"`
	TaskKey    []string        `json:"task_key,omitempty"`
	Operations []string        `json:"action,omitempty"`
	Value      int64           `json:"value,omitempty"`
	IsBloom    bool            `json:"is_bf,omitempty"`

	DefenseConditions []ConditionSpec `json:"defense_condition_key,omitempty"`
	DefenseTaskKey    []string        `json:"defense_task_key,omitempty"`
	DefenseThreshold  int64           `json:"defense_threshold,omitempty"`
}

// RegAllocEntry is one entry of reg_alloc_table: [reg_id, dp_counter_size,
// cp_counter_size, array_size, elephant_array_size], the last two expressed
// as log2 sizes, kept positional since this one shape is the external
// interface's own wire format (§6).
type RegAllocEntry struct {
	RegID                 int
	DPCounterSize         int
	CPCounterSize         int
	ArraySizeLog2         int
	ElephantArraySizeLog2 int
}

func (r *RegAllocEntry) UnmarshalJSON(data []byte) error {
	var arr [5]int
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("reg_alloc_table entry must be a 5-element array: %w", err)
	}
	r.RegID, r.DPCounterSize, r.CPCounterSize, r.ArraySizeLog2, r.ElephantArraySizeLog2 =
		arr[0], arr[1], arr[2], arr[3], arr[4]
	return nil
}

func (r RegAllocEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([5]int{r.RegID, r.DPCounterSize, r.CPCounterSize, r.ArraySizeLog2, r.ElephantArraySizeLog2})
}

// Config is the JSON-shaped configuration read at startup (§6 External
// Interfaces). Gbps-denominated fields are converted to Bps, and
// shrink-ratio-scaled fields are divided down, by LoadConfig before
// Validate runs.
type Config struct {
	TaskMatchActionTable map[int]TaskConfig   `json:"task_match_action_table"`
	RegAllocTable        map[int]RegAllocEntry `json:"reg_alloc_table"`
	TaskPerReg           [][]int               `json:"-"` // derived from RegAllocTable by Validate

	BlocklistSize       int     `json:"blocklist_size"`
	ShrinkRatioExp      int     `json:"shrink_ratio_exp"`
	BenignVolume        float64 `json:"benign_volume"`
	AttackVolume        float64 `json:"attack_volume"`
	NHash               int     `json:"n_hash"`
	CRCPolynomialDegree int     `json:"crc_polynomial_degree"`
	Seed                int64   `json:"seed"`

	RefreshCycle           map[int]int `json:"refresh_cycle"`
	ElephantCycle           int         `json:"elephant_cycle"`
	AdaptiveMemoryCycle     int         `json:"adaptive_memory_cycle"`
	StatisticsCycleTick     int         `json:"statistics_cycle_tick"`
	StatisticsCycleSubtick  int         `json:"statistics_cycle_subtick"`
	AttackStartSubtick      int         `json:"attack_start_subtick"`
	AttackTickToSubtick     int         `json:"attack_tick_to_subtick"`
	TickDivisor             int         `json:"tick_divisor"`

	ElephantRegion bool `json:"elephant_region"`
	AdaptiveMemory bool `json:"adaptive_memory"`
	MemUsage       bool `json:"mem_usage"`

	CPProcessingThreshold         float64 `json:"cp_processing_threshold"`
	DataToControlChannelBandwidth float64 `json:"data_to_control_channel_bandwidth"`

	Cycles int `json:"cycles"` // total ticks the CLI driver runs, new in this port
}

// LoadConfig reads and validates a JSON configuration file, applying the
// same Gbps->Bps and shrink-ratio conversions params.py applies in place.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newConfigError("LoadConfig", "reading %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, newConfigError("LoadConfig", "parsing %s: %w", path, err)
	}
	if cfg.ShrinkRatioExp < 0 {
		return nil, newConfigError("LoadConfig", "shrink_ratio_exp must be >= 0, got %d", cfg.ShrinkRatioExp)
	}
	shrink := math.Pow(2, float64(cfg.ShrinkRatioExp))

	cfg.CPProcessingThreshold = cfg.CPProcessingThreshold * 1_000_000_000 / 8 / shrink
	cfg.DataToControlChannelBandwidth = cfg.DataToControlChannelBandwidth * 1_000_000_000 / 8 / shrink
	cfg.BenignVolume /= shrink
	cfg.AttackVolume /= shrink

	for taskID, entry := range cfg.RegAllocTable {
		entry.ArraySizeLog2 -= cfg.ShrinkRatioExp
		entry.ElephantArraySizeLog2 -= cfg.ShrinkRatioExp
		cfg.RegAllocTable[taskID] = entry
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural and range invariants and derives TaskPerReg
// from RegAllocTable. Matches §7's "fatal at construction" configuration
// error taxonomy: it never partially mutates a previously valid Config.
func (c *Config) Validate() error {
	if c.NHash < 1 || c.NHash > 4 {
		return newConfigError("Config", "n_hash must be in [1, 4], got %d", c.NHash)
	}
	if c.CRCPolynomialDegree != 32 {
		return newConfigError("Config", "crc_polynomial_degree: only the fixed 32-bit CRC family is implemented, got %d", c.CRCPolynomialDegree)
	}
	if c.TickDivisor < 1 {
		return newConfigError("Config", "tick_divisor must be >= 1, got %d", c.TickDivisor)
	}
	if c.BlocklistSize < 0 {
		return newConfigError("Config", "blocklist_size must be >= 0, got %d", c.BlocklistSize)
	}
	if c.AttackStartSubtick < 0 {
		return newConfigError("Config", "attack_start_subtick must be >= 0, got %d", c.AttackStartSubtick)
	}

	nTask := len(c.RegAllocTable)
	if nTask == 0 {
		return newConfigError("Config", "reg_alloc_table must not be empty")
	}
	maxReg := -1
	for taskID, entry := range c.RegAllocTable {
		if taskID < 0 || taskID >= nTask {
			return newConfigError("Config", "reg_alloc_table task ids must be a contiguous range [0, %d), found %d", nTask, taskID)
		}
		if entry.RegID > maxReg {
			maxReg = entry.RegID
		}
	}
	groups := make([][]int, maxReg+1)
	for taskID := 0; taskID < nTask; taskID++ {
		entry, ok := c.RegAllocTable[taskID]
		if !ok {
			return newConfigError("Config", "reg_alloc_table missing entry for task %d", taskID)
		}
		groups[entry.RegID] = append(groups[entry.RegID], taskID)
	}
	for r, tasks := range groups {
		if len(tasks) == 0 {
			return newConfigError("Config", "register %d has no tasks assigned", r)
		}
	}
	c.TaskPerReg = groups

	if c.AdaptiveMemory {
		for r, tasks := range groups {
			first := c.RegAllocTable[tasks[0]].ArraySizeLog2
			for _, taskID := range tasks {
				if c.RegAllocTable[taskID].ArraySizeLog2 != first {
					return newConfigError("Config", "adaptive_memory requires uniform array size within register %d", r)
				}
			}
		}
	}

	for taskID := 0; taskID < nTask; taskID++ {
		if _, ok := c.TaskMatchActionTable[taskID]; !ok {
			return newConfigError("Config", "task_match_action_table missing entry for task %d", taskID)
		}
		if _, ok := c.RefreshCycle[taskID]; !ok {
			return newConfigError("Config", "refresh_cycle missing entry for task %d", taskID)
		}
		if c.RefreshCycle[taskID] < 1 {
			return newConfigError("Config", "refresh_cycle[%d] must be >= 1, got %d", taskID, c.RefreshCycle[taskID])
		}
	}

	return nil
}

// resolveTask builds the FlowKeyEntry/DefenseEntry pair for one task id,
// either from a built-in defense_no or from an explicit descriptor.
func (c *Config) resolveTask(taskID int) (FlowKeyEntry, DefenseEntry, error) {
	tc, ok := c.TaskMatchActionTable[taskID]
	if !ok {
		return FlowKeyEntry{}, DefenseEntry{}, newConfigError("Config", "task_match_action_table missing entry for task %d", taskID)
	}
	if tc.DefenseNo != nil {
		fk, de, err := BuiltinDefense(*tc.DefenseNo)
		if err != nil {
			return FlowKeyEntry{}, DefenseEntry{}, newConfigError("Config", "task %d: %w", taskID, err)
		}
		return fk, de, nil
	}

	ops := make([]Op, len(tc.Operations))
	for i, label := range tc.Operations {
		op, err := ParseOp(label)
		if err != nil {
			return FlowKeyEntry{}, DefenseEntry{}, newConfigError("Config", "task %d action[%d]: %w", taskID, i, err)
		}
		ops[i] = op
	}
	taskKey, err := parseFieldNames(tc.TaskKey)
	if err != nil {
		return FlowKeyEntry{}, DefenseEntry{}, newConfigError("Config", "task %d task_key: %w", taskID, err)
	}
	conditions := make([]ConditionDisjunct, len(tc.Conditions))
	for i, cs := range tc.Conditions {
		conditions[i] = cs.toDisjunct()
	}
	fk := FlowKeyEntry{Conditions: conditions, TaskKey: taskKey, Operations: ops, Value: tc.Value, IsBloom: tc.IsBloom}

	defenseTaskKey, err := parseFieldNames(tc.DefenseTaskKey)
	if err != nil {
		return FlowKeyEntry{}, DefenseEntry{}, newConfigError("Config", "task %d defense_task_key: %w", taskID, err)
	}
	defenseConditions := make([]ConditionDisjunct, len(tc.DefenseConditions))
	for i, cs := range tc.DefenseConditions {
		defenseConditions[i] = cs.toDisjunct()
	}
	de := DefenseEntry{Conditions: defenseConditions, TaskKey: defenseTaskKey, Threshold: tc.DefenseThreshold}

	return fk, de, nil
}

func parseFieldNames(names []string) ([]Field, error) {
	fields := make([]Field, len(names))
	for i, name := range names {
		f, err := parseFieldName(name)
		if err != nil {
			return nil, err
		}
		fields[i] = f
	}
	return fields, nil
}

func parseFieldName(name string) (Field, error) {
	switch name {
	case "src_ip":
		return FieldSrcAddr, nil
	case "src_port":
		return FieldSrcPort, nil
	case "dst_ip":
		return FieldDstAddr, nil
	case "dst_port":
		return FieldDstPort, nil
	case "protocol":
		return FieldProtocol, nil
	case "protocol_byte":
		return FieldProtocolByte, nil
	default:
		return 0, fmt.Errorf("unknown field name %q", name)
	}
}
