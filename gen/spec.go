// Package gen is a deterministic synthetic packet source for cmd/run and
// integration tests (§4.I). It does not attempt to reproduce the full
// fidelity of a production traffic replay tool — it covers constant-rate and
// step-function (benign→attack) arrival shapes, enough to drive overflow,
// elephant promotion, blocklist set, and adaptive reallocation.
package gen

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ClientSpec describes one synthetic packet stream matching a single
// built-in defense profile (sim.BuiltinDefense's defense_no table). Before
// AttackStartSubtick it emits at BenignRate packets/subtick from
// SrcCardinality rotating source addresses; from AttackStartSubtick on it
// switches to AttackRate and stamps AttackLabel on every packet.
type ClientSpec struct {
	Name           string `yaml:"name"`
	DefenseNo      int    `yaml:"defense_no"`
	DstAddr        string `yaml:"dst_addr"` // dotted-quad victim address
	SrcCardinality int    `yaml:"src_cardinality"`
	PacketSize     int64  `yaml:"packet_size"`
	BenignRate     float64 `yaml:"benign_rate"` // packets/subtick
	AttackRate     float64 `yaml:"attack_rate"` // packets/subtick, from AttackStartSubtick on
	AttackLabel    int     `yaml:"attack_label"`
}

// ScenarioSpec is the top-level YAML generator configuration.
type ScenarioSpec struct {
	Seed               int64        `yaml:"seed"`
	DurationSubticks   int          `yaml:"duration_subticks"`
	AttackStartSubtick int          `yaml:"attack_start_subtick"`
	Clients            []ClientSpec `yaml:"clients"`
}

// LoadScenario reads and strictly parses a YAML scenario file, rejecting
// unknown keys the way sim.LoadConfig rejects unknown JSON keys.
func LoadScenario(path string) (*ScenarioSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario spec: %w", err)
	}
	var spec ScenarioSpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing scenario spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks every field is in range before a Generator is built from it.
func (s *ScenarioSpec) Validate() error {
	if s.DurationSubticks <= 0 {
		return fmt.Errorf("duration_subticks must be positive, got %d", s.DurationSubticks)
	}
	if len(s.Clients) == 0 {
		return fmt.Errorf("at least one client required")
	}
	for i, c := range s.Clients {
		prefix := fmt.Sprintf("client[%d]", i)
		if c.DefenseNo < 0 || c.DefenseNo > 15 {
			return fmt.Errorf("%s: defense_no out of range [0, 15]: %d", prefix, c.DefenseNo)
		}
		if c.BenignRate < 0 || c.AttackRate < 0 {
			return fmt.Errorf("%s: benign_rate and attack_rate must be non-negative", prefix)
		}
		if c.PacketSize <= 0 {
			return fmt.Errorf("%s: packet_size must be positive, got %d", prefix, c.PacketSize)
		}
		if c.SrcCardinality <= 0 {
			return fmt.Errorf("%s: src_cardinality must be positive, got %d", prefix, c.SrcCardinality)
		}
		if net := parseIPv4(c.DstAddr); net == nil {
			return fmt.Errorf("%s: dst_addr %q is not a dotted-quad IPv4 address", prefix, c.DstAddr)
		}
	}
	return nil
}
