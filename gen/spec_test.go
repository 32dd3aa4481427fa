package gen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenarioFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing scenario file: %v", err)
	}
	return path
}

const validScenarioYAML = `
seed: 7
duration_subticks: 1000
attack_start_subtick: 500
clients:
  - name: icmp-flood
    defense_no: 1
    dst_addr: "10.1.0.1"
    src_cardinality: 4
    packet_size: 64
    benign_rate: 0.5
    attack_rate: 50
    attack_label: 1
`

func TestLoadScenarioParsesValidYAML(t *testing.T) {
	path := writeScenarioFile(t, validScenarioYAML)
	spec, err := LoadScenario(path)
	require.NoError(t, err)
	assert.EqualValues(t, 7, spec.Seed)
	assert.Equal(t, 1000, spec.DurationSubticks)
	assert.Equal(t, 500, spec.AttackStartSubtick)
	require.Len(t, spec.Clients, 1)
	assert.Equal(t, "icmp-flood", spec.Clients[0].Name)
}

func TestLoadScenarioRejectsUnknownField(t *testing.T) {
	badYAML := validScenarioYAML + "unknown_field: true\n"
	path := writeScenarioFile(t, badYAML)
	if _, err := LoadScenario(path); err == nil {
		t.Error("unknown top-level field should be rejected under strict decoding")
	}
}

func TestValidateRejectsNonPositiveDuration(t *testing.T) {
	spec := &ScenarioSpec{
		DurationSubticks: 0,
		Clients:          []ClientSpec{{DefenseNo: 1, DstAddr: "10.0.0.1", SrcCardinality: 1, PacketSize: 64}},
	}
	if err := spec.Validate(); err == nil {
		t.Error("duration_subticks=0 should be rejected")
	}
}

func TestValidateRejectsNoClients(t *testing.T) {
	spec := &ScenarioSpec{DurationSubticks: 10}
	if err := spec.Validate(); err == nil {
		t.Error("empty clients list should be rejected")
	}
}

func TestValidateRejectsOutOfRangeDefenseNo(t *testing.T) {
	spec := &ScenarioSpec{
		DurationSubticks: 10,
		Clients:          []ClientSpec{{DefenseNo: 16, DstAddr: "10.0.0.1", SrcCardinality: 1, PacketSize: 64}},
	}
	if err := spec.Validate(); err == nil {
		t.Error("defense_no=16 should be rejected")
	}
}

func TestValidateRejectsBadDstAddr(t *testing.T) {
	spec := &ScenarioSpec{
		DurationSubticks: 10,
		Clients:          []ClientSpec{{DefenseNo: 1, DstAddr: "not-an-ip", SrcCardinality: 1, PacketSize: 64}},
	}
	if err := spec.Validate(); err == nil {
		t.Error("non dotted-quad dst_addr should be rejected")
	}
}

func TestValidateRejectsNonPositivePacketSizeOrCardinality(t *testing.T) {
	base := ClientSpec{DefenseNo: 1, DstAddr: "10.0.0.1", SrcCardinality: 1, PacketSize: 1}
	zeroSize := base
	zeroSize.PacketSize = 0
	if err := (&ScenarioSpec{DurationSubticks: 1, Clients: []ClientSpec{zeroSize}}).Validate(); err == nil {
		t.Error("packet_size=0 should be rejected")
	}
	zeroCard := base
	zeroCard.SrcCardinality = 0
	if err := (&ScenarioSpec{DurationSubticks: 1, Clients: []ClientSpec{zeroCard}}).Validate(); err == nil {
		t.Error("src_cardinality=0 should be rejected")
	}
}
