package gen

import (
	"testing"

	"github.com/cerberus-sim/cerberus/sim"
)

func simpleScenario(defenseNo int, benignRate, attackRate float64, attackStart int) *ScenarioSpec {
	return &ScenarioSpec{
		Seed:               1,
		DurationSubticks:   100,
		AttackStartSubtick: attackStart,
		Clients: []ClientSpec{{
			Name:           "c0",
			DefenseNo:      defenseNo,
			DstAddr:        "10.1.0.1",
			SrcCardinality: 4,
			PacketSize:     64,
			BenignRate:     benignRate,
			AttackRate:     attackRate,
			AttackLabel:    1,
		}},
	}
}

func TestNextSubtickAccumulatesFractionalRate(t *testing.T) {
	g := NewGenerator(simpleScenario(0, 0.5, 0.5, 1000))
	total := 0
	for subtick := 0; subtick < 10; subtick++ {
		total += len(g.NextSubtick(subtick))
	}
	// 0.5 packets/subtick over 10 subticks accumulates to exactly 5 packets.
	if total != 5 {
		t.Errorf("total packets over 10 subticks at rate 0.5 = %d, want 5", total)
	}
}

func TestNextSubtickSwitchesToAttackRateAtStart(t *testing.T) {
	g := NewGenerator(simpleScenario(1, 0, 10, 5))
	for subtick := 0; subtick < 5; subtick++ {
		if pkts := g.NextSubtick(subtick); len(pkts) != 0 {
			t.Fatalf("subtick %d: expected no packets before attack start, got %d", subtick, len(pkts))
		}
	}
	pkts := g.NextSubtick(5)
	if len(pkts) != 10 {
		t.Fatalf("subtick 5 (attack start): expected 10 packets, got %d", len(pkts))
	}
	for _, p := range pkts {
		if p.AttackLabel != 1 {
			t.Error("packets generated during the attack phase must carry the client's attack label")
		}
		if p.Protocol != sim.ProtoICMPRequest {
			t.Errorf("defense_no=1 attack packet protocol = %s, want ICMP_request", p.Protocol)
		}
	}
}

func TestNextSubtickDeterministicAcrossRuns(t *testing.T) {
	spec := simpleScenario(11, 2, 20, 3)
	g1 := NewGenerator(spec)
	g2 := NewGenerator(spec)
	for subtick := 0; subtick < 20; subtick++ {
		p1 := g1.NextSubtick(subtick)
		p2 := g2.NextSubtick(subtick)
		if len(p1) != len(p2) {
			t.Fatalf("subtick %d: packet counts differ: %d vs %d", subtick, len(p1), len(p2))
		}
		for i := range p1 {
			if string(p1[i].SrcPort) != string(p2[i].SrcPort) || string(p1[i].DstPort) != string(p2[i].DstPort) {
				t.Errorf("subtick %d packet %d: non-deterministic port selection", subtick, i)
			}
		}
	}
}

func TestNextPacketReflectedProfileUsesSrcPortNotDstPort(t *testing.T) {
	g := NewGenerator(simpleScenario(4, 0, 100, 0)) // DNS amplification, reflected
	pkts := g.NextSubtick(0)
	if len(pkts) == 0 {
		t.Fatal("expected attack packets at subtick 0")
	}
	p := pkts[0]
	if string(p.SrcPort) != string(sim.IntToBytes(53, 2)) {
		t.Errorf("reflected amplification packet SrcPort = %v, want port 53 (the reflector's reply)", p.SrcPort)
	}
	if string(p.DstAddr) != string([]byte{10, 1, 0, 1}) {
		t.Errorf("reflected amplification packet DstAddr should remain the fixed victim, got %v", p.DstAddr)
	}
}

func TestNextPacketNonReflectedProfileUsesDstPort(t *testing.T) {
	g := NewGenerator(simpleScenario(11, 0, 100, 0)) // HTTP flood, non-reflected
	pkts := g.NextSubtick(0)
	if len(pkts) == 0 {
		t.Fatal("expected attack packets at subtick 0")
	}
	p := pkts[0]
	if string(p.DstPort) != string(sim.IntToBytes(80, 2)) {
		t.Errorf("HTTP flood attack packet DstPort = %v, want port 80", p.DstPort)
	}
	if string(p.SrcAddr) == string([]byte{10, 1, 0, 1}) {
		t.Error("non-reflected attack packet's SrcAddr should be the rotating attacker, not the victim")
	}
}

func TestAddrForIndexProducesDistinctAddresses(t *testing.T) {
	a := addrForIndex(0)
	b := addrForIndex(1)
	if string(a) == string(b) {
		t.Error("addrForIndex should produce distinct addresses for distinct indices")
	}
	if a[0] != 10 || a[1] != 0 {
		t.Errorf("addrForIndex should use the 10.0.0.0/8 range, got %v", a)
	}
}

func TestParseIPv4(t *testing.T) {
	if got := parseIPv4("10.1.2.3"); string(got) != string([]byte{10, 1, 2, 3}) {
		t.Errorf("parseIPv4(10.1.2.3) = %v, want [10 1 2 3]", got)
	}
	if parseIPv4("not-an-ip") != nil {
		t.Error("parseIPv4 should return nil for a malformed address")
	}
	if parseIPv4("1.2.3.256") != nil {
		t.Error("parseIPv4 should reject out-of-range octets")
	}
}
