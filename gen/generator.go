package gen

import (
	"math/rand"
	"strconv"
	"strings"

	"github.com/cerberus-sim/cerberus/sim"
)

// profile captures the protocol/port shape of one built-in defense's benign
// and attack traffic, enough to drive the matching flowkey/defense condition
// disjuncts in sim.BuiltinDefense without reproducing full profile-specific
// packet shaping.
type profile struct {
	benignProtocol sim.Protocol
	benignDstPort  int // 0 = no port significance, dst port is random ephemeral
	attackProtocol sim.Protocol
	attackSrcPort  int // set for reflected-amplification profiles: attack packets carry this as SrcPort, not DstPort
	attackDstPort  int
	reflected      bool // true for amplification-style profiles: attack traffic is the *reply*, flowing from a rotating reflector to the fixed victim
}

var profiles = map[int]profile{
	0:  {benignProtocol: sim.ProtoTCP, attackProtocol: sim.ProtoTCP},
	1:  {benignProtocol: sim.ProtoICMPRequest, attackProtocol: sim.ProtoICMPRequest},
	2:  {benignProtocol: sim.ProtoICMPRequest, attackProtocol: sim.ProtoICMPReply, reflected: true},
	3:  {benignProtocol: sim.ProtoTCP, attackProtocol: sim.ProtoTCP},
	4:  {benignProtocol: sim.ProtoUDP, benignDstPort: 53, attackProtocol: sim.ProtoUDP, attackSrcPort: 53, reflected: true},
	5:  {benignProtocol: sim.ProtoUDP, attackProtocol: sim.ProtoUDP},
	6:  {benignProtocol: sim.ProtoUDP, benignDstPort: 53, attackProtocol: sim.ProtoUDP, attackDstPort: 53},
	7:  {benignProtocol: sim.ProtoUDP, benignDstPort: 123, attackProtocol: sim.ProtoUDP, attackSrcPort: 123, reflected: true},
	8:  {benignProtocol: sim.ProtoUDP, benignDstPort: 1900, attackProtocol: sim.ProtoUDP, attackSrcPort: 1900, reflected: true},
	9:  {benignProtocol: sim.ProtoUDP, benignDstPort: 11211, attackProtocol: sim.ProtoUDP, attackSrcPort: 11211, reflected: true},
	10: {benignProtocol: sim.ProtoUDP, benignDstPort: 443, attackProtocol: sim.ProtoUDP, attackSrcPort: 443, reflected: true},
	11: {benignProtocol: sim.ProtoTCP, benignDstPort: 80, attackProtocol: sim.ProtoTCP, attackDstPort: 80},
	12: {benignProtocol: sim.ProtoTCPSyn, benignDstPort: 80, attackProtocol: sim.ProtoTCPSyn, attackDstPort: 80},
	13: {benignProtocol: sim.ProtoTCPSyn, attackProtocol: sim.ProtoTCPSyn},
	14: {benignProtocol: sim.ProtoTCPSyn, attackProtocol: sim.ProtoTCPAck},
	15: {benignProtocol: sim.ProtoTCPSyn, attackProtocol: sim.ProtoTCPRst},
}

// clientState is one client's generation cursor: its rng, its rate
// accumulator (fractional packets carried over between subticks), and the
// rotating address pool used to source spoofed/reflector addresses.
type clientState struct {
	spec     ClientSpec
	rng      *rand.Rand
	acc      float64
	victim   []byte
	srcIndex int
}

// Generator yields one subtick's worth of packets for every configured
// client, switching each client from its benign to its attack rate at
// AttackStartSubtick (§4.I's step-function arrival shape).
type Generator struct {
	spec    *ScenarioSpec
	clients []*clientState
}

// NewGenerator builds a Generator from an already-validated ScenarioSpec.
// Each client gets an independent rng seeded deterministically off the
// scenario seed and the client's index, so re-running with the same spec
// reproduces the same packet stream.
func NewGenerator(spec *ScenarioSpec) *Generator {
	g := &Generator{spec: spec}
	for i, c := range spec.Clients {
		g.clients = append(g.clients, &clientState{
			spec:   c,
			rng:    rand.New(rand.NewSource(spec.Seed + int64(i)*1_000_003)),
			victim: parseIPv4(c.DstAddr),
		})
	}
	return g
}

// NextSubtick returns every packet generated across all clients for the
// given subtick index.
func (g *Generator) NextSubtick(subtick int) []sim.Packet {
	var out []sim.Packet
	attackPhase := subtick >= g.spec.AttackStartSubtick
	for _, cs := range g.clients {
		rate := cs.spec.BenignRate
		if attackPhase {
			rate = cs.spec.AttackRate
		}
		cs.acc += rate
		n := int(cs.acc)
		cs.acc -= float64(n)
		for i := 0; i < n; i++ {
			out = append(out, cs.nextPacket(subtick, attackPhase))
		}
	}
	return out
}

func (cs *clientState) nextPacket(subtick int, attackPhase bool) sim.Packet {
	prof := profiles[cs.spec.DefenseNo]
	src := addrForIndex(cs.srcIndex % cs.spec.SrcCardinality)
	cs.srcIndex++

	p := sim.Packet{
		PacketSize: cs.spec.PacketSize,
		Subtick:    subtick,
		SrcPort:    randomEphemeralPort(cs.rng),
		DstPort:    randomEphemeralPort(cs.rng),
	}

	if !attackPhase || !prof.reflected {
		p.Protocol = benignOr(attackPhase, prof)
		p.SrcAddr = src
		p.DstAddr = cs.victim
		if port := dstPortFor(attackPhase, prof); port != 0 {
			p.DstPort = sim.IntToBytes(uint64(port), 2)
		}
	} else {
		// reflected amplification: the reply flows from a rotating reflector
		// address (standing in for many distinct open resolvers/servers) to
		// the fixed victim, with the service's well-known port as SrcPort.
		p.Protocol = prof.attackProtocol
		p.SrcAddr = src
		p.DstAddr = cs.victim
		p.SrcPort = sim.IntToBytes(uint64(prof.attackSrcPort), 2)
	}

	if attackPhase {
		p.AttackLabel = cs.spec.AttackLabel
	}
	return p
}

func benignOr(attackPhase bool, prof profile) sim.Protocol {
	if attackPhase {
		return prof.attackProtocol
	}
	return prof.benignProtocol
}

func dstPortFor(attackPhase bool, prof profile) int {
	if attackPhase {
		return prof.attackDstPort
	}
	return prof.benignDstPort
}

func randomEphemeralPort(rng *rand.Rand) []byte {
	port := 1024 + rng.Intn(64512)
	return sim.IntToBytes(uint64(port), 2)
}

// addrForIndex derives a distinct synthetic 10.0.0.0/8 address per index,
// giving src_cardinality up to 65536 distinct addresses per client.
func addrForIndex(i int) []byte {
	return []byte{10, 0, byte(i >> 8), byte(i & 0xff)}
}

func parseIPv4(s string) []byte {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return nil
	}
	out := make([]byte, 4)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 255 {
			return nil
		}
		out[i] = byte(n)
	}
	return out
}
