package sim

import "fmt"

// Protocol is the packet's protocol tag: TCP flag combinations, UDP,
// ICMP request/reply, etc. (§3 DATA MODEL). Modeled as a string-backed enum
// the way the teacher models PolicyConfig's string fields, since condition
// disjuncts match on it via exact-bytes-or-prefix semantics (packet.py's
// `protocol.startswith(...)`), not a closed switch.
type Protocol string

const (
	ProtoTCP         Protocol = "TCP"
	ProtoTCPSyn      Protocol = "TCP_SYN"
	ProtoTCPAck      Protocol = "TCP_ACK"
	ProtoTCPRst      Protocol = "TCP_RST"
	ProtoTCPFin      Protocol = "TCP_FIN"
	ProtoUDP         Protocol = "UDP"
	ProtoICMPRequest Protocol = "ICMP_request"
	ProtoICMPReply   Protocol = "ICMP_reply"
	ProtoQUIC        Protocol = "QUIC"
)

// ProtocolByte derives the 1-byte wire tag packet.py assigns by prefix:
// 1 = ICMP, 6 = TCP, 17 = UDP.
func (p Protocol) ProtocolByte() byte {
	switch {
	case hasPrefix(string(p), "ICMP"):
		return 1
	case hasPrefix(string(p), "TCP"):
		return 6
	case hasPrefix(string(p), "UDP"), hasPrefix(string(p), "QUIC"):
		return 17
	default:
		panic(fmt.Sprintf("Protocol.ProtocolByte: invalid protocol %q", p))
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// Packet is an immutable ground-truth-labeled record (§3 DATA MODEL). The
// core never mutates or retains a Packet beyond the call to Update.
type Packet struct {
	SrcAddr     []byte
	SrcPort     []byte
	DstAddr     []byte
	DstPort     []byte
	Protocol    Protocol
	PacketSize  int64
	Subtick     int
	AttackLabel int // ground truth, used only for evaluation
}

// Field identifies one of the five matchable packet fields, used by
// FlowKey/Defense descriptors' task-key field lists and condition disjuncts.
type Field int

const (
	FieldSrcAddr Field = iota
	FieldSrcPort
	FieldDstAddr
	FieldDstPort
	FieldProtocol
	// FieldProtocolByte is a derived sixth field: the protocol's 1-byte wire
	// tag, used only by a handful of built-in defenses' task-key lists
	// (ack/rst/fin flood). Not matchable by a ConditionDisjunct slot, which
	// only ever spans the five wire fields above.
	FieldProtocolByte
)

// Get returns the raw bytes for a field, matching packet.py's `Packet.get`.
// Protocol is returned as its string form's bytes so it composes with the
// same exact-bytes/prefix matcher machinery as the address/port fields.
func (p *Packet) Get(f Field) []byte {
	switch f {
	case FieldSrcAddr:
		return p.SrcAddr
	case FieldSrcPort:
		return p.SrcPort
	case FieldDstAddr:
		return p.DstAddr
	case FieldDstPort:
		return p.DstPort
	case FieldProtocol:
		return []byte(p.Protocol)
	case FieldProtocolByte:
		return []byte{p.Protocol.ProtocolByte()}
	default:
		panic(fmt.Sprintf("Packet.Get: unknown field %d", int(f)))
	}
}

// IntToBytes big-endian encodes n into byteLength bytes, matching
// packet.py's int_to_bytes (used to express well-known ports as match bytes
// in the built-in defense table).
func IntToBytes(n uint64, byteLength int) []byte {
	out := make([]byte, byteLength)
	for i := byteLength - 1; i >= 0; i-- {
		out[i] = byte(n & 0xff)
		n >>= 8
	}
	return out
}
