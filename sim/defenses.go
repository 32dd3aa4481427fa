package sim

import "fmt"

// well-known ports, matching packet.py's int_to_bytes(port, 2) literals.
var (
	portDNS       = IntToBytes(53, 2)
	portNTP       = IntToBytes(123, 2)
	portSSDP      = IntToBytes(1900, 2)
	portMemcached = IntToBytes(11211, 2)
	portHTTP      = IntToBytes(80, 2)
	portHTTPS     = IntToBytes(443, 2)
)

func d(srcAddr, srcPort, dstAddr, dstPort Matcher, proto Matcher) ConditionDisjunct {
	return ConditionDisjunct{srcAddr, srcPort, dstAddr, dstPort, proto}
}

func any5() Matcher { return NoMatcher() }

// BuiltinDefense returns the bit-for-bit reproduction of the reference's 16
// defense_no table entries (flowkey.py + defense.py's defense_dict), covering
// ICMP flood, Smurf, Coremelt, DNS/NTP/SSDP/Memcached/QUIC amplification,
// UDP/DNS flood, HTTP flood, Slowloris, and SYN/ACK/RST-FIN flood.
func BuiltinDefense(defenseNo int) (FlowKeyEntry, DefenseEntry, error) {
	switch defenseNo {
	case 0: // no_defense: a plain rate counter, no real defense condition
		return FlowKeyEntry{
				Conditions: []ConditionDisjunct{d(any5(), any5(), any5(), any5(), any5())},
				TaskKey:    []Field{FieldSrcAddr, FieldDstAddr},
				Operations: []Op{OpPlus},
				Value:      1,
			}, DefenseEntry{
				Conditions: []ConditionDisjunct{d(any5(), any5(), any5(), any5(), StringPrefix("ASDF"))},
				TaskKey:    []Field{FieldSrcAddr, FieldDstAddr},
				Threshold:  0,
			}, nil
	case 1: // ICMP flood
		return FlowKeyEntry{
				Conditions: []ConditionDisjunct{d(any5(), any5(), any5(), any5(), StringPrefix("ICMP"))},
				TaskKey:    []Field{FieldSrcAddr, FieldDstAddr},
				Operations: []Op{OpPlus},
				Value:      1,
			}, DefenseEntry{
				Conditions: []ConditionDisjunct{d(any5(), any5(), any5(), any5(), StringPrefix("ICMP"))},
				TaskKey:    []Field{FieldSrcAddr, FieldDstAddr},
				Threshold:  400,
			}, nil
	case 2: // Smurf attack
		return FlowKeyEntry{
				Conditions: []ConditionDisjunct{d(any5(), any5(), any5(), any5(), StringPrefix("ICMP_request"))},
				TaskKey:    []Field{FieldSrcAddr, FieldDstAddr},
				Operations: []Op{OpSetBitFalse},
				Value:      1,
				IsBloom:    true,
			}, DefenseEntry{
				Conditions: []ConditionDisjunct{d(any5(), any5(), any5(), any5(), StringPrefix("ICMP_reply"))},
				TaskKey:    []Field{FieldDstAddr, FieldSrcAddr},
				Threshold:  1,
			}, nil
	case 3: // Coremelt
		return FlowKeyEntry{
				Conditions: []ConditionDisjunct{d(any5(), any5(), any5(), any5(), any5())},
				TaskKey:    []Field{FieldSrcAddr, FieldDstAddr},
				Operations: []Op{OpPlus},
				Value:      0,
			}, DefenseEntry{
				Conditions: []ConditionDisjunct{d(any5(), any5(), any5(), any5(), any5())},
				TaskKey:    []Field{FieldSrcAddr, FieldDstAddr},
				Threshold:  46080,
			}, nil
	case 4: // DNS amplification
		return FlowKeyEntry{
				Conditions: []ConditionDisjunct{d(any5(), any5(), any5(), ExactBytes(portDNS), any5())},
				TaskKey:    []Field{FieldSrcAddr, FieldSrcPort, FieldDstAddr, FieldDstPort},
				Operations: []Op{OpSetBitFalse},
				Value:      1,
				IsBloom:    true,
			}, DefenseEntry{
				Conditions: []ConditionDisjunct{d(any5(), ExactBytes(portDNS), any5(), any5(), any5())},
				TaskKey:    []Field{FieldDstAddr, FieldDstPort, FieldSrcAddr, FieldSrcPort},
				Threshold:  1,
			}, nil
	case 5: // UDP flood
		return FlowKeyEntry{
				Conditions: []ConditionDisjunct{d(any5(), any5(), any5(), any5(), StringPrefix("UDP"))},
				TaskKey:    []Field{FieldSrcAddr, FieldDstAddr},
				Operations: []Op{OpPlus},
				Value:      1,
			}, DefenseEntry{
				Conditions: []ConditionDisjunct{d(any5(), any5(), any5(), any5(), StringPrefix("UDP"))},
				TaskKey:    []Field{FieldSrcAddr, FieldDstAddr},
				Threshold:  400,
			}, nil
	case 6: // DNS flood
		return FlowKeyEntry{
				Conditions: []ConditionDisjunct{d(any5(), any5(), any5(), ExactBytes(portDNS), any5())},
				TaskKey:    []Field{FieldSrcAddr, FieldDstAddr},
				Operations: []Op{OpPlus},
				Value:      1,
			}, DefenseEntry{
				Conditions: []ConditionDisjunct{d(any5(), any5(), any5(), ExactBytes(portDNS), any5())},
				TaskKey:    []Field{FieldSrcAddr, FieldDstAddr},
				Threshold:  150,
			}, nil
	case 7: // NTP amplification
		return FlowKeyEntry{
				Conditions: []ConditionDisjunct{d(any5(), any5(), any5(), ExactBytes(portNTP), any5())},
				TaskKey:    []Field{FieldSrcAddr, FieldSrcPort, FieldDstAddr, FieldDstPort},
				Operations: []Op{OpSetBitFalse},
				Value:      1,
				IsBloom:    true,
			}, DefenseEntry{
				Conditions: []ConditionDisjunct{d(any5(), ExactBytes(portNTP), any5(), any5(), any5())},
				TaskKey:    []Field{FieldDstAddr, FieldDstPort, FieldSrcAddr, FieldSrcPort},
				Threshold:  1,
			}, nil
	case 8: // SSDP amplification
		return FlowKeyEntry{
				Conditions: []ConditionDisjunct{d(any5(), any5(), any5(), ExactBytes(portSSDP), any5())},
				TaskKey:    []Field{FieldSrcAddr, FieldSrcPort, FieldDstAddr, FieldDstPort},
				Operations: []Op{OpSetBitFalse},
				Value:      1,
				IsBloom:    true,
			}, DefenseEntry{
				Conditions: []ConditionDisjunct{d(any5(), ExactBytes(portSSDP), any5(), any5(), any5())},
				TaskKey:    []Field{FieldDstAddr, FieldDstPort, FieldSrcAddr, FieldSrcPort},
				Threshold:  1,
			}, nil
	case 9: // Memcached amplification
		return FlowKeyEntry{
				Conditions: []ConditionDisjunct{d(any5(), any5(), any5(), ExactBytes(portMemcached), any5())},
				TaskKey:    []Field{FieldSrcAddr, FieldSrcPort, FieldDstAddr, FieldDstPort},
				Operations: []Op{OpSetBitFalse},
				Value:      1,
				IsBloom:    true,
			}, DefenseEntry{
				Conditions: []ConditionDisjunct{d(any5(), ExactBytes(portMemcached), any5(), any5(), any5())},
				TaskKey:    []Field{FieldDstAddr, FieldDstPort, FieldSrcAddr, FieldSrcPort},
				Threshold:  1,
			}, nil
	case 10: // QUIC amplification
		return FlowKeyEntry{
				Conditions: []ConditionDisjunct{
					d(any5(), any5(), any5(), ExactBytes(portHTTP), StringPrefix("UDP")),
					d(any5(), any5(), any5(), ExactBytes(portHTTPS), StringPrefix("UDP")),
				},
				TaskKey:    []Field{FieldSrcAddr, FieldSrcPort, FieldDstAddr, FieldDstPort},
				Operations: []Op{OpSetBitFalse},
				Value:      1,
				IsBloom:    true,
			}, DefenseEntry{
				Conditions: []ConditionDisjunct{
					d(any5(), ExactBytes(portHTTP), any5(), any5(), StringPrefix("UDP")),
					d(any5(), ExactBytes(portHTTPS), any5(), any5(), StringPrefix("UDP")),
				},
				TaskKey:   []Field{FieldDstAddr, FieldDstPort, FieldSrcAddr, FieldSrcPort},
				Threshold: 1,
			}, nil
	case 11: // HTTP flood
		return FlowKeyEntry{
				Conditions: []ConditionDisjunct{
					d(any5(), any5(), any5(), ExactBytes(portHTTP), StringPrefix("TCP")),
					d(any5(), any5(), any5(), ExactBytes(portHTTPS), StringPrefix("TCP")),
				},
				TaskKey:    []Field{FieldSrcAddr, FieldDstAddr},
				Operations: []Op{OpPlus},
				Value:      1,
			}, DefenseEntry{
				Conditions: []ConditionDisjunct{
					d(any5(), any5(), any5(), ExactBytes(portHTTP), StringPrefix("TCP")),
					d(any5(), any5(), any5(), ExactBytes(portHTTPS), StringPrefix("TCP")),
				},
				TaskKey:   []Field{FieldSrcAddr, FieldDstAddr},
				Threshold: 150,
			}, nil
	case 12: // Slowloris
		return FlowKeyEntry{
				Conditions: []ConditionDisjunct{
					d(any5(), any5(), any5(), ExactBytes(portHTTP), StringPrefix("TCP_SYN")),
					d(any5(), any5(), any5(), ExactBytes(portHTTPS), StringPrefix("TCP_SYN")),
				},
				TaskKey:    []Field{FieldSrcAddr, FieldDstAddr},
				Operations: []Op{OpPlus},
				Value:      1,
			}, DefenseEntry{
				Conditions: []ConditionDisjunct{
					d(any5(), any5(), any5(), ExactBytes(portHTTP), StringPrefix("TCP_SYN")),
					d(any5(), any5(), any5(), ExactBytes(portHTTPS), StringPrefix("TCP_SYN")),
				},
				TaskKey:   []Field{FieldSrcAddr, FieldDstAddr},
				Threshold: 400,
			}, nil
	case 13: // SYN flood
		return FlowKeyEntry{
				Conditions: []ConditionDisjunct{d(any5(), any5(), any5(), any5(), StringPrefix("TCP_SYN"))},
				TaskKey:    []Field{FieldSrcAddr, FieldDstAddr},
				Operations: []Op{OpPlus},
				Value:      1,
			}, DefenseEntry{
				Conditions: []ConditionDisjunct{d(any5(), any5(), any5(), any5(), StringPrefix("TCP_SYN"))},
				TaskKey:    []Field{FieldSrcAddr, FieldDstAddr},
				Threshold:  400,
			}, nil
	case 14: // ACK flood
		return FlowKeyEntry{
				Conditions: []ConditionDisjunct{d(any5(), any5(), any5(), any5(), StringPrefix("TCP_SYN"))},
				TaskKey:    []Field{FieldSrcAddr, FieldSrcPort, FieldDstAddr, FieldDstPort, FieldProtocolByte},
				Operations: []Op{OpSetBitFalse},
				Value:      1,
				IsBloom:    true,
			}, DefenseEntry{
				Conditions: []ConditionDisjunct{d(any5(), any5(), any5(), any5(), StringPrefix("TCP_ACK"))},
				TaskKey:    []Field{FieldSrcAddr, FieldSrcPort, FieldDstAddr, FieldDstPort, FieldProtocolByte},
				Threshold:  1,
			}, nil
	case 15: // RST/FIN flood
		return FlowKeyEntry{
				Conditions: []ConditionDisjunct{d(any5(), any5(), any5(), any5(), StringPrefix("TCP_SYN"))},
				TaskKey:    []Field{FieldSrcAddr, FieldSrcPort, FieldDstAddr, FieldDstPort, FieldProtocolByte},
				Operations: []Op{OpSetBitFalse},
				Value:      1,
				IsBloom:    true,
			}, DefenseEntry{
				Conditions: []ConditionDisjunct{
					d(any5(), any5(), any5(), any5(), StringPrefix("TCP_RST")),
					d(any5(), any5(), any5(), any5(), StringPrefix("TCP_FIN")),
				},
				TaskKey:   []Field{FieldSrcAddr, FieldSrcPort, FieldDstAddr, FieldDstPort, FieldProtocolByte},
				Threshold: 1,
			}, nil
	default:
		return FlowKeyEntry{}, DefenseEntry{}, fmt.Errorf("defense_no out of range [0, 15]: %d", defenseNo)
	}
}
