package sim

import "testing"

func samplePacket() *Packet {
	return &Packet{
		SrcAddr:  []byte{10, 0, 0, 1},
		SrcPort:  IntToBytes(4000, 2),
		DstAddr:  []byte{10, 0, 0, 2},
		DstPort:  IntToBytes(53, 2),
		Protocol: ProtoUDP,
	}
}

func TestMatcherKinds(t *testing.T) {
	p := samplePacket()
	if !NoMatcher().matches(p.Get(FieldSrcAddr)) {
		t.Error("NoMatcher should match anything")
	}
	if !ExactBytes(IntToBytes(53, 2)).matches(p.Get(FieldDstPort)) {
		t.Error("ExactBytes(53) should match dst_port=53")
	}
	if ExactBytes(IntToBytes(80, 2)).matches(p.Get(FieldDstPort)) {
		t.Error("ExactBytes(80) should not match dst_port=53")
	}
	if !StringPrefix("UDP").matches(p.Get(FieldProtocol)) {
		t.Error("StringPrefix(UDP) should match protocol UDP")
	}
	if StringPrefix("TCP").matches(p.Get(FieldProtocol)) {
		t.Error("StringPrefix(TCP) should not match protocol UDP")
	}
}

func TestConditionDisjunctMatchesRequiresAllSlots(t *testing.T) {
	p := samplePacket()
	cd := ConditionDisjunct{NoMatcher(), NoMatcher(), NoMatcher(), ExactBytes(IntToBytes(53, 2)), StringPrefix("UDP")}
	if !cd.Matches(p) {
		t.Error("disjunct should match when every non-None slot matches")
	}
	cd[3] = ExactBytes(IntToBytes(443, 2))
	if cd.Matches(p) {
		t.Error("disjunct should fail to match once one slot mismatches")
	}
}

func TestFindFlowKeyFirstMatchWins(t *testing.T) {
	p := samplePacket()
	conditions := []ConditionDisjunct{
		{NoMatcher(), NoMatcher(), NoMatcher(), NoMatcher(), StringPrefix("TCP")},
		{NoMatcher(), NoMatcher(), NoMatcher(), NoMatcher(), StringPrefix("UDP")},
	}
	matched, key := FindFlowKey(conditions, []Field{FieldSrcAddr, FieldDstAddr}, p)
	if !matched {
		t.Fatal("expected a match on the second disjunct")
	}
	want := concatFields([]Field{FieldSrcAddr, FieldDstAddr}, p)
	if string(key) != string(want) {
		t.Errorf("key = %q, want %q", key, want)
	}
}

func TestFindFlowKeyNoMatch(t *testing.T) {
	p := samplePacket()
	conditions := []ConditionDisjunct{
		{NoMatcher(), NoMatcher(), NoMatcher(), NoMatcher(), StringPrefix("TCP")},
	}
	matched, key := FindFlowKey(conditions, []Field{FieldSrcAddr}, p)
	if matched || key != nil {
		t.Errorf("expected no match, got matched=%v key=%v", matched, key)
	}
}
