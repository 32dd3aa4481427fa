package sim

import "bytes"

// MatcherKind distinguishes the three ways a condition disjunct's per-field
// slot can match a packet field (§3 DATA MODEL, §9 DESIGN NOTES: "None |
// ExactBytes | StringPrefix").
type MatcherKind int

const (
	MatcherNone MatcherKind = iota
	MatcherExactBytes
	MatcherStringPrefix
)

// Matcher is one slot of a condition disjunct's 5-tuple.
type Matcher struct {
	Kind  MatcherKind
	Bytes []byte // used when Kind == MatcherExactBytes
	Str   string // used when Kind == MatcherStringPrefix
}

// NoMatcher matches any value.
func NoMatcher() Matcher { return Matcher{Kind: MatcherNone} }

// ExactBytes matches a field only if its raw bytes equal b exactly.
func ExactBytes(b []byte) Matcher { return Matcher{Kind: MatcherExactBytes, Bytes: b} }

// StringPrefix matches a field (interpreted as a string, e.g. Protocol) only
// if it starts with prefix — packet.py's `protocol.startswith(...)` test.
func StringPrefix(prefix string) Matcher { return Matcher{Kind: MatcherStringPrefix, Str: prefix} }

func (m Matcher) matches(field []byte) bool {
	switch m.Kind {
	case MatcherNone:
		return true
	case MatcherExactBytes:
		return bytes.Equal(m.Bytes, field)
	case MatcherStringPrefix:
		return len(field) >= len(m.Str) && string(field[:len(m.Str)]) == m.Str
	default:
		return false
	}
}

// ConditionDisjunct is a 5-tuple of optional matchers, one per Field, in
// the fixed order SrcAddr, SrcPort, DstAddr, DstPort, Protocol.
type ConditionDisjunct [5]Matcher

// Matches reports whether every non-None slot of the disjunct matches the
// packet (cerberus.py's `find_flowkey` inner loop).
func (cd ConditionDisjunct) Matches(p *Packet) bool {
	for f := FieldSrcAddr; f <= FieldProtocol; f++ {
		if !cd[f].matches(p.Get(f)) {
			return false
		}
	}
	return true
}

// FlowKeyEntry is a per-task FlowKey descriptor (§3 DATA MODEL): an ordered
// list of condition disjuncts (OR'd — any one matching selects the task), a
// task-key field list whose concatenated bytes form the CMS lookup key, an
// ordered list of operations to apply, a value (0 means "use packet size"),
// and an is-Bloom flag marking tasks excluded from adaptive-memory sharing.
type FlowKeyEntry struct {
	Conditions []ConditionDisjunct
	TaskKey    []Field
	Operations []Op
	Value      int64
	IsBloom    bool
}

// DefenseEntry is a per-task Defense descriptor, parallel to FlowKeyEntry:
// its own condition disjuncts, its own task-key field list, and a numeric
// threshold. Legacy if/else action strings from the reference
// (rlimit/drop/pass/puzzle) are not reproduced: §4.G never reads them —
// cerberus.py's own `get_defense` comment marks them "not used".
type DefenseEntry struct {
	Conditions []ConditionDisjunct
	TaskKey    []Field
	Threshold  int64
}

// FindFlowKey evaluates a descriptor's condition disjuncts against p in
// order; the first match wins. Returns (matched, concatenated task key
// bytes) — an empty key if nothing matched, matching
// cerberus.py's `find_flowkey`.
func FindFlowKey(conditions []ConditionDisjunct, taskKey []Field, p *Packet) (bool, []byte) {
	for _, cd := range conditions {
		if cd.Matches(p) {
			return true, concatFields(taskKey, p)
		}
	}
	return false, nil
}

func concatFields(fields []Field, p *Packet) []byte {
	var buf bytes.Buffer
	for _, f := range fields {
		buf.Write(p.Get(f))
	}
	return buf.Bytes()
}
