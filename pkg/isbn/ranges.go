package isbn

import (
	"fmt"
	"strings"
	"time"
)

// Rule is one admissible registrant prefix width inside a registration group.
// Low and High are inclusive bounds on the first Length digits following the
// group prefix.
type Rule struct {
	Low    int `json:"low" yaml:"low"`
	High   int `json:"high" yaml:"high"`
	Length int `json:"length" yaml:"length"`
}

// Contains reports whether n falls inside the rule's range.
func (r Rule) Contains(n int) bool {
	return n >= r.Low && n <= r.High
}

// Group is a registration group keyed by its hyphen-free prefix, EAN prefix
// included (e.g. "9780"). Rules are ordered, the first match wins.
type Group struct {
	Prefix string `json:"prefix" yaml:"prefix"`
	Agency string `json:"agency,omitempty" yaml:"agency,omitempty"`
	Rules  []Rule `json:"rules" yaml:"rules"`
}

// Metadata describes where a range table came from.
type Metadata struct {
	Source string    `json:"source,omitempty" yaml:"source,omitempty"`
	Serial string    `json:"serial,omitempty" yaml:"serial,omitempty"`
	Date   time.Time `json:"date,omitzero" yaml:"date,omitempty"`
}

// RangeTable maps registration group prefixes to registrant rules, in
// declaration order. It is immutable once built and safe for concurrent use.
type RangeTable struct {
	meta   Metadata
	groups []Group
}

// NewRangeTable builds a table from groups, keeping their order. Groups and
// rules are copied so later changes to the arguments do not leak in.
func NewRangeTable(meta Metadata, groups []Group) (*RangeTable, error) {
	t := &RangeTable{meta: meta, groups: make([]Group, 0, len(groups))}
	for _, g := range groups {
		g.Prefix = strings.ReplaceAll(g.Prefix, "-", "")
		if len(g.Prefix) <= len(bookland) || !isDigits(g.Prefix) {
			return nil, fmt.Errorf("group %q: prefix must be the EAN prefix followed by group digits", g.Prefix)
		}
		for i, r := range g.Rules {
			if r.Length < 1 {
				return nil, fmt.Errorf("group %s rule %d: length %d must be positive", g.Prefix, i, r.Length)
			}
			if r.Low > r.High {
				return nil, fmt.Errorf("group %s rule %d: range %d-%d is inverted", g.Prefix, i, r.Low, r.High)
			}
		}
		g.Rules = append([]Rule(nil), g.Rules...)
		t.groups = append(t.groups, g)
	}
	return t, nil
}

// Metadata returns the table provenance.
func (t *RangeTable) Metadata() Metadata {
	return t.meta
}

// Groups returns a copy of the groups in declaration order.
func (t *RangeTable) Groups() []Group {
	out := make([]Group, len(t.groups))
	for i, g := range t.groups {
		g.Rules = append([]Rule(nil), g.Rules...)
		out[i] = g
	}
	return out
}

// Group looks a group up by prefix; hyphens in prefix are ignored.
func (t *RangeTable) Group(prefix string) (Group, bool) {
	prefix = strings.ReplaceAll(prefix, "-", "")
	for _, g := range t.groups {
		if g.Prefix == prefix {
			g.Rules = append([]Rule(nil), g.Rules...)
			return g, true
		}
	}
	return Group{}, false
}

// Len is the number of groups.
func (t *RangeTable) Len() int {
	return len(t.groups)
}

// RuleCount is the number of rules across all groups.
func (t *RangeTable) RuleCount() int {
	n := 0
	for _, g := range t.groups {
		n += len(g.Rules)
	}
	return n
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
