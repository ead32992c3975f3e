package rule

import (
	"fmt"
	"sort"
)

// Rule is the strategy used to compile same-type filters into a query fragment.
type Rule int

// Rule constants. The zero value is not a valid rule.
const (
	MinLengthOne Rule = iota + 1
	Boolean
	Value
	IDValue
	CapitalisedValue
	NumericRange
	DateRange
	String
	Regex
	OpenEndedString
	EmbeddingKnnSimilarity
	JoinCollection
	Noop
)

var ruleNames = map[Rule]string{
	MinLengthOne:           "minLengthOne",
	Boolean:                "boolean",
	Value:                  "value",
	IDValue:                "idValue",
	CapitalisedValue:       "capitalisedValue",
	NumericRange:           "numericRange",
	DateRange:              "dateRange",
	String:                 "string",
	Regex:                  "regex",
	OpenEndedString:        "openEndedString",
	EmbeddingKnnSimilarity: "embeddingKnnSimilarity",
	JoinCollection:         "joinCollection",
	Noop:                   "noop",
}

var rulesByName = func() map[string]Rule {
	m := make(map[string]Rule, len(ruleNames))
	for r, n := range ruleNames {
		m[n] = r
	}
	return m
}()

// Parse resolves a configuration rule name.
func Parse(name string) (Rule, error) {
	r, ok := rulesByName[name]
	if !ok {
		return 0, fmt.Errorf("unknown rule %q (known: %v)", name, Names())
	}
	return r, nil
}

// Names returns all rule names, sorted.
func Names() []string {
	out := make([]string, 0, len(ruleNames))
	for _, n := range ruleNames {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// String returns the configuration name of the rule.
func (r Rule) String() string {
	if n, ok := ruleNames[r]; ok {
		return n
	}
	return fmt.Sprintf("Rule(%d)", int(r))
}

// IsValid checks if the rule is one of the known values.
func (r Rule) IsValid() bool {
	_, ok := ruleNames[r]
	return ok
}

// NeedsField reports whether the rule reads its field spec.
// Noop ignores fields and embedding similarity takes its fields from
// the namespace's embedding models.
func (r Rule) NeedsField() bool {
	return r != Noop && r != EmbeddingKnnSimilarity
}

// NeedsSingleField reports whether the rule only accepts a single field name.
func (r Rule) NeedsSingleField() bool {
	return r == MinLengthOne || r == JoinCollection
}
