package models

import (
	"slices"
	"strings"
)

// Rule prefixes and suffixes in AdBlock syntax
const (
	RulePrefix      = "||"
	RuleSuffix      = "^"
	ExceptionPrefix = "@@"
)

// Rule is a canonical AdBlock rule of the form ||<domain>^.
// Rules are compared by their exact string value.
type Rule string

// NewRule wraps an already validated domain as a rule
func NewRule(domain string) Rule {
	return Rule(RulePrefix + domain + RuleSuffix)
}

// Domain returns the domain between the || prefix and ^ suffix
func (r Rule) Domain() string {
	s := string(r)
	if !strings.HasPrefix(s, RulePrefix) || !strings.HasSuffix(s, RuleSuffix) || len(s) < len(RulePrefix)+len(RuleSuffix) {
		return ""
	}
	return s[len(RulePrefix) : len(s)-len(RuleSuffix)]
}

// Exception returns the whitelist form @@||<domain>^
func (r Rule) Exception() string {
	return ExceptionPrefix + string(r)
}

func (r Rule) String() string {
	return string(r)
}

// RuleSet is a set of unique rules
type RuleSet struct {
	rules map[Rule]struct{}
}

// NewRuleSet creates a rule set holding the given rules
func NewRuleSet(rules ...Rule) *RuleSet {
	s := &RuleSet{rules: make(map[Rule]struct{}, len(rules))}
	for _, r := range rules {
		s.Add(r)
	}
	return s
}

// Add inserts a rule. It returns false if the rule was already present.
func (s *RuleSet) Add(r Rule) bool {
	if _, ok := s.rules[r]; ok {
		return false
	}
	s.rules[r] = struct{}{}
	return true
}

// Remove deletes a rule. It returns false if the rule was not present.
func (s *RuleSet) Remove(r Rule) bool {
	if _, ok := s.rules[r]; !ok {
		return false
	}
	delete(s.rules, r)
	return true
}

// Contains reports whether the rule is present
func (s *RuleSet) Contains(r Rule) bool {
	_, ok := s.rules[r]
	return ok
}

// Len returns the number of rules
func (s *RuleSet) Len() int {
	return len(s.rules)
}

// Rules returns the rules in no particular order
func (s *RuleSet) Rules() []Rule {
	out := make([]Rule, 0, len(s.rules))
	for r := range s.rules {
		out = append(out, r)
	}
	return out
}

// Sorted returns the rules sorted lexicographically
func (s *RuleSet) Sorted() []Rule {
	out := s.Rules()
	slices.Sort(out)
	return out
}
