package compiler

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/bnema/adblock-filter-compiler/internal/models"
	"github.com/bnema/adblock-filter-compiler/internal/parser"
)

// labelTrie is a prefix tree keyed on domain labels, TLD first
type labelTrie struct {
	children map[string]*labelTrie
	terminal bool
}

func (t *labelTrie) child(label string) *labelTrie {
	if t.children == nil {
		t.children = make(map[string]*labelTrie)
	}
	c, ok := t.children[label]
	if !ok {
		c = &labelTrie{}
		t.children[label] = c
	}
	return c
}

type trieEntry struct {
	rule   models.Rule
	labels []string
}

// Compress removes every rule whose domain is a strict subdomain of another
// rule's domain. Matching is done on whole labels, so notexample.com is
// never covered by example.com. Rules without a label hierarchy (IPv4
// literals) pass through unchanged.
func Compress(rules *models.RuleSet) (*models.RuleSet, int, error) {
	out := models.NewRuleSet()
	entries := make([]trieEntry, 0, rules.Len())

	for _, r := range rules.Rules() {
		labels := parser.Labels(r.Domain())
		if len(labels) == 0 {
			out.Add(r)
			continue
		}
		entries = append(entries, trieEntry{rule: r, labels: labels})
	}

	// Shortest first: every ancestor is settled before its descendants
	slices.SortFunc(entries, func(a, b trieEntry) int {
		if c := cmp.Compare(len(a.labels), len(b.labels)); c != 0 {
			return c
		}
		return cmp.Compare(a.rule, b.rule)
	})

	root := &labelTrie{}
	compressed := 0

	for _, e := range entries {
		node := root
		covered := false
		for _, label := range e.labels {
			if node.terminal {
				covered = true
				break
			}
			node = node.child(label)
		}

		if covered {
			compressed++
			continue
		}
		if node.terminal {
			return nil, 0, fmt.Errorf("%w: %s reached an already terminal node", ErrInvariant, e.rule)
		}

		node.terminal = true
		if !out.Add(e.rule) {
			return nil, 0, fmt.Errorf("%w: %s inserted twice", ErrInvariant, e.rule)
		}
	}

	return out, compressed, nil
}
