package compiler

import (
	"github.com/bnema/adblock-filter-compiler/internal/models"
)

// Subtract returns the blocklist without the rules present in the whitelist.
// Removal is by exact rule only: whitelisting example.com leaves
// ads.example.com blocked.
func Subtract(blocklist, whitelist *models.RuleSet) (*models.RuleSet, int) {
	out := models.NewRuleSet()
	removed := 0
	for _, r := range blocklist.Rules() {
		if whitelist != nil && whitelist.Contains(r) {
			removed++
			continue
		}
		out.Add(r)
	}
	return out, removed
}
