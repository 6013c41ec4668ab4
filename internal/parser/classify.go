package parser

import (
	"strings"

	"github.com/bnema/adblock-filter-compiler/internal/models"
)

// Hosts-file addresses that mark a blocked entry
var blockingAddresses = map[string]bool{
	"0.0.0.0":   true,
	"127.0.0.1": true,
}

// Classify inspects one trimmed line and returns its kind along with the
// domain candidate (or the whole rule for AdBlock lines).
func Classify(line string) (models.LineKind, string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
		return models.LineBlank, ""
	}

	if strings.HasPrefix(line, models.RulePrefix) && strings.HasSuffix(line, models.RuleSuffix) {
		return models.LineAdBlockRule, line
	}

	fields := strings.Fields(stripInlineComment(line))
	if len(fields) == 0 {
		return models.LineBlank, ""
	}
	if len(fields) == 2 && blockingAddresses[fields[0]] {
		return models.LineHostsEntry, fields[1]
	}

	return models.LineDomainEntry, fields[len(fields)-1]
}

// stripInlineComment drops a trailing "# ..." that follows whitespace
func stripInlineComment(line string) string {
	for i := 1; i < len(line); i++ {
		if line[i] == '#' && (line[i-1] == ' ' || line[i-1] == '\t') {
			return strings.TrimSpace(line[:i])
		}
	}
	return line
}
