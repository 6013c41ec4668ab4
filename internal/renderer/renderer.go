// Package renderer produces the final AdBlock filter documents.
package renderer

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/adblock-filter-compiler/internal/models"
)

const (
	blocklistTitle       = "AdBlock Filter Compiler"
	blocklistDescription = "AdBlock syntax filter compiled from multiple blocklists, hosts files and domain lists."
	whitelistTitle       = "AdBlock Filter Compiler Whitelist"
	whitelistDescription = "Exception rules subtracted from the compiled blocklist."
	timestampLayout      = "2006-01-02 15:04:05"
	separator            = "#==============================================================="
)

// Document is a rendered filter: header comment lines followed by rules
type Document struct {
	Header []string
	Rules  []string
}

// Renderer formats rule sets as filter documents
type Renderer struct {
	now        func() time.Time
	terminator string
}

// Option configures a Renderer
type Option func(*Renderer)

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		r.now = now
	}
}

// WithLineTerminator sets the line terminator (default "\n")
func WithLineTerminator(t string) Option {
	return func(r *Renderer) {
		if t != "" {
			r.terminator = t
		}
	}
}

// New creates a new renderer
func New(opts ...Option) *Renderer {
	r := &Renderer{
		now:        time.Now,
		terminator: "\n",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render builds the blocklist document. Rules are sorted lexicographically
// and the header carries the counters exactly as accumulated.
func (r *Renderer) Render(rules *models.RuleSet, stats models.CompilationStats) Document {
	sorted := rules.Sorted()
	lines := make([]string, len(sorted))
	for i, rule := range sorted {
		lines[i] = rule.String()
	}

	header := r.header(blocklistTitle, blocklistDescription, len(lines))
	header = append(header,
		fmt.Sprintf("# Total Parsed: %d", stats.TotalParsed),
		fmt.Sprintf("# Duplicates Removed: %d", stats.DuplicatesRemoved),
		fmt.Sprintf("# Domains Compressed: %d", stats.DomainsCompressed),
		fmt.Sprintf("# Invalid Lines Skipped: %d", stats.InvalidLinesSkipped),
		fmt.Sprintf("# Whitelisted Removed: %d", stats.WhitelistRemoved),
		separator,
	)

	return Document{Header: header, Rules: lines}
}

// RenderWhitelist builds the whitelist document using @@||domain^ rules
func (r *Renderer) RenderWhitelist(rules *models.RuleSet, stats models.CompilationStats) Document {
	sorted := rules.Sorted()
	lines := make([]string, len(sorted))
	for i, rule := range sorted {
		lines[i] = rule.Exception()
	}

	header := r.header(whitelistTitle, whitelistDescription, len(lines))
	header = append(header,
		fmt.Sprintf("# Total Parsed: %d", stats.TotalParsed),
		fmt.Sprintf("# Duplicates Removed: %d", stats.DuplicatesRemoved),
		fmt.Sprintf("# Invalid Lines Skipped: %d", stats.InvalidLinesSkipped),
		separator,
	)

	return Document{Header: header, Rules: lines}
}

func (r *Renderer) header(title, description string, count int) []string {
	return []string{
		"# Title: " + title,
		"# Description: " + description,
		"# Created: " + r.now().Format(timestampLayout),
		fmt.Sprintf("# Domain Count: %d", count),
	}
}

// Format joins the document: header, exactly one blank line, then one
// rule per line. Nothing follows the last rule but the terminator.
func (r *Renderer) Format(doc Document) []byte {
	var sb strings.Builder
	for _, line := range doc.Header {
		sb.WriteString(line)
		sb.WriteString(r.terminator)
	}
	sb.WriteString(r.terminator)
	for _, line := range doc.Rules {
		sb.WriteString(line)
		sb.WriteString(r.terminator)
	}
	return []byte(sb.String())
}
