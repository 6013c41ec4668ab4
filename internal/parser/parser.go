package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bnema/adblock-filter-compiler/internal/models"
)

// ErrInvalidLine is wrapped by every InvalidLineError
var ErrInvalidLine = errors.New("invalid line")

// InvalidLineError records a line that failed normalization
type InvalidLineError struct {
	Source string
	Line   int
	Text   string
	Reason string
}

func (e *InvalidLineError) Error() string {
	return fmt.Sprintf("%s:%d: %q: %s", e.Source, e.Line, e.Text, e.Reason)
}

func (e *InvalidLineError) Unwrap() error {
	return ErrInvalidLine
}

// Normalize converts a classified line into a canonical rule.
// The returned string is the rejection reason when the line is invalid.
func Normalize(kind models.LineKind, candidate string) (models.Rule, string) {
	switch kind {
	case models.LineAdBlockRule:
		rule := models.Rule(candidate)
		domain := rule.Domain()
		if reason := ValidateDomain(domain); reason != "" {
			return "", ReasonNotCanonical
		}
		return rule, ""
	case models.LineHostsEntry, models.LineDomainEntry:
		domain := strings.ToLower(candidate)
		if reason := ValidateDomain(domain); reason != "" {
			return "", reason
		}
		return models.NewRule(domain), ""
	}
	return "", ReasonEmpty
}

// Parser turns source documents into canonical rules
type Parser struct {
	source     string
	exceptions bool
	stats      Stats
	invalid    []*InvalidLineError
}

// Stats tracks parsing statistics
type Stats struct {
	Lines       int
	Blank       int
	Rules       int
	Invalid     int
	SkipReasons map[string]int // Detailed breakdown of rejected lines
}

const (
	maxLineLength = 1024 * 1024
	byteOrderMark = "\ufeff"
)

// Option configures a Parser
type Option func(*Parser)

// WithExceptions accepts @@-prefixed whitelist rules by stripping the prefix
func WithExceptions() Option {
	return func(p *Parser) {
		p.exceptions = true
	}
}

// New creates a parser for the named source
func New(source string, opts ...Option) *Parser {
	p := &Parser{
		source: source,
		stats: Stats{
			SkipReasons: make(map[string]int),
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stats returns parsing statistics
func (p *Parser) Stats() Stats {
	return p.stats
}

// Invalid returns the lines rejected so far, in line order
func (p *Parser) Invalid() []*InvalidLineError {
	return p.invalid
}

// Parse reads source content and returns the rules it contains.
// Invalid and oversized lines are recorded and skipped; only read errors
// are returned.
func (p *Parser) Parse(r io.Reader) ([]models.Rule, error) {
	var rules []models.Rule
	br := bufio.NewReaderSize(r, 64*1024)

	for lineNo := 1; ; lineNo++ {
		line, tooLong, ok, err := readLine(br)
		if err != nil && err != io.EOF {
			return rules, err
		}
		if !ok {
			return rules, nil
		}

		p.stats.Lines++
		if tooLong {
			p.reject(lineNo, line, ReasonLineTooLong)
		} else {
			if lineNo == 1 {
				line = strings.TrimPrefix(line, byteOrderMark)
			}
			if rule, ok := p.parseLine(lineNo, line); ok {
				rules = append(rules, rule)
			}
		}

		if err == io.EOF {
			return rules, nil
		}
	}
}

// readLine returns the next line without its terminator. Lines longer than
// maxLineLength are drained and reported as tooLong with only their first
// bytes kept. ok is false once the reader is exhausted.
func readLine(br *bufio.Reader) (line string, tooLong, ok bool, err error) {
	var buf []byte
	for {
		chunk, rerr := br.ReadSlice('\n')
		if len(chunk) > 0 {
			ok = true
		}
		if !tooLong {
			buf = append(buf, chunk...)
			if len(buf) > maxLineLength+1 {
				tooLong = true
				buf = buf[:64]
			}
		}
		if rerr == bufio.ErrBufferFull {
			continue
		}

		line = strings.TrimSuffix(string(buf), "\n")
		line = strings.TrimSuffix(line, "\r")
		return line, tooLong, ok, rerr
	}
}

// parseLine parses a single raw line
func (p *Parser) parseLine(lineNo int, raw string) (models.Rule, bool) {
	line := strings.TrimSpace(raw)
	if p.exceptions {
		line = strings.TrimPrefix(line, models.ExceptionPrefix)
	}

	kind, candidate := Classify(line)
	if kind == models.LineBlank {
		p.stats.Blank++
		return "", false
	}

	rule, reason := Normalize(kind, candidate)
	if reason != "" {
		p.reject(lineNo, line, reason)
		return "", false
	}

	p.stats.Rules++
	return rule, true
}

// reject records a line that could not become a rule
func (p *Parser) reject(lineNo int, text, reason string) {
	p.stats.Invalid++
	p.stats.SkipReasons[reason]++
	p.invalid = append(p.invalid, &InvalidLineError{
		Source: p.source,
		Line:   lineNo,
		Text:   text,
		Reason: reason,
	})
}
