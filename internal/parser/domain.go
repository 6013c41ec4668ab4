package parser

import (
	"net/netip"
	"strings"

	"github.com/miekg/dns"
)

const maxDomainLength = 253

// Reasons a domain candidate is rejected
const (
	ReasonEmpty        = "empty"
	ReasonTooLong      = "too-long"
	ReasonLineTooLong  = "line-too-long"
	ReasonEmptyLabel   = "empty-label"
	ReasonLabelTooLong = "label-too-long"
	ReasonLabelCharset = "label-charset"
	ReasonLabelHyphen  = "label-hyphen"
	ReasonNoDot        = "no-dot"
	ReasonBadIPv4      = "bad-ipv4"
	ReasonNotCanonical = "not-canonical"
)

// IsIPv4 reports whether s is a dotted-quad IPv4 literal
func IsIPv4(s string) bool {
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is4() && addr.String() == s
}

// ValidateDomain checks a domain candidate against the rule grammar.
// It returns an empty reason when the candidate is a valid DNS name or
// IPv4 literal.
func ValidateDomain(s string) string {
	if s == "" {
		return ReasonEmpty
	}
	if len(s) > maxDomainLength {
		return ReasonTooLong
	}
	if IsIPv4(s) {
		return ""
	}
	if !strings.Contains(s, ".") {
		return ReasonNoDot
	}
	// A leading, trailing or doubled dot yields an empty label
	if strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") || strings.Contains(s, "..") {
		return ReasonEmptyLabel
	}
	labels := strings.Split(s, ".")
	numeric := true
	for _, label := range labels {
		if reason := validateLabel(label); reason != "" {
			return reason
		}
		if strings.Trim(label, "0123456789") != "" {
			numeric = false
		}
	}
	// All-numeric names that failed IPv4 parsing are broken addresses
	if numeric {
		return ReasonBadIPv4
	}
	// Charset and empty labels are settled above and the name fits in 253
	// bytes, so the only thing left for the wire-format check to reject is
	// a label over 63 bytes
	if _, ok := dns.IsDomainName(s); !ok {
		return ReasonLabelTooLong
	}
	return ""
}

func validateLabel(label string) string {
	if label == "" {
		return ReasonEmptyLabel
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return ReasonLabelHyphen
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return ReasonLabelCharset
		}
	}
	return ""
}

// Labels returns the labels of a domain with the TLD first.
// IPv4 literals have no label hierarchy and return nil.
func Labels(domain string) []string {
	if domain == "" || IsIPv4(domain) {
		return nil
	}
	labels := dns.SplitDomainName(domain)
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	return labels
}
