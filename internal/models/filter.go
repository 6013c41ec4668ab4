package models

// LineKind is the classification of a raw source line
type LineKind int

const (
	LineBlank       LineKind = iota // empty or comment (# or !)
	LineAdBlockRule                 // ||domain^
	LineHostsEntry                  // 0.0.0.0 domain / 127.0.0.1 domain
	LineDomainEntry                 // bare domain, or last token of anything else
)

func (k LineKind) String() string {
	switch k {
	case LineBlank:
		return "blank"
	case LineAdBlockRule:
		return "adblock"
	case LineHostsEntry:
		return "hosts"
	case LineDomainEntry:
		return "domain"
	}
	return "unknown"
}

// SourceDocument is the raw text of one fetched list
type SourceDocument struct {
	Source string // URL or file name
	Text   string
}

// CompilationStats holds the counters accumulated during one compilation run
type CompilationStats struct {
	TotalParsed         int
	DuplicatesRemoved   int
	DomainsCompressed   int
	InvalidLinesSkipped int
	WhitelistRemoved    int
}
