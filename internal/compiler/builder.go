package compiler

import (
	"io"
	"runtime"
	"slices"
	"strings"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/bnema/adblock-filter-compiler/internal/models"
	"github.com/bnema/adblock-filter-compiler/internal/parser"
)

// SourceStats contains parse results for a single source document
type SourceStats struct {
	Source      string
	Lines       int
	Blank       int
	Rules       int
	Invalid     int
	SkipReasons map[string]int
	// Err is set when the document could not be read; its rules are dropped
	Err error
}

// BuildResult is the merged output of all source documents
type BuildResult struct {
	Rules   *models.RuleSet
	Stats   models.CompilationStats
	Sources []SourceStats
	Invalid []*parser.InvalidLineError
}

// Builder parses source documents on a bounded worker pool and merges
// the results into one rule set
type Builder struct {
	workers    int
	exceptions bool
	logger     *zap.SugaredLogger
	reader     func(models.SourceDocument) io.Reader
}

// BuilderOption configures a Builder
type BuilderOption func(*Builder)

// WithWorkers bounds the number of documents parsed concurrently
func WithWorkers(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithWhitelistSyntax makes the builder accept @@-prefixed rules
func WithWhitelistSyntax() BuilderOption {
	return func(b *Builder) {
		b.exceptions = true
	}
}

// WithBuilderLogger sets the logger
func WithBuilderLogger(l *zap.SugaredLogger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder creates a new builder
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		workers: runtime.GOMAXPROCS(0),
		logger:  zap.NewNop().Sugar(),
		reader: func(doc models.SourceDocument) io.Reader {
			return strings.NewReader(doc.Text)
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// parsed holds one document's rules before the merge
type parsed struct {
	index   int
	rules   []models.Rule
	stats   SourceStats
	invalid []*parser.InvalidLineError
}

// Build parses every document and merges the rules. Documents share no
// state while parsing; the merge runs on the calling goroutine. A document
// that fails to read is left out of the merge, the same as a source that
// failed to fetch.
func (b *Builder) Build(docs []models.SourceDocument) *BuildResult {
	p := pool.NewWithResults[parsed]().WithMaxGoroutines(b.workers)
	for i, doc := range docs {
		p.Go(func() parsed {
			return b.parse(i, doc)
		})
	}
	results := p.Wait()

	// Merge in document order so diagnostics are stable
	slices.SortFunc(results, func(x, y parsed) int { return x.index - y.index })

	out := &BuildResult{Rules: models.NewRuleSet()}
	for _, res := range results {
		out.Sources = append(out.Sources, res.stats)
		if res.stats.Err != nil {
			b.logger.Warnw("Dropping unreadable source",
				"source", res.stats.Source,
				"error", res.stats.Err,
			)
			continue
		}

		for _, rule := range res.rules {
			out.Stats.TotalParsed++
			if !out.Rules.Add(rule) {
				out.Stats.DuplicatesRemoved++
			}
		}
		out.Stats.InvalidLinesSkipped += len(res.invalid)
		out.Invalid = append(out.Invalid, res.invalid...)

		b.logger.Debugw("Merged source",
			"source", res.stats.Source,
			"rules", res.stats.Rules,
			"invalid", res.stats.Invalid,
		)
	}

	return out
}

func (b *Builder) parse(index int, doc models.SourceDocument) parsed {
	var opts []parser.Option
	if b.exceptions {
		opts = append(opts, parser.WithExceptions())
	}

	ps := parser.New(doc.Source, opts...)
	rules, err := ps.Parse(b.reader(doc))

	st := ps.Stats()
	res := parsed{
		index:   index,
		rules:   rules,
		invalid: ps.Invalid(),
		stats: SourceStats{
			Source:      doc.Source,
			Lines:       st.Lines,
			Blank:       st.Blank,
			Rules:       st.Rules,
			Invalid:     st.Invalid,
			SkipReasons: st.SkipReasons,
		},
	}
	if err != nil {
		res.stats.Err = err
	}
	return res
}
