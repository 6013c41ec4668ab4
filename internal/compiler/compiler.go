package compiler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bnema/adblock-filter-compiler/internal/models"
	"github.com/bnema/adblock-filter-compiler/internal/parser"
)

// ErrInvariant marks internal state that should be impossible. A run that
// hits it is aborted rather than producing a wrong filter.
var ErrInvariant = errors.New("compiler invariant violated")

// EmptyResultError is returned when compilation yields no rules at all,
// which usually means every source failed to fetch
type EmptyResultError struct {
	Sources int
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("compilation produced no rules from %d source(s)", e.Sources)
}

// Pipeline stage names reported to the Observer
const (
	StageBuild     = "build"
	StageCompress  = "compress"
	StageWhitelist = "whitelist"
)

// Observer receives stage timings
type Observer interface {
	ObserveStage(stage string, d time.Duration)
}

// Result is the outcome of one compilation run
type Result struct {
	Blocklist      *models.RuleSet
	Whitelist      *models.RuleSet
	Stats          models.CompilationStats
	WhitelistStats models.CompilationStats
	Sources        []SourceStats
	Invalid        []*parser.InvalidLineError
}

// Compiler runs the full pipeline: build, compress, subtract whitelist
type Compiler struct {
	workers  int
	compress bool
	logger   *zap.SugaredLogger
	observer Observer
}

// Option configures a Compiler
type Option func(*Compiler)

// WithCompression toggles redundancy compression (on by default)
func WithCompression(enabled bool) Option {
	return func(c *Compiler) {
		c.compress = enabled
	}
}

// WithParallelism bounds the parse worker pool
func WithParallelism(n int) Option {
	return func(c *Compiler) {
		c.workers = n
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver sets the stage timing observer
func WithObserver(o Observer) Option {
	return func(c *Compiler) {
		c.observer = o
	}
}

// New creates a new compiler
func New(opts ...Option) *Compiler {
	c := &Compiler{
		compress: true,
		logger:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile turns blocklist and whitelist documents into the final rule sets.
// The context is only checked between stages; compression is not preempted.
func (c *Compiler) Compile(ctx context.Context, blocklist, whitelist []models.SourceDocument) (*Result, error) {
	start := time.Now()
	built := c.builder().Build(blocklist)
	c.observe(StageBuild, start)

	res := &Result{
		Blocklist: built.Rules,
		Stats:     built.Stats,
		Sources:   built.Sources,
		Invalid:   built.Invalid,
	}

	c.logger.Infow("Blocklist built",
		"sources", len(blocklist),
		"rules", built.Rules.Len(),
		"duplicates", built.Stats.DuplicatesRemoved,
		"invalid", built.Stats.InvalidLinesSkipped,
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.compress {
		start = time.Now()
		compressed, n, err := Compress(res.Blocklist)
		if err != nil {
			return nil, err
		}
		c.observe(StageCompress, start)
		res.Blocklist = compressed
		res.Stats.DomainsCompressed = n
		c.logger.Infow("Blocklist compressed", "removed", n, "rules", compressed.Len())
	}

	if len(whitelist) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start = time.Now()
		wl := c.builder(WithWhitelistSyntax()).Build(whitelist)

		var removed int
		res.Blocklist, removed = Subtract(res.Blocklist, wl.Rules)
		res.Whitelist = wl.Rules
		res.WhitelistStats = wl.Stats
		res.Stats.WhitelistRemoved = removed
		res.Sources = append(res.Sources, wl.Sources...)
		res.Invalid = append(res.Invalid, wl.Invalid...)
		c.observe(StageWhitelist, start)

		c.logger.Infow("Whitelist applied", "whitelist_rules", wl.Rules.Len(), "removed", removed)
	}

	if res.Blocklist.Len() == 0 {
		return nil, &EmptyResultError{Sources: len(blocklist)}
	}

	return res, nil
}

func (c *Compiler) builder(opts ...BuilderOption) *Builder {
	base := []BuilderOption{WithWorkers(c.workers), WithBuilderLogger(c.logger)}
	return NewBuilder(append(base, opts...)...)
}

func (c *Compiler) observe(stage string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveStage(stage, time.Since(start))
	}
}
