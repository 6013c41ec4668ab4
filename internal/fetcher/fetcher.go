package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bnema/adblock-filter-compiler/internal/models"
)

const defaultUserAgent = "adblock-filter-compiler/1.0"

// FetchError reports a source that could not be retrieved
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher downloads filter lists
type Fetcher struct {
	client    *http.Client
	retries   int
	userAgent string
	limiter   *rate.Limiter
	cache     *Cache
	fs        afero.Fs
	logger    *zap.SugaredLogger
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithCache serves repeated fetches from c until entries expire
func WithCache(c *Cache) Option {
	return func(f *Fetcher) {
		f.cache = c
	}
}

// WithFs sets the filesystem used for local list paths
func WithFs(fs afero.Fs) Option {
	return func(f *Fetcher) {
		f.fs = fs
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.SugaredLogger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a new fetcher from config
func New(cfg models.HTTPConfig, opts ...Option) *Fetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	retries := cfg.Retries
	if retries == 0 {
		retries = 3
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	f := &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		retries:   retries,
		userAgent: userAgent,
		fs:        afero.NewOsFs(),
		logger:    zap.NewNop().Sugar(),
	}

	if cfg.RequestsPerSecond > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads content from a URL with retries
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if data, ok := f.cache.Get(url); ok {
		f.logger.Debugw("Cache hit", "url", url)
		return data, nil
	}

	var (
		lastErr  error
		attempts int
	)

	for i := 0; i < f.retries; i++ {
		if i > 0 {
			// Linear backoff
			select {
			case <-ctx.Done():
				return nil, &FetchError{Source: url, Err: ctx.Err()}
			case <-time.After(time.Duration(i) * time.Second):
			}
		}

		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, &FetchError{Source: url, Err: err}
			}
		}

		attempts++
		data, err := f.doFetch(ctx, url)
		if err == nil {
			f.cache.Add(url, data)
			return data, nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			break
		}
		f.logger.Debugw("Fetch attempt failed", "url", url, "attempt", i+1, "error", err)
	}

	return nil, &FetchError{
		Source: url,
		Err:    fmt.Errorf("failed after %d attempt(s): %w", attempts, lastErr),
	}
}

// permanentError is an HTTP failure that retrying will not fix
type permanentError struct {
	status int
}

func (e *permanentError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.status, http.StatusText(e.status))
}

func (f *Fetcher) doFetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return nil, &permanentError{status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	return io.ReadAll(resp.Body)
}

// ReadFile reads a local list
func (f *Fetcher) ReadFile(path string) ([]byte, error) {
	data, err := afero.ReadFile(f.fs, path)
	if err != nil {
		return nil, &FetchError{Source: path, Err: err}
	}
	return data, nil
}

// Load retrieves a configured list from its URL or local path
func (f *Fetcher) Load(ctx context.Context, list models.FilterList) (models.SourceDocument, error) {
	var (
		data []byte
		err  error
	)
	if list.URL != "" {
		data, err = f.Fetch(ctx, list.URL)
	} else {
		data, err = f.ReadFile(list.Path)
	}
	if err != nil {
		return models.SourceDocument{}, err
	}
	return models.SourceDocument{Source: list.Name, Text: string(data)}, nil
}
