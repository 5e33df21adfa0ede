package uapdf

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// defaultTimeout is used when no timeout is specified.
const defaultTimeout = 30 * time.Second

// DefaultProducer is written to /Info /Producer and the XMP metadata.
const DefaultProducer = "go-uapdf"

// Option configures a Renderer or a Run.
type Option func(*options)

type options struct {
	timeout     time.Duration
	logger      zerolog.Logger
	strictFonts bool
	page        *PageSettings
	producer    string
	now         func() time.Time
	converter   pdfConverter     // nil selects headless Chrome
	renderer    DocumentRenderer // used by Run instead of a new Renderer
}

// DocumentRenderer renders documents to files. *Renderer implements it.
type DocumentRenderer interface {
	RenderFile(ctx context.Context, doc Document, path string) (*RenderResult, error)
	Close() error
}

// Compile-time interface implementation check.
var _ DocumentRenderer = (*Renderer)(nil)

func newOptions(opts []Option) options {
	o := options{
		timeout:  defaultTimeout,
		logger:   zerolog.Nop(),
		page:     DefaultPageSettings(),
		producer: DefaultProducer,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithTimeout sets the page load timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("uapdf: WithTimeout duration must be positive")
	}
	return func(o *options) {
		o.timeout = d
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithStrictFonts makes font problems fatal (ErrFontResolution) instead of
// falling back to the markup's font stack with a warning.
func WithStrictFonts(strict bool) Option {
	return func(o *options) {
		o.strictFonts = strict
	}
}

// WithPage sets page dimensions. nil keeps the defaults.
func WithPage(p *PageSettings) Option {
	return func(o *options) {
		if p != nil {
			o.page = p
		}
	}
}

// WithProducer sets the producer recorded in the document metadata.
func WithProducer(name string) Option {
	return func(o *options) {
		if name != "" {
			o.producer = name
		}
	}
}

// WithClock sets the time source for creation dates and signing times.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRenderer makes Run render with r instead of creating a Renderer.
// Run closes r when it returns. Renderer options do not apply to r.
func WithRenderer(r DocumentRenderer) Option {
	return func(o *options) {
		o.renderer = r
	}
}
