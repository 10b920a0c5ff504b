package ragfmt

import (
	"log/slog"
	"runtime"
)

type options struct {
	extraChunkFields []string
	keywords         *Keywords
	queryMode        string
	concurrency      int
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures a normalization call.
type Option func(*options)

// WithExtraChunkFields requests additional chunk keys to be projected from the raw
// chunks into the normalized chunks, in the given order.
//
// A requested key is always present in the output: raw chunks that lack it yield a
// nil value. Calling it with no names is the same as not calling it. Names of
// standard fields and repeated names are ignored.
//
// Example:
//
//	env := ragfmt.Normalize(nil, nil, chunks, nil, "naive",
//	    ragfmt.WithExtraChunkFields("page_idx", "section"))
func WithExtraChunkFields(names ...string) Option {
	return func(o *options) {
		o.extraChunkFields = names
	}
}

// WithKeywords attaches the query keywords to the envelope metadata.
func WithKeywords(highLevel, lowLevel []string) Option {
	return func(o *options) {
		o.keywords = &Keywords{HighLevel: highLevel, LowLevel: lowLevel}
	}
}

// WithQueryMode overrides the query mode recorded in a RawResult.
// It has no effect on Normalize and NormalizeAny, which take the mode as an argument.
func WithQueryMode(mode string) Option {
	return func(o *options) {
		o.queryMode = mode
	}
}

// WithConcurrency limits the number of inputs NormalizeBatch processes at once.
// Values <= 0 select runtime.GOMAXPROCS(0).
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &ragfmt.BasicMetricsCollector{}
//	env := ragfmt.Normalize(nil, nil, chunks, nil, "naive", ragfmt.WithMetricsCollector(metrics))
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.concurrency <= 0 {
		o.concurrency = runtime.GOMAXPROCS(0)
	}
	return o
}

func (k *Keywords) clone() *Keywords {
	if k == nil {
		return nil
	}
	return &Keywords{
		HighLevel: cloneStrings(k.HighLevel),
		LowLevel:  cloneStrings(k.LowLevel),
	}
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
