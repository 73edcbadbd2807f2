package vecbuild

import (
	"log/slog"

	"github.com/hupe1980/vecbuild/catalog"
	"github.com/hupe1980/vecbuild/codec"
	"github.com/hupe1980/vecbuild/internal/blockio"
)

type options struct {
	codec            codec.Codec
	catalog          catalog.Catalog
	metricsCollector MetricsCollector
	logger           *Logger
	compression      blockio.Compression
	randomSeed       *int64
	maxTrainVectors  int
}

// Option configures Engine behavior.
//
// Options exist to avoid exploding the constructor surface
// (e.g. codec-specific constructor variants).
type Option func(*options)

// WithCodec configures the codec used for index manifests.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCatalog configures the catalog that registers indexes by name.
// The catalog enforces replace semantics: creating an index whose name is
// taken fails with ErrIndexExists unless the builder requested replacement.
//
// Default: an in-process MemoryCatalog.
func WithCatalog(c catalog.Catalog) Option {
	return func(o *options) {
		if c != nil {
			o.catalog = c
		}
	}
}

// WithCompression configures block compression for persisted artifacts.
// Default: blockio.CompressionZSTD.
func WithCompression(compression blockio.Compression) Option {
	return func(o *options) {
		o.compression = compression
	}
}

// WithRandomSeed sets the seed for deterministic training.
// If not set, a time-based seed is used.
func WithRandomSeed(seed int64) Option {
	return func(o *options) {
		o.randomSeed = &seed
	}
}

// WithMaxTrainVectors caps the number of vectors sampled for centroid and
// codebook training. Zero means train on all vectors.
//
// Training cost grows with the sample size while centroid quality plateaus,
// so large datasets usually train on a subsample.
func WithMaxTrainVectors(n int) Option {
	return func(o *options) {
		o.maxTrainVectors = n
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc != nil {
			o.metricsCollector = mc
		}
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
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
		codec:            codec.Default,
		catalog:          catalog.NewMemoryCatalog(),
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		compression:      blockio.CompressionZSTD,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
