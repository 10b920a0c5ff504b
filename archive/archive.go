package archive

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/ragfmt"
	"github.com/hupe1980/ragfmt/blobstore"
	"github.com/hupe1980/ragfmt/codec"
	"github.com/hupe1980/ragfmt/compress"
	"github.com/hupe1980/ragfmt/internal/resource"
)

const (
	keySuffix     = ".env"
	emptyModeSeg  = "_"
	opPut         = "put"
	opGet         = "get"
	opDelete      = "delete"
	componentName = "archive"
)

var (
	// ErrInvalidKey is returned for keys that were not produced by this archive.
	ErrInvalidKey = errors.New("archive: invalid key")
	// ErrNilEnvelope is returned by Put for a nil envelope.
	ErrNilEnvelope = errors.New("archive: nil envelope")
)

// Options configures an Archive.
type Options struct {
	// Codec encodes envelopes. Default: codec.Default.
	Codec codec.Codec
	// Compression is applied to encoded envelopes. Default: compress.None.
	Compression compress.Type
	// Prefix is prepended to every key.
	Prefix string
	// BytesPerSecond limits write throughput. 0 means unlimited.
	BytesPerSecond int
	// MaxInFlight bounds concurrent store writes. 0 means unbounded.
	MaxInFlight int64
	// Catalog, if set, records every archived envelope.
	Catalog Catalog
	// Logger receives operation logs. Default: ragfmt.NoopLogger().
	Logger *ragfmt.Logger
	// Metrics receives operation metrics. Default: ragfmt.NoopMetricsCollector.
	Metrics ragfmt.MetricsCollector
	// Now returns the catalog timestamp. Default: time.Now.
	Now func() time.Time
}

// Archive stores envelopes in a blobstore.Store.
// It is safe for concurrent use if the store and catalog are.
type Archive struct {
	store  blobstore.Store
	opts   Options
	limits *resource.Controller
	logger *ragfmt.Logger
}

// New creates an archive on top of store.
func New(store blobstore.Store, optFns ...func(o *Options)) *Archive {
	opts := Options{
		Codec:       codec.Default,
		Compression: compress.None,
		Logger:      ragfmt.NoopLogger(),
		Metrics:     ragfmt.NoopMetricsCollector{},
		Now:         time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if opts.Logger == nil {
		opts.Logger = ragfmt.NoopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = ragfmt.NoopMetricsCollector{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.Prefix = strings.Trim(opts.Prefix, "/")

	return &Archive{
		store: store,
		opts:  opts,
		limits: resource.NewController(resource.Config{
			MaxInFlight:        opts.MaxInFlight,
			IOLimitBytesPerSec: opts.BytesPerSecond,
		}),
		logger: opts.Logger.WithComponent(componentName),
	}
}

// modeSegment returns the key path segment for a query mode. The result is
// never empty, "." or "..", and url.PathUnescape maps it back to the mode.
func modeSegment(queryMode string) string {
	switch queryMode {
	case "":
		return emptyModeSeg
	case emptyModeSeg:
		return "%5F"
	case ".":
		return "%2E"
	case "..":
		return "%2E%2E"
	}
	return url.PathEscape(queryMode)
}

// modeDir returns the key directory for a query mode.
func (a *Archive) modeDir(queryMode string) string {
	seg := modeSegment(queryMode)
	if a.opts.Prefix == "" {
		return seg
	}
	return path.Join(a.opts.Prefix, seg)
}

// QueryMode returns the query mode encoded in a key produced by Put.
func (a *Archive) QueryMode(key string) (string, error) {
	rel := key
	if a.opts.Prefix != "" {
		var ok bool
		rel, ok = strings.CutPrefix(key, a.opts.Prefix+"/")
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	seg, name, ok := strings.Cut(rel, "/")
	if !ok || strings.Contains(name, "/") || !strings.HasSuffix(name, keySuffix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if seg == emptyModeSeg {
		return "", nil
	}
	mode, err := url.PathUnescape(seg)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return mode, nil
}

// Put archives env and returns its key. If the catalog rejects the entry,
// the stored blob is removed again and no key is returned.
func (a *Archive) Put(ctx context.Context, env *ragfmt.Envelope) (_ string, err error) {
	start := time.Now()
	key := ""
	size := 0
	defer func() {
		a.opts.Metrics.RecordArchive(opPut, size, time.Since(start), err)
		a.logger.LogArchive(ctx, opPut, key, size, err)
	}()

	if env == nil {
		return "", ErrNilEnvelope
	}

	payload, err := a.opts.Codec.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("archive: encode: %w", err)
	}
	blob, err := encodeBlob(payload, a.opts.Codec, a.opts.Compression)
	if err != nil {
		return "", err
	}
	size = len(blob)

	mode := env.Metadata.QueryMode
	key = path.Join(a.modeDir(mode), uuid.NewString()+keySuffix)

	if err := a.limits.Acquire(ctx); err != nil {
		return "", err
	}
	defer a.limits.Release()

	if err := a.limits.AcquireIO(ctx, size); err != nil {
		return "", err
	}
	if err := a.store.Put(ctx, key, blob); err != nil {
		return "", fmt.Errorf("archive: store %s: %w", key, err)
	}

	if a.opts.Catalog != nil {
		info := env.Metadata.ProcessingInfo
		entry := Entry{
			Key:        key,
			QueryMode:  mode,
			Entities:   info.TotalEntities,
			Relations:  info.TotalRelations,
			Chunks:     info.TotalChunks,
			References: info.TotalReferences,
			Size:       size,
			CreatedAt:  a.opts.Now().UTC(),
		}
		if err := a.opts.Catalog.Record(ctx, entry); err != nil {
			err = fmt.Errorf("archive: catalog %s: %w", key, err)
			if derr := a.store.Delete(context.WithoutCancel(ctx), key); derr != nil {
				err = errors.Join(err, fmt.Errorf("archive: rollback %s: %w", key, derr))
			}
			return "", err
		}
	}
	return key, nil
}

// Get reads an archived envelope.
// Missing keys return an error satisfying errors.Is(err, blobstore.ErrNotFound).
func (a *Archive) Get(ctx context.Context, key string) (env *ragfmt.Envelope, err error) {
	start := time.Now()
	size := 0
	defer func() {
		a.opts.Metrics.RecordArchive(opGet, size, time.Since(start), err)
		a.logger.LogArchive(ctx, opGet, key, size, err)
	}()

	blob, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("archive: load %s: %w", key, err)
	}
	size = len(blob)

	c, payload, err := decodeBlob(blob)
	if err != nil {
		return nil, err
	}

	env = &ragfmt.Envelope{}
	if err := c.Unmarshal(payload, env); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, c.Name(), err)
	}
	return env, nil
}

// List returns the keys archived for queryMode, sorted.
// An empty queryMode lists every key in the archive.
func (a *Archive) List(ctx context.Context, queryMode string) ([]string, error) {
	prefix := a.opts.Prefix
	if queryMode != "" {
		prefix = a.modeDir(queryMode)
	}
	if prefix != "" {
		prefix += "/"
	}

	names, err := a.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}

	keys := names[:0]
	for _, n := range names {
		if strings.HasSuffix(n, keySuffix) {
			keys = append(keys, n)
		}
	}
	return keys, nil
}

// Delete removes an archived envelope and its catalog entry.
func (a *Archive) Delete(ctx context.Context, key string) (err error) {
	start := time.Now()
	defer func() {
		a.opts.Metrics.RecordArchive(opDelete, 0, time.Since(start), err)
		a.logger.LogArchive(ctx, opDelete, key, 0, err)
	}()

	mode, err := a.QueryMode(key)
	if err != nil {
		return err
	}
	if err := a.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("archive: delete %s: %w", key, err)
	}
	if a.opts.Catalog != nil {
		if err := a.opts.Catalog.Remove(ctx, mode, key); err != nil {
			return fmt.Errorf("archive: catalog %s: %w", key, err)
		}
	}
	return nil
}

// Entries returns the catalog entries for queryMode.
// It returns nil if the archive has no catalog.
func (a *Archive) Entries(ctx context.Context, queryMode string) ([]Entry, error) {
	if a.opts.Catalog == nil {
		return nil, nil
	}
	return a.opts.Catalog.Entries(ctx, queryMode)
}
