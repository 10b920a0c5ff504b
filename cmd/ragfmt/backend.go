package main

import (
	"context"
	"errors"
	"fmt"

	"fortio.org/safecast"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hupe1980/ragfmt/archive"
	"github.com/hupe1980/ragfmt/archive/dynamo"
	"github.com/hupe1980/ragfmt/blobstore"
	"github.com/hupe1980/ragfmt/blobstore/bolt"
	minioblob "github.com/hupe1980/ragfmt/blobstore/minio"
	s3blob "github.com/hupe1980/ragfmt/blobstore/s3"
	"github.com/hupe1980/ragfmt/codec"
	"github.com/hupe1980/ragfmt/compress"
	"github.com/hupe1980/ragfmt/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// errNoArchive is returned when an archive operation runs without a backend.
var errNoArchive = errors.New("no archive backend configured (set [archive].backend)")

func nopClose() error { return nil }

// openArchive builds the archive described by cfg. The returned function
// releases backend resources.
func openArchive(ctx context.Context, cfg config.ArchiveConfig, optFns ...func(*archive.Options)) (*archive.Archive, func() error, error) {
	if !cfg.Enabled() {
		return nil, nil, errNoArchive
	}

	c, ok := codec.ByName(cfg.Codec)
	if !ok {
		return nil, nil, fmt.Errorf("unknown archive codec %q", cfg.Codec)
	}
	ct, err := compress.ParseType(cfg.Compression)
	if err != nil {
		return nil, nil, err
	}
	bps, err := safecast.Conv[int](cfg.BytesPerSecond)
	if err != nil {
		return nil, nil, fmt.Errorf("bytes_per_second: %w", err)
	}

	var (
		store   blobstore.Store
		catalog archive.Catalog
		closeFn = nopClose
	)

	switch cfg.Backend {
	case config.BackendMemory:
		store = blobstore.NewMemoryStore()
		catalog = archive.NewMemoryCatalog()

	case config.BackendLocal:
		store = blobstore.NewLocalStore(cfg.Path)

	case config.BackendBolt:
		s, err := bolt.Open(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open bolt archive: %w", err)
		}
		store, closeFn = s, s.Close

	case config.BackendMinio:
		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.Secure,
			Region: cfg.Region,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create minio client: %w", err)
		}
		store = minioblob.NewStore(client, cfg.Bucket, "")

	case config.BackendS3:
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("load AWS config: %w", err)
		}
		client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
				o.UsePathStyle = true
			}
		})
		store = s3blob.NewStore(client, cfg.Bucket, "")
		if cfg.DynamoTable != "" {
			catalog = dynamo.NewCatalog(dynamodb.NewFromConfig(awsCfg), cfg.DynamoTable)
		}

	default:
		return nil, nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}

	arc := archive.New(store, append([]func(*archive.Options){func(o *archive.Options) {
		o.Codec = c
		o.Compression = ct
		o.Prefix = cfg.Prefix
		o.BytesPerSecond = bps
		o.MaxInFlight = cfg.MaxInFlight
		o.Catalog = catalog
	}}, optFns...)...)

	return arc, closeFn, nil
}
