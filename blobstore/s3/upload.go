package s3

import (
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
)

// UploadConfig tunes how Store.Put uploads blobs.
//
// Archived envelopes are usually far below one part, so the part settings only
// matter for unusually large result sets.
type UploadConfig struct {
	// PartSize is the multipart chunk size in bytes. Values below
	// manager.MinUploadPartSize keep the SDK default.
	PartSize int64

	// Concurrency bounds parallel part uploads. Values <= 0 keep the SDK default.
	Concurrency int

	// EnableChecksum asks S3 to verify a CRC32C checksum of every upload.
	EnableChecksum bool
}

// DefaultUploadConfig returns 8 MiB parts, the SDK's upload concurrency and
// checksums enabled.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		PartSize:       8 << 20,
		Concurrency:    manager.DefaultUploadConcurrency,
		EnableChecksum: true,
	}
}

func newUploader(client Client, cfg UploadConfig) *manager.Uploader {
	return manager.NewUploader(client, func(u *manager.Uploader) {
		if cfg.PartSize >= manager.MinUploadPartSize {
			u.PartSize = cfg.PartSize
		}
		if cfg.Concurrency > 0 {
			u.Concurrency = cfg.Concurrency
		}
	})
}
