// Package archive uploads flight artefacts to S3-compatible storage.
package archive

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/okian/parakeet/pkg/logger"
	"github.com/okian/parakeet/pkg/metrics"
)

// ErrNoBucket is returned when no bucket name is configured.
var ErrNoBucket = errors.New("archive bucket not set")

type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Option applies a configuration option to the Uploader.
type Option func(*Uploader)

// WithPrefix places every object under prefix, e.g. a flight id.
func WithPrefix(prefix string) Option {
	return func(u *Uploader) {
		u.prefix = prefix
	}
}

// Uploader copies local files into one bucket, creating it on first use.
type Uploader struct {
	store  objectStore
	bucket string
	prefix string
	log    logger.Logger

	ready bool
}

// Dial connects to endpoint ("host:port") with static credentials.
func Dial(endpoint, accessKey, secretKey string, secure bool, bucket string, opts ...Option) (*Uploader, error) {
	c, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("archive client %s: %w", endpoint, err)
	}
	return New(c, bucket, opts...)
}

// New wraps an existing object store client.
func New(store objectStore, bucket string, opts ...Option) (*Uploader, error) {
	if bucket == "" {
		return nil, ErrNoBucket
	}
	u := &Uploader{store: store, bucket: bucket, log: logger.Get().Named("archive")}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// Upload copies the file at localPath and returns its object key.
func (u *Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	key, err := u.upload(ctx, localPath)
	if err != nil {
		metrics.RecordArchiveUpload("error")
		return "", err
	}
	metrics.RecordArchiveUpload("ok")
	return key, nil
}

func (u *Uploader) upload(ctx context.Context, localPath string) (string, error) {
	if err := u.ensureBucket(ctx); err != nil {
		return "", err
	}

	key := path.Join(u.prefix, filepath.Base(localPath))
	info, err := u.store.FPutObject(ctx, u.bucket, key, localPath, minio.PutObjectOptions{ContentType: contentType(localPath)})
	if err != nil {
		return "", fmt.Errorf("upload %s to %s/%s: %w", localPath, u.bucket, key, err)
	}
	u.log.Info(ctx, "artefact archived",
		logger.String("bucket", u.bucket),
		logger.String("key", key),
		logger.Int("bytes", int(info.Size)))
	return key, nil
}

var artefactTypes = map[string]string{ //nolint:gochecknoglobals // lookup table
	".txt": "text/tab-separated-values",
	".tsv": "text/tab-separated-values",
	".wav": "audio/wav",
	".mid": "audio/midi",
}

func contentType(p string) string {
	ext := strings.ToLower(filepath.Ext(p))
	if ct, ok := artefactTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (u *Uploader) ensureBucket(ctx context.Context) error {
	if u.ready {
		return nil
	}
	ok, err := u.store.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", u.bucket, err)
	}
	if !ok {
		if err := u.store.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", u.bucket, err)
		}
		u.log.Info(ctx, "bucket created", logger.String("bucket", u.bucket))
	}
	u.ready = true
	return nil
}
