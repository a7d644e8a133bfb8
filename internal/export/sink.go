package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/afero"
	"github.com/thunderdz19/sero-est/internal/models"
)

// Sink receives generated files.
type Sink interface {
	Put(ctx context.Context, name, contentType string, data []byte) error
}

// FSSink writes files under a directory of an afero filesystem.
type FSSink struct {
	fs  afero.Fs
	dir string
}

// NewFSSink returns a sink rooted at dir, created on first write.
func NewFSSink(fs afero.Fs, dir string) *FSSink {
	return &FSSink{fs: fs, dir: dir}
}

func (s *FSSink) Put(_ context.Context, name, _ string, data []byte) error {
	clean := filepath.Base(filepath.Clean("/" + name))
	if clean == "/" || clean == "." {
		return fmt.Errorf("invalid export name %q", name)
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := afero.WriteFile(s.fs, filepath.Join(s.dir, clean), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", clean, err)
	}
	return nil
}

// MinioSink uploads files to an S3-compatible bucket.
type MinioSink struct {
	client *minio.Client
	bucket string
}

// NewMinioSink connects to endpoint and creates bucket when it does not exist.
func NewMinioSink(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioSink, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return &MinioSink{client: client, bucket: bucket}, nil
}

func (s *MinioSink) Put(ctx context.Context, name, contentType string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, strings.TrimPrefix(name, "/"),
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	return nil
}

// MultiSink writes to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Put(ctx context.Context, name, contentType string, data []byte) error {
	var errs []error
	for _, s := range m {
		if err := s.Put(ctx, name, contentType, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Archiver renders each submitted report as its own pdf and stores it.
type Archiver struct {
	Sink Sink
	Now  func() time.Time
}

func (a *Archiver) Archive(ctx context.Context, r models.Report) error {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	doc, err := Document([]models.Report{r}, now())
	if err != nil {
		return err
	}
	return a.Sink.Put(ctx, ReportFilename(r), ContentTypePDF, doc)
}
