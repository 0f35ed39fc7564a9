package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig configures the S3-compatible backend.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

// MinioStore keeps blobs as objects under the uploads/ prefix of a bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects and checks that the bucket exists.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio configuration incomplete")
	}

	endpoint, secure, err := splitEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("minio bucket does not exist: %s", cfg.Bucket)
	}

	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *MinioStore) key(name string) (string, error) {
	if !ValidName(name) {
		return "", ErrInvalidName
	}
	return Path(name), nil
}

func (s *MinioStore) Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	key, err := s.key(name)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (s *MinioStore) Open(ctx context.Context, name string) (io.ReadSeekCloser, Info, error) {
	key, err := s.key(name)
	if err != nil {
		return nil, Info{}, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, Info{}, mapMinioErr(err)
	}
	// GetObject is lazy; Stat forces the missing-object error early.
	st, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, Info{}, mapMinioErr(err)
	}
	return obj, Info{Size: st.Size, ModTime: st.LastModified, ContentType: st.ContentType}, nil
}

// Remove stats first because S3 deletes of missing keys succeed silently.
func (s *MinioStore) Remove(ctx context.Context, name string) error {
	key, err := s.key(name)
	if err != nil {
		return err
	}
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		return mapMinioErr(err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

func mapMinioErr(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return ErrNotFound
	}
	return fmt.Errorf("storage error: %w", err)
}

// splitEndpoint accepts "host:port" or an http(s) URL and returns the host
// minio.New expects plus whether TLS is on. A bare host means plain HTTP.
func splitEndpoint(raw string) (host string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, errors.New("s3 endpoint is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("s3 endpoint: %w", err)
	}
	switch {
	case u.Scheme != "http" && u.Scheme != "https":
		return "", false, fmt.Errorf("s3 endpoint: unsupported scheme %q", u.Scheme)
	case u.Host == "":
		return "", false, errors.New("s3 endpoint has no host")
	case strings.Trim(u.Path, "/") != "":
		return "", false, fmt.Errorf("s3 endpoint %q must not carry a path", raw)
	}
	return u.Host, u.Scheme == "https", nil
}
