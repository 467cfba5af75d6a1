package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MaxAvatarSize caps uploaded profile images
const MaxAvatarSize = 5 << 20

// Config configures the S3-compatible avatar bucket
type Config struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

// Enabled reports whether enough settings are present to build a store
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != "" && strings.TrimSpace(c.Bucket) != ""
}

// AvatarStore uploads profile images and returns their public URL
type AvatarStore struct {
	client    *minio.Client
	bucket    string
	region    string
	publicURL string
	now       func() time.Time
	initOnce  sync.Once
	initErr   error
}

// NewAvatarStore builds an S3 client for cfg
func NewAvatarStore(cfg Config) (*AvatarStore, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	publicURL := strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + endpoint + "/" + bucket
	}

	return &AvatarStore{
		client:    client,
		bucket:    bucket,
		region:    region,
		publicURL: publicURL,
		now:       time.Now,
	}, nil
}

func (s *AvatarStore) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// Upload stores the image under the user's prefix and returns its public URL
func (s *AvatarStore) Upload(ctx context.Context, userID, filename, contentType string, r io.Reader, size int64) (string, error) {
	if s == nil || s.client == nil {
		return "", fmt.Errorf("avatar store is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("user id is required")
	}
	if size <= 0 || size > MaxAvatarSize {
		return "", fmt.Errorf("avatar size %d out of range", size)
	}
	if err := s.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := ObjectKey(userID, filename, s.now())
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put avatar: %w", err)
	}
	return PublicURL(s.publicURL, key), nil
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey builds "<user>/<unix seconds>_<sanitized file name>"
func ObjectKey(userID, filename string, now time.Time) string {
	name := unsafeNameChars.ReplaceAllString(path.Base(strings.ReplaceAll(filename, `\`, "/")), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "avatar"
	}
	return strings.TrimSpace(userID) + "/" + strconv.FormatInt(now.Unix(), 10) + "_" + name
}

// PublicURL joins the base URL and an object key, escaping each segment
func PublicURL(base, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}
