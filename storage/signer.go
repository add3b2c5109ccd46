package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// ErrInvalidKey is returned for object keys that are empty or try to escape the bucket.
var ErrInvalidKey = errors.New("invalid object key")

// URLSigner issues time-limited download links for private objects.
type URLSigner interface {
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// PresignSigner signs GET requests against an S3-compatible bucket
// (Backblaze B2 exposes the same API).
type PresignSigner struct {
	client *minio.Client
	bucket string
}

// NewPresignSigner returns a signer for bucket.
func NewPresignSigner(client *minio.Client, bucket string) *PresignSigner {
	return &PresignSigner{client: client, bucket: bucket}
}

// SignedURL returns a presigned GET URL for key. The object is served as an attachment.
func (s *PresignSigner) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ValidateObjectKey(key); err != nil {
		return "", err
	}
	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", lastSegment(key)))
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, params)
	if err != nil {
		return "", fmt.Errorf("presign %q: %w", key, err)
	}
	return u.String(), nil
}

// ValidateObjectKey rejects empty keys, absolute keys and parent-directory segments.
func ValidateObjectKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}

func lastSegment(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}
