package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig points at any S3-compatible endpoint (MinIO, Backblaze B2, AWS S3).
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// NewMinioClient creates an S3 client. It does not contact the endpoint.
func NewMinioClient(cfg MinioConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return client, nil
}

// S3Provider stores images in a public-read bucket. The bounding-box transformation
// is applied locally before upload since plain object stores do not transform.
type S3Provider struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

// NewS3Provider ensures the bucket exists with a public-read policy.
// publicBase is the browser-facing URL prefix of the bucket, e.g. "https://cdn.example.com/covers".
func NewS3Provider(ctx context.Context, client *minio.Client, bucket, publicBase string) (*S3Provider, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
		}
	}
	if err := client.SetBucketPolicy(ctx, bucket, publicReadPolicy(bucket)); err != nil {
		return nil, fmt.Errorf("set bucket policy: %w", err)
	}

	if publicBase == "" {
		publicBase = client.EndpointURL().String() + "/" + bucket
	}
	return &S3Provider{
		client:     client,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

// Upload reads the staged file, shrinks it into the requested box and puts it under
// opts.Folder with a fresh name.
func (s *S3Provider) Upload(ctx context.Context, localPath string, opts UploadOptions) (*UploadResult, error) {
	if !formatAllowed(filepath.Ext(localPath), opts.AllowedFormats) {
		return nil, fmt.Errorf("format %q not allowed", filepath.Ext(localPath))
	}

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	data, contentType, err := limitImage(ctx, f, opts.ContentType, opts.Transformation)
	if err != nil {
		return nil, err
	}

	key := objectKey(opts.Folder, uuid.NewString()+extForContentType(contentType, filepath.Ext(localPath)))
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	})
	if err != nil {
		return nil, fmt.Errorf("put object %q: %w", key, err)
	}
	return &UploadResult{SecureURL: s.publicBase + "/" + key, PublicID: key}, nil
}

func objectKey(folder, name string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return path.Join(folder, name)
}

func extForContentType(contentType, fallback string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	case "image/gif":
		return ".gif"
	}
	return fallback
}

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous GET on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
