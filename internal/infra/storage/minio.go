package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore keeps uploaded images in an S3-compatible bucket.
type MinioStore struct {
	client     *minio.Client
	bucketName string
	region     string
	// PresignTTL > 0 makes Put return an s3:// reference that Link presigns
	// on every read, instead of a plain object URL.
	PresignTTL time.Duration
}

// NewMinio connects and makes sure the bucket exists.
func NewMinio(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*MinioStore, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	return &MinioStore{client: cli, bucketName: bucket, region: region}, nil
}

// Put implements analysis.ImageStore.
func (s *MinioStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = DetectContentType(data)
	}
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	if s.PresignTTL > 0 {
		return s.ref(key), nil
	}
	// public URL (bucket must allow anonymous reads)
	return s.client.EndpointURL().JoinPath(s.bucketName, key).String(), nil
}

// Link implements analysis.ImageLinker. References to other buckets and
// plain URLs are returned unchanged.
func (s *MinioStore) Link(ctx context.Context, ref string) (string, error) {
	key, ok := strings.CutPrefix(ref, s.ref(""))
	if !ok || s.PresignTTL <= 0 {
		return ref, nil
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucketName, key, s.PresignTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

func (s *MinioStore) ref(key string) string {
	return "s3://" + s.bucketName + "/" + key
}
