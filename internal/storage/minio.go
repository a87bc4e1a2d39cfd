package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// ImageStorage stores report photos in a MinIO bucket with public-read
// access; reports only ever keep the resulting URL.
type ImageStorage struct {
	client         *minio.Client
	bucketName     string
	publicEndpoint string
}

// NewImageStorage creates a MinIO client and ensures the bucket exists.
func NewImageStorage(endpoint, publicEndpoint, accessKey, secretKey, bucketName string, useSSL bool) (*ImageStorage, error) {
	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	if publicEndpoint == "" {
		publicEndpoint = endpoint
	}
	publicEndpoint = strings.TrimSuffix(strings.TrimSpace(publicEndpoint), "/")

	storage := &ImageStorage{
		client:         minioClient,
		bucketName:     bucketName,
		publicEndpoint: publicEndpoint,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := minioClient.BucketExists(ctx, bucketName)
	if err != nil {
		log.Warn().Err(err).Msgf("Failed to check bucket existence for %s (will continue)", bucketName)
	} else if !exists {
		if err := minioClient.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			log.Error().Err(err).Msgf("Failed to create bucket %s", bucketName)
		} else {
			policy := fmt.Sprintf(`{"Version": "2012-10-17","Statement": [{"Action": ["s3:GetObject"],"Effect": "Allow","Principal": {"AWS": ["*"]},"Resource": ["arn:aws:s3:::%s/*"],"Sid": ""}]}`, bucketName)
			if err := minioClient.SetBucketPolicy(ctx, bucketName, policy); err != nil {
				log.Error().Err(err).Msg("Failed to set bucket policy")
			}
		}
	}

	log.Info().
		Str("endpoint", endpoint).
		Str("bucket", bucketName).
		Msg("Image storage initialized")

	return storage, nil
}

// Upload stores a report photo and returns its public URL.
func (s *ImageStorage) Upload(ctx context.Context, reader io.Reader, filename, contentType string, size int64) (string, error) {
	ext := filepath.Ext(filename)
	objectKey := fmt.Sprintf("reports/%s/%s%s", time.Now().Format("2006-01-02"), uuid.New().String(), ext)

	_, err := s.client.PutObject(ctx, s.bucketName, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	publicURL := s.publicURL(objectKey)

	log.Info().
		Str("filename", filename).
		Str("key", objectKey).
		Msg("Report image uploaded")

	return publicURL, nil
}

// Delete removes the photo behind a previously returned URL. Unknown URLs
// are ignored so report deletion never fails on image cleanup.
func (s *ImageStorage) Delete(ctx context.Context, imageURL string) error {
	objectKey := s.keyFromURL(imageURL)
	if objectKey == "" {
		return nil
	}

	if err := s.client.RemoveObject(ctx, s.bucketName, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	log.Info().Str("key", objectKey).Msg("Report image deleted")
	return nil
}

func (s *ImageStorage) publicURL(objectKey string) string {
	if strings.Contains(s.publicEndpoint, "://") {
		return fmt.Sprintf("%s/%s/%s", s.publicEndpoint, s.bucketName, objectKey)
	}
	return fmt.Sprintf("https://%s/%s/%s", s.publicEndpoint, s.bucketName, objectKey)
}

func (s *ImageStorage) keyFromURL(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return ""
	}

	path := strings.TrimPrefix(u.Path, "/")
	prefix := s.bucketName + "/"
	if strings.HasPrefix(path, prefix) {
		return strings.TrimPrefix(path, prefix)
	}
	return ""
}

// HealthCheck verifies the MinIO connection.
func (s *ImageStorage) HealthCheck(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("minio health check failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", s.bucketName)
	}
	return nil
}
