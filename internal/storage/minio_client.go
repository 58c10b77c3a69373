package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"microsocial/internal/config"
)

type Storage interface {
	UploadImage(ctx context.Context, userID, kind, fileName, contentType string, file io.Reader, size int64) (string, error)
	DeleteImage(ctx context.Context, imageURL string) error
}

type MinIOClient struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewMinIOClient(ctx context.Context, cfg config.MinIO) (*MinIOClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.BucketName, err)
	}
	if !exists {
		err = client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.BucketName, err)
		}
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)
	}

	return &MinIOClient{client: client, bucket: cfg.BucketName, publicURL: publicURL}, nil
}

func (m *MinIOClient) UploadImage(ctx context.Context, userID, kind, fileName, contentType string, file io.Reader, size int64) (string, error) {
	now := time.Now()
	objectName := objectKey(userID, kind, fileName, contentType, now)

	_, err := m.client.PutObject(ctx, m.bucket, objectName, file, size,
		minio.PutObjectOptions{
			ContentType: contentType,
			UserMetadata: map[string]string{
				"original-filename": fileName,
				"user-id":           userID,
				"uploaded-at":       now.Format(time.RFC3339),
			},
		})
	if err != nil {
		return "", fmt.Errorf("failed to upload to MinIO: %w", err)
	}

	return objectURL(m.publicURL, m.bucket, objectName), nil
}

// DeleteImage removes an object previously returned by UploadImage. URLs that
// point elsewhere are ignored.
func (m *MinIOClient) DeleteImage(ctx context.Context, imageURL string) error {
	objectName, ok := objectFromURL(m.publicURL, m.bucket, imageURL)
	if !ok {
		return nil
	}

	err := m.client.RemoveObject(ctx, m.bucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete from MinIO: %w", err)
	}
	return nil
}

func objectKey(userID, kind, fileName, contentType string, now time.Time) string {
	fileExt := strings.ToLower(filepath.Ext(fileName))
	if fileExt == "" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			fileExt = exts[0]
		}
	}

	return fmt.Sprintf("users/%s/%s/%d/%02d/%s%s",
		userID, kind, now.Year(), now.Month(), uuid.New().String(), fileExt)
}

func objectURL(publicURL, bucket, objectName string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(publicURL, "/"), bucket, objectName)
}

func objectFromURL(publicURL, bucket, imageURL string) (string, bool) {
	prefix := fmt.Sprintf("%s/%s/", strings.TrimRight(publicURL, "/"), bucket)
	if !strings.HasPrefix(imageURL, prefix) {
		return "", false
	}
	return strings.TrimPrefix(imageURL, prefix), true
}
