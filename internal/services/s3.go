package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	appconfig "marketplace/internal/config"
	"marketplace/internal/models"
	"marketplace/internal/utils/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Ensure S3Service implements Storage and MediaURLGenerator
var (
	_ Storage                  = (*S3Service)(nil)
	_ models.MediaURLGenerator = (*S3Service)(nil)
)

type S3Service struct {
	client     *s3.Client
	presign    *s3.PresignClient
	bucketName string
	logger     *logger.Logger
}

// NewS3Service connects to the bucket and probes it once. A custom endpoint
// switches to path-style addressing for S3-compatible stores.
func NewS3Service(ctx context.Context, cfg appconfig.S3Config) (*S3Service, error) {
	log := logger.New("s3_service")

	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, log.Error("S3 credentials are empty ❌", fmt.Errorf("S3_ACCESS_KEY or S3_SECRET_KEY is empty"))
	}
	if cfg.BucketName == "" {
		return nil, log.Error("S3 bucket is not configured ❌", fmt.Errorf("S3_BUCKET_NAME is empty"))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		config.WithRetryMode(aws.RetryModeStandard),
		config.WithRetryMaxAttempts(3),
	)
	if err != nil {
		return nil, log.Error("Unable to load SDK config ❌", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.BucketName)}); err != nil {
		return nil, log.Error("Failed to reach bucket %s ❌", err, cfg.BucketName)
	}

	log.Success("S3 bucket %s ready ✅", cfg.BucketName)

	return &S3Service{
		client:     client,
		presign:    s3.NewPresignClient(client),
		bucketName: cfg.BucketName,
		logger:     log,
	}, nil
}

// Upload stores data under key.
func (s *S3Service) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	s.logger.Info("📤 Uploading %s (%d bytes)", key, len(data))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return s.logger.Error("Failed to upload file to storage ❌", err)
	}
	return nil
}

func (s *S3Service) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return s.logger.Error("Failed to delete %s ❌", err, key)
	}
	return nil
}

// GetSignedURL presigns a GET for path.
func (s *S3Service) GetSignedURL(ctx context.Context, path string, duration time.Duration) (string, error) {
	presignedURL, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(duration))

	if err != nil {
		return "", s.logger.Error("Failed to generate pre-signed URL ❌", err)
	}

	return presignedURL.URL, nil
}
