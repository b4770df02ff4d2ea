package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"zone/internal/pkg/logx"
)

// S3 stores each record as a JSON object in an S3-compatible bucket.
type S3 struct {
	bucket   string
	prefix   string
	client   *s3.Client
	uploader *manager.Uploader
}

// OpenS3 builds a client for an S3-compatible endpoint with static credentials.
func OpenS3(ctx context.Context, cfg Config) (*S3, error) {
	if cfg.S3BucketName == "" {
		return nil, errors.New("s3 bucket name is required")
	}

	sdkCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		logx.Error(err, "Failed to load AWS SDK config")
		return nil, errors.New("failed to initialize S3 client configuration")
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = true
	})

	return &S3{
		bucket:   cfg.S3BucketName,
		prefix:   cfg.S3Prefix,
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

func (c *S3) objectKey(key string) string {
	return path.Join(c.prefix, key+".json")
}

func (c *S3) Load(ctx context.Context, key string) ([]byte, error) {
	objectKey := c.objectKey(key)
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &c.bucket,
		Key:    &objectKey,
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		logx.Error(err, "S3 get failed", "key", objectKey)
		return nil, fmt.Errorf("failed to fetch %s from S3: %w", objectKey, err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

func (c *S3) Save(ctx context.Context, key string, data []byte) error {
	objectKey := c.objectKey(key)
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      &c.bucket,
		Key:         &objectKey,
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		logx.Error(err, "S3 upload failed", "key", objectKey)
		return fmt.Errorf("failed to upload %s to S3: %w", objectKey, err)
	}
	return nil
}

func (c *S3) Close() error { return nil }
