// Package minio is the minio-go object backend.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"file-manager-api/config"
	"file-manager-api/internal/application/ports"
)

type Client struct {
	logger *zap.Logger
	client *minio.Client
	bucket string
}

func New(ctx context.Context, logger *zap.Logger, cfg config.S3) (*Client, error) {
	client, err := minio.New(cfg.MinioEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	c := &Client{logger: logger, client: client, bucket: cfg.Bucket}

	if cfg.CreateBucket {
		exists, err := client.BucketExists(ctx, cfg.Bucket)
		if err != nil {
			return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
		}
		if !exists {
			if err = client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
				return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
			}
			logger.Info("minio bucket created", zap.String("bucket", cfg.Bucket))
		}
	}

	logger.Info("minio backend initialized", zap.String("endpoint", cfg.Endpoint), zap.String("bucket", cfg.Bucket))

	return c, nil
}

func (c *Client) Bucket() string { return c.bucket }

func (c *Client) PutObject(
	ctx context.Context,
	key string,
	data []byte,
	contentType string,
	metadata map[string]string,
) error {
	_, err := c.client.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
	})

	return mapErr(err)
}

func (c *Client) GetObject(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapErr(err)
	}
	defer obj.Close()

	b, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapErr(err)
	}

	return b, nil
}

func (c *Client) DeleteObject(ctx context.Context, key string) error {
	return mapErr(c.client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}))
}

func (c *Client) StatObject(ctx context.Context, key string) error {
	_, err := c.client.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	return mapErr(err)
}

func (c *Client) PresignGetObject(ctx context.Context, key string, expires time.Duration) (string, error) {
	u, err := c.client.PresignedGetObject(ctx, c.bucket, key, expires, nil)
	if err != nil {
		return "", mapErr(err)
	}

	return u.String(), nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}

	switch minio.ToErrorResponse(err).Code {
	case "NoSuchBucket":
		return fmt.Errorf("%w: %w", ports.ErrBucketNotFound, err)
	case "NoSuchKey", "NotFound":
		return fmt.Errorf("%w: %w", ports.ErrObjectNotFound, err)
	}

	return err
}
