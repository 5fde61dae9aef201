// Package s3 is the aws-sdk-go-v2 object backend. It talks to AWS or any
// S3-compatible endpoint with path-style addressing.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"file-manager-api/config"
	"file-manager-api/internal/application/ports"
)

type Client struct {
	logger  *zap.Logger
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

func New(
	ctx context.Context,
	logger *zap.Logger,
	cfg config.S3,
) (*Client, error) {
	opts := []func(*awsCfg.LoadOptions) error{awsCfg.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsCfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	sdkCfg, err := awsCfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL())
		}
		o.UsePathStyle = true
	})

	c := &Client{
		logger:  logger,
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
	}

	if cfg.CreateBucket {
		if err = c.ensureBucket(ctx); err != nil {
			return nil, err
		}
	}

	logger.Info("s3 backend initialized", zap.String("endpoint", cfg.Endpoint), zap.String("bucket", cfg.Bucket))

	return c, nil
}

func (c *Client) ensureBucket(ctx context.Context) error {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err == nil {
		return nil
	}
	if !errors.Is(mapErr(err), ports.ErrObjectNotFound) && !errors.Is(mapErr(err), ports.ErrBucketNotFound) {
		return fmt.Errorf("head bucket %s: %w", c.bucket, err)
	}
	if _, err = c.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		return fmt.Errorf("create bucket %s: %w", c.bucket, err)
	}
	c.logger.Info("s3 bucket created", zap.String("bucket", c.bucket))

	return nil
}

func (c *Client) Bucket() string { return c.bucket }

func (c *Client) PutObject(
	ctx context.Context,
	key string,
	data []byte,
	contentType string,
	metadata map[string]string,
) error {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		Metadata:      metadata,
	})

	return mapErr(err)
}

func (c *Client) GetObject(ctx context.Context, key string) ([]byte, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapErr(err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

func (c *Client) DeleteObject(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})

	return mapErr(err)
}

func (c *Client) StatObject(ctx context.Context, key string) error {
	_, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})

	return mapErr(err)
}

func (c *Client) PresignGetObject(ctx context.Context, key string, expires time.Duration) (string, error) {
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", mapErr(err)
	}

	return req.URL, nil
}

// mapErr translates S3 API error codes to the port sentinels, keeping the
// original error in the chain.
func mapErr(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket":
			return fmt.Errorf("%w: %w", ports.ErrBucketNotFound, err)
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %w", ports.ErrObjectNotFound, err)
		}
	}

	return err
}
