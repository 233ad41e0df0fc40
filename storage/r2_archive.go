// Package storage archives generation reports to Cloudflare R2.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"tournament-engine/config"
)

// Archiver stores one report under key.
type Archiver interface {
	Put(ctx context.Context, key string, body []byte) error
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type R2Archive struct {
	client objectPutter
	bucket string
	prefix string
}

// NewR2Archive builds an S3 client against the account's R2 endpoint.
func NewR2Archive(ctx context.Context, cfg config.R2Config) (*R2Archive, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
	})
	return newR2Archive(client, cfg.Bucket, cfg.Prefix), nil
}

func newR2Archive(client objectPutter, bucket, prefix string) *R2Archive {
	return &R2Archive{client: client, bucket: bucket, prefix: prefix}
}

func (a *R2Archive) Put(ctx context.Context, key string, body []byte) error {
	objectKey := key
	if a.prefix != "" {
		objectKey = a.prefix + "/" + key
	}
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to R2: %w", err)
	}
	return nil
}

// LogArchive is used when R2 is not configured; it only notes the key.
type LogArchive struct {
	Logger *slog.Logger
}

func (a LogArchive) Put(_ context.Context, key string, body []byte) error {
	a.Logger.Debug("report not archived, R2 disabled", "key", key, "bytes", len(body))
	return nil
}
