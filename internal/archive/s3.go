package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ThiagoRGoveia/apt-trades/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config targets AWS S3 or an S3-compatible endpoint such as MinIO.
// Credentials come from the default AWS chain.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
}

type S3Archiver struct {
	client *s3.Client
	bucket string
}

func NewS3Archiver(ctx context.Context, cfg S3Config, optFns ...func(*config.LoadOptions) error) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "ap-northeast-2"
	}

	loadOpts := append([]func(*config.LoadOptions) error{config.WithRegion(region)}, optFns...)
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3Archiver{client: client, bucket: cfg.Bucket}, nil
}

func (a *S3Archiver) Put(ctx context.Context, unit models.Unit, body []byte) error {
	key := Key(unit)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/xml"),
		Metadata: map[string]string{
			"region": unit.Region.Code,
			"period": unit.Period.String(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put s3://%s/%s: %w", a.bucket, key, err)
	}
	return nil
}
