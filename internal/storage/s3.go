package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // empty for AWS, set for MinIO and friends
	AccessKey string
	SecretKey string
	PublicURL string // prefix joined with the object key in returned URLs
}

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Store struct {
	client    objectAPI
	bucket    string
	publicURL string
}

const s3KeyPrefix = "covers/"

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Store(client, cfg), nil
}

func newS3Store(client objectAPI, cfg S3Config) *S3Store {
	public := strings.TrimRight(cfg.PublicURL, "/")
	if public == "" {
		if cfg.Endpoint != "" {
			public = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			public = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return &S3Store{client: client, bucket: cfg.Bucket, publicURL: public}
}

func (s *S3Store) Save(ctx context.Context, originalName string, data []byte) (string, error) {
	contentType, ext, err := Detect(originalName, data)
	if err != nil {
		return "", err
	}

	key := s3KeyPrefix + objectName(ext)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return s.publicURL + "/" + key, nil
}

// Delete removes an object by the URL Save returned. S3 reports success for
// missing keys.
func (s *S3Store) Delete(ctx context.Context, location string) error {
	key, ok := strings.CutPrefix(location, s.publicURL+"/")
	if !ok || !strings.HasPrefix(key, s3KeyPrefix) {
		return ErrForeignLocation
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
