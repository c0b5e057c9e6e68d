package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/moroshma/MiniToolStream/AssetGateway/internal/domain/entity"
	"github.com/moroshma/MiniToolStream/AssetGateway/internal/domain/repository"
)

type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

type Storage struct {
	client       *s3.Client
	presign      *s3.PresignClient
	endpoint     string
	usePathStyle bool
}

func NewStorage(ctx context.Context, cfg Config) (*Storage, error) {
	if strings.TrimSpace(cfg.AccessKeyID) == "" || strings.TrimSpace(cfg.SecretAccessKey) == "" {
		return nil, fmt.Errorf("%w: s3 access key id and secret are required", entity.ErrConfig)
	}
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", cfg.Region)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(options *s3.Options) {
		options.BaseEndpoint = aws.String(cfg.Endpoint)
		options.UsePathStyle = cfg.UsePathStyle
	})

	return &Storage{
		client:       client,
		presign:      s3.NewPresignClient(client),
		endpoint:     strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		usePathStyle: cfg.UsePathStyle,
	}, nil
}

func (s *Storage) Upload(ctx context.Context, bucket, path string, data []byte, opts repository.UploadOptions) error {
	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(path),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object failed: %w", mapError(err))
	}
	return nil
}

func (s *Storage) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return nil, fmt.Errorf("get object failed: %w", mapError(err))
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("read object failed: %w", err)
	}
	return data, nil
}

func (s *Storage) CreateSignedURL(ctx context.Context, bucket, path string, expiresIn time.Duration) (string, error) {
	request, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", fmt.Errorf("presign failed: %w", err)
	}

	return request.URL, nil
}

func (s *Storage) ObjectURL(bucket, path string) string {
	escapedKey := url.PathEscape(path)
	escapedKey = strings.ReplaceAll(escapedKey, "%2F", "/")
	if s.usePathStyle {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, bucket, escapedKey)
	}
	return fmt.Sprintf("https://%s.%s/%s", bucket, s.host(), escapedKey)
}

func (s *Storage) ParseObjectURL(rawURL string) (string, string, error) {
	if s.usePathStyle {
		return entity.SplitObjectURL(rawURL, s.endpoint)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", entity.ErrInvalidObjectURL, err)
	}
	suffix := "." + s.host()
	if u.Scheme != "https" || !strings.HasSuffix(u.Host, suffix) {
		return "", "", fmt.Errorf("%w: host must end with %q", entity.ErrInvalidObjectURL, suffix)
	}

	bucket := strings.TrimSuffix(u.Host, suffix)
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: bucket or object path is missing", entity.ErrInvalidObjectURL)
	}
	return bucket, key, nil
}

func (s *Storage) host() string {
	endpoint := strings.TrimPrefix(s.endpoint, "https://")
	return strings.TrimPrefix(endpoint, "http://")
}

func mapError(err error) error {
	var noKey *types.NoSuchKey
	var noBucket *types.NoSuchBucket
	if errors.As(err, &noKey) || errors.As(err, &noBucket) {
		return fmt.Errorf("%w: %w", entity.ErrNotFound, err)
	}
	return err
}
