package storage

import (
	"alcyxob/workout-playlist/internal/config"
	"alcyxob/workout-playlist/internal/domain"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsCfg "github.com/aws/aws-sdk-go-v2/config" // Alias config to avoid clash
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// objectAPI is the part of the S3 client the R2 backend needs.
type objectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// r2Backend serves clips stored in an S3-compatible bucket (Cloudflare R2).
type r2Backend struct {
	client        objectAPI
	presignClient *s3.PresignClient
	bucketName    string
	publicBaseURL string
	urlExpiry     time.Duration
}

// NewR2Backend creates the R2 storage backend through the S3 API.
func NewR2Backend(ctx context.Context, cfg config.R2Config) (Backend, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("r2 bucket name is required")
	}

	awsSDKConfig, err := awsCfg.LoadDefaultConfig(ctx,
		awsCfg.WithRegion(cfg.Region),
		awsCfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws sdk config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsSDKConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true // R2 and MinIO want path-style addressing
	})

	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = DefaultPresignedURLExpiry
	}

	return &r2Backend{
		client:        s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    cfg.BucketName,
		publicBaseURL: cfg.PublicBaseURL,
		urlExpiry:     expiry,
	}, nil
}

// Exists issues a HEAD for the object key.
func (s *r2Backend) Exists(ctx context.Context, ref domain.StorageRef) (bool, error) {
	if ref.Key == "" {
		return false, ErrEmptyReference
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(ref.Key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// PlaybackURL returns the public URL when the bucket is fronted by a public
// domain, otherwise a presigned GET.
func (s *r2Backend) PlaybackURL(ctx context.Context, ref domain.StorageRef) (string, error) {
	if ref.Key == "" {
		return "", ErrEmptyReference
	}
	if s.publicBaseURL != "" {
		return joinURL(s.publicBaseURL, ref.Key), nil
	}

	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(ref.Key),
	}, s3.WithPresignExpires(s.urlExpiry))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", ref.Key, err)
	}
	return req.URL, nil
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return true
	}
	return false
}
