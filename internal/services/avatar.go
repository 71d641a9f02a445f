package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vzalabardo/tomorrowmanyers/internal/apperrors"
	"github.com/vzalabardo/tomorrowmanyers/internal/config"
	"github.com/vzalabardo/tomorrowmanyers/internal/validation"
)

const uploadURLExpiry = 5 * time.Minute

// ErrAvatarNotConfigured is returned when no bucket is configured.
var ErrAvatarNotConfigured = apperrors.New(apperrors.ErrExternalService, "avatar uploads are not configured")

var avatarExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// AvatarUploadRequest represents a request for a pre-signed upload URL
type AvatarUploadRequest struct {
	ContentType string `json:"contentType" validate:"required,oneof=image/jpeg image/png image/webp"`
}

// AvatarUploadResponse represents the response with the pre-signed URL
type AvatarUploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	AvatarURL string `json:"avatarUrl"`
	ExpiresIn int    `json:"expiresIn"`
}

// Presigner signs S3 uploads. It is implemented by s3.PresignClient.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// AvatarService hands out pre-signed S3 URLs for avatar uploads
type AvatarService struct {
	presigner Presigner
	bucket    string
	baseURL   string
}

// NewAvatarService creates an avatar service from the AWS settings. An
// empty bucket yields a service whose uploads fail with
// ErrAvatarNotConfigured.
func NewAvatarService(ctx context.Context, cfg config.AWSConfig) (*AvatarService, error) {
	if cfg.S3Bucket == "" {
		return &AvatarService{}, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewAvatarServiceWithPresigner(s3.NewPresignClient(client), cfg.S3Bucket, publicBaseURL(cfg)), nil
}

// NewAvatarServiceWithPresigner creates an avatar service around an
// existing presigner. Avatar URLs are baseURL followed by the object key.
func NewAvatarServiceWithPresigner(presigner Presigner, bucket, baseURL string) *AvatarService {
	return &AvatarService{
		presigner: presigner,
		bucket:    bucket,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
	}
}

func publicBaseURL(cfg config.AWSConfig) string {
	switch {
	case cfg.PublicBaseURL != "":
		return cfg.PublicBaseURL
	case cfg.Endpoint != "":
		return strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.S3Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.Region)
	}
}

// GetUploadURL generates a pre-signed URL for uploading an avatar. The
// client stores the returned avatar URL through a profile update.
func (s *AvatarService) GetUploadURL(ctx context.Context, userID string, req AvatarUploadRequest) (*AvatarUploadResponse, error) {
	if s.presigner == nil {
		return nil, ErrAvatarNotConfigured
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	// S3 key: avatars/{user_id}/{uuid}.{ext}
	key := fmt.Sprintf("avatars/%s/%s.%s", userID, uuid.New().String(), avatarExtensions[req.ContentType])

	request, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(req.ContentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = uploadURLExpiry
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExternalService, "failed to generate upload URL", err)
	}

	log.Info().Str("user_id", userID).Str("key", key).Msg("Avatar upload URL issued")
	return &AvatarUploadResponse{
		UploadURL: request.URL,
		AvatarURL: s.baseURL + "/" + key,
		ExpiresIn: int(uploadURLExpiry.Seconds()),
	}, nil
}
