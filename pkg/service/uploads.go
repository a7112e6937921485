package service

import (
	"context"
	"fmt"
	"path"
	"time"

	"shopfront/pkg/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const uploadURLLifetime = 15 * time.Minute

// UploadService hands out presigned S3 PUT URLs so file bytes never pass
// through this service. The returned object key is what creators store as a
// locked link's file_url or a product image.
type UploadService struct {
	presignClient *s3.PresignClient
	bucket        string
	logger        *logging.Logger
}

func NewUploadService(client *s3.Client, bucket string, logger *logging.Logger) *UploadService {
	return &UploadService{
		presignClient: s3.NewPresignClient(client),
		bucket:        bucket,
		logger:        logger,
	}
}

type UploadTicket struct {
	UploadURL string `json:"upload_url"`
	FileURL   string `json:"file_url"`
}

// PresignUpload returns a short-lived PUT URL for a fresh object key under
// the owner's prefix. The original filename contributes only its extension.
func (s *UploadService) PresignUpload(ctx context.Context, ownerID uuid.UUID, filename string) (*UploadTicket, error) {
	if ownerID == uuid.Nil {
		return nil, ErrAccessDenied
	}

	key := fmt.Sprintf("uploads/%s/%s%s", ownerID, uuid.New(), path.Ext(filename))

	req, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(uploadURLLifetime))
	if err != nil {
		s.logger.Error(ctx, "presign upload failed", "error", err)
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	return &UploadTicket{UploadURL: req.URL, FileURL: key}, nil
}

// PresignDownload returns a short-lived GET URL for a stored object key.
// The bucket is private, so this is the only way file bytes reach visitors.
func (s *UploadService) PresignDownload(ctx context.Context, key string) (string, error) {
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(uploadURLLifetime))
	if err != nil {
		s.logger.Error(ctx, "presign download failed", "error", err)
		return "", fmt.Errorf("presign download: %w", err)
	}
	return req.URL, nil
}
