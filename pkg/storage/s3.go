package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// MaxImageSize is the maximum allowed size of one product image (10MB).
	MaxImageSize = 10 * 1024 * 1024
	// MaxImagesPerRequest caps images uploaded in one product request.
	MaxImagesPerRequest = 5
	// FolderProducts is the S3 prefix for product images.
	FolderProducts = "products"
)

// AllowedImageTypes maps accepted MIME types to the extension stored in S3.
var AllowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

var allowedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// S3Config holds S3 client configuration.
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	ProductsBucket  string
}

// S3 stores product images in a public-read bucket.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates an S3 client using credentials from config or the environment.
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	accessKey := cfg.AccessKeyID
	secretKey := cfg.SecretAccessKey
	if accessKey == "" || secretKey == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey, secretKey, "",
		)))
		logger.Info("S3 client using static credentials", zap.String("region", cfg.Region), zap.String("bucket", cfg.ProductsBucket))
	} else {
		logger.Warn("S3 client using default credential chain")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	client := s3.NewFromConfig(awsCfg)
	return &S3{
		client:   client,
		uploader: manager.NewUploader(client),
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// ValidateImageType reports whether the content type or file extension is an accepted image.
func ValidateImageType(contentType, filename string) bool {
	if _, ok := AllowedImageTypes[strings.ToLower(contentType)]; ok {
		return true
	}
	_, ok := allowedImageExtensions[strings.ToLower(path.Ext(filename))]
	return ok
}

// ContentTypeFor picks the stored content type for an upload.
func ContentTypeFor(contentType, filename string) string {
	if _, ok := AllowedImageTypes[strings.ToLower(contentType)]; ok {
		return strings.ToLower(contentType)
	}
	if ct, ok := allowedImageExtensions[strings.ToLower(path.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ProductImageKey returns a fresh object key: products/{uuid}{ext}.
func ProductImageKey(contentType string) string {
	ext := AllowedImageTypes[contentType]
	return path.Join(FolderProducts, uuid.New().String()+ext)
}

// PublicObjectURL returns the public URL of a key in the products bucket.
func (s *S3) PublicObjectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.ProductsBucket, s.cfg.Region, key)
}

// KeyFromURL extracts the object key from a URL built by PublicObjectURL.
func KeyFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrap(err, "parse object url")
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" || u.Host == "" {
		return "", errors.Errorf("not an object url: %q", rawURL)
	}
	return key, nil
}

// UploadImage streams a product image to the bucket with public-read ACL and
// returns its stable URL.
func (s *S3) UploadImage(ctx context.Context, contentType string, body io.Reader, size int64) (string, error) {
	key := ProductImageKey(contentType)
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.ProductsBucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", errors.Wrapf(err, "upload %s", key)
	}
	s.logger.Debug("image uploaded", zap.String("key", key))
	return s.PublicObjectURL(key), nil
}

// DeleteByURL removes the object a public URL points at.
func (s *S3) DeleteByURL(ctx context.Context, rawURL string) error {
	key, err := KeyFromURL(rawURL)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.ProductsBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.Wrapf(err, "delete object %s", key)
	}
	return nil
}
