package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/joho/godotenv"
	"github.com/polaris-rt/pathtracer/log"
)

// Maximum time for a single upload.
const UploadTimeout = 30 * time.Second

var logger = log.New("export")

// Object storage settings for publishing rendered frames.
type UploadConfig struct {
	AccessKey string
	SecretKey string
	Endpoint  string
	Region    string
	Bucket    string

	// Prepended to every object key.
	Prefix string
}

// Read upload settings from the environment. When envFile is not empty its
// contents are loaded first; variables already present in the environment
// take precedence.
func LoadUploadConfig(envFile string) UploadConfig {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			logger.Warningf("could not load %s: %v", envFile, err)
		}
	}

	return UploadConfig{
		AccessKey: os.Getenv("S3_ACCESS_KEY"),
		SecretKey: os.Getenv("S3_SECRET_KEY"),
		Endpoint:  os.Getenv("S3_ENDPOINT"),
		Region:    getEnv("S3_REGION", "us-east-1"),
		Bucket:    os.Getenv("S3_BUCKET"),
		Prefix:    os.Getenv("S3_PREFIX"),
	}
}

// Uploads encoded frames to an S3 compatible bucket.
type Uploader struct {
	client s3iface.S3API
	bucket string
	prefix string
}

// Create an uploader for the configured bucket.
func NewUploader(cfg UploadConfig) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, ErrUploadNotConfigured
	}

	awsCfg := &aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.Endpoint != ""),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("export: could not create S3 session: %w", err)
	}
	return NewUploaderWithClient(s3.New(sess), cfg.Bucket, cfg.Prefix), nil
}

// Create an uploader backed by an existing S3 client.
func NewUploaderWithClient(client s3iface.S3API, bucket, prefix string) *Uploader {
	return &Uploader{client: client, bucket: bucket, prefix: prefix}
}

// Encode img using the format implied by name and upload it. Returns the
// object key.
func (u *Uploader) Upload(ctx context.Context, name string, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, name); err != nil {
		return "", err
	}

	key := path.Join(u.prefix, name)
	ctx, cancel := context.WithTimeout(ctx, UploadTimeout)
	defer cancel()

	size := int64(buf.Len())
	_, err := u.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType(name)),
	})
	if err != nil {
		return "", fmt.Errorf("export: failed to upload %s: %w", key, err)
	}

	logger.Infof("uploaded %s to bucket %s (%d bytes)", key, u.bucket, size)
	return key, nil
}

func contentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	}
	return "image/png"
}

// Get an environment variable or fallback if it is not set.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
