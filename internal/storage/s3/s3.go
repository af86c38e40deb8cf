// Package s3 uploads finished artifacts to S3-compatible object storage.
package s3

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"etlcore/internal/config"
)

// Location is a parsed s3://bucket/key URL.
type Location struct {
	Bucket string
	Key    string
}

// ParseURL splits an s3:// URL. Both bucket and key are required.
func ParseURL(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("s3: parse %q: %w", raw, err)
	}
	if u.Scheme != "s3" {
		return Location{}, fmt.Errorf("s3: %q is not an s3:// URL", raw)
	}
	loc := Location{Bucket: u.Host, Key: strings.TrimPrefix(u.Path, "/")}
	if loc.Bucket == "" || loc.Key == "" || strings.HasSuffix(loc.Key, "/") {
		return Location{}, fmt.Errorf("s3: %q needs a bucket and an object key", raw)
	}
	return loc, nil
}

// putAPI is the subset of manager.Uploader used here.
type putAPI interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Uploader copies local files to S3.
type Uploader struct {
	api putAPI
}

// NewUploader builds an uploader from cfg. Static credentials are used when
// both keys are set; otherwise the default AWS credential chain applies.
func NewUploader(ctx context.Context, cfg config.S3) (*Uploader, error) {
	opts := []func(*awsConfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsConfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &Uploader{api: manager.NewUploader(client)}, nil
}

// Upload copies the file at localPath to dest and returns the object URL.
func (u *Uploader) Upload(ctx context.Context, localPath, dest string) (string, error) {
	loc, err := ParseURL(dest)
	if err != nil {
		return "", err
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("s3: open %s: %w", localPath, err)
	}
	defer f.Close()

	if _, err := u.api.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
		Body:   f,
	}); err != nil {
		return "", fmt.Errorf("s3: upload s3://%s/%s: %w", loc.Bucket, loc.Key, err)
	}
	return "s3://" + loc.Bucket + "/" + loc.Key, nil
}
