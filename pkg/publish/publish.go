// Package publish uploads packed archives to S3 compatible storage.
package publish

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"tmscraper/pkg/auth"
	"tmscraper/pkg/config"
	"tmscraper/pkg/errors"
	"tmscraper/pkg/logger"
)

// ArchiveContentType is sent with every upload
const ArchiveContentType = "application/zip"

// PutObjectAPI is the subset of the S3 client used for uploads
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Target is a parsed s3://bucket/prefix destination
type Target struct {
	Bucket string
	Prefix string
}

// ParseS3URL parses "s3://bucket" or "s3://bucket/some/prefix"
func ParseS3URL(raw string) (Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, errors.Wrap(errors.ErrorTypeValidation, err, "parse upload url")
	}
	if u.Scheme != "s3" || u.Host == "" {
		return Target{}, errors.Newf(errors.ErrorTypeValidation, "upload url %q must look like s3://bucket/prefix", raw)
	}
	return Target{Bucket: u.Host, Prefix: strings.TrimPrefix(u.Path, "/")}, nil
}

// Key returns the object key for a local file. A prefix ending in "/" or
// an empty prefix is treated as a folder; a prefix ending in the file's
// extension is used as the full key.
func (t Target) Key(localPath string) string {
	base := filepath.Base(localPath)
	switch {
	case t.Prefix == "":
		return base
	case strings.HasSuffix(t.Prefix, "/"):
		return t.Prefix + base
	case path.Ext(t.Prefix) != "" && path.Ext(t.Prefix) == filepath.Ext(base):
		return t.Prefix
	default:
		return t.Prefix + "/" + base
	}
}

func (t Target) String() string {
	return "s3://" + path.Join(t.Bucket, t.Prefix)
}

// Uploader puts archives into a bucket
type Uploader struct {
	client PutObjectAPI
	logger logger.Logger
}

// NewUploader wraps an existing S3 client
func NewUploader(client PutObjectAPI, log logger.Logger) *Uploader {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Uploader{client: client, logger: log.WithField("component", "publish")}
}

// NewUploaderFromConfig builds an S3 client from the default AWS chain,
// the publish settings and, when present, static keys from keys.
func NewUploaderFromConfig(ctx context.Context, cfg config.PublishConfig, keys auth.CredentialStore, log logger.Logger) (*Uploader, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if keys != nil {
		id, idErr := keys.Get(auth.S3AccessKeyID)
		secret, secretErr := keys.Get(auth.S3SecretKey)
		if idErr == nil && secretErr == nil {
			opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(id, secret, "")))
		}
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeAuth, err, "load AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewUploader(client, log), nil
}

// Upload sends localPath to target and returns the object key
func (u *Uploader) Upload(ctx context.Context, localPath string, target Target) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeIO, err, "open archive")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeIO, err, "stat archive")
	}

	key := target.Key(localPath)
	u.logger.InfoWithFields("Uploading archive", map[string]interface{}{
		"bucket": target.Bucket,
		"key":    key,
		"bytes":  info.Size(),
	})

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(target.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(ArchiveContentType),
	})
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeNetwork, err, fmt.Sprintf("upload to s3://%s/%s", target.Bucket, key))
	}
	return key, nil
}
