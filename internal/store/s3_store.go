package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Options 描述 S3 型本地存储的连接参数，兼容 MinIO 等自建服务。
type S3Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	PathStyle bool
}

// NewS3Store 构建基于 S3 兼容服务的本地存储。Bucket 必填。
func NewS3Store(opts S3Options) (Store, error) {
	if opts.Bucket == "" {
		return nil, errors.New("bucket required")
	}

	client := s3.New(newS3Session(opts.Region), s3ClientConfig(opts))
	return &s3Store{
		client:   client,
		uploader: s3manager.NewUploaderWithClient(client),
		bucket:   opts.Bucket,
	}, nil
}

type s3Store struct {
	client   s3iface.S3API
	uploader *s3manager.Uploader
	bucket   string
}

func (s *s3Store) Get(ctx context.Context, key string) (*Object, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}

	obj := &Object{
		Key:           key,
		Body:          out.Body,
		ContentType:   aws.StringValue(out.ContentType),
		ContentLength: -1,
		CacheControl:  aws.StringValue(out.CacheControl),
		ETag:          trimETag(aws.StringValue(out.ETag)),
		Metadata:      flattenMetadata(out.Metadata),
	}
	if out.ContentLength != nil {
		obj.ContentLength = *out.ContentLength
	}
	if out.LastModified != nil {
		obj.UploadedAt = out.LastModified.UTC()
	}
	return obj, nil
}

func (s *s3Store) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (*PutResult, error) {
	input := &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if opts.CacheControl != "" {
		input.CacheControl = aws.String(opts.CacheControl)
	}
	if len(opts.Metadata) > 0 {
		meta := make(map[string]*string, len(opts.Metadata))
		for k, v := range opts.Metadata {
			meta[k] = aws.String(v)
		}
		input.Metadata = meta
	}

	out, err := s.uploader.UploadWithContext(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("s3 put %s: %w", key, err)
	}
	return &PutResult{ETag: trimETag(aws.StringValue(out.ETag))}, nil
}

func (s *s3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

func newS3Session(region string) *session.Session {
	if region == "" {
		region = "us-east-1"
	}
	return session.Must(session.NewSession(&aws.Config{Region: aws.String(region)}))
}

func s3ClientConfig(opts S3Options) *aws.Config {
	cfg := &aws.Config{}
	if opts.Endpoint != "" {
		cfg.Endpoint = aws.String(opts.Endpoint)
	}
	if opts.Region != "" {
		cfg.Region = aws.String(opts.Region)
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(opts.AccessKey, opts.SecretKey, "")
	}
	if opts.PathStyle {
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	return cfg
}

func isNoSuchKey(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound", "NoSuchBucket":
			return true
		}
	}
	return false
}

func trimETag(value string) string {
	return strings.Trim(strings.TrimSpace(value), "\"")
}

func flattenMetadata(meta map[string]*string) map[string]string {
	if len(meta) == 0 {
		return nil
	}
	result := make(map[string]string, len(meta))
	for k, v := range meta {
		result[strings.ToLower(k)] = aws.StringValue(v)
	}
	return result
}
