package origin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/objhub/objhub/internal/store"
)

// Options 描述上游 S3 兼容服务的连接参数，全部来自配置。
type Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	PathStyle bool
	// Timeout 限制单次上游请求的总时长，0 表示不限制。
	Timeout time.Duration
}

// NewS3Fetcher 构建基于 aws-sdk-go 的上游读取器。Bucket 必填。
func NewS3Fetcher(opts Options) (Fetcher, error) {
	if opts.Bucket == "" {
		return nil, errors.New("origin bucket required")
	}

	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	cfg := &aws.Config{Region: aws.String(region)}
	if opts.Endpoint != "" {
		cfg.Endpoint = aws.String(opts.Endpoint)
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(opts.AccessKey, opts.SecretKey, "")
	}
	if opts.PathStyle {
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	sess := session.Must(session.NewSession())
	return &s3Fetcher{
		client: s3.New(sess, cfg),
		bucket: opts.Bucket,
	}, nil
}

type s3Fetcher struct {
	client s3iface.S3API
	bucket string
}

// Fetch 执行 GetObject 并把响应头翻译成与本地对象一致的元数据形状。
func (f *s3Fetcher) Fetch(ctx context.Context, key string) (*store.Object, error) {
	out, err := f.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isAbsent(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("origin fetch %s: %w", key, err)
	}

	obj := &store.Object{
		Key:           key,
		Body:          out.Body,
		ContentType:   aws.StringValue(out.ContentType),
		ContentLength: -1,
		CacheControl:  aws.StringValue(out.CacheControl),
		ETag:          strings.Trim(aws.StringValue(out.ETag), "\""),
		Metadata:      map[string]string{},
	}
	if out.ContentLength != nil {
		obj.ContentLength = *out.ContentLength
	}
	if out.LastModified != nil {
		obj.UploadedAt = out.LastModified.UTC()
	}
	for k, v := range out.Metadata {
		obj.Metadata[strings.ToLower(k)] = aws.StringValue(v)
	}
	return obj, nil
}

// isAbsent 仅把明确的 404/NoSuchKey 视为不存在，其余一律按失败处理。
func isAbsent(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	var rf awserr.RequestFailure
	if errors.As(err, &rf) && rf.StatusCode() == 404 {
		return true
	}
	return false
}
