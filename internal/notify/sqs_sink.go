package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
)

// SQSOptions 描述事件队列的连接参数。Endpoint 留空时走 AWS 默认。
type SQSOptions struct {
	QueueURL  string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewSQSSink 构建把事件序列化为 JSON 并投递到 SQS 的 Sink。
func NewSQSSink(opts SQSOptions) (Sink, error) {
	if opts.QueueURL == "" {
		return nil, errors.New("queue url required")
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

	sess := session.Must(session.NewSession())
	return &sqsSink{
		client:   sqs.New(sess, cfg),
		queueURL: opts.QueueURL,
	}, nil
}

type sqsSink struct {
	client   sqsiface.SQSAPI
	queueURL string
}

func (s *sqsSink) Enqueue(ctx context.Context, event SyncEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode sync event: %w", err)
	}
	_, err = s.client.SendMessageWithContext(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(payload)),
	})
	if err != nil {
		return fmt.Errorf("enqueue sync event: %w", err)
	}
	return nil
}
