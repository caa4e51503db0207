// internal/common/aws/sns.go
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type SNSClient struct {
	client   *sns.Client
	topicARN string
}

func NewSNSClient(ctx context.Context, region, topicARN string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SNSClient{client: sns.NewFromConfig(cfg), topicARN: topicARN}, nil
}

func (s *SNSClient) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	return s.client.Publish(ctx, input)
}

// Alert publishes an operational alert to the configured topic. A client
// without a topic ARN is a no-op so alerting can be switched off per
// environment.
func (s *SNSClient) Alert(ctx context.Context, subject, message string) error {
	if s == nil || s.topicARN == "" {
		return nil
	}
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: &s.topicARN,
		Subject:  &subject,
		Message:  &message,
	})
	if err != nil {
		return fmt.Errorf("sns publish failed: %w", err)
	}
	return nil
}
