package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// snsAPI is the part of *sns.Client used here.
type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNS publishes events to an SNS topic. The event name travels as the
// "event" message attribute so subscribers can filter on it.
type SNS struct {
	client   snsAPI
	topicARN string
}

// NewSNS builds a publisher from an AWS config.
func NewSNS(cfg aws.Config, topicARN string) *SNS {
	return &SNS{client: sns.NewFromConfig(cfg), topicARN: topicARN}
}

func (s *SNS) Publish(ctx context.Context, event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event, err)
	}
	out, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Subject:  aws.String(event),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event": {
				DataType:    aws.String("String"),
				StringValue: aws.String(event),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish %s: %w", event, err)
	}
	log.Printf("[sns] published %s message_id=%s", event, aws.ToString(out.MessageId))
	return nil
}
