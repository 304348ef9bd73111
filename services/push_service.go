package services

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/juju/errors"
)

// TopicPublisher delivers a notification to every subscriber of a topic.
type TopicPublisher interface {
	Publish(ctx context.Context, subject string, payload any, attrs map[string]string) error
}

// SNSPublisher publishes JSON messages to one SNS topic.
type SNSPublisher struct {
	sns      *awssns.Client
	topicArn string
}

func NewSNSPublisher(client *awssns.Client, topicArn string) *SNSPublisher {
	return &SNSPublisher{sns: client, topicArn: topicArn}
}

func (p *SNSPublisher) Publish(ctx context.Context, subject string, payload any, attrs map[string]string) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return errors.Annotate(err, "encoding topic message")
	}
	input := &awssns.PublishInput{
		TopicArn: aws.String(p.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(string(raw)),
	}
	if len(attrs) > 0 {
		input.MessageAttributes = make(map[string]snstypes.MessageAttributeValue, len(attrs))
		for k, v := range attrs {
			input.MessageAttributes[k] = snstypes.MessageAttributeValue{
				DataType:    aws.String("String"),
				StringValue: aws.String(v),
			}
		}
	}
	if _, err := p.sns.Publish(ctx, input); err != nil {
		return errors.Annotatef(err, "publishing to %s", p.topicArn)
	}
	return nil
}
