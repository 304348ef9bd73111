package utils

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/juju/errors"
)

// Mailer sends plain-text mail.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SESMailer sends through Amazon SES from a verified source address.
type SESMailer struct {
	client *ses.Client
	source string
}

func NewSESMailer(client *ses.Client, source string) *SESMailer {
	return &SESMailer{client: client, source: source}
}

func (m *SESMailer) Send(ctx context.Context, to, subject, body string) error {
	input := &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(body),
				},
			},
		},
		Source: aws.String(m.source),
	}

	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return errors.Annotate(err, "sending email")
	}
	return nil
}

// WelcomeMail is sent after registration.
func WelcomeMail(email string) (subject, body string) {
	return "Welcome to MENO",
		"Your account " + email + " has been created.\n\nSign in to choose your school meals and record allergies."
}
