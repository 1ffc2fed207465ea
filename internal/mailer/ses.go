package mailer

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"audit-backend/internal/shared/telemetry"
)

// SESMailer sends through Amazon SES v2.
type SESMailer struct {
	client *sesv2.Client
	from   string
}

// NewSES builds an SES mailer using the default AWS credential chain.
func NewSES(ctx context.Context, region, from string) (*SESMailer, error) {
	if from == "" {
		return nil, fmt.Errorf("mailer: sender address is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("mailer: load aws config: %w", err)
	}
	return &SESMailer{client: sesv2.NewFromConfig(cfg), from: from}, nil
}

// Send delivers msg and returns the SES message id.
func (m *SESMailer) Send(ctx context.Context, msg Message) (string, error) {
	started := time.Now()
	out, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &m.from,
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &msg.Subject},
				Body: &types.Body{
					Html: &types.Content{Data: &msg.HTML},
					Text: &types.Content{Data: &msg.Text},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("mailer: ses send: %w", err)
	}

	var messageID string
	if out.MessageId != nil {
		messageID = *out.MessageId
	}
	telemetry.Info("mailer.sent", map[string]any{
		"provider":   "ses",
		"messageId":  messageID,
		"durationMs": time.Since(started).Milliseconds(),
	})
	return messageID, nil
}
