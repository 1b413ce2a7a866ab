package transport

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESConfig holds configuration for the AWS SES transport.
// When AccessKeyID is empty the default AWS credential chain is used
// (environment, shared config, instance role).
type SESConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// SES delivers messages through the AWS Simple Email Service v2 API.
type SES struct {
	client *sesv2.Client
}

// Ensure SES implements Transport.
var _ Transport = (*SES)(nil)

// NewSES creates an SES transport. The AWS configuration is resolved once
// at construction; ctx bounds credential and region discovery.
func NewSES(ctx context.Context, cfg SESConfig) (*SES, error) {
	var optFns []func(*config.LoadOptions) error
	if cfg.Region != "" {
		optFns = append(optFns, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
		optFns = append(optFns, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("transport: load aws config: %w", err)
	}
	return &SES{client: sesv2.NewFromConfig(awsCfg)}, nil
}

// Name returns the transport identifier.
func (s *SES) Name() string { return KindSES }

// Send delivers msg via the SES SendEmail API.
func (s *SES) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: sesContent(msg),
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("transport: ses send: %w", err)
	}
	return nil
}

// sesContent builds the SES message content for msg. The text part is set
// unconditionally, mirroring buildMail: SES rejects a Body with neither
// part, so a subject-only message must still carry an empty text body.
func sesContent(msg Message) *types.EmailContent {
	body := &types.Body{
		Text: &types.Content{Data: aws.String(msg.Text)},
	}
	if msg.HTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTML)}
	}
	return &types.EmailContent{
		Simple: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject)},
			Body:    body,
		},
	}
}
