// Package mailer sends transactional email through AWS SES.  It is used
// only by the worker; request handlers enqueue email jobs instead of
// sending inline.
package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/iliyamo/movie-store/internal/config"
)

// Mailer wraps an SES client with the application's sender identity and the
// public base URL used to build activation/reset links.
type Mailer struct {
	client     *ses.Client
	from       string
	backendURL string
}

// New builds a Mailer from application config.  When static AWS credentials
// are configured they are used directly; otherwise the default credential
// chain (env, shared config, instance role) applies.
func New(ctx context.Context, cfg config.Config) (*Mailer, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if cfg.EmailFrom == "" {
		return nil, fmt.Errorf("sender email address is not configured")
	}
	return &Mailer{
		client:     ses.NewFromConfig(awsCfg),
		from:       cfg.EmailFrom,
		backendURL: cfg.BackendURL,
	}, nil
}

// SendActivation mails the account activation link.  The link expires in
// 24 hours together with its token.
func (m *Mailer) SendActivation(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/v1/auth/activate?token=%s", m.backendURL, token)
	body := fmt.Sprintf(
		"Welcome! Click here to activate your account:\n\n%s\n\n(This link expires in 24h.)", link)
	return m.send(ctx, to, "Activate your account", body)
}

// SendPasswordReset mails the password reset link.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/v1/auth/reset-password?token=%s", m.backendURL, token)
	body := fmt.Sprintf(
		"You requested a password reset. Click here to choose a new password:\n\n%s\n\n(This link expires in 1 hour.)", link)
	return m.send(ctx, to, "Reset your password", body)
}

// SendOrderReceipt mails the payment confirmation for an order.  Receipts
// may be delivered more than once under at-least-once queue semantics.
func (m *Mailer) SendOrderReceipt(ctx context.Context, to string, orderID, totalCents uint64) error {
	subject := fmt.Sprintf("Order #%d confirmed", orderID)
	body := fmt.Sprintf(
		"Thank you for your purchase!\n\nOrder #%d has been paid.\nTotal: $%d.%02d\n\nEnjoy your movies.",
		orderID, totalCents/100, totalCents%100)
	return m.send(ctx, to, subject, body)
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("recipient email address is empty")
	}
	input := &ses.SendEmailInput{
		Source: aws.String(m.from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Charset: aws.String("UTF-8"),
				Data:    aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(body),
				},
			},
		},
	}
	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send to %s: %w", to, err)
	}
	return nil
}
