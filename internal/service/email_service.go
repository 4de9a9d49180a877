package service

import (
	"context"
	"fmt"
	"html"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"tribeboard/internal/models"
)

// sesAPI is the part of the SES client the email service uses
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// InvitationSender delivers family invitations
type InvitationSender interface {
	SendFamilyInvitation(ctx context.Context, inv *models.Invitation, familyName, inviterName string) error
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     sesAPI
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	logger     *zap.Logger
}

// NewEmailService creates a new email service. An empty fromEmail disables sending.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, logger *zap.Logger) (*EmailService, error) {
	logger = logger.Named("email")
	if fromEmail == "" {
		logger.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{logger: logger}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("email service enabled", zap.String("from", fromEmail), zap.String("region", awsRegion))
	return newEmailService(sesv2.NewFromConfig(cfg), fromEmail, fromName, appBaseURL, logger), nil
}

func newEmailService(client sesAPI, fromEmail, fromName, appBaseURL string, logger *zap.Logger) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		logger:     logger,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// InvitationLink builds the link a recipient follows to accept an invitation
func (s *EmailService) InvitationLink(token string) string {
	return fmt.Sprintf("%s/invitations/%s", s.appBaseURL, url.PathEscape(token))
}

// SendFamilyInvitation emails an invitation link to the invitee
func (s *EmailService) SendFamilyInvitation(ctx context.Context, inv *models.Invitation, familyName, inviterName string) error {
	if !s.enabled {
		s.logger.Info("skipping email send (service disabled)", zap.String("kind", "invitation"), zap.String("to", inv.Email))
		return nil
	}

	link := s.InvitationLink(inv.Token)
	subject := fmt.Sprintf("%s invited you to join %s on TribeBoard", inviterName, familyName)
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #3a7d44; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #3a7d44; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Join %s</h1>
		</div>
		<div class="content">
			<p>%s invited you to join their family board as <strong>%s</strong>.</p>
			<p style="text-align: center;">
				<a href="%s" class="button">Accept Invitation</a>
			</p>
			<p>Or copy and paste this link into your browser:</p>
			<p style="word-break: break-all; font-size: 12px; color: #666;">%s</p>
			<p><strong>This invitation expires on %s.</strong></p>
		</div>
		<div class="footer">
			<p>This is an automated email from TribeBoard. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, html.EscapeString(familyName), html.EscapeString(inviterName), inv.Role.DisplayName(), link, link,
		inv.ExpiresAt.Format("January 2, 2006"))

	textBody := fmt.Sprintf(`%s invited you to join %s on TribeBoard as %s.

Accept the invitation:
%s

This invitation expires on %s.
---
This is an automated email from TribeBoard. Please do not reply.
`, inviterName, familyName, inv.Role.DisplayName(), link, inv.ExpiresAt.Format("January 2, 2006"))

	return s.sendEmail(ctx, inv.Email, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	fields := []zap.Field{zap.String("to", toEmail), zap.String("subject", subject)}
	if result != nil && result.MessageId != nil {
		fields = append(fields, zap.String("message_id", *result.MessageId))
	}
	s.logger.Info("email sent", fields...)
	return nil
}
