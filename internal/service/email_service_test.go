package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"tribeboard/internal/models"
)

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func testInvitation() *models.Invitation {
	return &models.Invitation{
		ID:        "inv-1",
		Token:     "abc123",
		FamilyID:  "fam-1",
		Email:     "sam@example.com",
		Role:      models.RoleKid,
		ExpiresAt: time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC),
	}
}

func TestSendFamilyInvitation(t *testing.T) {
	ses := &fakeSES{}
	svc := newEmailService(ses, "noreply@example.com", "TribeBoard", "https://tribe.example.com", zaptest.NewLogger(t))
	require.True(t, svc.IsEnabled())

	err := svc.SendFamilyInvitation(context.Background(), testInvitation(), "The <Mawsons>", "Alex")
	require.NoError(t, err)
	require.Len(t, ses.inputs, 1)

	input := ses.inputs[0]
	assert.Equal(t, "TribeBoard <noreply@example.com>", aws.ToString(input.FromEmailAddress))
	assert.Equal(t, []string{"sam@example.com"}, input.Destination.ToAddresses)

	msg := input.Content.Simple
	assert.Equal(t, "Alex invited you to join The <Mawsons> on TribeBoard", aws.ToString(msg.Subject.Data))

	link := "https://tribe.example.com/invitations/abc123"
	htmlBody := aws.ToString(msg.Body.Html.Data)
	assert.Contains(t, htmlBody, link)
	assert.Contains(t, htmlBody, "The &lt;Mawsons&gt;")
	assert.Contains(t, htmlBody, "<strong>Kid</strong>")
	assert.Contains(t, htmlBody, "March 14, 2026")

	textBody := aws.ToString(msg.Body.Text.Data)
	assert.Contains(t, textBody, link)
	assert.Contains(t, textBody, "as Kid")
}

func TestSendFamilyInvitationError(t *testing.T) {
	ses := &fakeSES{err: errors.New("throttled")}
	svc := newEmailService(ses, "noreply@example.com", "", "https://tribe.example.com", zaptest.NewLogger(t))

	err := svc.SendFamilyInvitation(context.Background(), testInvitation(), "The Mawsons", "Alex")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sam@example.com")
	assert.Equal(t, "noreply@example.com", aws.ToString(ses.inputs[0].FromEmailAddress))
}

func TestDisabledEmailService(t *testing.T) {
	svc, err := NewEmailService(context.Background(), "us-east-1", "", "TribeBoard", "https://tribe.example.com", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, svc.IsEnabled())
	assert.NoError(t, svc.SendFamilyInvitation(context.Background(), testInvitation(), "The Mawsons", "Alex"))
}

func TestInvitationLinkEscapesToken(t *testing.T) {
	svc := newEmailService(&fakeSES{}, "noreply@example.com", "", "https://tribe.example.com", zaptest.NewLogger(t))
	assert.Equal(t, "https://tribe.example.com/invitations/a%2Fb", svc.InvitationLink("a/b"))
}
