package slacknotifier

import (
	"context"
	"fmt"

	"github.com/elC0mpa/aws-reaper/logger"
	"github.com/slack-go/slack"
)

func NewService(botToken string) *service {
	return &service{
		client: slack.New(botToken),
	}
}

func (s *service) SendMessage(ctx context.Context, channel, text string) error {
	_, _, err := s.client.PostMessageContext(ctx, channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		return fmt.Errorf("failed to post message to %s: %w", channel, err)
	}
	return nil
}

// LookupUserByEmail resolves a contact email to a Slack mention so the owner
// gets pinged in channel. Falls back to the raw email when the user cannot be
// found, since an unresolvable contact should not block the notification.
func (s *service) LookupUserByEmail(ctx context.Context, email string) string {
	if email == "" {
		return email
	}

	user, err := s.client.GetUserByEmailContext(ctx, email)
	if err != nil {
		logger.GetLogger().Debug("slack user lookup failed", "email", email, "error", err)
		return email
	}
	return fmt.Sprintf("<@%s>", user.ID)
}
