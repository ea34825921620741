package slacknotifier

import (
	"context"

	"github.com/slack-go/slack"
)

type service struct {
	client *slack.Client
}

type NotifierService interface {
	SendMessage(ctx context.Context, channel, text string) error
	LookupUserByEmail(ctx context.Context, email string) string
}
