package notify

import (
	"fmt"
	"log"

	"github.com/slack-go/slack"
)

// SlackNotifier posts assignment notices to Slack. Target is a per-doctor
// channel or user id; the configured channel is the fallback.
type SlackNotifier struct {
	api     *slack.Client
	channel string
}

func NewSlackNotifier(token, channel string) *SlackNotifier {
	return &SlackNotifier{
		api:     slack.New(token),
		channel: channel,
	}
}

func (s *SlackNotifier) Push(target, title, message string) {
	channel := target
	if channel == "" {
		channel = s.channel
	}
	if channel == "" {
		return
	}

	_, _, err := s.api.PostMessage(channel,
		slack.MsgOptionText(fmt.Sprintf("*%s*\n%s", title, message), false))
	if err != nil {
		log.Printf("slack send failed: %v", err)
	}
}
