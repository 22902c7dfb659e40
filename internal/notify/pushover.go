package notify

import (
	"log"
	"net/url"
)

const pushoverEndpoint = "https://api.pushover.net/1/messages.json"

// PushoverClient sends push notifications through the Pushover API.
// Target is the recipient's user key; doctors without one are skipped.
type PushoverClient struct {
	Token string
}

func NewPushoverClient(token string) *PushoverClient {
	return &PushoverClient{Token: token}
}

func (c *PushoverClient) Push(target, title, message string) {
	if target == "" {
		return
	}
	if c.Token == "" {
		log.Println("pushover token not configured, skipping notification")
		return
	}

	resp, err := externalHTTPClient.PostForm(pushoverEndpoint, url.Values{
		"token":   {c.Token},
		"user":    {target},
		"title":   {title},
		"message": {message},
	})
	if err != nil {
		log.Printf("pushover send failed: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		log.Printf("pushover error: status %d", resp.StatusCode)
	}
}
