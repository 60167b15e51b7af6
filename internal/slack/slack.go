// Package slack posts board events to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bikinibottom/spongeplay/internal/board"
)

// maxQuoteRunes keeps long comments from flooding the channel.
const maxQuoteRunes = 280

// Client sends board events via an incoming webhook.
type Client struct {
	webhookURL string
	baseURL    string
	http       *http.Client
}

// New creates a Slack webhook client. baseURL, when set, is linked from messages.
func New(webhookURL, baseURL string) *Client {
	return &Client{
		webhookURL: webhookURL,
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

type block struct {
	Type     string `json:"type"`
	Text     *text  `json:"text,omitempty"`
	Elements []text `json:"elements,omitempty"`
}

type text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type payload struct {
	Text   string  `json:"text"`
	Blocks []block `json:"blocks"`
}

// Notify implements board.Notifier. Events without a message are skipped.
func (c *Client) Notify(ctx context.Context, event board.Event) error {
	p, ok := c.format(event)
	if !ok {
		return nil
	}
	return c.postMessage(ctx, p)
}

func (c *Client) format(event board.Event) (payload, bool) {
	str := func(key string) string {
		s, _ := event.Data[key].(string)
		return s
	}

	var header, body string
	switch event.Name {
	case board.EventCommentCreated:
		header = ":speech_balloon: *New comment on the board*"
		body = fmt.Sprintf("*%s* said:\n> %s", escape(str("username")), escape(truncate(str("content"), maxQuoteRunes)))
	case board.EventCommentDeleted:
		header = ":wastebasket: *Comment removed*"
		body = fmt.Sprintf("A comment by *%s* was deleted by an admin.", escape(str("username")))
	case board.EventAnnouncementCreated:
		header = ":loudspeaker: *New announcement*"
		body = fmt.Sprintf("*%s*\nposted by %s", escape(str("title")), escape(str("author")))
	case board.EventAnnouncementDeleted:
		header = ":wastebasket: *Announcement removed*"
		body = fmt.Sprintf("*%s* was deleted.", escape(str("title")))
	default:
		return payload{}, false
	}

	if c.baseURL != "" {
		header += fmt.Sprintf("\n<%s|Open Spongeplay>", c.baseURL)
	}

	return payload{
		Text: header,
		Blocks: []block{
			{Type: "section", Text: &text{Type: "mrkdwn", Text: header}},
			{Type: "section", Text: &text{Type: "mrkdwn", Text: body}},
			{Type: "context", Elements: []text{{Type: "mrkdwn", Text: event.Timestamp.Format(time.RFC1123)}}},
		},
	}, true
}

func (c *Client) postMessage(ctx context.Context, p payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send slack message: %w", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}

// escape applies Slack's mrkdwn entity escaping to user text.
func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
