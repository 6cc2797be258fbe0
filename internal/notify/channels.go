// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"studiosite/internal/config"
)

// newHTTPClient returns the client shared by the channel constructors.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// post sends body to url and treats any non-2xx status as a failure.
func post(ctx context.Context, client *http.Client, url, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}

// EmailRelay posts a multipart form (email, subject, message) to a
// form-to-email relay endpoint.
type EmailRelay struct {
	url       string
	recipient string
	client    *http.Client
}

// NewEmailRelay creates the email channel, or returns nil when the relay
// URL or recipient is unset or a placeholder.
func NewEmailRelay(url, recipient string) *EmailRelay {
	if IsPlaceholder(url) || IsPlaceholder(recipient) {
		return nil
	}
	return &EmailRelay{url: url, recipient: recipient, client: newHTTPClient()}
}

func (c *EmailRelay) Name() string { return "email" }

// Send posts the plain-text rendering of the event.
func (c *EmailRelay) Send(ctx context.Context, ev Event) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"email", c.recipient},
		{"subject", ev.Title()},
		{"message", ev.Text()},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("form field %s: %w", f[0], err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("form close: %w", err)
	}
	return post(ctx, c.client, c.url, w.FormDataContentType(), buf.Bytes())
}

// Slack posts to a Slack-compatible incoming webhook.
type Slack struct {
	url    string
	client *http.Client
}

// NewSlack creates the Slack channel, or returns nil for a placeholder URL.
func NewSlack(url string) *Slack {
	if IsPlaceholder(url) {
		return nil
	}
	return &Slack{url: url, client: newHTTPClient()}
}

func (c *Slack) Name() string { return "slack" }

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer,omitempty"`
	Ts     int64        `json:"ts"`
}

type slackMessage struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
}

// Send posts the event as a text line plus one attachment of fields.
func (c *Slack) Send(ctx context.Context, ev Event) error {
	fields := ev.Fields()
	att := slackAttachment{
		Color:  kindColorHex(ev.Kind),
		Fields: make([]slackField, 0, len(fields)),
		Footer: ev.Site,
		Ts:     ev.At.Unix(),
	}
	for _, f := range fields {
		att.Fields = append(att.Fields, slackField{Title: f.Name, Value: f.Value, Short: len(f.Value) < 40})
	}
	payload, err := json.Marshal(slackMessage{Text: ev.Title(), Attachments: []slackAttachment{att}})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return post(ctx, c.client, c.url, "application/json", payload)
}

// Discord posts to a Discord-compatible webhook.
type Discord struct {
	url    string
	client *http.Client
}

// NewDiscord creates the Discord channel, or returns nil for a placeholder URL.
func NewDiscord(url string) *Discord {
	if IsPlaceholder(url) {
		return nil
	}
	return &Discord{url: url, client: newHTTPClient()}
}

func (c *Discord) Name() string { return "discord" }

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields"`
	Timestamp   string         `json:"timestamp"`
}

type discordMessage struct {
	Embeds []discordEmbed `json:"embeds"`
}

// Send posts the event as a single embed.
func (c *Discord) Send(ctx context.Context, ev Event) error {
	fields := ev.Fields()
	embed := discordEmbed{
		Title:       ev.Title(),
		Description: fmt.Sprintf("%s on %s", kindLabel(ev.Kind), ev.Visitor.Page),
		Color:       kindColor(ev.Kind),
		Fields:      make([]discordField, 0, len(fields)),
		Timestamp:   ev.At.UTC().Format(time.RFC3339),
	}
	for _, f := range fields {
		embed.Fields = append(embed.Fields, discordField{Name: f.Name, Value: f.Value, Inline: len(f.Value) < 40})
	}
	payload, err := json.Marshal(discordMessage{Embeds: []discordEmbed{embed}})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return post(ctx, c.client, c.url, "application/json", payload)
}

func kindLabel(k Kind) string {
	switch k {
	case KindExit:
		return "Exit"
	case KindInactive:
		return "Inactivity"
	default:
		return "Visit"
	}
}

func kindColor(k Kind) int {
	switch k {
	case KindExit:
		return 0xE74C3C
	case KindInactive:
		return 0xF1C40F
	default:
		return 0x2ECC71
	}
}

func kindColorHex(k Kind) string {
	return fmt.Sprintf("#%06X", kindColor(k))
}

// FromConfig builds a dispatcher from the channel toggles and endpoints in
// cfg. Disabled channels and placeholder endpoints are skipped.
func FromConfig(cfg *config.Config) *Dispatcher {
	var channels []Channel
	if cfg.EmailEnabled {
		if ch := NewEmailRelay(cfg.EmailRelayURL, cfg.NotifyEmail); ch != nil {
			channels = append(channels, ch)
		}
	}
	if cfg.SlackEnabled {
		if ch := NewSlack(cfg.SlackWebhookURL); ch != nil {
			channels = append(channels, ch)
		}
	}
	if cfg.DiscordEnabled {
		if ch := NewDiscord(cfg.DiscordWebhookURL); ch != nil {
			channels = append(channels, ch)
		}
	}
	return NewDispatcher(channels...)
}
