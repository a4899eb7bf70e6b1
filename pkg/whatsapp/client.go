// Package whatsapp posts outbound group messages to the WhatsApp bridge
// webhook.
package whatsapp

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"

	"traffichub/config"
)

var ErrNotConfigured = errors.New("whatsapp webhook url not configured")

// OutboundMessage is the webhook payload.
type OutboundMessage struct {
	Message string `json:"message"`
	GroupID string `json:"groupId"`
	Sender  string `json:"sender"`
}

type Client struct {
	rc  *resty.Client
	url string
}

func New(cfg config.WebhookConfig) *Client {
	rc := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	return &Client{rc: rc, url: cfg.OutboundURL}
}

// Send posts msg and fails on any non-2xx answer.
func (c *Client) Send(ctx context.Context, msg OutboundMessage) error {
	if c.url == "" {
		return ErrNotConfigured
	}
	resp, err := c.rc.R().SetContext(ctx).SetBody(msg).Post(c.url)
	if err != nil {
		return fmt.Errorf("post whatsapp webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("whatsapp webhook answered %s", resp.Status())
	}
	return nil
}
