// Package rest is the boundary client for the PMS backend. It owns no
// consistency logic of its own; every call is a plain fetch the engine
// layers caching and reconciliation on top of.
package rest

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client talks to the PMS backend REST API.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient creates a REST client for the given backend root.
func NewClient(baseURL, token string, logger *zap.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("api base URL cannot be empty")
	}
	http := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(token).
		SetTimeout(10 * time.Second)
	return &Client{http: http, logger: logger}, nil
}

// ListConversations fetches all conversations visible to the session.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	var convs []Conversation
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&convs).
		Get("/api/chat/conversations")
	if err := c.check(resp, err, "list conversations"); err != nil {
		return nil, err
	}
	return convs, nil
}

// ListMessages fetches the message history for a conversation, oldest-first.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]MessageRecord, error) {
	var msgs []MessageRecord
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&msgs).
		Get("/api/chat/conversations/" + conversationID + "/messages")
	if err := c.check(resp, err, "list messages"); err != nil {
		return nil, err
	}
	return msgs, nil
}

// CreateConversation starts a new conversation with the given counterpart.
func (c *Client) CreateConversation(ctx context.Context, req CreateConversationRequest) (*Conversation, error) {
	var conv Conversation
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&conv).
		Post("/api/chat/conversations")
	if err := c.check(resp, err, "create conversation"); err != nil {
		return nil, err
	}
	return &conv, nil
}

// MarkRead marks every message in the conversation as read.
func (c *Client) MarkRead(ctx context.Context, conversationID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Post("/api/chat/conversations/" + conversationID + "/read")
	return c.check(resp, err, "mark read")
}

// ListContacts fetches the contact directory.
func (c *Client) ListContacts(ctx context.Context) ([]Contact, error) {
	var contacts []Contact
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&contacts).
		Get("/api/contacts")
	if err := c.check(resp, err, "list contacts"); err != nil {
		return nil, err
	}
	return contacts, nil
}

// CurrentUser fetches the authenticated user.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&user).
		Get("/api/users/me")
	if err := c.check(resp, err, "current user"); err != nil {
		return nil, err
	}
	return &user, nil
}

// ChatToken fetches a short-lived bearer token scoped to chat access.
func (c *Client) ChatToken(ctx context.Context) (string, error) {
	var tok tokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&tok).
		Post("/api/chat/token")
	if err := c.check(resp, err, "chat token"); err != nil {
		return "", err
	}
	return tok.Token, nil
}

func (c *Client) check(resp *resty.Response, err error, op string) error {
	if err != nil {
		c.logger.Error("request failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.IsError() {
		c.logger.Error("backend returned error",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode()),
			zap.ByteString("body", resp.Body()))
		return fmt.Errorf("%s: status %s", op, resp.Status())
	}
	return nil
}
