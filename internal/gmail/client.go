// Package gmail wraps the Gmail API for fetching labeled messages,
// swapping labels, and sending digest emails.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/markwbrown/TLDR/internal/models"
)

const user = "me"

// Client provides the mail source operations the pipeline needs.
type Client struct {
	srv    *gmail.Service
	logger *slog.Logger
	labels map[string]string // label name -> label ID
}

// NewClient creates a Gmail client on top of an authenticated HTTP client
// and caches the mailbox's label name-to-ID mapping.
func NewClient(ctx context.Context, logger *slog.Logger, httpClient *http.Client) (*Client, error) {
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	c := &Client{srv: srv, logger: logger, labels: make(map[string]string)}
	if err := c.loadLabels(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) loadLabels(ctx context.Context) error {
	resp, err := c.srv.Users.Labels.List(user).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to list labels: %w", err)
	}
	for _, label := range resp.Labels {
		c.labels[label.Name] = label.Id
	}
	c.logger.Debug("Loaded mailbox labels.", "count", len(c.labels))
	return nil
}

func (c *Client) labelID(name string) (string, error) {
	id, ok := c.labels[name]
	if !ok {
		return "", fmt.Errorf("label %q not found in mailbox", name)
	}
	return id, nil
}

// ListEmails fetches up to limit messages carrying the given label.
func (c *Client) ListEmails(ctx context.Context, label string, limit int64) ([]models.Email, error) {
	labelID, err := c.labelID(label)
	if err != nil {
		return nil, err
	}

	resp, err := c.srv.Users.Messages.List(user).
		LabelIds(labelID).
		MaxResults(limit).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list messages with label %q: %w", label, err)
	}
	c.logger.Info("Fetched message list.", "label", label, "count", len(resp.Messages))

	emails := make([]models.Email, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		full, err := c.srv.Users.Messages.Get(user, m.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve message %s: %w", m.Id, err)
		}
		emails = append(emails, parseMessage(full))
	}
	return emails, nil
}

// parseMessage converts a full Gmail message into the internal Email model.
func parseMessage(msg *gmail.Message) models.Email {
	email := models.Email{ID: msg.Id, LabelIDs: msg.LabelIds}
	if msg.Payload == nil {
		return email
	}
	for _, header := range msg.Payload.Headers {
		switch header.Name {
		case "Subject":
			email.Subject = CleanSubject(header.Value)
		case "From":
			email.Sender = SenderName(header.Value)
		}
	}
	email.Body = extractBody(msg.Payload)
	return email
}

// extractBody walks the MIME tree and returns the best plain text rendering
// of the message: a text/plain part if one exists, otherwise text/html
// stripped of markup.
func extractBody(payload *gmail.MessagePart) string {
	if body := findPart(payload, "text/plain"); body != "" {
		return body
	}
	if body := findPart(payload, "text/html"); body != "" {
		return HTMLToText(body)
	}
	return ""
}

func findPart(part *gmail.MessagePart, mimeType string) string {
	if part.MimeType == mimeType && part.Body != nil && part.Body.Data != "" {
		return decodeBody(part.Body.Data)
	}
	for _, p := range part.Parts {
		if body := findPart(p, mimeType); body != "" {
			return body
		}
	}
	return ""
}

func decodeBody(data string) string {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		// Some senders use standard base64.
		decoded, err = base64.StdEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}

// SwapLabels removes one label from a message and applies another in a
// single modify call. Success of this call is the pipeline's durable
// "processed" marker.
func (c *Client) SwapLabels(ctx context.Context, messageID, removeLabel, addLabel string) error {
	removeID, err := c.labelID(removeLabel)
	if err != nil {
		return err
	}
	addID, err := c.labelID(addLabel)
	if err != nil {
		return err
	}

	_, err = c.srv.Users.Messages.Modify(user, messageID, &gmail.ModifyMessageRequest{
		AddLabelIds:    []string{addID},
		RemoveLabelIds: []string{removeID},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to modify labels on message %s: %w", messageID, err)
	}
	c.logger.Debug("Swapped labels.", "messageID", messageID, "removed", removeLabel, "added", addLabel)
	return nil
}

// SendDigest sends an HTML digest email.
func (c *Client) SendDigest(ctx context.Context, to, subject, body string) error {
	raw := fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s",
		to, subject, body)
	msg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
	}
	sent, err := c.srv.Users.Messages.Send(user, msg).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to send digest to %s: %w", to, err)
	}
	c.logger.Info("Sent digest email.", "to", to, "messageID", sent.Id)
	return nil
}
