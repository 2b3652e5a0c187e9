// Package pipeline drives one pass over the labeled mailbox: chunk each
// email, summarize the chunks, aggregate the results, create calendar
// events, and swap labels.
//
// Execution is strictly sequential. One email is fully processed before the
// next begins, which keeps rate-limit accounting simple and correct. An
// email counts as processed only once its label swap succeeds; everything
// short of that is retried on the next run. Running two instances against
// the same mailbox concurrently is not supported.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/markwbrown/TLDR/internal/chunk"
	"github.com/markwbrown/TLDR/internal/events"
	"github.com/markwbrown/TLDR/internal/models"
)

// MailSource supplies labeled emails and applies label changes.
type MailSource interface {
	ListEmails(ctx context.Context, label string, limit int64) ([]models.Email, error)
	SwapLabels(ctx context.Context, messageID, removeLabel, addLabel string) error
	SendDigest(ctx context.Context, to, subject, body string) error
}

// CalendarSink records extracted events in a calendar.
type CalendarSink interface {
	CreateEvent(ctx context.Context, event models.Event) error
}

// Summarizer produces summaries for chunks of email text and consolidates
// them into a final result.
type Summarizer interface {
	SummarizeChunk(ctx context.Context, text string, part, total int) (models.SummaryResult, error)
	Consolidate(ctx context.Context, partials []models.SummaryResult) (models.SummaryResult, error)
}

// Options configures a Driver.
type Options struct {
	SourceLabel    string
	ProcessedLabel string
	ToEmail        string // Digest recipient; empty disables digests
	MaxChunkChars  int
	Limit          int64
	DryRun         bool
}

// Driver orchestrates the processing of one batch of emails.
type Driver struct {
	logger     *slog.Logger
	source     MailSource
	sink       CalendarSink // nil disables calendar creation
	summarizer Summarizer
	opts       Options
}

// NewDriver creates a Driver. sink may be nil when no calendar is configured.
func NewDriver(logger *slog.Logger, source MailSource, sink CalendarSink, summarizer Summarizer, opts Options) *Driver {
	return &Driver{
		logger:     logger,
		source:     source,
		sink:       sink,
		summarizer: summarizer,
		opts:       opts,
	}
}

// Run processes every email currently carrying the source label and returns
// the records for those fully processed. Failures local to one email are
// logged and skipped; the email keeps its label and is retried on the next
// run. Only the initial mailbox listing can fail the run as a whole.
func (d *Driver) Run(ctx context.Context) ([]models.ProcessedEmail, error) {
	emails, err := d.source.ListEmails(ctx, d.opts.SourceLabel, d.opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}
	if len(emails) == 0 {
		d.logger.Info("No emails to process.", "label", d.opts.SourceLabel)
		return nil, nil
	}
	d.logger.Info("Processing emails.", "label", d.opts.SourceLabel, "count", len(emails))

	var processed []models.ProcessedEmail
	for _, email := range emails {
		record, err := d.processEmail(ctx, email)
		if err != nil {
			d.logger.Error("Skipping email, it will be retried on the next run.",
				"id", email.ID, "subject", email.Subject, "error", err)
			continue
		}
		processed = append(processed, record)
	}

	d.logger.Info("Run finished.", "processed", len(processed), "skipped", len(emails)-len(processed))
	return processed, nil
}

func (d *Driver) processEmail(ctx context.Context, email models.Email) (models.ProcessedEmail, error) {
	d.logger.Info("Processing email.", "id", email.ID, "subject", email.Subject, "sender", email.Sender)

	chunks, err := chunk.Split(email.Body, d.opts.MaxChunkChars)
	if err != nil {
		return models.ProcessedEmail{}, fmt.Errorf("chunking failed: %w", err)
	}
	d.logger.Debug("Split email body.", "chunks", len(chunks))

	partials := make([]models.SummaryResult, 0, len(chunks))
	tokens := 0
	for i, c := range chunks {
		res, err := d.summarizer.SummarizeChunk(ctx, c, i+1, len(chunks))
		if err != nil {
			return models.ProcessedEmail{}, fmt.Errorf("summarizing chunk %d/%d: %w", i+1, len(chunks), err)
		}
		tokens += res.TokensUsed
		partials = append(partials, res)
	}

	final, err := d.summarizer.Consolidate(ctx, partials)
	if err != nil {
		return models.ProcessedEmail{}, fmt.Errorf("consolidating summaries: %w", err)
	}
	tokens += final.TokensUsed

	record := models.ProcessedEmail{
		EmailID:    email.ID,
		Subject:    email.Subject,
		Sender:     email.Sender,
		Summary:    final.Text,
		Events:     final.Events,
		TokensUsed: tokens,
	}

	if d.opts.DryRun {
		d.logger.Info("[DRY RUN] Would create events and swap labels.",
			"id", email.ID, "events", len(final.Events))
		return record, nil
	}

	// Calendar and digest failures are logged but do not block labeling;
	// the label swap alone marks the email as durably processed.
	if d.sink != nil {
		for _, e := range final.Events {
			if err := d.sink.CreateEvent(ctx, e); err != nil {
				d.logger.Error("Failed to create calendar event.", "title", e.Title, "error", err)
			}
		}
	}

	if d.opts.ToEmail != "" {
		subject := fmt.Sprintf("TLDR Summary: %s - %s", email.Subject, email.Sender)
		body := "Summary:<br><br>" + events.ReplaceWithLinks(final.Text)
		if err := d.source.SendDigest(ctx, d.opts.ToEmail, subject, body); err != nil {
			d.logger.Error("Failed to send digest email.", "id", email.ID, "error", err)
		}
	}

	if err := d.source.SwapLabels(ctx, email.ID, d.opts.SourceLabel, d.opts.ProcessedLabel); err != nil {
		return models.ProcessedEmail{}, fmt.Errorf("label swap failed: %w", err)
	}

	d.logger.Info("Email processed.", "id", email.ID, "events", len(final.Events), "estimatedTokens", tokens)
	return record, nil
}
