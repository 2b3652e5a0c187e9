package google

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/markwbrown/TLDR/internal/models"
)

// CalendarClient creates events in a Google Calendar.
type CalendarClient struct {
	service    *calendar.Service
	calendarID string
	logger     *slog.Logger
}

// NewCalendarClient creates a Google Calendar client on top of an
// authenticated HTTP client.
func NewCalendarClient(ctx context.Context, logger *slog.Logger, httpClient *http.Client, calendarID string) (*CalendarClient, error) {
	service, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &CalendarClient{service: service, calendarID: calendarID, logger: logger}, nil
}

// CreateEvent inserts one extracted event into the calendar. Events without
// an explicit end default to one hour.
func (c *CalendarClient) CreateEvent(ctx context.Context, event models.Event) error {
	end := event.EndTime
	if end.IsZero() {
		end = event.StartTime.Add(time.Hour)
	}

	item := &calendar.Event{
		Summary:     event.Title,
		Location:    event.Location,
		Description: event.Description,
		Start:       &calendar.EventDateTime{DateTime: event.StartTime.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}

	created, err := c.service.Events.Insert(c.calendarID, item).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to insert event %q: %w", event.Title, err)
	}

	c.logger.Info("Created calendar event.", "title", event.Title, "start", event.StartTime, "link", created.HtmlLink)
	return nil
}
