package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/markwbrown/TLDR/internal/models"
	"github.com/markwbrown/TLDR/internal/summarizer"
)

type fakeSource struct {
	emails []models.Email

	listErr    error
	swapErr    error
	swapped    []string // message IDs whose labels were swapped
	digests    []string // digest subjects sent
	digestErr  error
	swapCalled int
}

func (f *fakeSource) ListEmails(_ context.Context, _ string, _ int64) ([]models.Email, error) {
	return f.emails, f.listErr
}

func (f *fakeSource) SwapLabels(_ context.Context, messageID, _, _ string) error {
	f.swapCalled++
	if f.swapErr != nil {
		return f.swapErr
	}
	f.swapped = append(f.swapped, messageID)
	return nil
}

func (f *fakeSource) SendDigest(_ context.Context, _, subject, _ string) error {
	if f.digestErr != nil {
		return f.digestErr
	}
	f.digests = append(f.digests, subject)
	return nil
}

type fakeSink struct {
	created []models.Event
	err     error
}

func (f *fakeSink) CreateEvent(_ context.Context, e models.Event) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, e)
	return nil
}

// fakeSummarizer fails for any chunk containing failOn (when non-empty) and
// attaches event to the result of any chunk containing eventOn.
type fakeSummarizer struct {
	failOn  string
	failErr error
	eventOn string
	event   models.Event
	calls   int
}

func (f *fakeSummarizer) SummarizeChunk(_ context.Context, text string, _, _ int) (models.SummaryResult, error) {
	f.calls++
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return models.SummaryResult{}, f.failErr
	}
	res := models.SummaryResult{Text: "summary of: " + text, TokensUsed: 5}
	if f.eventOn != "" && strings.Contains(text, f.eventOn) {
		res.Events = []models.Event{f.event}
		res.HasEvents = true
	}
	return res, nil
}

func (f *fakeSummarizer) Consolidate(_ context.Context, partials []models.SummaryResult) (models.SummaryResult, error) {
	if len(partials) == 0 {
		return models.SummaryResult{}, nil
	}
	final := partials[0]
	for _, p := range partials[1:] {
		final.Text += "\n" + p.Text
		final.Events = append(final.Events, p.Events...)
	}
	final.HasEvents = len(final.Events) > 0
	return final, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() Options {
	return Options{
		SourceLabel:    "School",
		ProcessedLabel: "SchoolProcessed",
		MaxChunkChars:  1000,
		Limit:          100,
	}
}

func TestRun_FailedEmailSkippedOthersProcessed(t *testing.T) {
	event := models.Event{Title: "Recital", StartTime: time.Date(2026, 5, 1, 19, 0, 0, 0, time.Local)}
	source := &fakeSource{emails: []models.Email{
		{ID: "a", Subject: "Email A", Body: "this one is doomed"},
		{ID: "b", Subject: "Email B", Body: "please come to the recital"},
	}}
	sink := &fakeSink{}
	summ := &fakeSummarizer{
		failOn:  "doomed",
		failErr: &summarizer.RateLimitExceededError{Attempts: 3, Err: errors.New("429")},
		eventOn: "recital",
		event:   event,
	}

	d := NewDriver(testLogger(), source, sink, summ, testOptions())
	processed, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(processed) != 1 || processed[0].EmailID != "b" {
		t.Fatalf("processed = %v, want only email b", processed)
	}
	if len(source.swapped) != 1 || source.swapped[0] != "b" {
		t.Errorf("swapped = %v, want labels swapped only for b", source.swapped)
	}
	if len(sink.created) != 1 || sink.created[0].Title != "Recital" {
		t.Errorf("created events = %v, want exactly the recital", sink.created)
	}
}

func TestRun_ListFailureFailsRun(t *testing.T) {
	source := &fakeSource{listErr: errors.New("label not found")}
	d := NewDriver(testLogger(), source, nil, &fakeSummarizer{}, testOptions())
	if _, err := d.Run(context.Background()); err == nil {
		t.Fatal("Run() error = nil, want listing failure to surface")
	}
}

func TestRun_DryRunTouchesNothing(t *testing.T) {
	source := &fakeSource{emails: []models.Email{{ID: "a", Body: "some text"}}}
	sink := &fakeSink{}
	opts := testOptions()
	opts.DryRun = true
	opts.ToEmail = "me@example.com"

	d := NewDriver(testLogger(), source, sink, &fakeSummarizer{}, opts)
	processed, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(processed) != 1 {
		t.Fatalf("processed = %v, want the dry-run record", processed)
	}
	if source.swapCalled != 0 || len(sink.created) != 0 || len(source.digests) != 0 {
		t.Error("dry run performed external calls")
	}
}

func TestRun_LabelSwapFailureNotProcessed(t *testing.T) {
	source := &fakeSource{
		emails:  []models.Email{{ID: "a", Body: "text"}},
		swapErr: errors.New("modify failed"),
	}
	d := NewDriver(testLogger(), source, nil, &fakeSummarizer{}, testOptions())
	processed, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(processed) != 0 {
		t.Errorf("processed = %v, want none when the label swap fails", processed)
	}
}

func TestRun_CalendarFailureStillLabels(t *testing.T) {
	event := models.Event{Title: "Recital", StartTime: time.Now()}
	source := &fakeSource{emails: []models.Email{{ID: "a", Body: "recital info"}}}
	sink := &fakeSink{err: errors.New("calendar down")}
	summ := &fakeSummarizer{eventOn: "recital", event: event}

	d := NewDriver(testLogger(), source, sink, summ, testOptions())
	processed, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(processed) != 1 || len(source.swapped) != 1 {
		t.Errorf("calendar failure should not block labeling: processed=%v swapped=%v", processed, source.swapped)
	}
}

func TestRun_SendsDigest(t *testing.T) {
	source := &fakeSource{emails: []models.Email{{ID: "a", Subject: "Field Trip", Sender: "Ms. Lee", Body: "text"}}}
	opts := testOptions()
	opts.ToEmail = "me@example.com"

	d := NewDriver(testLogger(), source, nil, &fakeSummarizer{}, opts)
	if _, err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(source.digests) != 1 || source.digests[0] != "TLDR Summary: Field Trip - Ms. Lee" {
		t.Errorf("digests = %v", source.digests)
	}
}

func TestRun_MultiChunkEmail(t *testing.T) {
	body := strings.Repeat("The concert details follow. ", 100)
	source := &fakeSource{emails: []models.Email{{ID: "a", Body: body}}}
	summ := &fakeSummarizer{}
	opts := testOptions()
	opts.MaxChunkChars = 200

	d := NewDriver(testLogger(), source, nil, summ, opts)
	processed, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(processed) != 1 {
		t.Fatalf("processed = %v", processed)
	}
	if summ.calls < 2 {
		t.Errorf("summarizer calls = %d, want one per chunk (more than one)", summ.calls)
	}
}
