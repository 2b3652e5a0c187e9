// Package events extracts calendar events from summarized email text and
// merges duplicates detected across chunks.
package events

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/markwbrown/TLDR/internal/models"
)

// DefaultMergeTolerance is how far apart two start times may be while the
// events are still considered the same occurrence.
const DefaultMergeTolerance = 5 * time.Minute

// Events with no explicit end default to one hour.
const defaultDuration = time.Hour

// detectPattern matches the line format the summarization prompt asks the
// model to produce.
var detectPattern = regexp.MustCompile(`Event Detected:\s*(.+?)\s+on\s+(\d{4}-\d{2}-\d{2})\s+at\s+(\d{2}:\d{2})\s+at\s+(.+)`)

// Parse extracts every event the model reported in text. Lines with
// unparseable dates are skipped rather than failing the whole summary.
func Parse(text string) []models.Event {
	var out []models.Event
	for _, m := range detectPattern.FindAllStringSubmatch(text, -1) {
		if e, ok := fromMatch(m); ok {
			out = append(out, e)
		}
	}
	return out
}

func fromMatch(m []string) (models.Event, bool) {
	start, err := dateparse.ParseLocal(m[2] + " " + m[3])
	if err != nil {
		return models.Event{}, false
	}
	return models.Event{
		Title:     strings.TrimSpace(m[1]),
		StartTime: start,
		EndTime:   start.Add(defaultDuration),
		Location:  strings.TrimSpace(m[4]),
	}, true
}

// Merge collapses events describing the same occurrence: equal titles
// (case-insensitive) with start times within tolerance. The merged event
// keeps the earliest start, the latest end, and the most detailed location
// and description. Input order is preserved otherwise.
func Merge(evts []models.Event, tolerance time.Duration) []models.Event {
	var out []models.Event
	for _, e := range evts {
		merged := false
		for i := range out {
			if !sameOccurrence(out[i], e, tolerance) {
				continue
			}
			if e.StartTime.Before(out[i].StartTime) {
				out[i].StartTime = e.StartTime
			}
			if e.EndTime.After(out[i].EndTime) {
				out[i].EndTime = e.EndTime
			}
			if len(e.Location) > len(out[i].Location) {
				out[i].Location = e.Location
			}
			if len(e.Description) > len(out[i].Description) {
				out[i].Description = e.Description
			}
			merged = true
			break
		}
		if !merged {
			out = append(out, e)
		}
	}
	return out
}

func sameOccurrence(a, b models.Event, tolerance time.Duration) bool {
	if !strings.EqualFold(strings.TrimSpace(a.Title), strings.TrimSpace(b.Title)) {
		return false
	}
	diff := a.StartTime.Sub(b.StartTime)
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

// CalendarLink builds a Google Calendar render URL for an event, for use
// in digest emails.
func CalendarLink(e models.Event) string {
	end := e.EndTime
	if end.IsZero() {
		end = e.StartTime.Add(defaultDuration)
	}
	details := e.Description
	if details == "" {
		details = e.Title
	}
	v := url.Values{}
	v.Set("action", "TEMPLATE")
	v.Set("text", e.Title)
	v.Set("dates", e.StartTime.Format("20060102T150405")+"/"+end.Format("20060102T150405"))
	v.Set("details", details)
	v.Set("location", e.Location)
	return "https://calendar.google.com/calendar/render?" + v.Encode()
}

// ReplaceWithLinks rewrites every Event Detected block in text into an HTML
// link that adds the event to Google Calendar. Blocks that fail to parse
// are left untouched.
func ReplaceWithLinks(text string) string {
	return detectPattern.ReplaceAllStringFunc(text, func(block string) string {
		m := detectPattern.FindStringSubmatch(block)
		e, ok := fromMatch(m)
		if !ok {
			return block
		}
		return fmt.Sprintf(`<a target="_blank" rel="noopener" href="%s">Add to Google Calendar: %s</a>`,
			CalendarLink(e), e.Title)
	})
}
