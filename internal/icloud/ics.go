package icloud

import (
	"fmt"
	"os"

	"github.com/emersion/go-ical"

	"github.com/markwbrown/TLDR/internal/models"
)

// WriteICS writes events to a local iCalendar file, for importing into any
// calendar application without network access. Nothing is written when the
// event list is empty.
func WriteICS(path string, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	for _, e := range events {
		if e.UID == "" {
			e.UID = GenerateUID()
		}
		cal.Children = append(cal.Children, toICal(e))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create ics file: %w", err)
	}
	defer f.Close()

	if err := ical.NewEncoder(f).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode events to iCal format: %w", err)
	}
	return nil
}
