package models

import "time"

// Event represents a calendar event extracted from email text.
// This is an internal representation, independent of any specific calendar provider.
type Event struct {
	Title       string    // Summary or title of the event
	Description string    // Detailed description of the event
	StartTime   time.Time // Start time of the event
	EndTime     time.Time // End time; the zero value means no explicit end was given
	Location    string    // Location of the event
	UID         string    // The iCalendar UID, assigned when the event is handed to a sink
}
