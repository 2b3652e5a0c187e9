package models

// Email is one message pulled from the mail provider. The pipeline only
// reads it; label changes go back through the mail client.
type Email struct {
	ID       string   // Provider message ID
	Sender   string   // Display name extracted from the From header
	Subject  string   // Subject line with reply/forward prefixes stripped
	Body     string   // Plain text body
	LabelIDs []string // Label IDs attached to the message
}

// SummaryResult is the outcome of a single summarization call, either for
// one chunk of an email or for the consolidation pass.
type SummaryResult struct {
	Text       string  // The summary text produced by the model
	Events     []Event // Events detected in the summary, if event extraction is on
	HasEvents  bool    // Whether any events were detected
	TokensUsed int     // Estimated tokens spent on prompt plus response
}

// ProcessedEmail pairs an email with its final aggregated summary and
// deduplicated event list. It is the pipeline's output record; nothing is
// persisted locally.
type ProcessedEmail struct {
	EmailID    string
	Subject    string
	Sender     string
	Summary    string
	Events     []Event
	TokensUsed int
}
