package summarizer

import (
	"fmt"
	"strings"
)

// The event line format the prompts demand. internal/events parses exactly
// this shape back out of the model's responses.
const eventFormatInstruction = "Also, identify any events in the format:\n" +
	"Event Detected: [Event Name] on [YYYY-MM-DD] at [HH:MM] at [Location]"

// chunkPrompt builds the prompt for summarizing a single chunk of an email.
func chunkPrompt(text string, part, total int, extractEvents bool) string {
	var b strings.Builder
	b.WriteString("Summarize the following email")
	if total > 1 {
		fmt.Fprintf(&b, " (part %d of %d)", part, total)
	}
	b.WriteString(", ensuring that:\n")
	b.WriteString("1. Action items are listed with bullet points\n")
	b.WriteString("2. Important dates, times, and locations are preserved\n")
	b.WriteString("3. Key information is captured concisely\n")
	if extractEvents {
		b.WriteString("\n")
		b.WriteString(eventFormatInstruction)
		b.WriteString("\n")
	}
	b.WriteString("\nEmail content:\n")
	b.WriteString(text)
	return b.String()
}

// consolidationPrompt builds the second-pass prompt that merges per-chunk
// summaries into one coherent summary.
func consolidationPrompt(combined string, extractEvents bool) string {
	var b strings.Builder
	b.WriteString("Consolidate the following partial summaries of one email into a single coherent summary.\n")
	b.WriteString("Ensure:\n")
	b.WriteString("1. Action items are listed with bullet points\n")
	b.WriteString("2. All dates, times, and locations are preserved\n")
	b.WriteString("3. Redundant points are removed\n")
	if extractEvents {
		b.WriteString("4. Event Detected entries are preserved exactly\n\n")
		b.WriteString(eventFormatInstruction)
		b.WriteString("\n")
	}
	b.WriteString("\nPartial summaries:\n")
	b.WriteString(combined)
	return b.String()
}
