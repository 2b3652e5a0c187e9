package gmail

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	replyPrefixPattern = regexp.MustCompile(`(?i)^(Re:|Fwd?:|FW:)\s*`)
	senderNamePattern  = regexp.MustCompile(`^"?([^"<]+?)"?\s*<`)
)

// CleanSubject strips reply and forward prefixes from a subject line.
func CleanSubject(subject string) string {
	for {
		cleaned := replyPrefixPattern.ReplaceAllString(subject, "")
		if cleaned == subject {
			return strings.TrimSpace(cleaned)
		}
		subject = cleaned
	}
}

// SenderName extracts the display name from a From header in the form
// `Name <address>`. A bare address is returned as-is.
func SenderName(from string) string {
	if m := senderNamePattern.FindStringSubmatch(from); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(from)
}

// HTMLToText strips markup from an HTML email body, keeping line breaks at
// paragraph boundaries.
func HTMLToText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}
	var b strings.Builder
	renderNode(&b, doc)
	return strings.TrimSpace(b.String())
}

func renderNode(b *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "head":
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderNode(b, c)
	}
	if n.Type == html.ElementNode {
		switch n.Data {
		case "p", "br", "div", "li", "tr", "h1", "h2", "h3", "h4":
			b.WriteString("\n")
		}
	}
}
