package notify

import (
	"html"
	"strings"
)

// escape replaces & < > " ' with their entities. Every untrusted string goes
// through here before interpolation into email HTML; skipping it would let a
// submission inject markup into staff inboxes.
func escape(s string) string {
	return html.EscapeString(s)
}

// Subject builds the staff email subject line.
func (s FormSpec) Subject(values map[string]string) string {
	subject := s.SubjectPrefix
	if v := values[s.SubjectField]; v != "" {
		subject += ": " + v
	}
	return subject
}

// ComposeHTML renders the staff notification body. The layout is fixed; only
// escaped field values vary.
func (s FormSpec) ComposeHTML(values map[string]string) string {
	var b strings.Builder
	b.WriteString("<h2>")
	b.WriteString(escape(s.Title))
	b.WriteString("</h2>\n")

	for _, f := range s.Fields {
		v := values[f.Name]
		if v == "" {
			continue
		}
		b.WriteString("<p><strong>")
		b.WriteString(escape(f.Label))
		b.WriteString(":</strong> ")
		if f.Multiline {
			b.WriteString("<br>")
			b.WriteString(strings.ReplaceAll(escape(v), "\n", "<br>"))
		} else {
			b.WriteString(escape(v))
		}
		b.WriteString("</p>\n")
	}
	return b.String()
}

// ComposeAckHTML renders the submitter acknowledgment for forms that send one.
func (s FormSpec) ComposeAckHTML(values map[string]string) string {
	var b strings.Builder
	b.WriteString("<p>Hi ")
	b.WriteString(escape(values["name"]))
	b.WriteString(",</p>\n")
	b.WriteString("<p>Thanks for reaching out. We received your submission and will be in touch if it's a fit.</p>\n")
	b.WriteString("<p>— The team</p>\n")
	return b.String()
}
