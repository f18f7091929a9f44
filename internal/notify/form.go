// Package notify implements the parameterized notification relay: payload
// validation, bot filtering, and email composition for the site's public
// forms. Both endpoints share one handler configured with a FormSpec, so the
// two relays cannot drift apart.
package notify

import (
	"encoding/json"
	"io"
	"regexp"
	"strings"
)

// emailPattern is deliberately loose: local@domain.tld shaped, nothing more.
// The mail provider does the real deliverability check.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Field describes one form field and its validation bounds.
type Field struct {
	Name     string
	Label    string
	Required bool
	MaxLen   int
	Email    bool
	// Multiline fields render with preserved line breaks in the email.
	Multiline bool
}

// FormSpec configures the relay for one form.
type FormSpec struct {
	// Name keys the rate-limit bucket and metrics label.
	Name string
	// Route is the HTTP path the form posts to.
	Route string
	// Title heads the staff email body.
	Title  string
	Fields []Field
	// Honeypot is the hidden field name; a non-empty value marks a bot.
	Honeypot string
	// SubjectField's value is appended to the staff email subject line.
	SubjectField  string
	SubjectPrefix string
	// AckSubject, when set, sends a best-effort acknowledgment email to the
	// submitter after a successful relay.
	AckSubject string
}

// ContactForm is the contact page relay.
func ContactForm() FormSpec {
	return FormSpec{
		Name:          "contact",
		Route:         "/notify/contact",
		Title:         "New contact form submission",
		Honeypot:      "website",
		SubjectField:  "subject",
		SubjectPrefix: "Contact form",
		Fields: []Field{
			{Name: "name", Label: "Name", Required: true, MaxLen: 100},
			{Name: "email", Label: "Email", Required: true, MaxLen: 255, Email: true},
			{Name: "subject", Label: "Subject", Required: true, MaxLen: 200},
			{Name: "message", Label: "Message", Required: true, MaxLen: 5000, Multiline: true},
		},
	}
}

// ContributionForm is the blog contribution-idea relay.
func ContributionForm() FormSpec {
	return FormSpec{
		Name:          "contribution",
		Route:         "/notify/contribution",
		Title:         "New blog contribution idea",
		Honeypot:      "website",
		SubjectField:  "topic",
		SubjectPrefix: "Contribution idea",
		AckSubject:    "Thanks for your contribution idea",
		Fields: []Field{
			{Name: "name", Label: "Name", Required: true, MaxLen: 100},
			{Name: "email", Label: "Email", Required: true, MaxLen: 255, Email: true},
			{Name: "topic", Label: "Topic", Required: true, MaxLen: 200},
			{Name: "story", Label: "Story", Required: false, MaxLen: 2000, Multiline: true},
		},
	}
}

// ValidationError carries the generic, caller-safe rejection message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// DecodePayload reads the JSON body into a flat string map. Non-string values
// for known fields are treated the same as absent ones.
func DecodePayload(r io.Reader) (map[string]string, error) {
	var raw map[string]any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}
	payload := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			payload[k] = s
		}
	}
	return payload, nil
}

// BotTripped reports whether the honeypot field was filled in.
func (s FormSpec) BotTripped(payload map[string]string) bool {
	return payload[s.Honeypot] != ""
}

// Validate checks the payload against the form's fields and returns the cleaned
// values. Error messages stay generic: naming the offending field would help
// automated probing more than it would help visitors.
func (s FormSpec) Validate(payload map[string]string) (map[string]string, *ValidationError) {
	values := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		values[f.Name] = strings.TrimSpace(payload[f.Name])
	}

	for _, f := range s.Fields {
		if f.Required && values[f.Name] == "" {
			return nil, &ValidationError{Message: "Missing required fields"}
		}
	}
	for _, f := range s.Fields {
		if f.Email && values[f.Name] != "" && !emailPattern.MatchString(values[f.Name]) {
			return nil, &ValidationError{Message: "Invalid email address"}
		}
	}
	for _, f := range s.Fields {
		if f.MaxLen > 0 && len(values[f.Name]) > f.MaxLen {
			return nil, &ValidationError{Message: "Field exceeds maximum length"}
		}
	}
	return values, nil
}
