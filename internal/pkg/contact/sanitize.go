package contact

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultSubject is used when the visitor leaves the subject empty.
const DefaultSubject = "Contact GetYourSite"

// Submission is a validated, cleaned contact message. Fields are plain text
// and must be escaped again by anything rendering them as HTML.
type Submission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

var stripPolicy = bluemonday.StrictPolicy()

// Clean validates in and returns the sanitized submission. The minimum
// message length is checked again on the sanitized text so that a message
// made only of markup is rejected.
func Clean(in Input) (Submission, []string) {
	if errs := Validate(in); len(errs) > 0 {
		return Submission{}, errs
	}
	sub := Sanitize(in)
	if utf8.RuneCountInString(sub.Message) < MinMessageLength {
		return Submission{}, []string{minMessageError}
	}
	return sub, nil
}

// Sanitize trims every field, strips markup and normalizes the email.
func Sanitize(in Input) Submission {
	out := Submission{
		Name:    stripMarkup(in.Name),
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Subject: stripMarkup(in.Subject),
		Message: stripMarkup(in.Message),
	}
	if out.Subject == "" {
		out.Subject = DefaultSubject
	}
	return out
}

// maxStripPasses bounds how many entity levels are decoded before giving up.
const maxStripPasses = 4

// stripMarkup returns plain text. Entity encoded markup is decoded and stripped
// again until the text stops changing, so "&lt;b&gt;" cannot come back as "<b>".
func stripMarkup(s string) string {
	s = strings.TrimSpace(s)
	for i := 0; i < maxStripPasses && s != ""; i++ {
		plain := strings.TrimSpace(html.UnescapeString(stripPolicy.Sanitize(s)))
		if plain == s {
			return plain
		}
		s = plain
	}
	if s == "" {
		return s
	}
	// still nested too deep, keep it escaped
	return strings.TrimSpace(stripPolicy.Sanitize(s))
}
