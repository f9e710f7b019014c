// Package render turns countdown values into output: a caller template when
// one is set, the default content otherwise, wrapped in a single element.
package render

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"countdown_tui/internal/countdown"
)

// DefaultTag is the root element used when none is configured.
const DefaultTag = "span"

// ErrInvalidTag is returned for element names that cannot be rendered.
var ErrInvalidTag = errors.New("invalid tag")

var tagPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*$`)

// Func renders the eight unit values into a string.
type Func func(countdown.Values) string

// Renderer produces the countdown's output.
type Renderer struct {
	Tag      string
	Template Func
	Content  string
}

// New returns a Renderer. An empty tag falls back to DefaultTag.
func New(tag string, tmpl Func, content string) (*Renderer, error) {
	if tag == "" {
		tag = DefaultTag
	}
	if err := ValidateTag(tag); err != nil {
		return nil, err
	}
	return &Renderer{Tag: tag, Template: tmpl, Content: content}, nil
}

// ValidateTag reports whether tag is usable as an element name.
func ValidateTag(tag string) error {
	if !tagPattern.MatchString(tag) {
		return fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}
	return nil
}

// Body returns the template output, or the default content unchanged when
// no template is set.
func (r *Renderer) Body(v countdown.Values) string {
	if r.Template != nil {
		return r.Template(v)
	}
	return r.Content
}

// Render wraps Body in the root element. Neither the template output nor
// the default content is escaped.
func (r *Renderer) Render(v countdown.Values) string {
	body := r.Body(v)

	var sb strings.Builder
	sb.WriteString("<")
	sb.WriteString(r.Tag)
	sb.WriteString(">")
	sb.WriteString(body)
	sb.WriteString("</")
	sb.WriteString(r.Tag)
	sb.WriteString(">")
	return sb.String()
}

// ParseTemplate compiles text/template source into a Func. Templates see
// the fields of countdown.Values, e.g. {{.Minutes}}:{{.Seconds}}.
func ParseTemplate(src string) (Func, error) {
	t, err := template.New("countdown").Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	// Execute once against zero values so field typos fail early.
	if err := t.Execute(&strings.Builder{}, countdown.Values{}); err != nil {
		return nil, fmt.Errorf("check template: %w", err)
	}

	return func(v countdown.Values) string {
		var sb strings.Builder
		if err := t.Execute(&sb, v); err != nil {
			return err.Error()
		}
		return sb.String()
	}, nil
}
