package helpdesk

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// TemplateError reports an unusable path template or a bad expansion.
type TemplateError struct {
	Template string
	Param    string
	Message  string
}

func (e *TemplateError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("template %q: parameter %q: %s", e.Template, e.Param, e.Message)
	}
	return fmt.Sprintf("template %q: %s", e.Template, e.Message)
}

var placeholder = regexp.MustCompile(`\{([^{}]*)\}`)

var paramName = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// Template is a relative URL path with named placeholders, such as
// "receipts/{event-id}".
type Template struct {
	raw    string
	params []string
}

// ParseTemplate parses raw. Placeholder names are lower-case words joined by
// hyphens and may appear at most once.
func ParseTemplate(raw string) (Template, error) {
	if strings.TrimSpace(raw) == "" {
		return Template{}, &TemplateError{Template: raw, Message: "empty template"}
	}
	if strings.Count(raw, "{") != strings.Count(raw, "}") {
		return Template{}, &TemplateError{Template: raw, Message: "unbalanced braces"}
	}

	seen := map[string]bool{}
	var params []string
	for _, m := range placeholder.FindAllStringSubmatch(raw, -1) {
		name := m[1]
		if !paramName.MatchString(name) {
			return Template{}, &TemplateError{Template: raw, Param: name, Message: "invalid placeholder name"}
		}
		if seen[name] {
			return Template{}, &TemplateError{Template: raw, Param: name, Message: "duplicate placeholder"}
		}
		seen[name] = true
		params = append(params, name)
	}
	return Template{raw: raw, params: params}, nil
}

// MustParseTemplate is ParseTemplate for package-level defaults.
func MustParseTemplate(raw string) Template {
	t, err := ParseTemplate(raw)
	if err != nil {
		panic(err)
	}
	return t
}

func (t Template) String() string {
	return t.raw
}

// Params returns the placeholder names in order of appearance.
func (t Template) Params() []string {
	return append([]string(nil), t.params...)
}

// Expand substitutes every placeholder with the path-escaped value from
// params. Missing, empty and unknown parameters are errors.
func (t Template) Expand(params map[string]string) (string, error) {
	declared := map[string]bool{}
	for _, p := range t.params {
		declared[p] = true
	}

	var unknown []string
	for name := range params {
		if !declared[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return "", &TemplateError{Template: t.raw, Param: unknown[0], Message: "unknown parameter"}
	}

	for _, p := range t.params {
		v, ok := params[p]
		if !ok {
			return "", &TemplateError{Template: t.raw, Param: p, Message: "missing value"}
		}
		if v == "" {
			return "", &TemplateError{Template: t.raw, Param: p, Message: "empty value"}
		}
	}

	return placeholder.ReplaceAllStringFunc(t.raw, func(m string) string {
		return url.PathEscape(params[m[1:len(m)-1]])
	}), nil
}

// requireParams checks that t declares exactly want.
func (t Template) requireParams(want ...string) error {
	got := t.Params()
	sort.Strings(got)
	sorted := append([]string(nil), want...)
	sort.Strings(sorted)
	if strings.Join(got, ",") != strings.Join(sorted, ",") {
		return &TemplateError{
			Template: t.raw,
			Message:  fmt.Sprintf("expected placeholders %v, found %v", sorted, got),
		}
	}
	return nil
}
