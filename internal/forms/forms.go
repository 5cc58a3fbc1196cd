// Package forms binds and validates submitted form values. Nothing here
// touches storage; checks that need the database live in the board service.
package forms

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Errors maps a field name to its messages. The empty name holds errors that
// belong to the form as a whole.
type Errors map[string][]string

func (e Errors) Add(field, format string, args ...any) {
	e[field] = append(e[field], fmt.Sprintf(format, args...))
}

func (e Errors) Any() bool { return len(e) > 0 }

// Extend adds every message of other to e.
func (e Errors) Extend(other Errors) {
	for field, msgs := range other {
		e[field] = append(e[field], msgs...)
	}
}

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e[f], "; "))
	}
	return "invalid form: " + strings.Join(parts, ", ")
}

func required(errs Errors, field, value string) bool {
	if strings.TrimSpace(value) == "" {
		errs.Add(field, "This field is required.")
		return false
	}
	return true
}

func maxLength(errs Errors, field, value string, n int) {
	if l := utf8.RuneCountInString(value); l > n {
		errs.Add(field, "Ensure this value has at most %d characters (it has %d).", n, l)
	}
}

func hasControl(value string) bool {
	return strings.ContainsFunc(value, unicode.IsControl)
}

// singleLine rejects line breaks and other control characters.
func singleLine(errs Errors, field, value string) {
	if hasControl(value) {
		errs.Add(field, "Enter a single line of text without control characters.")
	}
}

// ParseBool reads a checkbox style value. Absent values yield def.
func ParseBool(values url.Values, field string, def bool) (bool, error) {
	if _, ok := values[field]; !ok {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(values.Get(field))) {
	case "on", "true", "1", "yes":
		return true, nil
	case "", "off", "false", "0", "no":
		return false, nil
	}
	return def, fmt.Errorf("%q is not a boolean", values.Get(field))
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}

// Values returns a copy of the posted values without secrets, for echoing the
// bound form back to the client.
func Values(values url.Values, secret ...string) map[string]string {
	out := make(map[string]string, len(values))
	for k := range values {
		out[k] = values.Get(k)
	}
	for _, k := range secret {
		delete(out, k)
	}
	return out
}
