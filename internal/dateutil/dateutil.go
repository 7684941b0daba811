// Package dateutil resolves date markers in form values. A value of
// "@today" or "@today:FORMAT" is replaced by the render date, so a template
// can be printed with the current date without storing it in the form.
//
// FORMAT uses the tokens YYYY, YY, MM, M, DD and D, or one of the presets
// below. Text inside brackets is copied literally: "[ngày] D" keeps "ngày".
package dateutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDateFormat indicates a malformed marker format.
var ErrInvalidDateFormat = errors.New("invalid date format")

// Marker starts a value resolved to the render date.
const Marker = "@today"

// MaxFormatLength caps marker formats.
const MaxFormatLength = 50

// DefaultFormat is used by a bare marker.
const DefaultFormat = "DD/MM/YYYY"

// Presets names common formats.
var Presets = map[string]string{
	"iso":  "YYYY-MM-DD",
	"vn":   "DD/MM/YYYY",
	"us":   "MM/DD/YYYY",
	"long": "[ngày] DD [tháng] MM [năm] YYYY",
}

// tokens, longest first so YYYY wins over YY.
var tokens = []struct {
	token  string
	format func(time.Time) string
}{
	{"YYYY", func(t time.Time) string { return fmt.Sprintf("%04d", t.Year()) }},
	{"YY", func(t time.Time) string { return fmt.Sprintf("%02d", t.Year()%100) }},
	{"MM", func(t time.Time) string { return fmt.Sprintf("%02d", int(t.Month())) }},
	{"DD", func(t time.Time) string { return fmt.Sprintf("%02d", t.Day()) }},
	{"M", func(t time.Time) string { return strconv.Itoa(int(t.Month())) }},
	{"D", func(t time.Time) string { return strconv.Itoa(t.Day()) }},
}

// Format writes t using format.
func Format(t time.Time, format string) (string, error) {
	if format == "" {
		return "", fmt.Errorf("%w: empty format", ErrInvalidDateFormat)
	}
	if len(format) > MaxFormatLength {
		return "", fmt.Errorf("%w: format exceeds %d characters", ErrInvalidDateFormat, MaxFormatLength)
	}

	var sb strings.Builder
	for i := 0; i < len(format); {
		if format[i] == '[' {
			end := strings.IndexByte(format[i+1:], ']')
			if end < 0 {
				return "", fmt.Errorf("%w: unclosed bracket at position %d", ErrInvalidDateFormat, i)
			}
			sb.WriteString(format[i+1 : i+1+end])
			i += end + 2
			continue
		}
		matched := false
		for _, tok := range tokens {
			if strings.HasPrefix(format[i:], tok.token) {
				sb.WriteString(tok.format(t))
				i += len(tok.token)
				matched = true
				break
			}
		}
		if !matched {
			sb.WriteByte(format[i])
			i++
		}
	}
	return sb.String(), nil
}

// Resolve replaces a marker value by t. Other values are returned unchanged
// with ok false.
func Resolve(value string, t time.Time) (out string, ok bool, err error) {
	rest, found := strings.CutPrefix(value, Marker)
	if !found || (rest != "" && rest[0] != ':') {
		return value, false, nil
	}
	format := DefaultFormat
	if rest != "" {
		format = rest[1:]
		if preset, ok := Presets[strings.ToLower(format)]; ok {
			format = preset
		}
	}
	out, err = Format(t, format)
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", value, err)
	}
	return out, true, nil
}

// ResolveValues returns a copy of data with every marker replaced by t,
// including markers inside table rows. data is not modified.
func ResolveValues(data map[string]any, t time.Time) (map[string]any, error) {
	out, err := resolve(data, t)
	if err != nil {
		return nil, err
	}
	m, _ := out.(map[string]any)
	return m, nil
}

func resolve(v any, t time.Time) (any, error) {
	switch val := v.(type) {
	case string:
		s, _, err := Resolve(val, t)
		return s, err
	case map[string]any:
		if val == nil {
			return map[string]any(nil), nil
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			r, err := resolve(item, t)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			r, err := resolve(item, t)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, row := range val {
			r, err := resolve(row, t)
			if err != nil {
				return nil, err
			}
			out[i], _ = r.(map[string]any)
		}
		return out, nil
	default:
		return v, nil
	}
}
