// Package formdata prepares and checks the values users submit for a form.
package formdata

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/unicode/norm"
)

var multiSpace = regexp.MustCompile(` {2,}`)

// Clean returns a copy of data ready for binding. nil becomes "". Strings
// lose carriage returns and repeated spaces, are trimmed and put in NFC so
// composed and decomposed Vietnamese input render alike. Line feeds are kept
// for multi-line fields. Other values pass through unchanged.
func Clean(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch val := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = CleanString(val)
		default:
			out[k] = v
		}
	}
	return out
}

// CleanString applies the string rules of Clean.
func CleanString(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = multiSpace.ReplaceAllString(s, " ")
	return norm.NFC.String(strings.TrimSpace(s))
}

// Field types understood by Validate.
const (
	TypeEmail = "email"
	TypePhone = "phone"
	TypeDate  = "date"
)

// Rule constrains one field.
type Rule struct {
	Field     string `json:"fieldName" yaml:"field"`
	Type      string `json:"type,omitempty" yaml:"type,omitempty"`
	Required  bool   `json:"required,omitempty" yaml:"required,omitempty"`
	MinLength int    `json:"minLength,omitempty" yaml:"min_length,omitempty"`
	MaxLength int    `json:"maxLength,omitempty" yaml:"max_length,omitempty"`
	Pattern   string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// Result lists the failing fields with one message each.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

var (
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@([A-Za-z0-9.-]+\.[A-Za-z]{2,})$`)
	phonePattern = regexp.MustCompile(`^[0-9+\-\s()]{10,15}$`)
	dateLayouts  = []string{"2006-01-02", "02/01/2006", "02-01-2006"}
)

// Validate checks data against rules. When a field breaks several rules the
// last one checked wins, in this order: type, minimum length, maximum length,
// pattern. A malformed pattern is reported as a failure of its field.
func Validate(data map[string]any, rules []Rule) Result {
	errs := make(map[string]string)
	for _, r := range rules {
		raw, present := data[r.Field]
		s := ""
		if present && raw != nil {
			s = strings.TrimSpace(stringify(raw))
		}
		if s == "" {
			if r.Required {
				errs[r.Field] = fmt.Sprintf("Trường %s là bắt buộc", r.Field)
			}
			continue
		}

		switch r.Type {
		case TypeEmail:
			if !emailPattern.MatchString(s) {
				errs[r.Field] = "Email không hợp lệ"
			}
		case TypePhone:
			if !phonePattern.MatchString(s) {
				errs[r.Field] = "Số điện thoại không hợp lệ"
			}
		case TypeDate:
			if !validDate(s) {
				errs[r.Field] = "Định dạng ngày không hợp lệ"
			}
		}

		n := utf8.RuneCountInString(s)
		if r.MinLength > 0 && n < r.MinLength {
			errs[r.Field] = fmt.Sprintf("Độ dài tối thiểu %d ký tự", r.MinLength)
		}
		if r.MaxLength > 0 && n > r.MaxLength {
			errs[r.Field] = fmt.Sprintf("Độ dài tối đa %d ký tự", r.MaxLength)
		}
		if r.Pattern != "" {
			re, err := regexp.Compile(`^(?:` + r.Pattern + `)$`)
			if err != nil || !re.MatchString(s) {
				errs[r.Field] = "Định dạng không hợp lệ"
			}
		}
	}
	return Result{Valid: len(errs) == 0, Errors: errs}
}

func validDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Conditional copies base and, for each condition, stores its boolean under
// the condition name and picks "<name>_true" or "<name>_false" from base as
// "<name>_content".
func Conditional(base map[string]any, conditions map[string]bool) map[string]any {
	out := make(map[string]any, len(base)+2*len(conditions))
	for k, v := range base {
		out[k] = v
	}
	for name, on := range conditions {
		out[name] = on
		if on {
			out[name+"_content"] = base[name+"_true"]
		} else {
			out[name+"_content"] = base[name+"_false"]
		}
	}
	return out
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

// FormatCurrency groups the digits of v the way lang writes numbers and
// appends unit. nil formats as "0"; a value without digits is returned as
// text. An empty lang defaults to Vietnamese and an empty unit to VND.
func FormatCurrency(v any, lang, unit string) string {
	if v == nil {
		return "0"
	}
	s := stringify(v)
	if f, ok := v.(float64); ok {
		s = strconv.FormatFloat(f, 'f', 0, 64)
	}
	digits := nonDigits.ReplaceAllString(s, "")
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return s
	}

	tag := language.Vietnamese
	if lang != "" {
		if t, err := language.Parse(lang); err == nil {
			tag = t
		}
	}
	if unit == "" {
		unit = "VND"
	}
	return message.NewPrinter(tag).Sprintf("%d", n) + " " + unit
}
