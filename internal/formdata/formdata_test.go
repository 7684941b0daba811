package formdata_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/alnah/go-eform/internal/formdata"
)

// ---------------------------------------------------------------------------
// TestClean
// ---------------------------------------------------------------------------

func TestClean(t *testing.T) {
	t.Parallel()

	decomposed := "Nguye\u0302\u0303n"
	in := map[string]any{
		"name":    "  Ana   Bao  ",
		"address": "1 Main St\r\nHanoi\rVN",
		"notes":   "line one\nline two",
		"vn":      decomposed,
		"nil":     nil,
		"amount":  100.5,
		"items":   []any{"a"},
	}
	got := formdata.Clean(in)

	want := map[string]any{
		"name":    "Ana Bao",
		"address": "1 Main St Hanoi VN",
		"notes":   "line one\nline two",
		"vn":      "Nguy\u1ec5n",
		"nil":     "",
		"amount":  100.5,
		"items":   []any{"a"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Clean() (-want +got):\n%s", diff)
	}
	if in["name"] != "  Ana   Bao  " {
		t.Error("Clean() modified its input")
	}
}

// ---------------------------------------------------------------------------
// TestValidate
// ---------------------------------------------------------------------------

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data map[string]any
		rule formdata.Rule
		want string
	}{
		{name: "required missing", data: map[string]any{}, rule: formdata.Rule{Field: "name", Required: true}, want: "Trường name là bắt buộc"},
		{name: "required blank", data: map[string]any{"name": "  "}, rule: formdata.Rule{Field: "name", Required: true}, want: "Trường name là bắt buộc"},
		{name: "optional blank", data: map[string]any{}, rule: formdata.Rule{Field: "email", Type: "email"}},
		{name: "email ok", data: map[string]any{"e": "ana@example.vn"}, rule: formdata.Rule{Field: "e", Type: "email"}},
		{name: "email bad", data: map[string]any{"e": "ana@"}, rule: formdata.Rule{Field: "e", Type: "email"}, want: "Email không hợp lệ"},
		{name: "phone ok", data: map[string]any{"p": "+84 912 345 678"}, rule: formdata.Rule{Field: "p", Type: "phone"}},
		{name: "phone short", data: map[string]any{"p": "12345"}, rule: formdata.Rule{Field: "p", Type: "phone"}, want: "Số điện thoại không hợp lệ"},
		{name: "iso date", data: map[string]any{"d": "2024-01-31"}, rule: formdata.Rule{Field: "d", Type: "date"}},
		{name: "slash date", data: map[string]any{"d": "31/01/2024"}, rule: formdata.Rule{Field: "d", Type: "date"}},
		{name: "dash date", data: map[string]any{"d": "31-01-2024"}, rule: formdata.Rule{Field: "d", Type: "date"}},
		{name: "impossible date", data: map[string]any{"d": "31/02/2024"}, rule: formdata.Rule{Field: "d", Type: "date"}, want: "Định dạng ngày không hợp lệ"},
		{name: "min length in runes", data: map[string]any{"n": "Đức"}, rule: formdata.Rule{Field: "n", MinLength: 4}, want: "Độ dài tối thiểu 4 ký tự"},
		{name: "max length", data: map[string]any{"n": "abcdef"}, rule: formdata.Rule{Field: "n", MaxLength: 5}, want: "Độ dài tối đa 5 ký tự"},
		{name: "pattern full match", data: map[string]any{"c": "AB12"}, rule: formdata.Rule{Field: "c", Pattern: `[A-Z]{2}\d{2}`}},
		{name: "pattern partial", data: map[string]any{"c": "AB123"}, rule: formdata.Rule{Field: "c", Pattern: `[A-Z]{2}\d{2}`}, want: "Định dạng không hợp lệ"},
		{name: "bad pattern", data: map[string]any{"c": "x"}, rule: formdata.Rule{Field: "c", Pattern: `(`}, want: "Định dạng không hợp lệ"},
		{name: "number value", data: map[string]any{"n": 12345.0}, rule: formdata.Rule{Field: "n", MaxLength: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := formdata.Validate(tt.data, []formdata.Rule{tt.rule})
			if got := res.Errors[tt.rule.Field]; got != tt.want {
				t.Errorf("error = %q, want %q", got, tt.want)
			}
			if res.Valid != (tt.want == "") {
				t.Errorf("Valid = %v", res.Valid)
			}
		})
	}
}

func TestValidate_LastRuleWins(t *testing.T) {
	t.Parallel()

	res := formdata.Validate(map[string]any{"e": "x"}, []formdata.Rule{{Field: "e", Type: "email", MinLength: 3}})
	if got := res.Errors["e"]; got != "Độ dài tối thiểu 3 ký tự" {
		t.Errorf("error = %q", got)
	}
}

// ---------------------------------------------------------------------------
// TestConditional / TestFormatCurrency
// ---------------------------------------------------------------------------

func TestConditional(t *testing.T) {
	t.Parallel()

	base := map[string]any{
		"vip_true": "Priority support", "vip_false": "Standard support",
		"name": "Ana",
	}
	got := formdata.Conditional(base, map[string]bool{"vip": true, "paid": false})

	if got["vip"] != true || got["vip_content"] != "Priority support" {
		t.Errorf("vip = %v, content = %v", got["vip"], got["vip_content"])
	}
	if got["paid"] != false || got["paid_content"] != nil {
		t.Errorf("paid = %v, content = %v", got["paid"], got["paid_content"])
	}
	if _, ok := base["vip"]; ok {
		t.Error("Conditional() modified base")
	}
}

func TestFormatCurrency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in         any
		lang, unit string
		want       string
	}{
		{in: 1234567, want: "1.234.567 VND"},
		{in: "1,234,567đ", want: "1.234.567 VND"},
		{in: 1234567.0, want: "1.234.567 VND"},
		{in: 500, want: "500 VND"},
		{in: nil, want: "0"},
		{in: "n/a", want: "n/a"},
		{in: 1234567, lang: "en", unit: "USD", want: "1,234,567 USD"},
	}
	for _, tt := range tests {
		if got := formdata.FormatCurrency(tt.in, tt.lang, tt.unit); got != tt.want {
			t.Errorf("FormatCurrency(%v, %q, %q) = %q, want %q", tt.in, tt.lang, tt.unit, got, tt.want)
		}
	}
}
