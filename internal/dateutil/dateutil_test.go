package dateutil

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var renderDay = time.Date(2024, time.January, 5, 15, 4, 0, 0, time.UTC)

// ---------------------------------------------------------------------------
// TestFormat
// ---------------------------------------------------------------------------

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{format: "DD/MM/YYYY", want: "05/01/2024"},
		{format: "D/M/YY", want: "5/1/24"},
		{format: "YYYY-MM-DD", want: "2024-01-05"},
		{format: "[ngày] D [tháng] M [năm] YYYY", want: "ngày 5 tháng 1 năm 2024"},
		{format: "[Day 1:] D", want: "Day 1: 5"},
		{format: "Q1 YYYY", want: "Q1 2024"},
		{format: "", wantErr: true},
		{format: "[open DD", wantErr: true},
		{format: string(make([]byte, MaxFormatLength+1)), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			got, err := Format(renderDay, tt.format)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDateFormat) {
					t.Errorf("Format(%q) error = %v, want ErrInvalidDateFormat", tt.format, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Format(%q) error = %v", tt.format, err)
			}
			if got != tt.want {
				t.Errorf("Format(%q) = %q, want %q", tt.format, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestResolve
// ---------------------------------------------------------------------------

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value   string
		want    string
		wantOK  bool
		wantErr bool
	}{
		{value: "@today", want: "05/01/2024", wantOK: true},
		{value: "@today:iso", want: "2024-01-05", wantOK: true},
		{value: "@today:LONG", want: "ngày 05 tháng 01 năm 2024", wantOK: true},
		{value: "@today:MM.YYYY", want: "01.2024", wantOK: true},
		{value: "@todays special", want: "@todays special"},
		{value: "automatic", want: "automatic"},
		{value: "today", want: "today"},
		{value: "@today:", wantErr: true},
		{value: "@today:[x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Parallel()

			got, ok, err := Resolve(tt.value, renderDay)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDateFormat) {
					t.Errorf("Resolve(%q) error = %v, want ErrInvalidDateFormat", tt.value, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.value, err)
			}
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Resolve(%q) = %q, %v; want %q, %v", tt.value, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestResolveValues
// ---------------------------------------------------------------------------

func TestResolveValues(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"signed": "@today",
		"name":   "Ana",
		"amount": 12.5,
		"items": []any{
			map[string]any{"due": "@today:iso", "sku": "A1"},
		},
		"rows": []map[string]any{{"at": "@today:D/M"}},
	}
	got, err := ResolveValues(in, renderDay)
	if err != nil {
		t.Fatalf("ResolveValues() error = %v", err)
	}

	want := map[string]any{
		"signed": "05/01/2024",
		"name":   "Ana",
		"amount": 12.5,
		"items": []any{
			map[string]any{"due": "2024-01-05", "sku": "A1"},
		},
		"rows": []map[string]any{{"at": "5/1"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ResolveValues() (-want +got):\n%s", diff)
	}
	if in["signed"] != "@today" {
		t.Error("input map was modified")
	}

	if _, err := ResolveValues(map[string]any{"x": "@today:[bad"}, renderDay); err == nil {
		t.Error("want error for malformed marker")
	}
}
