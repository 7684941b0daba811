package bind

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-eform/internal/docx"
)

// Kind selects how a bound value is rendered into the document.
type Kind int

const (
	KindText Kind = iota
	KindImage
	KindTable
	KindMarkdown
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindTable:
		return "table"
	case KindMarkdown:
		return "markdown"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// TypeKey marks structured values decoded from JSON or YAML, for example
// {"@type": "image", "path": "logo.png", "width": 120}.
const TypeKey = "@type"

// Image is an inline picture. Path is read from disk when Data is empty.
// Width and Height are pixels; zero keeps the natural size, one zero keeps
// the aspect ratio.
type Image struct {
	Path   string
	Data   []byte
	Width  int
	Height int
}

// Table is tabular data. Records take precedence over Rows.
//
// In a table cell the placeholder row is repeated once per record, with
// [field] markers filled from the record, or once per row with cells filled
// by position. In a body paragraph a new table replaces the paragraph.
type Table struct {
	Header  []string
	Rows    [][]string
	Records []map[string]any
}

// Markdown is rich text rendered as formatted runs.
type Markdown string

// imageKeyWords flags keys whose string values name image files.
var imageKeyWords = []string{"image", "picture"}

// resolve classifies a data value.
func resolve(key string, v any, imageKeys bool) (Kind, any, error) {
	switch val := v.(type) {
	case Image:
		return KindImage, val, nil
	case *Image:
		if val == nil {
			return KindText, "", nil
		}
		return KindImage, *val, nil
	case Table:
		return KindTable, val, nil
	case *Table:
		if val == nil {
			return KindText, "", nil
		}
		return KindTable, *val, nil
	case Markdown:
		return KindMarkdown, val, nil
	case map[string]any:
		if _, typed := val[TypeKey]; typed {
			return resolveTyped(val)
		}
	case []map[string]any:
		return KindTable, Table{Records: val}, nil
	case []any:
		if records, ok := asRecords(val); ok {
			return KindTable, Table{Records: records}, nil
		}
	case string:
		if imageKeys && looksLikeImageKey(key) && isImagePath(val) {
			return KindImage, Image{Path: val}, nil
		}
	}
	return KindText, Text(v), nil
}

func resolveTyped(m map[string]any) (Kind, any, error) {
	typ, _ := m[TypeKey].(string)
	switch strings.ToLower(typ) {
	case "text":
		return KindText, Text(m["value"]), nil
	case "markdown":
		return KindMarkdown, Markdown(Text(m["text"])), nil
	case "image":
		img := Image{
			Path:   Text(m["path"]),
			Width:  toInt(m["width"]),
			Height: toInt(m["height"]),
		}
		if raw := Text(m["data"]); raw != "" {
			data, err := base64.StdEncoding.DecodeString(raw)
			if err != nil {
				return 0, nil, fmt.Errorf("image data is not base64: %v", err)
			}
			img.Data = data
		}
		if img.Path == "" && img.Data == nil {
			return 0, nil, fmt.Errorf("image needs path or data")
		}
		return KindImage, img, nil
	case "table":
		t := Table{Header: toStrings(m["header"])}
		if rows, ok := m["rows"].([]any); ok {
			for _, r := range rows {
				t.Rows = append(t.Rows, toStrings(r))
			}
		}
		if recs, ok := m["records"].([]any); ok {
			records, ok := asRecords(recs)
			if !ok {
				return 0, nil, fmt.Errorf("table records must be objects")
			}
			t.Records = records
		}
		return KindTable, t, nil
	}
	return 0, nil, fmt.Errorf("unknown %s %q", TypeKey, typ)
}

func asRecords(items []any) ([]map[string]any, bool) {
	if len(items) == 0 {
		return nil, false
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			return nil, false
		}
		out = append(out, m)
	}
	return out, true
}

func looksLikeImageKey(key string) bool {
	k := strings.ToLower(key)
	for _, w := range imageKeyWords {
		if strings.Contains(k, w) {
			return true
		}
	}
	return false
}

func isImagePath(s string) bool {
	_, ok := docx.ImageContentType(filepath.Ext(s))
	return ok
}

// Text renders a scalar as the string placed into a run. Numbers use the
// shortest decimal form, nil is empty, structured values become JSON.
func Text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case Markdown:
		return string(val)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(val)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	}
	out, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(out)
}

func toInt(v any) int {
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	case int64:
		return int(val)
	case uint64:
		return int(val)
	case json.Number:
		n, _ := val.Int64()
		return int(n)
	case string:
		n, _ := strconv.Atoi(val)
		return n
	}
	return 0
}

func toStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss
		}
		return nil
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = Text(it)
	}
	return out
}

// columns returns the header and string rows of a table. Record tables
// without a header use the sorted union of record keys.
func (t Table) columns() ([]string, [][]string) {
	if len(t.Records) == 0 {
		return t.Header, t.Rows
	}
	header := t.Header
	if len(header) == 0 {
		keys := make(map[string]struct{})
		for _, rec := range t.Records {
			for k := range rec {
				keys[k] = struct{}{}
			}
		}
		for k := range keys {
			header = append(header, k)
		}
		sort.Strings(header)
	}
	rows := make([][]string, len(t.Records))
	for i, rec := range t.Records {
		row := make([]string, len(header))
		for j, h := range header {
			row[j] = Text(rec[h])
		}
		rows[i] = row
	}
	return header, rows
}
