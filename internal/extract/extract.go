// Package extract finds {{name}} placeholders in a document.
package extract

import (
	"regexp"
	"strings"

	"github.com/alnah/go-eform/internal/docx"
)

// placeholderPattern matches {{name}} without nested braces.
var placeholderPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// Variables returns the distinct placeholder names of doc in order of first
// occurrence. Body paragraphs and table cells are scanned in document order.
func Variables(doc *docx.Document) []string {
	seen := make(map[string]struct{})
	vars := []string{}
	_ = doc.Walk(func(p docx.Paragraph) error {
		for _, name := range Names(p.Text()) {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			vars = append(vars, name)
		}
		return nil
	})
	return vars
}

// File opens the document at path and returns its variables.
func File(path string) ([]string, error) {
	doc, err := docx.Open(path)
	if err != nil {
		return nil, err
	}
	return Variables(doc), nil
}

// Names returns the trimmed placeholder names found in s, in order and with
// duplicates. Empty names are skipped.
func Names(s string) []string {
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		if name := strings.TrimSpace(m[1]); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Match is a placeholder occurrence within a string.
type Match struct {
	Name       string
	Start, End int
}

// Find returns the placeholder occurrences in s with byte offsets.
func Find(s string) []Match {
	var out []Match
	for _, loc := range placeholderPattern.FindAllStringSubmatchIndex(s, -1) {
		name := strings.TrimSpace(s[loc[2]:loc[3]])
		if name == "" {
			continue
		}
		out = append(out, Match{Name: name, Start: loc[0], End: loc[1]})
	}
	return out
}
