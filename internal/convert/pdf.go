package convert

import (
	"bytes"
	"fmt"

	"github.com/digitorus/pdf"
)

// PageCount parses data as a PDF and returns its number of pages.
func PageCount(data []byte) (n int, err error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty output", ErrInvalidOutput)
	}
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("%w: %v", ErrInvalidOutput, r)
		}
	}()

	rd, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	return rd.NumPage(), nil
}

// validatePDF rejects output that is unreadable or has no pages.
func validatePDF(data []byte) error {
	n, err := PageCount(data)
	if err != nil {
		return err
	}
	if n < 1 {
		return fmt.Errorf("%w: no pages", ErrInvalidOutput)
	}
	return nil
}
