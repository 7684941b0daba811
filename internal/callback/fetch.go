package callback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/alnah/go-eform/internal/fileutil"
)

// DefaultMaxBytes caps downloaded documents.
const DefaultMaxBytes = 100 << 20

// ErrFetch is returned when the edited document cannot be downloaded.
var ErrFetch = errors.New("fetching document")

// HTTPFetcher downloads documents over HTTP(S). Client timeouts bound each
// download; MaxBytes caps its size.
type HTTPFetcher struct {
	Client   *http.Client
	MaxBytes int64
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if !fileutil.IsURL(rawURL) {
		return nil, fmt.Errorf("%w: not an http(s) URL: %q", ErrFetch, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: unexpected status %s", ErrFetch, resp.Status)
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	return &limitedBody{r: io.LimitReader(resp.Body, limit+1), c: resp.Body, left: limit}, nil
}

// limitedBody fails once more than left bytes are read, instead of silently
// truncating the document.
type limitedBody struct {
	r    io.Reader
	c    io.Closer
	left int64
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	b.left -= int64(n)
	if b.left < 0 {
		return n, fmt.Errorf("%w: document exceeds size limit", ErrFetch)
	}
	return n, err
}

func (b *limitedBody) Close() error { return b.c.Close() }
