// Package vision is the image-analysis boundary: a narrow Analyzer
// contract plus attachment fetching and preprocessing. The core decision
// logic never calls a vision provider directly — it only ever sees the
// textual summary.
package vision

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Analyzer describes an image in text. Implementations wrap whatever
// vision-capable provider is configured.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, data []byte, prompt string) (string, error)
}

// Noop is the disabled analyzer: images pass through unanalyzed.
type Noop struct{}

func (Noop) AnalyzeImage(context.Context, []byte, string) (string, error) {
	return "", nil
}

// DefaultMaxImageBytes is the safety limit for downloaded attachments.
const DefaultMaxImageBytes = 10 * 1024 * 1024

var fetchClient = &http.Client{Timeout: 30 * time.Second}

// Fetch downloads an attachment, capped at maxBytes (0 = default).
func Fetch(ctx context.Context, url string, maxBytes int) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	resp, err := fetchClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxBytes)+1))
	if err != nil {
		return nil, fmt.Errorf("read image body: %w", err)
	}
	if len(data) > maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxBytes)
	}
	return data, nil
}
