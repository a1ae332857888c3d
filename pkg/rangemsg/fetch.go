package rangemsg

import (
	"context"
	"fmt"
	"net/http"
)

// DefaultURL is where the International ISBN Agency publishes the range message.
const DefaultURL = "https://www.isbn-international.org/export_rangemessage.xml"

// Fetch downloads and parses the range message at url.
func Fetch(ctx context.Context, url string) (*Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch range message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return Parse(resp.Body)
}
