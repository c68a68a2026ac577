package webclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// NewDefault returns an HTTP client with sane timeouts.
func NewDefault(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = 8 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// GetJSON fetches url and decodes the response body into out.
func GetJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, out interface{}) error {
	_, body, err := DoWithRetry(ctx, 3, time.Second, func() (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return 0, nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return attempt(client, req)
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

// PostJSON posts payload as JSON to url and decodes the response body into out.
func PostJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload, out interface{}) error {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, body, err := DoWithRetry(ctx, 3, time.Second, func() (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(bodyBytes))
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return attempt(client, req)
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func attempt(client *http.Client, req *http.Request) (int, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, b, fmt.Errorf("status %d", resp.StatusCode)
	}
	return resp.StatusCode, b, nil
}
