package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody bounds how much of an error response is kept in a StatusError.
const maxErrorBody = 2048

// postJSON sends body as JSON to url and decodes a 2xx response into out.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, body, out interface{}) error {
	reqJSON, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqJSON))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request to %s API: %w", provider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := extractErrorMessage(respBody)
		if message == "" {
			if len(respBody) > maxErrorBody {
				respBody = respBody[:maxErrorBody]
			}
			message = string(respBody)
		}
		return &StatusError{Provider: provider, StatusCode: resp.StatusCode, Message: message}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("error unmarshaling %s response: %w", provider, err)
	}
	return nil
}
