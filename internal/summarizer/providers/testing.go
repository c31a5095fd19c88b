package providers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockResponseConfig describes the canned reply of MockServer. A string or
// []byte body is written as is, anything else is JSON encoded.
type MockResponseConfig struct {
	StatusCode   int
	ResponseBody any
	Headers      map[string]string

	// Captured, when set, receives the last request seen by the server.
	Captured *CapturedRequest
}

// CapturedRequest is what a provider sent to MockServer.
type CapturedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// MockServer starts an httptest server answering every request with config.
// It is closed when the test ends.
func MockServer(t *testing.T, config MockResponseConfig) *httptest.Server {
	t.Helper()

	body, err := encodeBody(config.ResponseBody)
	if err != nil {
		t.Fatalf("encode mock response: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if config.Captured != nil {
			reqBody, _ := io.ReadAll(r.Body)
			*config.Captured = CapturedRequest{
				Method: r.Method,
				Path:   r.URL.Path,
				Header: r.Header.Clone(),
				Body:   reqBody,
			}
		}

		w.Header().Set("Content-Type", "application/json")
		for k, v := range config.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(config.StatusCode)
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(b), nil
	case []byte:
		return b, nil
	default:
		return json.Marshal(b)
	}
}

// MockChatCompletion is a minimal OpenAI-compatible chat completion body.
func MockChatCompletion(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": content},
			},
		},
	}
}
