package tools

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/localrivet/tinysummary/internal/errortypes"
)

func TestSummarizeRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     SummarizeRequest
		wantErr bool
	}{
		{name: "text present", req: SummarizeRequest{Text: "One sentence."}},
		{name: "empty text", req: SummarizeRequest{}, wantErr: true},
		{name: "whitespace only is accepted", req: SummarizeRequest{Text: " \n\t "}},
		{name: "negative cap is allowed", req: SummarizeRequest{Text: "Hi.", MaxSentences: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if !tt.wantErr {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errortypes.IsValidationError(err) {
				t.Errorf("Validate() = %v, want validation error", err)
			}
			if !errors.Is(err, ErrMissingText) {
				t.Errorf("Validate() = %v, want ErrMissingText", err)
			}
		})
	}
}

func TestSummarizeRequest_FieldNames(t *testing.T) {
	var req SummarizeRequest
	if err := json.Unmarshal([]byte(`{"text":"abc","max_sentences":2}`), &req); err != nil {
		t.Fatalf("Failed to unmarshal SummarizeRequest: %v", err)
	}
	if req.Text != "abc" || req.MaxSentences != 2 {
		t.Errorf("Unexpected request: %+v", req)
	}
}

func TestSummarizeResponse_OmitsEmptyError(t *testing.T) {
	data, err := json.Marshal(SummarizeResponse{Status: StatusSuccess, Summary: "s", Source: "extractive"})
	if err != nil {
		t.Fatalf("Failed to marshal SummarizeResponse: %v", err)
	}

	var jsonMap map[string]interface{}
	if err := json.Unmarshal(data, &jsonMap); err != nil {
		t.Fatalf("Failed to unmarshal JSON into map: %v", err)
	}
	if _, ok := jsonMap["error"]; ok {
		t.Error("Expected error field to be omitted")
	}
	if cached, ok := jsonMap["cached"].(bool); !ok || cached {
		t.Errorf("Expected cached=false, got %v", jsonMap["cached"])
	}
}
