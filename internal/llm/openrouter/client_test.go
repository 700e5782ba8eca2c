package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/travel-insurance-bot/internal/llm"
)

func TestClient_CompleteWithSystem(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name       string
		response   interface{}
		statusCode int
		wantErr    error
	}{
		{
			name: "successful completion",
			response: llm.ChatResponse{
				Choices: []llm.Choice{
					{Message: llm.Message{Role: "assistant", Content: `{"arrivalCountry":"FR"}`}},
				},
			},
			statusCode: http.StatusOK,
			wantErr:    nil,
		},
		{
			name:       "unauthorized",
			response:   map[string]string{"error": "unauthorized"},
			statusCode: http.StatusUnauthorized,
			wantErr:    llm.ErrAuthFailed,
		},
		{
			name:       "rate limit",
			response:   map[string]string{"error": "rate limit"},
			statusCode: http.StatusTooManyRequests,
			wantErr:    llm.ErrRateLimit,
		},
		{
			name: "empty response",
			response: llm.ChatResponse{
				Choices: []llm.Choice{},
			},
			statusCode: http.StatusOK,
			wantErr:    llm.ErrEmptyResponse,
		},
		{
			name:       "error in body",
			response:   map[string]any{"error": map[string]any{"message": "model overloaded", "code": 502}},
			statusCode: http.StatusOK,
			wantErr:    llm.ErrRequestFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer test-key" {
					t.Error("missing authorization header")
				}

				var req llm.ChatRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("decode request: %v", err)
				}
				if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
					t.Error("request should ask for json_object")
				}

				w.WriteHeader(tt.statusCode)
				json.NewEncoder(w).Encode(tt.response)
			}))
			defer server.Close()

			client := New(Config{
				APIKey:  "test-key",
				BaseURL: server.URL,
				Timeout: 5 * time.Second,
				Backoff: []time.Duration{},
			}, logger)

			result, err := client.CompleteWithSystem(context.Background(), "system", "prompt")

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("CompleteWithSystem() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Errorf("CompleteWithSystem() unexpected error = %v", err)
				return
			}

			if result == "" {
				t.Error("CompleteWithSystem() returned empty result")
			}
		})
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(llm.ChatResponse{
			Choices: []llm.Choice{{Message: llm.Message{Role: "assistant", Content: "{}"}}},
		})
	}))
	defer server.Close()

	client := New(Config{
		APIKey:  "k",
		BaseURL: server.URL,
		Backoff: []time.Duration{time.Millisecond, time.Millisecond},
	}, zap.NewNop())

	got, err := client.CompleteWithSystem(context.Background(), "s", "p")
	if err != nil {
		t.Fatalf("CompleteWithSystem() error = %v", err)
	}
	if got != "{}" {
		t.Errorf("CompleteWithSystem() = %q", got)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestClient_GivesUpAfterBackoff(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(Config{
		APIKey:  "k",
		BaseURL: server.URL,
		Backoff: []time.Duration{time.Millisecond},
	}, zap.NewNop())

	_, err := client.CompleteWithSystem(context.Background(), "s", "p")
	if !errors.Is(err, llm.ErrRequestFailed) {
		t.Errorf("error = %v, want ErrRequestFailed", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}
