package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// InferenceServer is a fake chat completions endpoint.
type InferenceServer struct {
	*httptest.Server
	calls atomic.Int64
}

// Calls returns how many requests the server has answered.
func (s *InferenceServer) Calls() int {
	return int(s.calls.Load())
}

// NewInferenceServer answers every chat completion with the text returned by
// answer. A status of 300 or more makes the server fail with that code
// instead.
func NewInferenceServer(t testing.TB, answer func(call int) (string, int)) *InferenceServer {
	t.Helper()
	srv := &InferenceServer{}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := int(srv.calls.Add(1))
		text, status := answer(call)
		if status >= http.StatusMultipleChoices {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"fake failure"}}`))
			return
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": text},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// StaticAnswer always returns text with status 200.
func StaticAnswer(text string) func(int) (string, int) {
	return func(int) (string, int) { return text, http.StatusOK }
}
