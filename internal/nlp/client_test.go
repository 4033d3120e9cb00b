package nlp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Parse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.False(t, req.Stream)

		content := `{"themes":["grace"],"bpm_max":80,"key_preference":"G","vocal_lead":"male","intent":"search","confidence":0.91}`
		json.NewEncoder(w).Encode(ChatResponse{
			Message: ChatMessage{Role: "assistant", Content: content},
			Done:    true,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-model", 2*time.Second, logrus.New())

	result, err := client.Parse(context.Background(), "slow songs about grace in G for a male lead")
	require.NoError(t, err)
	assert.Equal(t, []string{"grace"}, result.Themes)
	assert.Equal(t, "G", result.KeyPreference)
	assert.Equal(t, 0.91, result.Confidence)
	require.NotNil(t, result.BPMMax)
	assert.Equal(t, 80, *result.BPMMax)
}

func TestClient_Parse_MalformedModelOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ChatResponse{
			Message: ChatMessage{Role: "assistant", Content: "Sure! Here are some songs..."},
			Done:    true,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-model", 2*time.Second, logrus.New())

	_, err := client.Parse(context.Background(), "slow songs")
	assert.Error(t, err)
}

func TestClient_ErrorHandling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("model not loaded"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-model", 2*time.Second, logrus.New())

	_, err := client.Parse(context.Background(), "slow songs")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestService_Timeout_FallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-model", time.Second, logrus.New())
	service := NewService(client, 0.7, 20*time.Millisecond, logrus.New())

	_, ok := service.ParseConstraints(context.Background(), "slow songs")
	assert.False(t, ok, "timeout must trigger the rule-path fallback")
}

func TestService_LowConfidence_DiscardedWhole(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := `{"themes":["grace"],"bpm_max":80,"intent":"search","confidence":0.2}`
		json.NewEncoder(w).Encode(ChatResponse{Message: ChatMessage{Content: content}, Done: true})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-model", time.Second, logrus.New())
	service := NewService(client, 0.7, time.Second, logrus.New())

	constraints, ok := service.ParseConstraints(context.Background(), "slow songs about grace")
	assert.False(t, ok)
	assert.True(t, constraints.Unconstrained(), "low-confidence result must not be partially applied")
}

func TestService_NilService(t *testing.T) {
	var service *Service
	_, ok := service.ParseConstraints(context.Background(), "anything")
	assert.False(t, ok)
}
