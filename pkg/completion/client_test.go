package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenContent(t *testing.T) {
	t.Run("plain string passes through", func(t *testing.T) {
		got, err := flattenContent(json.RawMessage(`"hello world"`))
		require.NoError(t, err)
		assert.Equal(t, "hello world", got)
	})

	t.Run("array of text parts is concatenated in order", func(t *testing.T) {
		got, err := flattenContent(json.RawMessage(`[{"text":"hello "},{"text":"world"}]`))
		require.NoError(t, err)
		assert.Equal(t, "hello world", got)
	})

	t.Run("empty content is empty string", func(t *testing.T) {
		got, err := flattenContent(nil)
		require.NoError(t, err)
		assert.Equal(t, "", got)
	})

	t.Run("neither shape errors", func(t *testing.T) {
		_, err := flattenContent(json.RawMessage(`42`))
		assert.Error(t, err)
	})
}

func TestParseResponse(t *testing.T) {
	t.Run("string content with explicit usage", func(t *testing.T) {
		body := []byte(`{"choices":[{"message":{"content":"hi there"}}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`)
		result, err := parseResponse(body)
		require.NoError(t, err)
		assert.Equal(t, "hi there", result.Content)
		assert.Equal(t, 10, result.Usage.Prompt)
		assert.Equal(t, 5, result.Usage.Completion)
		assert.Equal(t, 15, result.Usage.Total)
	})

	t.Run("total usage defaults to prompt+completion when zero", func(t *testing.T) {
		body := []byte(`{"choices":[{"message":{"content":"hi"}}],"usage":{"prompt_tokens":3,"completion_tokens":4}}`)
		result, err := parseResponse(body)
		require.NoError(t, err)
		assert.Equal(t, 7, result.Usage.Total)
	})

	t.Run("no choices errors", func(t *testing.T) {
		_, err := parseResponse([]byte(`{"choices":[]}`))
		assert.Error(t, err)
	})

	t.Run("invalid JSON errors", func(t *testing.T) {
		_, err := parseResponse([]byte(`not json`))
		assert.Error(t, err)
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "hel...", truncate("hello", 3))
}

func TestCompleteSendsExpectedRequestAndParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "acme/flagship", body["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"the answer"}}],"usage":{"prompt_tokens":1,"completion_tokens":2}}`))
	}))
	defer srv.Close()

	client := New(srv.URL, "secret-key")
	result, err := client.Complete(context.Background(), "acme/flagship", "what is the answer?")
	require.NoError(t, err)
	assert.Equal(t, "the answer", result.Content)
	assert.Equal(t, 3, result.Usage.Total)
}

func TestCompleteSurfacesUpstreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	client := New(srv.URL, "")
	_, err := client.Complete(context.Background(), "acme/flagship", "prompt")
	assert.Error(t, err)
}

func TestCompleteTimeoutMessageCarriesTheConfiguredDuration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(1200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"too slow"}}]}`))
	}))
	defer srv.Close()

	client := New(srv.URL, "")
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	_, err := client.Complete(ctx, "acme/flagship", "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out after 1s")
}
