package model

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/types"
)

func TestOpenAIChat(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"pong"}}]}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-test"})
	answer, err := c.Chat(context.Background(), []types.ChatMessage{
		{Role: types.RoleSystem, Content: "sys"},
		{Role: types.RoleUser, Content: "ping"},
	}, Options{Temperature: 0.5, MaxTokens: 100})

	require.NoError(t, err)
	assert.Equal(t, "pong", answer)

	assert.Equal(t, "gpt-test", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, openAIMessage{Role: "system", Content: "sys"}, got.Messages[0])
	assert.Equal(t, openAIMessage{Role: "user", Content: "ping"}, got.Messages[1])
	assert.Equal(t, 0.5, got.Temperature)
	assert.Equal(t, 100, got.MaxTokens)
	assert.False(t, got.Stream)
}

func TestOpenAIChatNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	_, err := c.Chat(context.Background(), []types.ChatMessage{
		{Role: types.RoleUser, Content: "hi"},
	}, Options{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices returned")
}

func TestOpenAIChatStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	stream, err := c.ChatStream(context.Background(), []types.ChatMessage{
		{Role: types.RoleUser, Content: "hi"},
	}, Options{})
	require.NoError(t, err)
	defer stream.Close()

	var b strings.Builder
	for {
		fragment, done, err := stream.Recv()
		require.NoError(t, err)
		if done {
			assert.Empty(t, fragment)
			break
		}
		b.WriteString(fragment)
	}
	assert.Equal(t, "Hello", b.String())

	_, done, err := stream.Recv()
	require.NoError(t, err)
	assert.True(t, done)
}

func TestOpenAIChatStreamWithoutDoneMarker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	stream, err := c.ChatStream(context.Background(), []types.ChatMessage{
		{Role: types.RoleUser, Content: "hi"},
	}, Options{})
	require.NoError(t, err)
	defer stream.Close()

	fragment, done, err := stream.Recv()
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, "partial", fragment)

	_, done, err = stream.Recv()
	require.NoError(t, err)
	assert.True(t, done, "stream end without [DONE] still terminates")
}

func TestOpenAIEmbedBatch(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/embeddings", r.URL.Path)
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"first", "second"}, req.Input)

		// deliberately out of order
		fmt.Fprint(w, `{"data":[
			{"index":1,"embedding":[0,1]},
			{"index":0,"embedding":[1,0]}
		]}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	vectors, err := c.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "one request for the whole batch")
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 0}, vectors[0])
	assert.Equal(t, []float32{0, 1}, vectors[1])
}

func TestOpenAIEmbedBatchCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"index":0,"embedding":[1,0]}]}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	_, err := c.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 embeddings, got 1")
}

func TestOpenAIEmbedBatchEmptyInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty batch")
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	vectors, err := c.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestOpenAIAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "bad", BaseURL: srv.URL})
	_, err := c.Chat(context.Background(), []types.ChatMessage{
		{Role: types.RoleUser, Content: "hi"},
	}, Options{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai API error: status 401")
}

func TestNewOpenAIClientDefaults(t *testing.T) {
	c := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test"})
	assert.Equal(t, DefaultOpenAIBaseURL, c.baseURL)
	assert.Equal(t, DefaultOpenAIModel, c.model)
	assert.Equal(t, DefaultOpenAIEmbedModel, c.embedModel)
}
