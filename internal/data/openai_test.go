package data

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/repo"
)

func TestOpenAIRepo_Complete(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float32 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"こんにちは"}}]}`))
	}))
	defer srv.Close()

	r := NewOpenAIRepo(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, Model: "default-model"})
	out, err := r.Complete(context.Background(), repo.CompletionRequest{
		System:      "sys",
		User:        "hi",
		MaxTokens:   220,
		Temperature: 0.6,
	})
	require.NoError(t, err)
	assert.Equal(t, "こんにちは", out)

	assert.Equal(t, "default-model", got.Model)
	assert.Equal(t, 220, got.MaxTokens)
	assert.InDelta(t, 0.6, got.Temperature, 0.001)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "hi", got.Messages[1].Content)
}

func TestOpenAIRepo_Complete_ModelOverrideAndNoChoices(t *testing.T) {
	var model string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		model = body.Model
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","choices":[]}`))
	}))
	defer srv.Close()

	r := NewOpenAIRepo(OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := r.Complete(context.Background(), repo.CompletionRequest{Model: "gpt-4o", User: "x"})
	assert.Error(t, err)
	assert.Equal(t, "gpt-4o", model)
}
