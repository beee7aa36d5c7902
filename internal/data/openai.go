package data

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/repo"
)

// OpenAIConfig contains chat completion client configuration
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // empty means the OpenAI default
	Model   string
}

// openAIRepo implements the chat repository over an OpenAI-compatible API
type openAIRepo struct {
	client *openai.Client
	model  string
}

// NewOpenAIRepo creates a chat repository
func NewOpenAIRepo(cfg OpenAIConfig) repo.ChatRepo {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &openAIRepo{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
	}
}

// Complete sends a system and user message and returns the first choice
func (r *openAIRepo) Complete(ctx context.Context, req repo.CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = r.model
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.User})

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	return resp.Choices[0].Message.Content, nil
}
