package oracle

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
)

// Message roles understood by ChatModel implementations.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat message sent to the underlying model.
type Message struct {
	Role    string
	Content string
}

// Turn is one entry of a session's dialog log.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatModel is the minimal completion seam the oracle is built on. Both
// backends return the assistant text of a single non-streamed completion.
type ChatModel interface {
	Chat(ctx context.Context, messages []Message, temperature float64) (string, error)
}

// Environment variables consumed by NewOpenAIChatFromEnv.
const (
	EnvAPIKey  = "OPENAI_API_KEY"
	EnvBaseURL = "OPENAI_API_BASE_URL"
	EnvModel   = "LLM_MODEL"
)

const defaultModel = "gpt-4o-mini"

// OpenAIChat talks to an OpenAI-compatible chat completion endpoint.
type OpenAIChat struct {
	client *openai.Client
	model  string
}

var _ ChatModel = (*OpenAIChat)(nil)

// NewOpenAIChat creates a chat backend with explicit credentials. baseURL and
// model fall back to the public endpoint and the default model when empty.
func NewOpenAIChat(apiKey, baseURL, model string) (*OpenAIChat, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s is not set", EnvAPIKey)
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if model == "" {
		model = defaultModel
	}
	return &OpenAIChat{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

// NewOpenAIChatFromEnv reads OPENAI_API_KEY, OPENAI_API_BASE_URL and
// LLM_MODEL from the environment.
func NewOpenAIChatFromEnv() (*OpenAIChat, error) {
	return NewOpenAIChat(os.Getenv(EnvAPIKey), os.Getenv(EnvBaseURL), os.Getenv(EnvModel))
}

// Chat sends one completion request and returns the assistant text.
func (c *OpenAIChat) Chat(ctx context.Context, messages []Message, temperature float64) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: float32(temperature),
		N:           1,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: completion returned no choices", ErrUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}

// LangChainChat adapts a langchaingo llms.Model to the ChatModel seam, so any
// provider langchaingo supports can back the oracle.
type LangChainChat struct {
	model llms.Model
}

var _ ChatModel = (*LangChainChat)(nil)

// NewLangChainChat wraps an existing langchaingo model.
func NewLangChainChat(model llms.Model) *LangChainChat {
	return &LangChainChat{model: model}
}

// Chat sends one completion request through the wrapped model.
func (c *LangChainChat) Chat(ctx context.Context, messages []Message, temperature float64) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		role := llms.ChatMessageTypeHuman
		switch m.Role {
		case RoleSystem:
			role = llms.ChatMessageTypeSystem
		case RoleAssistant:
			role = llms.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(role, m.Content))
	}
	resp, err := c.model.GenerateContent(ctx, content, llms.WithTemperature(temperature))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: completion returned no choices", ErrUnavailable)
	}
	return resp.Choices[0].Content, nil
}
