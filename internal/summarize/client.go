package summarize

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Summarizer is the text-in/text-out capability consumed by the crawl
// pipeline. Implementations may call an external model; callers apply local
// fallbacks when a method returns an error.
type Summarizer interface {
	// Summarize condenses a chunk of article text into a short Korean summary.
	Summarize(ctx context.Context, text string) (string, error)
	// Translate renders English text into Korean.
	Translate(ctx context.Context, text string) (string, error)
	// ShortenTitle compresses a title to at most maxWords words.
	ShortenTitle(ctx context.Context, title string, maxWords int) (string, error)
}

const (
	summarizeSystemPrompt = "You are a helpful assistant that summarizes text. Provide clear, concise summaries in Korean."
	translateSystemPrompt = "You are a professional translator. Translate the given English text to Korean. " +
		"Maintain the academic and formal tone appropriate for journal articles. " +
		"Return only the Korean translation without any additional text or explanations."
)

// OpenAIClient implements Summarizer against the OpenAI chat completions API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a Summarizer backed by the OpenAI API.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  openai.GPT3Dot5Turbo,
	}
}

func (c *OpenAIClient) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Summarize condenses the given text into a short Korean summary.
func (c *OpenAIClient) Summarize(ctx context.Context, text string) (string, error) {
	return c.complete(ctx, summarizeSystemPrompt,
		fmt.Sprintf("Please summarize the following text:\n\n%s", text), 500)
}

// Translate renders English text into Korean.
func (c *OpenAIClient) Translate(ctx context.Context, text string) (string, error) {
	return c.complete(ctx, translateSystemPrompt,
		fmt.Sprintf("Translate this English text to Korean: %s", text), 500)
}

// ShortenTitle compresses a title to at most maxWords words, prompting in the
// title's own language.
func (c *OpenAIClient) ShortenTitle(ctx context.Context, title string, maxWords int) (string, error) {
	var system string
	if IsLatinDominant(title) {
		system = fmt.Sprintf("You are a title summarizer. Create a very short, concise title with maximum %d words "+
			"that captures the main topic of the given title. Focus on the key subject and main concept. "+
			"Return only the summarized title without quotes or additional text.", maxWords)
	} else {
		system = fmt.Sprintf("You are a Korean title summarizer. Create a very short, concise Korean title with maximum %d words "+
			"that captures the main topic of the given Korean title. Focus on the key subject and main concept. "+
			"Return only the summarized Korean title without quotes or additional text.", maxWords)
	}

	return c.complete(ctx, system,
		fmt.Sprintf("Summarize this title to maximum %d words: %s", maxWords, title), 100)
}
