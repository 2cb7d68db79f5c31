package ai

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"github.com/pushtisonawala/chat-app/internal/models"
)

// ErrNotConfigured is returned by the disabled responder when no API key is
// set.
var ErrNotConfigured = errors.New("assistant not configured")

const systemPrompt = `You are Gemini AI, an assistant integrated into this chat application.
Users can chat in groups or privately and mention you with @gemini.
Keep responses friendly and concise (under 150 words), acknowledge the group
chat context and maintain conversation flow.`

// Responder produces assistant replies for mention prompts. Implementations
// must respect context cancellation: callers bound every invocation with a
// timeout.
type Responder interface {
	Generate(ctx context.Context, prompt string, history []models.Message) (string, error)
}

// GeminiResponder calls the Gemini API.
type GeminiResponder struct {
	client *genai.Client
	model  string
}

// NewGeminiResponder builds a Responder backed by the Gemini API.
func NewGeminiResponder(ctx context.Context, apiKey, model string) (*GeminiResponder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiResponder{client: client, model: model}, nil
}

// Generate sends the prompt with recent conversation context and returns the
// generated text.
func (g *GeminiResponder) Generate(ctx context.Context, prompt string, history []models.Message) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		role := genai.Role(genai.RoleUser)
		if m.IsAIMessage {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature:       genai.Ptr[float32](0.7),
		MaxOutputTokens:   200,
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	})
	if err != nil {
		return "", err
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("empty assistant response")
	}
	return text, nil
}

// DisabledResponder always fails; wired when no API key is configured so
// mentions surface an error notice instead of hanging.
type DisabledResponder struct{}

func (DisabledResponder) Generate(context.Context, string, []models.Message) (string, error) {
	return "", ErrNotConfigured
}
