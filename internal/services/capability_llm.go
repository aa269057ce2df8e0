package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"
	"zubari/internal/config"
	"zubari/internal/models/request_models"
)

const llmCallTimeout = 30 * time.Second

// completer is the single call a model backend has to offer.
type completer interface {
	complete(ctx context.Context, system, prompt string) (string, error)
	Close() error
}

type llmCapabilityProvider struct {
	llm completer
}

// NewCapabilityProvider selects the backend named in cfg.
func NewCapabilityProvider(ctx context.Context, cfg config.CapabilityConfig) (CapabilityProvider, error) {
	switch cfg.Provider {
	case "", "mock":
		return NewMockCapabilityProvider(), nil
	case "openai":
		return &llmCapabilityProvider{llm: newOpenAICompleter(cfg.OpenAIAPIKey, cfg.OpenAIModel)}, nil
	case "gemini":
		g, err := newGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return &llmCapabilityProvider{llm: g}, nil
	default:
		return nil, fmt.Errorf("unsupported capability provider %q", cfg.Provider)
	}
}

func (p *llmCapabilityProvider) Close() error { return p.llm.Close() }

const tutorPrompt = "You are a patient study assistant for students. Answer in plain text without markdown."

var listPrefix = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

func (p *llmCapabilityProvider) GenerateQuestions(ctx context.Context, paragraph string) ([]string, error) {
	out, err := p.call(ctx, fmt.Sprintf(
		"Write exactly 5 study questions about the paragraph below, one per line, no numbering.\n\n%s", paragraph))
	if err != nil {
		return nil, err
	}

	var questions []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(listPrefix.ReplaceAllString(line, ""))
		if line != "" {
			questions = append(questions, line)
		}
	}
	if len(questions) > 5 {
		questions = questions[:5]
	}
	if len(questions) == 0 {
		return nil, errors.New("model returned no questions")
	}
	return questions, nil
}

func (p *llmCapabilityProvider) Summarize(ctx context.Context, text string) (string, error) {
	return p.call(ctx, "Summarize the following text in a short paragraph.\n\n"+text)
}

func (p *llmCapabilityProvider) AnswerQuestion(ctx context.Context, passage, question string) (string, error) {
	return p.call(ctx, fmt.Sprintf(
		"Using only the context below, answer the question.\n\nContext:\n%s\n\nQuestion: %s", passage, question))
}

func (p *llmCapabilityProvider) StudyPlan(ctx context.Context, req request_models.StudyPlanRequest) (string, error) {
	return p.call(ctx, fmt.Sprintf(
		"Build a week-by-week study plan.\nSyllabus: %s\nTopics: %s\nStart: %s\nDeadline: %s",
		req.Syllabus, req.Topics, req.StartDate, req.Deadline))
}

func (p *llmCapabilityProvider) call(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, llmCallTimeout)
	defer cancel()

	out, err := p.llm.complete(ctx, tutorPrompt, prompt)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("model returned no content")
	}
	return out, nil
}

type openAICompleter struct {
	client *openai.Client
	model  string
}

func newOpenAICompleter(apiKey, model string) *openAICompleter {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &openAICompleter{client: openai.NewClient(apiKey), model: model}
}

func (o *openAICompleter) complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *openAICompleter) Close() error { return nil }

type geminiCompleter struct {
	client *genai.Client
	model  string
}

func newGeminiCompleter(ctx context.Context, apiKey, model string) (*geminiCompleter, error) {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &geminiCompleter{client: client, model: model}, nil
}

func (g *geminiCompleter) complete(ctx context.Context, system, prompt string) (string, error) {
	m := g.client.GenerativeModel(g.model)
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	m.SetTemperature(0.3)

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: no content")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

func (g *geminiCompleter) Close() error { return g.client.Close() }
