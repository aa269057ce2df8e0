package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"zubari/internal/config"
	"zubari/internal/models/request_models"
)

func TestMockCapability_GenerateQuestions(t *testing.T) {
	questions, err := NewMockCapabilityProvider().GenerateQuestions(context.Background(), "Photosynthesis converts light.")
	require.NoError(t, err)
	assert.Len(t, questions, 5)
	assert.Equal(t, "What is the main topic discussed in this paragraph?", questions[0])
}

func TestMockCapability_Summarize(t *testing.T) {
	p := NewMockCapabilityProvider()

	short, err := p.Summarize(context.Background(), "Short text.")
	require.NoError(t, err)
	assert.Equal(t, "Short text."+mockSummaryNotice, short)

	long := strings.Repeat("é", 250)
	summary, err := p.Summarize(context.Background(), long)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", 200)+"..."+mockSummaryNotice, summary)
}

func TestMockCapability_AnswerAndPlan(t *testing.T) {
	p := NewMockCapabilityProvider()

	answer, err := p.AnswerQuestion(context.Background(), "ctx", "why?")
	require.NoError(t, err)
	assert.Equal(t, mockAnswer, answer)

	plan, err := p.StudyPlan(context.Background(), request_models.StudyPlanRequest{
		Syllabus:  "Biology",
		Topics:    "Cells, Genetics",
		StartDate: "2026-01-01",
		Deadline:  "2026-02-01",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(plan, "STUDY PLAN FOR: Biology\n\n"))
	assert.Contains(t, plan, "Topics to Cover: Cells, Genetics\n")
	assert.Contains(t, plan, "Duration: 2026-01-01 to 2026-02-01\n")
	assert.Contains(t, plan, "Week 2: Advanced Topics")
}

type stubCompleter struct {
	reply string
	err   error
	seen  string
}

func (s *stubCompleter) complete(_ context.Context, _, prompt string) (string, error) {
	s.seen = prompt
	return s.reply, s.err
}

func (s *stubCompleter) Close() error { return nil }

func TestLLMCapability_GenerateQuestionsParsesList(t *testing.T) {
	stub := &stubCompleter{reply: "1. What is a cell?\n2) Why divide?\n\n- How do genes work?\n* What is DNA?\n• Who found it?\nExtra question?"}
	p := &llmCapabilityProvider{llm: stub}

	questions, err := p.GenerateQuestions(context.Background(), "Cells divide.")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"What is a cell?",
		"Why divide?",
		"How do genes work?",
		"What is DNA?",
		"Who found it?",
	}, questions)
	assert.Contains(t, stub.seen, "Cells divide.")
}

func TestLLMCapability_EmptyReplyIsError(t *testing.T) {
	p := &llmCapabilityProvider{llm: &stubCompleter{reply: "   "}}

	_, err := p.Summarize(context.Background(), "text")
	assert.Error(t, err)

	_, err = p.GenerateQuestions(context.Background(), "text")
	assert.Error(t, err)
}

func TestLLMCapability_BackendError(t *testing.T) {
	p := &llmCapabilityProvider{llm: &stubCompleter{err: errors.New("rate limited")}}

	_, err := p.AnswerQuestion(context.Background(), "passage", "question")
	assert.EqualError(t, err, "rate limited")
}

func TestNewCapabilityProvider(t *testing.T) {
	p, err := NewCapabilityProvider(context.Background(), config.CapabilityConfig{Provider: "mock"})
	require.NoError(t, err)
	assert.IsType(t, mockCapabilityProvider{}, p)

	p, err = NewCapabilityProvider(context.Background(), config.CapabilityConfig{Provider: "openai", OpenAIAPIKey: "sk-test"})
	require.NoError(t, err)
	assert.IsType(t, &llmCapabilityProvider{}, p)

	_, err = NewCapabilityProvider(context.Background(), config.CapabilityConfig{Provider: "claude"})
	assert.Error(t, err)
}
