package services

import (
	"context"
	"fmt"
	"strings"

	"zubari/internal/models/request_models"
)

// CapabilityProvider produces the text artifacts behind the metered study
// tools. Implementations never touch quota; the gate runs around them.
type CapabilityProvider interface {
	GenerateQuestions(ctx context.Context, paragraph string) ([]string, error)
	Summarize(ctx context.Context, text string) (string, error)
	AnswerQuestion(ctx context.Context, passage, question string) (string, error)
	StudyPlan(ctx context.Context, req request_models.StudyPlanRequest) (string, error)
}

type mockCapabilityProvider struct{}

func NewMockCapabilityProvider() CapabilityProvider {
	return mockCapabilityProvider{}
}

var mockQuestions = []string{
	"What is the main topic discussed in this paragraph?",
	"Can you explain the key concepts mentioned?",
	"What are the implications of the information provided?",
	"How does this relate to broader themes in the subject?",
	"What questions might arise from this content?",
}

const (
	summaryLimit      = 200
	mockSummaryNotice = " [This is a mock summary. Integrate with actual AI models for real summarization.]"
	mockAnswer        = "This is a mock answer based on the provided context. Please integrate with actual AI models for real question answering."
)

func (mockCapabilityProvider) GenerateQuestions(context.Context, string) ([]string, error) {
	out := make([]string, len(mockQuestions))
	copy(out, mockQuestions)
	return out, nil
}

func (mockCapabilityProvider) Summarize(_ context.Context, text string) (string, error) {
	summary := text
	if r := []rune(text); len(r) > summaryLimit {
		summary = string(r[:summaryLimit]) + "..."
	}
	return summary + mockSummaryNotice, nil
}

func (mockCapabilityProvider) AnswerQuestion(context.Context, string, string) (string, error) {
	return mockAnswer, nil
}

func (mockCapabilityProvider) StudyPlan(_ context.Context, req request_models.StudyPlanRequest) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "STUDY PLAN FOR: %s\n\n", req.Syllabus)
	fmt.Fprintf(&b, "Topics to Cover: %s\n", req.Topics)
	fmt.Fprintf(&b, "Duration: %s to %s\n\n", req.StartDate, req.Deadline)
	b.WriteString(`Week 1: Introduction and Foundation
- Day 1-2: Overview of key concepts
- Day 3-4: Deep dive into fundamentals
- Day 5-7: Practice exercises and review

Week 2: Advanced Topics
- Day 1-3: Complex concepts and applications
- Day 4-5: Case studies and examples
- Day 6-7: Assessment and feedback

[This is a mock study plan. Integrate with actual AI models for personalized plans.]`)
	return b.String(), nil
}
