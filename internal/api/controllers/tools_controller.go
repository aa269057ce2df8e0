package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"zubari/internal/models/db_models"
	"zubari/internal/models/request_models"
	"zubari/internal/models/response_models"
	"zubari/internal/services"
	"zubari/pkg/utils"
)

const RemainingHeader = "X-Requests-Remaining"

type ToolsController struct {
	gate     services.EntitlementService
	provider services.CapabilityProvider
}

func NewToolsController(gate services.EntitlementService, provider services.CapabilityProvider) *ToolsController {
	return &ToolsController{gate: gate, provider: provider}
}

// runMetered consumes one unit of quota and then runs the capability. A unit
// spent on a failed capability is not refunded.
func (t *ToolsController) runMetered(c *gin.Context, kind db_models.CapabilityKind, failMsg string, run func(ctx context.Context) (any, error)) {
	accountID, ok := currentAccountID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	decision, err := t.gate.TryConsume(ctx, accountID, kind)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	if !decision.Unbounded() {
		c.Header(RemainingHeader, strconv.Itoa(decision.Remaining))
	}

	out, err := run(ctx)
	if err != nil {
		utils.LoggerFrom(c).Error("capability failed", zap.String("capability", string(kind)), zap.Error(err))
		utils.RespondError(c, http.StatusBadGateway, failMsg)
		return
	}

	utils.RespondSuccess(c, out, "")
}

func blank(fields ...string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return true
		}
	}
	return false
}

// GenerateQuestions godoc
// @Summary Generate study questions from a paragraph
// @Tags Tools
// @Accept json
// @Produce json
// @Param request body request_models.GenerateQuestionsRequest true "Paragraph"
// @Success 200 {object} utils.APIResponse
// @Failure 402 {object} utils.APIResponse
// @Router /api/generate-questions [post]
func (t *ToolsController) GenerateQuestions(c *gin.Context) {
	var req request_models.GenerateQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil || blank(req.Paragraph) {
		utils.RespondError(c, http.StatusBadRequest, "Please provide a paragraph")
		return
	}

	t.runMetered(c, db_models.CapabilityQuestionGeneration, "Failed to generate questions", func(ctx context.Context) (any, error) {
		questions, err := t.provider.GenerateQuestions(ctx, req.Paragraph)
		return response_models.QuestionsResponse{Questions: questions}, err
	})
}

// Summarize godoc
// @Summary Summarize a text
// @Tags Tools
// @Accept json
// @Produce json
// @Param request body request_models.SummarizeRequest true "Text"
// @Success 200 {object} utils.APIResponse
// @Failure 402 {object} utils.APIResponse
// @Router /api/summarize [post]
func (t *ToolsController) Summarize(c *gin.Context) {
	var req request_models.SummarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil || blank(req.Text) {
		utils.RespondError(c, http.StatusBadRequest, "Please provide text to summarize")
		return
	}

	t.runMetered(c, db_models.CapabilitySummarization, "Failed to summarize text", func(ctx context.Context) (any, error) {
		summary, err := t.provider.Summarize(ctx, req.Text)
		return response_models.SummaryResponse{Summary: summary}, err
	})
}

// AnswerQuestion godoc
// @Summary Answer a question from a context passage
// @Tags Tools
// @Accept json
// @Produce json
// @Param request body request_models.AnswerQuestionRequest true "Context and question"
// @Success 200 {object} utils.APIResponse
// @Failure 402 {object} utils.APIResponse
// @Router /api/answer-question [post]
func (t *ToolsController) AnswerQuestion(c *gin.Context) {
	var req request_models.AnswerQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil || blank(req.Context, req.Question) {
		utils.RespondError(c, http.StatusBadRequest, "Please provide both context and question")
		return
	}

	t.runMetered(c, db_models.CapabilityQuestionAnswering, "Failed to answer question", func(ctx context.Context) (any, error) {
		answer, err := t.provider.AnswerQuestion(ctx, req.Context, req.Question)
		return response_models.AnswerResponse{Answer: answer}, err
	})
}

// GenerateStudyPlan godoc
// @Summary Build a study plan
// @Tags Tools
// @Accept json
// @Produce json
// @Param request body request_models.StudyPlanRequest true "Syllabus, topics and dates"
// @Success 200 {object} utils.APIResponse
// @Failure 402 {object} utils.APIResponse
// @Router /api/generate-study-plan [post]
func (t *ToolsController) GenerateStudyPlan(c *gin.Context) {
	var req request_models.StudyPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil || blank(req.Syllabus, req.Topics, req.StartDate, req.Deadline) {
		utils.RespondError(c, http.StatusBadRequest, "Please fill in all fields")
		return
	}

	t.runMetered(c, db_models.CapabilityStudyPlanGeneration, "Failed to generate study plan", func(ctx context.Context) (any, error) {
		plan, err := t.provider.StudyPlan(ctx, req)
		return response_models.StudyPlanResponse{StudyPlan: plan}, err
	})
}
