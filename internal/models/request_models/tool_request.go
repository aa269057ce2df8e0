package request_models

type GenerateQuestionsRequest struct {
	Paragraph string `json:"paragraph" binding:"required"`
}

type SummarizeRequest struct {
	Text string `json:"text" binding:"required"`
}

type AnswerQuestionRequest struct {
	Context  string `json:"context" binding:"required"`
	Question string `json:"question" binding:"required"`
}

type StudyPlanRequest struct {
	Syllabus  string `json:"syllabus" binding:"required"`
	Topics    string `json:"topics" binding:"required"`
	StartDate string `json:"startDate" binding:"required"`
	Deadline  string `json:"deadline" binding:"required"`
}
