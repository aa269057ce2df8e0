package response_models

type QuestionsResponse struct {
	Questions []string `json:"questions"`
}

type SummaryResponse struct {
	Summary string `json:"summary"`
}

type AnswerResponse struct {
	Answer string `json:"answer"`
}

type StudyPlanResponse struct {
	StudyPlan string `json:"studyPlan"`
}
