package controllers

import (
	"github.com/gin-gonic/gin"
	"zubari/internal/services"
	"zubari/pkg/utils"
)

type PlansController struct {
	planService services.PlanServiceInterface
}

func NewPlansController(planService services.PlanServiceInterface) *PlansController {
	return &PlansController{
		planService: planService,
	}
}

// ListPlans godoc
// @Summary List premium plans with their prices
// @Tags Payments
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Router /api/plans [get]
func (p *PlansController) ListPlans(c *gin.Context) {
	plans, err := p.planService.GetPlans(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, plans, "")
}

// GetPlan godoc
// @Summary Get one premium plan
// @Tags Payments
// @Produce json
// @Param code path string true "monthly | yearly"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Router /api/plans/{code} [get]
func (p *PlansController) GetPlan(c *gin.Context) {
	plan, err := p.planService.GetPlanInfoById(c.Request.Context(), c.Param("code"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, plan, "")
}
