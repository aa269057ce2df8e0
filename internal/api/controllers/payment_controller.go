package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"zubari/internal/models/request_models"
	"zubari/internal/models/response_models"
	"zubari/internal/services"
	"zubari/pkg/utils"
)

const maxWebhookBody = 1 << 20

type PaymentController struct {
	paymentService services.PaymentService
}

func NewPaymentController(paymentService services.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
	}
}

// InitiatePayment godoc
// @Summary Open a premium checkout
// @Description Records a pending payment for the chosen plan and returns its reference
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.InitiatePaymentRequest true "Plan"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /api/initiate-payment [post]
func (p *PaymentController) InitiatePayment(c *gin.Context) {
	var request request_models.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.HandleServiceError(c, utils.ErrInvalidPlan)
		return
	}

	accountID, ok := currentAccountID(c)
	if !ok {
		return
	}

	checkout, err := p.paymentService.Open(c.Request.Context(), accountID, request.SubscriptionType)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, checkout, "Payment initiated")
}

// VerifyPayment godoc
// @Summary Complete a payment after checkout
// @Description Confirms the payment with the provider and activates premium
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.VerifyPaymentRequest true "Payment reference"
// @Success 200 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Security BearerAuth
// @Router /api/verify-payment [post]
func (p *PaymentController) VerifyPayment(c *gin.Context) {
	var request request_models.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	accountID, ok := currentAccountID(c)
	if !ok {
		return
	}

	intent, err := p.paymentService.Complete(c.Request.Context(), request.PaymentReference, accountID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.PaymentStatusResponse{
		PaymentReference: intent.Reference,
		Status:           string(intent.Status),
	}, "Payment verified")
}

// CancelPayment godoc
// @Summary Cancel a pending payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.VerifyPaymentRequest true "Payment reference"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /api/cancel-payment [post]
func (p *PaymentController) CancelPayment(c *gin.Context) {
	var request request_models.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	accountID, ok := currentAccountID(c)
	if !ok {
		return
	}

	intent, err := p.paymentService.Fail(c.Request.Context(), request.PaymentReference, accountID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.PaymentStatusResponse{
		PaymentReference: intent.Reference,
		Status:           string(intent.Status),
	}, "Payment cancelled")
}

// HandleWebhook godoc
// @Summary Payment provider callback
// @Description Signed server-to-server notification from the payment provider
// @Tags Payments
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Router /api/payments/webhook [post]
func (p *PaymentController) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Failed to read request body")
		return
	}

	if err := p.paymentService.HandleWebhook(c.Request.Context(), body, c.Request.Header); err != nil {
		if services.IsInvalidWebhook(err) {
			utils.RespondError(c, http.StatusBadRequest, "Invalid webhook payload")
			return
		}
		// Non-2xx makes the provider retry later.
		utils.LoggerFrom(c).Error("webhook processing failed", zap.Error(err))
		utils.RespondError(c, http.StatusInternalServerError, "Failed to process webhook")
		return
	}

	utils.RespondSuccess(c, nil, "Webhook processed")
}
