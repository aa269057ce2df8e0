package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"zubari/internal/models/request_models"
	"zubari/internal/services"
	"zubari/pkg/utils"
)

type AccountController struct {
	accountService services.AccountServiceInterface
	gate           services.EntitlementService
}

func NewAccountController(accountService services.AccountServiceInterface, gate services.EntitlementService) *AccountController {
	return &AccountController{
		accountService: accountService,
		gate:           gate,
	}
}

// Register godoc
// @Summary Register a new account
// @Description Create a free account and start a session
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body request_models.SignUpRequest true "Account registration payload"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Router /api/signup [post]
func (a *AccountController) Register(c *gin.Context) {
	var req request_models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Please provide a valid email and a password of 6 to 72 characters")
		return
	}

	session, err := a.accountService.CreateAccount(c.Request.Context(), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	setSessionCookie(c, session.Token, session.ExpiresAt)
	utils.RespondSuccess(c, session, "Account created successfully")
}

// Login godoc
// @Summary Login to an account
// @Description Authenticate a user and return a session token
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body request_models.LoginRequest true "Login payload"
// @Success 200 {object} utils.APIResponse
// @Failure 401 {object} utils.APIResponse
// @Router /api/login [post]
func (a *AccountController) Login(c *gin.Context) {
	var req request_models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	session, err := a.accountService.Login(c.Request.Context(), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	setSessionCookie(c, session.Token, session.ExpiresAt)
	utils.RespondSuccess(c, session, "Login successful")
}

// Logout godoc
// @Summary Logout
// @Description Revoke the current session token
// @Tags Accounts
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Router /api/logout [post]
func (a *AccountController) Logout(c *gin.Context) {
	if err := a.accountService.Logout(c.Request.Context(), currentClaims(c)); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	clearSessionCookie(c)
	utils.RespondSuccess(c, nil, "Logged out")
}

// Status godoc
// @Summary Subscription and quota status
// @Tags Accounts
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Router /api/user-status [get]
func (a *AccountController) Status(c *gin.Context) {
	accountID, ok := currentAccountID(c)
	if !ok {
		return
	}

	status, err := a.gate.Status(c.Request.Context(), accountID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, status, "")
}

// Usage godoc
// @Summary Recent metered calls of the caller
// @Tags Accounts
// @Produce json
// @Param limit query int false "Max events (1-100)"
// @Success 200 {object} utils.APIResponse
// @Router /api/usage [get]
func (a *AccountController) Usage(c *gin.Context) {
	accountID, ok := currentAccountID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	events, err := a.gate.UsageHistory(c.Request.Context(), accountID, limit)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, events, "")
}
