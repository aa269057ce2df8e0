package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// UpgradeRequired is the payload returned alongside a quota denial so clients
// can route the user to the premium page instead of showing an error.
type UpgradeRequired struct {
	RequiresUpgrade bool `json:"requires_upgrade"`
}

func RespondSuccess(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, APIResponse{
		Status:  "success",
		Code:    http.StatusOK,
		Message: message,
		TraceID: c.GetString("trace_id"),
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, message string) {
	RespondErrorWithData(c, code, message, nil)
}

func RespondErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, APIResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		TraceID: c.GetString("trace_id"),
		Data:    data,
	})
}

func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		RespondErrorWithData(c, http.StatusPaymentRequired,
			"Free tier limit reached. Please upgrade to premium for unlimited access.",
			UpgradeRequired{RequiresUpgrade: true})
	case errors.Is(err, ErrInvalidCredentials):
		RespondError(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, ErrPasswordTooLong):
		RespondError(c, http.StatusBadRequest, "Password must be at most 72 bytes")
	case errors.Is(err, ErrUnauthenticated):
		RespondError(c, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, ErrAccountNotFound):
		RespondError(c, http.StatusNotFound, "Account not found")
	case errors.Is(err, ErrEmailAlreadyExists):
		RespondError(c, http.StatusConflict, "Email already exists")
	case errors.Is(err, ErrInvalidPlan):
		RespondError(c, http.StatusBadRequest, "Subscription type must be monthly or yearly")
	case errors.Is(err, ErrPaymentNotFound):
		RespondError(c, http.StatusNotFound, "Payment not found")
	case errors.Is(err, ErrPaymentUnverified):
		RespondError(c, http.StatusConflict, "Payment not confirmed")
	case errors.Is(err, ErrPaymentProvider):
		LoggerFrom(c).Error("payment provider error", zap.Error(err))
		RespondError(c, http.StatusBadGateway, "Payment provider unavailable")
	case errors.Is(err, ErrStoreUnavailable):
		LoggerFrom(c).Warn("store unavailable", zap.Error(err))
		RespondError(c, http.StatusServiceUnavailable, "Service temporarily unavailable")
	case errors.Is(err, ErrDatabaseError):
		LoggerFrom(c).Error("database error", zap.Error(err))
		RespondError(c, http.StatusInternalServerError, "Internal server error")
	default:
		LoggerFrom(c).Error("unhandled service error", zap.Error(err))
		RespondError(c, http.StatusInternalServerError, "Internal server error")
	}
}

// LoggerFrom returns the request logger set by the logging middleware.
func LoggerFrom(c *gin.Context) *zap.Logger {
	if v, ok := c.Get("logger"); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return zap.L()
}
