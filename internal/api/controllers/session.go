package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"zubari/pkg/middleware"
	"zubari/pkg/utils"
)

// currentAccountID reads the id set by JWTAuthMiddleware and answers 401 when
// it is missing.
func currentAccountID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString(middleware.UserIDKey))
	if err != nil {
		utils.HandleServiceError(c, utils.ErrUnauthenticated)
		return uuid.Nil, false
	}
	return id, true
}

func currentClaims(c *gin.Context) *utils.Claims {
	if v, ok := c.Get(middleware.ClaimsKey); ok {
		if claims, ok := v.(*utils.Claims); ok {
			return claims
		}
	}
	return nil
}

func setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, maxAge, "/", "", c.Request.TLS != nil, true)
}

func clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", c.Request.TLS != nil, true)
}
