package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"zubari/internal/api/controllers"
	"zubari/internal/models/db_models"
	"zubari/pkg/metrics"
	"zubari/pkg/middleware"
	mem "zubari/pkg/memcache"
	"zubari/pkg/utils"
)

type RouterDeps struct {
	Log         *zap.Logger
	Metrics     *metrics.Metrics
	Tokens      *utils.TokenManager
	Revoked     mem.RevokedTokenStore
	StaticDir   string
	CORSOrigins []string

	Accounts  *controllers.AccountController
	Tools     *controllers.ToolsController
	Payments  *controllers.PaymentController
	Plans     *controllers.PlansController
	Dashboard *controllers.DashboardController
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.RequestLogger(d.Log, d.Metrics))
	r.Use(middleware.CORSMiddleware(d.CORSOrigins))

	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d RouterDeps) {
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	apiGroup := r.Group("/api")
	apiGroup.POST("/signup", d.Accounts.Register)
	apiGroup.POST("/login", d.Accounts.Login)
	apiGroup.POST("/payments/webhook", d.Payments.HandleWebhook)
	apiGroup.GET("/plans", d.Plans.ListPlans)
	apiGroup.GET("/plans/:code", d.Plans.GetPlan)

	authed := apiGroup.Group("")
	authed.Use(middleware.JWTAuthMiddleware(d.Tokens, d.Revoked))

	authed.POST("/logout", d.Accounts.Logout)
	authed.GET("/user-status", d.Accounts.Status)
	authed.GET("/usage", d.Accounts.Usage)

	authed.POST("/generate-questions", d.Tools.GenerateQuestions)
	authed.POST("/summarize", d.Tools.Summarize)
	authed.POST("/answer-question", d.Tools.AnswerQuestion)
	authed.POST("/generate-study-plan", d.Tools.GenerateStudyPlan)

	authed.POST("/initiate-payment", d.Payments.InitiatePayment)
	authed.POST("/verify-payment", d.Payments.VerifyPayment)
	authed.POST("/cancel-payment", d.Payments.CancelPayment)

	admin := authed.Group("/admin")
	admin.Use(middleware.RoleMiddleware(db_models.RoleAdmin))
	admin.GET("/stats", d.Dashboard.GetDashboard)

	r.NoRoute(staticHandler(d.StaticDir))
}

// staticHandler serves the bundled pages for every route the API does not
// own, falling back to index.html.
func staticHandler(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/") || dir == "" ||
			(c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			utils.RespondError(c, http.StatusNotFound, "Not found")
			return
		}

		// Clean on a rooted path so ".." cannot climb out of dir.
		name := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+path)))
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			c.File(name)
			return
		}

		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err == nil {
			c.File(index)
			return
		}
		utils.RespondError(c, http.StatusNotFound, "Not found")
	}
}
