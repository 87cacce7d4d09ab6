package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"gin-oracle-auth/internal/core/auth"
	"gin-oracle-auth/internal/core/config"
	"gin-oracle-auth/internal/core/server"
	"gin-oracle-auth/internal/service"
	"gin-oracle-auth/internal/transport/http/handler"
	mdw "gin-oracle-auth/internal/transport/http/middleware"
	resp "gin-oracle-auth/internal/transport/http/response"
)

type Deps struct {
	Log            *zap.Logger
	Tokens         *auth.JWTer
	Auth           *service.AuthService
	Gate           config.Gate
	Limits         config.Limits
	CORSOrigins    []string
	TrustedProxies []string
	SecureCookie   bool
}

func NewAPIEngine(d Deps) (*gin.Engine, error) {
	r, err := server.NewRouter(d.CORSOrigins, d.TrustedProxies)
	if err != nil {
		return nil, err
	}
	gate := mdw.NewSessionGate(d.Tokens, d.Gate.ProtectedPrefixes, d.Gate.LoginPath)

	// 中间件：闸门放在最后，限流/超时对重定向同样生效
	r.Use(
		mdw.RequestID(),
		mdw.AccessLog(d.Log, "/health", "/metrics"),
		mdw.Recovery(d.Log),
		mdw.Metrics(),
	)
	if d.Limits.GlobalRPS > 0 {
		r.Use(mdw.RateLimit(rate.Limit(d.Limits.GlobalRPS), max(1, d.Limits.GlobalBurst)))
	}
	if d.Limits.RequestTimeoutSec > 0 {
		r.Use(mdw.Timeout(time.Duration(d.Limits.RequestTimeoutSec) * time.Second))
	}
	if d.Limits.MaxConcurrent > 0 {
		r.Use(mdw.ConcurrencyLimit(d.Limits.MaxConcurrent))
	}
	if d.Limits.MaxBodyBytes > 0 {
		r.Use(mdw.MaxBodyBytes(d.Limits.MaxBodyBytes))
	}
	r.Use(gate.Handler())

	// 健康检查 + 指标
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var limiter gin.HandlerFunc
	if d.Limits.AuthRPS > 0 {
		limiter = mdw.RateLimitPerIP(rate.Limit(d.Limits.AuthRPS), max(1, d.Limits.AuthBurst))
	}

	MountAll(r.Group(""),
		handler.NewAuthHandler(d.Auth, d.Tokens, d.Log, d.SecureCookie, limiter),
		handler.NewPageHandler(d.Tokens, d.Log, gate.LoginPath()),
	)

	r.NoRoute(func(c *gin.Context) { resp.Abort(c, http.StatusNotFound, resp.MsgNotFound) })
	r.NoMethod(func(c *gin.Context) {
		resp.Abort(c, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})
	return r, nil
}
