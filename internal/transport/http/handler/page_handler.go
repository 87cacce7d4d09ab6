package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gin-oracle-auth/internal/core/auth"
	httpez "gin-oracle-auth/internal/transport/http/ez"
	mdw "gin-oracle-auth/internal/transport/http/middleware"
)

type PageResp struct {
	Page string        `json:"page"`
	User auth.Identity `json:"user"`
}

type LoginHint struct {
	Page     string `json:"page"`
	Message  string `json:"message"`
	Endpoint string `json:"endpoint"`
}

// PageHandler 受保护页面的 JSON 替身；闸门只负责放行，身份在这里重新校验
type PageHandler struct {
	tokens    mdw.TokenVerifier
	log       *zap.Logger
	loginPath string
}

func NewPageHandler(tokens mdw.TokenVerifier, l *zap.Logger, loginPath string) *PageHandler {
	return &PageHandler{tokens: tokens, log: l, loginPath: loginPath}
}

func (h *PageHandler) Priority() int { return 20 }

func (h *PageHandler) Mount(g *gin.RouterGroup) {
	e := httpez.New(g, h.log)

	httpez.RegisterAction(e, httpez.Action[struct{}, LoginHint]{
		Method: http.MethodGet,
		Path:   h.loginPath,
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (LoginHint, error) {
			return LoginHint{Page: "login", Message: "Please log in", Endpoint: "/auth/login"}, nil
		},
	})
	for _, page := range []string{"dashboard", "profile"} {
		httpez.RegisterAction(e, httpez.Action[struct{}, PageResp]{
			Method:  http.MethodGet,
			Path:    "/" + page,
			Binder:  httpez.BindNone,
			Handler: h.page(page),
		})
	}
}

func (h *PageHandler) page(name string) func(c *gin.Context, _ *struct{}) (PageResp, error) {
	return func(c *gin.Context, _ *struct{}) (PageResp, error) {
		claims, err := verifyCookie(c, h.tokens)
		if err != nil {
			return PageResp{}, err
		}
		return PageResp{Page: name, User: claims.Identity}, nil
	}
}
