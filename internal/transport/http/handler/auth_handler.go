package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gin-oracle-auth/internal/core/apperr"
	"gin-oracle-auth/internal/core/auth"
	"gin-oracle-auth/internal/domain"
	"gin-oracle-auth/internal/service"
	httpez "gin-oracle-auth/internal/transport/http/ez"
	mdw "gin-oracle-auth/internal/transport/http/middleware"
	resp "gin-oracle-auth/internal/transport/http/response"
)

type RegisterReq struct {
	Name     string `json:"name"     binding:"required"`
	Email    string `json:"email"    binding:"required"`
	Country  string `json:"country"  binding:"required"`
	Phone    string `json:"phone"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterResp struct {
	Message string `json:"message"`
	UserID  int64  `json:"userId"`
}

type LoginReq struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResp struct {
	Message string          `json:"message"`
	User    domain.UserView `json:"user"`
}

type ProfileResp struct {
	User *auth.Claims `json:"user"`
}

// AuthHandler 挂在 /auth 下：注册、登录、登出、当前用户
type AuthHandler struct {
	svc          *service.AuthService
	tokens       mdw.TokenVerifier
	log          *zap.Logger
	secureCookie bool
	limiter      gin.HandlerFunc
}

func NewAuthHandler(svc *service.AuthService, tokens mdw.TokenVerifier, l *zap.Logger, secureCookie bool, limiter gin.HandlerFunc) *AuthHandler {
	return &AuthHandler{svc: svc, tokens: tokens, log: l, secureCookie: secureCookie, limiter: limiter}
}

func (h *AuthHandler) Priority() int { return 10 }

func (h *AuthHandler) Mount(g *gin.RouterGroup) {
	grp := g.Group("/auth")
	if h.limiter != nil {
		grp.Use(h.limiter)
	}
	e := httpez.New(grp, h.log)

	httpez.RegisterAction(e, httpez.Action[RegisterReq, RegisterResp]{
		Method:  http.MethodPost,
		Path:    "/register",
		Binder:  httpez.BindJSON,
		Status:  http.StatusCreated,
		Handler: h.Register,
	})
	httpez.RegisterAction(e, httpez.Action[LoginReq, LoginResp]{
		Method:  http.MethodPost,
		Path:    "/login",
		Binder:  httpez.BindJSON,
		Handler: h.Login,
	})
	httpez.RegisterAction(e, httpez.Action[struct{}, resp.MessageBody]{
		Method:  http.MethodPost,
		Path:    "/logout",
		Binder:  httpez.BindNone,
		Handler: h.Logout,
	})
	httpez.RegisterAction(e, httpez.Action[struct{}, ProfileResp]{
		Method:  http.MethodGet,
		Path:    "/profile",
		Binder:  httpez.BindNone,
		Handler: h.Profile,
	})
}

func (h *AuthHandler) Register(c *gin.Context, in *RegisterReq) (RegisterResp, error) {
	id, err := h.svc.Register(c.Request.Context(), service.RegisterInput{
		Name:     in.Name,
		Email:    in.Email,
		Country:  in.Country,
		Phone:    in.Phone,
		Password: in.Password,
	})
	observe("register", err)
	if err != nil {
		return RegisterResp{}, err
	}
	return RegisterResp{Message: "Registration successful", UserID: id}, nil
}

func (h *AuthHandler) Login(c *gin.Context, in *LoginReq) (LoginResp, error) {
	res, err := h.svc.Login(c.Request.Context(), in.Email, in.Password)
	observe("login", err)
	if err != nil {
		return LoginResp{}, err
	}
	h.setSessionCookie(c, res.Token, int(auth.TokenTTL.Seconds()))
	return LoginResp{Message: "Login successful", User: res.User.ToView(false)}, nil
}

// Logout 只让客户端覆盖 cookie；服务端没有吊销表
func (h *AuthHandler) Logout(c *gin.Context, _ *struct{}) (resp.MessageBody, error) {
	h.setSessionCookie(c, "", -1)
	observe("logout", nil)
	return resp.Message("Logged out successfully"), nil
}

func (h *AuthHandler) Profile(c *gin.Context, _ *struct{}) (ProfileResp, error) {
	claims, err := verifyCookie(c, h.tokens)
	if err != nil {
		return ProfileResp{}, err
	}
	return ProfileResp{User: claims}, nil
}

// maxAge < 0 时 gin 输出 Max-Age=0，浏览器立即删除
func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(mdw.SessionCookie, value, maxAge, "/", "", h.secureCookie, true)
}

var errUnauthorized = apperr.Authentication(resp.MsgUnauthorized)

// verifyCookie 下游自行校验，不依赖闸门注入
func verifyCookie(c *gin.Context, tokens mdw.TokenVerifier) (*auth.Claims, error) {
	tok, err := c.Cookie(mdw.SessionCookie)
	if err != nil || tok == "" {
		return nil, errUnauthorized
	}
	claims, err := tokens.Verify(tok)
	if err != nil {
		return nil, errUnauthorized
	}
	return claims, nil
}

func observe(action string, err error) {
	if err == nil {
		mdw.ObserveAuth(action, "success")
		return
	}
	mdw.ObserveAuth(action, string(apperr.KindOf(err)))
}
