package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gin-oracle-auth/internal/core/auth"
)

// SessionCookie 登录后下发的 HttpOnly cookie
const SessionCookie = "auth_token"

type Decision int

const (
	Allowed Decision = iota
	Redirected
)

func (d Decision) String() string {
	if d == Redirected {
		return "redirected"
	}
	return "allowed"
}

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// SessionGate 只看 cookie 和签名，不查库，不往请求里塞 claims
type SessionGate struct {
	verifier  TokenVerifier
	prefixes  []string
	loginPath string
}

func NewSessionGate(v TokenVerifier, prefixes []string, loginPath string) *SessionGate {
	if loginPath == "" {
		loginPath = "/login"
	}
	norm := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		if p != "/" {
			p = strings.TrimRight(p, "/")
		}
		norm = append(norm, p)
	}
	return &SessionGate{verifier: v, prefixes: norm, loginPath: loginPath}
}

func (g *SessionGate) LoginPath() string { return g.loginPath }

// AuthPrefix 下是登录/注册接口，任何前缀配置都不能把它们挡住
const AuthPrefix = "/auth"

// Protected 前缀匹配路径本身或其子路径：/dashboard、/dashboard/x，但不含 /dashboardx
func (g *SessionGate) Protected(path string) bool {
	if path == g.loginPath || path == AuthPrefix || strings.HasPrefix(path, AuthPrefix+"/") {
		return false
	}
	for _, p := range g.prefixes {
		if p == "/" || path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func (g *SessionGate) Decide(r *http.Request) Decision {
	if !g.Protected(r.URL.Path) {
		return Allowed
	}
	ck, err := r.Cookie(SessionCookie)
	if err != nil || ck.Value == "" {
		return Redirected
	}
	if _, err := g.verifier.Verify(ck.Value); err != nil {
		return Redirected
	}
	return Allowed
}

// Handler 受保护路径未通过时 307 到登录页
func (g *SessionGate) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.Protected(c.Request.URL.Path) {
			c.Next()
			return
		}
		d := g.Decide(c.Request)
		gateDecisions.WithLabelValues(d.String()).Inc()
		if d == Redirected {
			c.Redirect(http.StatusTemporaryRedirect, g.loginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}
