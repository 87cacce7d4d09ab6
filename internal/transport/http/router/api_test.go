package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gin-oracle-auth/internal/core/auth"
	"gin-oracle-auth/internal/core/config"
	"gin-oracle-auth/internal/domain"
	"gin-oracle-auth/internal/service"
	mdw "gin-oracle-auth/internal/transport/http/middleware"
)

// memUsers 内存版仓储，唯一约束与 Oracle 一致
type memUsers struct {
	mu      sync.Mutex
	nextID  int64
	byEmail map[string]*domain.User
	touched map[int64]int
}

func newMemUsers() *memUsers {
	return &memUsers{byEmail: map[string]*domain.User{}, touched: map[int64]int{}}
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Create(_ context.Context, u *domain.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return 0, domain.ErrEmailTaken
	}
	m.nextID++
	cp := *u
	cp.ID = m.nextID
	cp.CreatedAt = time.Now()
	m.byEmail[u.Email] = &cp
	u.ID = cp.ID
	return cp.ID, nil
}

func (m *memUsers) TouchLastLogin(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched[id]++
	return nil
}

type testApp struct {
	engine *gin.Engine
	users  *memUsers
	jwt    *auth.JWTer
}

func newTestApp(t *testing.T, secure bool, tweak ...func(d *Deps)) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	users := newMemUsers()
	j, _ := auth.NewJWTer("e2e-secret")
	l := zap.NewNop()
	d := Deps{
		Log:    l,
		Tokens: j,
		Auth:   service.NewAuthService(users, j, l),
		Gate:   config.Gate{ProtectedPrefixes: []string{"/dashboard", "/profile"}, LoginPath: "/login"},
		Limits: config.Limits{
			RequestTimeoutSec: 5,
			MaxBodyBytes:      1 << 20,
			MaxConcurrent:     10,
			GlobalRPS:         1000,
			GlobalBurst:       1000,
			AuthRPS:           1000,
			AuthBurst:         1000,
		},
		SecureCookie: secure,
	}
	for _, f := range tweak {
		f(&d)
	}
	engine, err := NewAPIEngine(d)
	require.NoError(t, err)
	return &testApp{engine: engine, users: users, jwt: j}
}

func (a *testApp) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == mdw.SessionCookie {
			return c
		}
	}
	require.FailNow(t, "auth_token cookie not set")
	return nil
}

const registerA = `{"name":"A","email":"a@x.com","country":"X","phone":"1","password":"secret123"}`

func TestAuthFlow_Scenario(t *testing.T) {
	app := newTestApp(t, false)

	w := app.do(http.MethodPost, "/auth/register", registerA)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reg struct {
		Message string `json:"message"`
		UserID  int64  `json:"userId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))
	assert.Equal(t, "Registration successful", reg.Message)
	assert.Positive(t, reg.UserID)
	assert.Empty(t, w.Result().Cookies(), "registration does not log the user in")

	w = app.do(http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Message string         `json:"message"`
		User    map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.Equal(t, "Login successful", login.Message)
	assert.Equal(t, "a@x.com", login.User["email"])
	assert.NotContains(t, login.User, "password")
	assert.Equal(t, 1, app.users.touched[reg.UserID])

	ck := sessionCookie(t, w)
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, ck.SameSite)
	assert.Equal(t, "/", ck.Path)
	assert.Equal(t, 86400, ck.MaxAge)
	assert.False(t, ck.Secure)

	w = app.do(http.MethodGet, "/auth/profile", "", ck)
	require.Equal(t, http.StatusOK, w.Code)
	var prof struct {
		User struct {
			UserID int64  `json:"userId"`
			Email  string `json:"email"`
			Name   string `json:"name"`
			Exp    int64  `json:"exp"`
			Iat    int64  `json:"iat"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prof))
	assert.Equal(t, reg.UserID, prof.User.UserID)
	assert.Equal(t, "a@x.com", prof.User.Email)
	assert.Equal(t, "A", prof.User.Name)
	assert.Equal(t, int64(86400), prof.User.Exp-prof.User.Iat)

	w = app.do(http.MethodPost, "/auth/logout", "", ck)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Logged out successfully"}`, w.Body.String())
	cleared := sessionCookie(t, w)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")

	w = app.do(http.MethodGet, "/auth/profile", "", cleared)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
}

func TestRegister_Errors(t *testing.T) {
	app := newTestApp(t, false)
	require.Equal(t, http.StatusCreated, app.do(http.MethodPost, "/auth/register", registerA).Code)

	w := app.do(http.MethodPost, "/auth/register",
		`{"name":"B","email":"A@X.com","country":"X","phone":"2","password":"other"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"Email already in use"}`, w.Body.String())

	w = app.do(http.MethodPost, "/auth/register", `{"name":"B","email":"b@x.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"missing required fields: country, phone, password"}`, w.Body.String())

	w = app.do(http.MethodPost, "/auth/register", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	app := newTestApp(t, false)
	require.Equal(t, http.StatusCreated, app.do(http.MethodPost, "/auth/register", registerA).Code)

	unknown := app.do(http.MethodPost, "/auth/login", `{"email":"nobody@x.com","password":"secret123"}`)
	wrong := app.do(http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"nope"}`)

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, unknown.Code, wrong.Code)
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())
	assert.JSONEq(t, `{"error":"Invalid email or password"}`, wrong.Body.String())
	assert.Empty(t, wrong.Result().Cookies())

	w := app.do(http.MethodPost, "/auth/login", `{"email":"a@x.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_SecureCookieInProduction(t *testing.T) {
	app := newTestApp(t, true)
	require.Equal(t, http.StatusCreated, app.do(http.MethodPost, "/auth/register", registerA).Code)

	w := app.do(http.MethodPost, "/auth/login", `{"email":"A@x.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, sessionCookie(t, w).Secure)
}

func TestSessionGate_Routes(t *testing.T) {
	app := newTestApp(t, false)

	w := app.do(http.MethodGet, "/dashboard", "")
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = app.do(http.MethodGet, "/profile/settings", "", &http.Cookie{Name: mdw.SessionCookie, Value: "tampered.token.value"})
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)

	w = app.do(http.MethodGet, "/login", "")
	assert.Equal(t, http.StatusOK, w.Code)

	require.Equal(t, http.StatusCreated, app.do(http.MethodPost, "/auth/register", registerA).Code)
	ck := sessionCookie(t, app.do(http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"secret123"}`))

	w = app.do(http.MethodGet, "/dashboard", "", ck)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"page":"dashboard","user":{"userId":1,"email":"a@x.com","name":"A"}}`, w.Body.String())

	// 过期 token 同样被重定向
	expired := &auth.JWTer{Secret: app.jwt.Secret, Now: func() time.Time { return time.Now().Add(-25 * time.Hour) }}
	old, err := expired.Issue(auth.Identity{UserID: 1, Email: "a@x.com", Name: "A"})
	require.NoError(t, err)
	w = app.do(http.MethodGet, "/dashboard", "", &http.Cookie{Name: mdw.SessionCookie, Value: old})
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t, false)

	w := app.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":1}`, w.Body.String())

	app.do(http.MethodPost, "/auth/login", `{"email":"nobody@x.com","password":"x"}`)
	w = app.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "auth_outcomes_total")

	w = app.do(http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGlobalRateLimit(t *testing.T) {
	app := newTestApp(t, false, func(d *Deps) {
		d.Limits.GlobalRPS = 0.0001
		d.Limits.GlobalBurst = 1
	})

	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/health", "").Code)
	w := app.do(http.MethodGet, "/login", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"too many requests"}`, w.Body.String())
}

func TestAuthRateLimit_IgnoresForwardedForWithoutTrustedProxies(t *testing.T) {
	app := newTestApp(t, false, func(d *Deps) {
		d.Limits.AuthRPS = 0.0001
		d.Limits.AuthBurst = 2
	})

	login := func(xff string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@x.com","password":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", xff)
		req.RemoteAddr = "10.0.0.1:5555"
		w := httptest.NewRecorder()
		app.engine.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, login("1.1.1.1"))
	assert.Equal(t, http.StatusUnauthorized, login("1.1.1.2"))
	assert.Equal(t, http.StatusTooManyRequests, login("1.1.1.3"))
}

func TestNewAPIEngine_RejectsBadTrustedProxy(t *testing.T) {
	_, err := NewAPIEngine(Deps{Log: zap.NewNop(), TrustedProxies: []string{"not-an-ip"}})
	assert.Error(t, err)
}
