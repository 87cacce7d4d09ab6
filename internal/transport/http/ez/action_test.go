package ez

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"gin-oracle-auth/internal/core/apperr"
)

type echoIn struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

type echoOut struct {
	Email string `json:"email"`
}

func newEchoEngine(handler func(c *gin.Context, in *echoIn) (echoOut, error), status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	e := New(r.Group(""), zap.NewNop())
	RegisterAction(e, Action[echoIn, echoOut]{
		Method:  http.MethodPost,
		Path:    "/echo",
		Binder:  BindJSON,
		Status:  status,
		Handler: handler,
	})
	return r
}

func TestRegisterAction(t *testing.T) {
	ok := func(c *gin.Context, in *echoIn) (echoOut, error) { return echoOut{Email: in.Email}, nil }

	tests := []struct {
		name       string
		handler    func(c *gin.Context, in *echoIn) (echoOut, error)
		status     int
		body       string
		wantStatus int
		wantBody   string
	}{
		{"success with custom status", ok, http.StatusCreated, `{"email":"a@x.com","password":"p"}`, http.StatusCreated, `{"email":"a@x.com"}`},
		{"success default status", ok, 0, `{"email":"a@x.com","password":"p"}`, http.StatusOK, `{"email":"a@x.com"}`},
		{"missing fields use json names", ok, 0, `{}`, http.StatusBadRequest, `{"error":"missing required fields: email, password"}`},
		{"malformed json", ok, 0, `{"email":`, http.StatusBadRequest, `{"error":"invalid request body"}`},
		{"empty body", ok, 0, ``, http.StatusBadRequest, `{"error":"invalid request body"}`},
		{"wrong type", ok, 0, `{"email":1,"password":"p"}`, http.StatusBadRequest, `{"error":"invalid request body"}`},
		{
			"handler conflict", func(*gin.Context, *echoIn) (echoOut, error) {
				return echoOut{}, apperr.Conflict("Email already in use")
			}, 0, `{"email":"a@x.com","password":"p"}`, http.StatusConflict, `{"error":"Email already in use"}`,
		},
		{
			"handler internal hides detail", func(*gin.Context, *echoIn) (echoOut, error) {
				return echoOut{}, apperr.Internal("sign token", assert.AnError)
			}, 0, `{"email":"a@x.com","password":"p"}`, http.StatusInternalServerError, `{"error":"Internal server error"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEchoEngine(tt.handler, tt.status)
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestRegisterAction_BodyTooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 8)
		c.Next()
	})
	RegisterAction(New(r.Group(""), zap.NewNop()), Action[echoIn, echoOut]{
		Path:    "/echo",
		Binder:  BindJSON,
		Handler: func(c *gin.Context, in *echoIn) (echoOut, error) { return echoOut{}, nil },
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"email":"a@x.com","password":"p"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
