package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gin-oracle-auth/internal/core/apperr"
)

const (
	// TokenTTL 固定 24 小时，不做滑动续期
	TokenTTL = 24 * time.Hour

	// FallbackSecret 未配置 JWT_SECRET 时使用；已知弱点，启动时会打告警
	FallbackSecret = "your_jwt_secret"
)

var ErrInvalidToken = apperr.Authentication("invalid token")

// Identity 是签发时唯一接受的载荷
type Identity struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

type Claims struct {
	Identity
	jwt.RegisteredClaims
}

// Validate 在标准时间校验之后由 jwt 调用，拒绝形状不对的载荷
func (c Claims) Validate() error {
	if c.UserID <= 0 {
		return errors.New("claim userId missing")
	}
	if c.Email == "" {
		return errors.New("claim email missing")
	}
	if c.Name == "" {
		return errors.New("claim name missing")
	}
	if c.IssuedAt == nil {
		return errors.New("claim iat missing")
	}
	return nil
}

type JWTer struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

// NewJWTer 空 secret 时回退到 FallbackSecret，usedFallback 供调用方记录告警
func NewJWTer(secret string) (j *JWTer, usedFallback bool) {
	if secret == "" {
		secret = FallbackSecret
		usedFallback = true
	}
	return &JWTer{Secret: []byte(secret), TTL: TokenTTL}, usedFallback
}

func (j *JWTer) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

func (j *JWTer) ttl() time.Duration {
	if j.TTL > 0 {
		return j.TTL
	}
	return TokenTTL
}

func (j *JWTer) Issue(id Identity) (string, error) {
	now := j.now()
	claims := Claims{
		Identity: id,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl())),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(j.Secret)
	if err != nil {
		return "", apperr.Internal("sign token", err)
	}
	return s, nil
}

// Verify 签名、算法、载荷形状、过期（now >= exp 即失效，无 leeway）任一不满足都返回 ErrInvalidToken
func (j *JWTer) Verify(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return j.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid {
		return c, nil
	}
	return nil, ErrInvalidToken
}
