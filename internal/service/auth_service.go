package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"gin-oracle-auth/internal/core/apperr"
	"gin-oracle-auth/internal/core/auth"
	"gin-oracle-auth/internal/domain"
	"gin-oracle-auth/pkg/utils"
)

const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgEmailInUse         = "Email already in use"
)

// 未知邮箱和密码错误共用同一个错误，避免账号枚举
var ErrInvalidCredentials = apperr.Authentication(MsgInvalidCredentials)

type RegisterInput struct {
	Name     string
	Email    string
	Country  string
	Phone    string
	Password string
}

type LoginResult struct {
	User  *domain.User
	Token string
}

type AuthService struct {
	users domain.UserRepository
	jwt   *auth.JWTer
	log   *zap.Logger
}

func NewAuthService(users domain.UserRepository, jwter *auth.JWTer, l *zap.Logger) *AuthService {
	return &AuthService{users: users, jwt: jwter, log: l}
}

// NormalizeEmail 查询和写入前统一小写
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (int64, error) {
	email := NormalizeEmail(in.Email)
	if err := requireFields(map[string]string{
		"name": in.Name, "email": email, "country": in.Country, "phone": in.Phone, "password": in.Password,
	}); err != nil {
		return 0, err
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return 0, asDatastore("look up user", err)
	}
	if existing != nil {
		return 0, apperr.Conflict(MsgEmailInUse)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return 0, apperr.Validation("password must be at most 72 bytes")
		}
		return 0, apperr.Internal("hash password", err)
	}

	u := &domain.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		Country:      strings.TrimSpace(in.Country),
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
	}
	id, err := s.users.Create(ctx, u)
	if err != nil {
		// 查重和插入之间的并发注册由唯一约束兜底
		if errors.Is(err, domain.ErrEmailTaken) {
			return 0, apperr.Conflict(MsgEmailInUse)
		}
		return 0, asDatastore("create user", err)
	}
	s.log.Info("user registered", zap.Int64("user_id", id))
	return id, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)
	if err := requireFields(map[string]string{"email": email, "password": password}); err != nil {
		return nil, err
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, asDatastore("look up user", err)
	}
	if u == nil || !utils.CheckPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.Issue(auth.Identity{UserID: u.ID, Email: u.Email, Name: u.Name})
	if err != nil {
		return nil, err
	}

	// last_login 尽力而为，失败不影响登录
	if err := s.users.TouchLastLogin(ctx, u.ID); err != nil {
		s.log.Warn("update last_login failed", zap.Int64("user_id", u.ID), zap.Error(err))
	}
	return &LoginResult{User: u, Token: token}, nil
}

// requireFields 按固定顺序列出缺失字段；密码只判空，空白也是合法密码
func requireFields(fields map[string]string) error {
	var missing []string
	for _, k := range []string{"name", "email", "country", "phone", "password"} {
		v, ok := fields[k]
		if !ok {
			continue
		}
		if k != "password" {
			v = strings.TrimSpace(v)
		}
		if v == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return apperr.Validation("missing required fields: " + strings.Join(missing, ", "))
	}
	return nil
}

func asDatastore(msg string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Datastore(msg, err)
}
