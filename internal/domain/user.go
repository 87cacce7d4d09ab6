package domain

import (
	"context"
	"errors"
	"time"
)

// ErrEmailTaken 由仓储在唯一约束冲突时返回
var ErrEmailTaken = errors.New("email already in use")

type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Country      string     `json:"country"`
	Phone        string     `json:"phone"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

// UserView 对外输出；Password 只在调用方显式要求时填充
type UserView struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Country  string `json:"country,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password,omitempty"`
}

func (u *User) ToView(includePassword bool) UserView {
	v := UserView{ID: u.ID, Email: u.Email, Name: u.Name, Country: u.Country, Phone: u.Phone}
	if includePassword {
		v.Password = u.PasswordHash
	}
	return v
}

type UserRepository interface {
	// FindByEmail 不存在时返回 (nil, nil)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// Create 返回数据库分配的 id；邮箱冲突返回 ErrEmailTaken
	Create(ctx context.Context, u *User) (int64, error)
	TouchLastLogin(ctx context.Context, id int64) error
}
