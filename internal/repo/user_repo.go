package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gin-oracle-auth/internal/core/database"
	"gin-oracle-auth/internal/domain"
)

const (
	sqlFindByEmail = `SELECT id, email, name, country, phone, password, created_at, last_login FROM users WHERE email = :email`
	sqlInsertUser  = `INSERT INTO users (name, email, country, phone, password, created_at) VALUES (:name, :email, :country, :phone, :password, CURRENT_TIMESTAMP)`
	sqlIDByEmail   = `SELECT id FROM users WHERE email = :email`
	sqlTouchLogin  = `UPDATE users SET last_login = CURRENT_TIMESTAMP WHERE id = :id`
)

type UserRepo struct{ db database.Store }

func NewUserRepo(db database.Store) *UserRepo { return &UserRepo{db: db} }

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	row, err := r.db.GetRow(ctx, sqlFindByEmail, database.Params{"email": email})
	if err != nil || row == nil {
		return nil, err
	}
	return userFromRow(row)
}

// Create 插入后在同一事务里按邮箱取回 id
func (r *UserRepo) Create(ctx context.Context, u *domain.User) (int64, error) {
	var id int64
	err := r.db.Tx(ctx, func(q database.Querier) error {
		_, err := q.Execute(ctx, sqlInsertUser, database.Params{
			"name":     u.Name,
			"email":    u.Email,
			"country":  u.Country,
			"phone":    u.Phone,
			"password": u.PasswordHash,
		})
		if err != nil {
			if isDupKey(err) {
				return domain.ErrEmailTaken
			}
			return err
		}
		row, err := q.GetRow(ctx, sqlIDByEmail, database.Params{"email": u.Email})
		if err != nil {
			return err
		}
		if row == nil {
			return errors.New("inserted user not found")
		}
		id, err = row.Int64("id")
		if err != nil {
			return fmt.Errorf("decode user id: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	u.ID = id
	return id, nil
}

func (r *UserRepo) TouchLastLogin(ctx context.Context, id int64) error {
	_, err := r.db.Execute(ctx, sqlTouchLogin, database.Params{"id": id})
	return err
}

func userFromRow(row database.Row) (*domain.User, error) {
	id, err := row.Int64("id")
	if err != nil {
		return nil, fmt.Errorf("decode user id: %w", err)
	}
	if id <= 0 {
		return nil, errors.New("decode user id: missing")
	}
	u := &domain.User{
		ID:           id,
		Email:        row.String("email"),
		Name:         row.String("name"),
		Country:      row.String("country"),
		Phone:        row.String("phone"),
		PasswordHash: row.String("password"),
		CreatedAt:    row.Time("created_at"),
	}
	if v, ok := row.Value("last_login"); ok && v != nil {
		t := row.Time("last_login")
		u.LastLogin = &t
	}
	return u, nil
}

func isDupKey(err error) bool {
	// ORA-00001 是 Oracle 的唯一约束冲突
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "ora-00001") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
