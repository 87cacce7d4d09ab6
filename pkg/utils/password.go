package utils

import "golang.org/x/crypto/bcrypt"

// PasswordCost 固定工作因子
const PasswordCost = 10

// HashPassword 每次随机加盐；超过 72 字节的密码返回 bcrypt.ErrPasswordTooLong
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(pw, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pw)) == nil
}
