package models

import "time"

// ユーザーロール。DBにはこの値をそのまま保存します（フロント側のenum値と共通）。
const (
	RoleAdmin   = "ADMIN"
	RoleTeacher = "TEACHER"
	RoleUser    = "USER"
)

// User はユーザーのデータベース構造体を表します。
// JSONタグ: クライアントとの通信用
// ResetToken / ResetTokenUsed はパスワードリセットの単回使用チェック用です。
type User struct {
	ID             int       `json:"id,omitempty"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"` // JSONに出さない
	Role           string    `json:"role"`
	ResetToken     *string   `json:"-"` // 発行済みリセットトークン（未発行ならNULL）
	ResetTokenUsed bool      `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UserRegisterRequest はユーザー登録リクエストの構造体です。
// パスワードの一致・長さはサービス層で検証し、個別のエラーメッセージを返します。
type UserRegisterRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// UserLoginRequest はユーザーログインリクエストの構造体です。
type UserLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UserForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetRequest は /api/auth/reset のリクエスト形式です。
// type="validate" ではToken、type="reset" ではToken+Passwordを使います。
type ResetRequest struct {
	Type     string `json:"type" binding:"required"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetTokenValidation はリセットトークン検証の結果です。
type ResetTokenValidation struct {
	Valid   bool   `json:"valid"`
	UserID  int    `json:"user_id,omitempty"`
	Message string `json:"message,omitempty"`
}
