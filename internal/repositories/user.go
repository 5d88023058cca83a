// Package repositories はデータベース操作を行うリポジトリを提供します。
package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/go-sql-driver/mysql"

	"golang.org/x/crypto/bcrypt" // パスワードのハッシュ化用

	"go-next-lms/backend/internal/models"
)

// bcryptのコストファクター。旧実装（bcryptjsのhash(password, 12)）に合わせます。
const bcryptCost = 12

var (
	ErrDuplicateEmail = errors.New("duplicate email")
	ErrUserNotFound   = errors.New("user not found")
)

// UserStore はユーザー永続化の抽象です。テストではインメモリ実装に差し替えます。
type UserStore interface {
	Create(u *models.User) (*models.User, error)
	FindByEmail(email string) (*models.User, error)
	FindByID(id int) (*models.User, error)
	// SetResetToken はリセットトークンを保存し、使用済みフラグをfalseに戻します。
	SetResetToken(userID int, token string) error
	// ConsumeResetToken はトークンが一致しかつ未使用の場合のみ、
	// パスワード更新・使用済みマーク・トークンクリアを1回のUPDATEで行います。
	// 条件を満たす行が無ければ ErrResetTokenMismatch を返します。
	ConsumeResetToken(userID int, token, newHash string) error
}

var ErrResetTokenMismatch = errors.New("reset token mismatch or already used")

// HashPassword は与えられたパスワードをbcryptでハッシュ化します。
func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedPassword), nil
}

// VerifyPassword はハッシュ化されたパスワードと平文のパスワードを比較します。
// ハッシュが壊れている場合もエラーにはせず false を返します。
func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// UserRepository はMySQLに対するUserStore実装です。
type UserRepository struct {
	DB *sql.DB
}

// NewUserRepository は新しいUserRepositoryインスタンスを作成します。
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// Create は新しいユーザーをデータベースに挿入します。
func (r *UserRepository) Create(u *models.User) (*models.User, error) {
	query := "INSERT INTO users (email, password_hash, role) VALUES (?, ?, ?)"
	result, err := r.DB.Exec(query, u.Email, u.PasswordHash, u.Role)
	if err != nil {
		// MySQLの重複エントリーエラーコード1062をチェック
		if mysqlErr, ok := err.(*mysql.MySQLError); ok && mysqlErr.Number == 1062 {
			return nil, ErrDuplicateEmail
		}
		log.Printf("Failed to insert user: %v", err)
		return nil, fmt.Errorf("could not insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("could not get last insert ID: %w", err)
	}
	u.ID = int(id)

	return u, nil
}

// FindByEmail はメールアドレスでユーザーを検索します。大文字小文字の正規化は行いません。
func (r *UserRepository) FindByEmail(email string) (*models.User, error) {
	query := "SELECT id, email, password_hash, role, reset_token, reset_token_used, created_at, updated_at FROM users WHERE email = ?"
	return r.scanUser(r.DB.QueryRow(query, email))
}

// FindByID はIDでユーザーを検索します。
func (r *UserRepository) FindByID(id int) (*models.User, error) {
	query := "SELECT id, email, password_hash, role, reset_token, reset_token_used, created_at, updated_at FROM users WHERE id = ?"
	return r.scanUser(r.DB.QueryRow(query, id))
}

func (r *UserRepository) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var resetToken sql.NullString
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&resetToken,
		&u.ResetTokenUsed,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		log.Printf("Failed to query user: %v", err)
		return nil, fmt.Errorf("could not query user: %w", err)
	}
	if resetToken.Valid {
		u.ResetToken = &resetToken.String
	}
	return &u, nil
}

// SetResetToken はリセットトークンを保存します。
// 再発行した場合は古いトークンが上書きされ、以後の照合で拒否されます。
func (r *UserRepository) SetResetToken(userID int, token string) error {
	res, err := r.DB.Exec(
		"UPDATE users SET reset_token = ?, reset_token_used = FALSE, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		token, userID,
	)
	if err != nil {
		return fmt.Errorf("could not save reset token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ConsumeResetToken はリセットの完了処理です。
// WHERE句でトークン一致と未使用を条件にすることで、二重使用の競合を防ぎます。
func (r *UserRepository) ConsumeResetToken(userID int, token, newHash string) error {
	res, err := r.DB.Exec(`
		UPDATE users
		SET password_hash = ?, reset_token_used = TRUE, reset_token = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND reset_token = ? AND reset_token_used = FALSE
	`, newHash, userID, token)
	if err != nil {
		return fmt.Errorf("could not consume reset token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrResetTokenMismatch
	}
	return nil
}
