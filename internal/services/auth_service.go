package services

import (
	"errors"
	"fmt"
	"log"
	"os"

	"go-next-lms/backend/internal/models"
	"go-next-lms/backend/internal/repositories"
)

// クライアントに返すメッセージ。
// アカウントの存在有無を推測されないよう、失敗系は意図的に同一文言に集約しています。
const (
	MsgResetLinkSent    = "If the email is registered, you will receive a reset link."
	MsgResetEmailFailed = "Failed to send reset email. Please try again later."
	MsgInvalidToken     = "Invalid or expired token."
	MsgResetSuccess     = "Password reset successful."
)

var (
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters long")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// パスワードの最小文字数。
const minPasswordLength = 6

// roleRedirects はロールごとのログイン後の遷移先です。
// 未知のロールはUSER扱いにフォールバックします。
var roleRedirects = map[string]string{
	models.RoleAdmin:   "/admin",
	models.RoleTeacher: "/teacher",
	models.RoleUser:    "/user",
}

// RedirectForRole はロールに対応するログイン後の遷移先を返します。
func RedirectForRole(role string) string {
	if target, ok := roleRedirects[role]; ok {
		return target
	}
	return roleRedirects[models.RoleUser]
}

// AuthService は認証関連のビジネスロジックを扱います。
type AuthService struct {
	userRepo   repositories.UserStore
	jwtService *JWTService
	mailer     Mailer
	baseURL    string
}

// NewAuthService は新しいAuthServiceを作成します。
// baseURL はリセットリンクの生成に使います（BASE_URL、未設定時はlocalhost:3000）。
func NewAuthService(userRepo repositories.UserStore, jwtService *JWTService, mailer Mailer) *AuthService {
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}
	return &AuthService{userRepo: userRepo, jwtService: jwtService, mailer: mailer, baseURL: baseURL}
}

// Register はユーザーを登録します。ロールはUSER固定、自動ログインはしません。
func (s *AuthService) Register(req models.UserRegisterRequest) (*models.User, error) {
	if req.Password != req.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	if len(req.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	// UNIQUE制約の1062でも検出されるが、先に存在チェックして早期に返す
	if _, err := s.userRepo.FindByEmail(req.Email); err == nil {
		return nil, repositories.ErrDuplicateEmail
	}

	hashedPassword, err := repositories.HashPassword(req.Password)
	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser := &models.User{
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Role:         models.RoleUser,
	}
	createdUser, err := s.userRepo.Create(newUser)
	if err != nil {
		return nil, err
	}
	createdUser.PasswordHash = "" // レスポンスにハッシュを含めない
	return createdUser, nil
}

// Login はユーザーを認証し、セッショントークンとユーザーを返します。
// メール不存在とパスワード不一致は区別せず ErrInvalidCredentials を返します。
func (s *AuthService) Login(req models.UserLoginRequest) (string, *models.User, error) {
	foundUser, err := s.userRepo.FindByEmail(req.Email)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if !repositories.VerifyPassword(foundUser.PasswordHash, req.Password) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateSessionToken(foundUser.ID)
	if err != nil {
		log.Printf("Failed to generate session token: %v", err)
		return "", nil, ErrInvalidCredentials
	}

	foundUser.PasswordHash = ""
	return token, foundUser, nil
}

// ForgotPassword はリセットトークンを発行してメールで送ります。常にメッセージを返します。
// メールが未登録でも同じ文言を返し、アカウントの存在を漏らしません。
func (s *AuthService) ForgotPassword(email string) string {
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		// 存在しないメール → バレないように成功と同じ文言
		log.Printf("forgot-password for unknown email, returning generic message")
		return MsgResetLinkSent
	}

	token, err := s.jwtService.GenerateResetToken(user.ID)
	if err != nil {
		log.Printf("Failed to generate reset token: %v", err)
		return MsgResetLinkSent
	}

	// トークンを保存し、使用済みフラグを戻す（再発行で古いトークンは失効する）
	if err := s.userRepo.SetResetToken(user.ID, token); err != nil {
		log.Printf("Failed to save reset token: %v", err)
		return MsgResetLinkSent
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, token)
	body := fmt.Sprintf(`<p>Click <a href="%s">here</a> to reset your password. This link will expire in 1 hour.</p>`, resetLink)

	if err := s.mailer.Send(email, "Reset Your Password", body); err != nil {
		// NOTE: この文言は成功系と異なるため、登録済みメールであることが推測できてしまう。
		// 旧実装の挙動をそのまま維持している（DESIGN.md参照）。
		log.Printf("Failed to send reset email: %v", err)
		return MsgResetEmailFailed
	}

	return MsgResetLinkSent
}

// ValidateResetToken はリセットトークンを検証します。
// 署名・期限・DB上のトークン一致・未使用のすべてを満たす場合のみvalidになります。
func (s *AuthService) ValidateResetToken(token string) models.ResetTokenValidation {
	invalid := models.ResetTokenValidation{Valid: false, Message: MsgInvalidToken}

	userID, err := s.jwtService.ValidateResetToken(token)
	if err != nil {
		return invalid
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return invalid
	}
	if user.ResetToken == nil || *user.ResetToken != token || user.ResetTokenUsed {
		return invalid
	}

	return models.ResetTokenValidation{Valid: true, UserID: user.ID}
}

// ResetPassword はトークンを使ってパスワードを再設定します。
// 失敗理由は区別せず、常に同じ文言を返します。
func (s *AuthService) ResetPassword(token, newPassword string) string {
	if token == "" {
		return MsgInvalidToken
	}

	result := s.ValidateResetToken(token)
	if !result.Valid {
		return MsgInvalidToken
	}

	hashedPassword, err := repositories.HashPassword(newPassword)
	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		return MsgInvalidToken
	}

	// パスワード更新・使用済みマーク・トークンクリアを1回の条件付きUPDATEで行う。
	// 並行して同じトークンが使われても、先に通った1件以外はここで弾かれる。
	if err := s.userRepo.ConsumeResetToken(result.UserID, token, hashedPassword); err != nil {
		log.Printf("Failed to consume reset token: %v", err)
		return MsgInvalidToken
	}

	return MsgResetSuccess
}
