package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"go-next-lms/backend/internal/models"
	"go-next-lms/backend/internal/repositories"
	"go-next-lms/backend/internal/services"
)

// セッションCookieの設定。
// 名前 "token"、パス "/"、有効期限7日、HttpOnly、SameSite=Strict、本番ではSecure。
const (
	sessionCookieName   = "token"
	sessionCookieMaxAge = 60 * 60 * 24 * 7 // 7日
)

// AuthHandler は認証関連のハンドラーを管理します。
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler は新しいAuthHandlerを作成します。
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func secureCookies() bool {
	return os.Getenv("APP_ENV") == "production"
}

// setSessionCookie はセッショントークンをHttpOnly Cookieとしてセットします。
func setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(sessionCookieName, token, sessionCookieMaxAge, "/", "", secureCookies(), true)
}

// clearSessionCookie はセッションCookieを削除します。
func clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(sessionCookieName, "", -1, "/", "", secureCookies(), true)
}

// RegisterHandler はユーザー登録を処理します。成功してもログインはさせず、/login に誘導します。
func (h *AuthHandler) RegisterHandler(c *gin.Context) {
	var req models.UserRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	_, err := h.authService.Register(req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPasswordMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Passwords do not match"})
		case errors.Is(err, services.ErrPasswordTooShort):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 6 characters long"})
		case errors.Is(err, repositories.ErrDuplicateEmail):
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Registration successful", "redirect": "/login"})
}

// LoginHandler はユーザーログインを処理します。
// 成功時はセッションCookieをセットし、ロール別の遷移先を返します。
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	var req models.UserLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	token, user, err := h.authService.Login(req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	setSessionCookie(c, token)
	c.JSON(http.StatusOK, gin.H{
		"user_id":  user.ID,
		"role":     user.Role,
		"redirect": services.RedirectForRole(user.Role),
	})
}

// LogoutHandler はセッションCookieを削除します。サーバー側の状態変更はありません。
func (h *AuthHandler) LogoutHandler(c *gin.Context) {
	clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"redirect": "/login"})
}

// ForgotPasswordHandler はパスワードリセットリクエストを処理します。
// メールが未登録でも200で同じ文言を返します。
func (h *AuthHandler) ForgotPasswordHandler(c *gin.Context) {
	var req models.UserForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	message := h.authService.ForgotPassword(req.Email)
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// ResetHandler はリセットフローのAPIです。
// {type:"validate", token} → {valid, user_id?, message?}
// {type:"reset", token, password} → {message}
func (h *AuthHandler) ResetHandler(c *gin.Context) {
	var req models.ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
		return
	}

	switch req.Type {
	case "validate":
		c.JSON(http.StatusOK, h.authService.ValidateResetToken(req.Token))
	case "reset":
		message := h.authService.ResetPassword(req.Token, req.Password)
		c.JSON(http.StatusOK, gin.H{"message": message})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
	}
}

// MeHandler は認証済みユーザー自身の情報を返します。
func (h *AuthHandler) MeHandler(c *gin.Context) {
	userID, _ := c.Get("user_id")
	userEmail, _ := c.Get("user_email")
	userRole, _ := c.Get("user_role")
	c.JSON(http.StatusOK, gin.H{
		"id":    userID,
		"email": userEmail,
		"role":  userRole,
	})
}

// DashboardHandler はロール共通のダッシュボード情報を返します。
func (h *AuthHandler) DashboardHandler(c *gin.Context) {
	userRole, _ := c.Get("user_role")
	role, _ := userRole.(string)
	c.JSON(http.StatusOK, gin.H{
		"role":     role,
		"redirect": services.RedirectForRole(role),
	})
}
