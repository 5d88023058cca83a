package services

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// トークンの有効期限。セッションは7日、リセットは1時間。
const (
	SessionTokenTTL = 7 * 24 * time.Hour
	ResetTokenTTL   = time.Hour
)

var (
	ErrInvalidSession    = errors.New("invalid or expired session token")
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

// Claims はJWTクレームの構造体です。
// セッショントークンとリセットトークンは構造的に同一で、
// リセットの単回使用チェックはサービス層（DB照合）が担当します。
type Claims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTService はJWTトークンの生成と検証を扱います。
type JWTService struct {
	secret []byte
}

// NewJWTService は新しいJWTServiceを作成します。
// シークレット未設定のまま起動させない（フォールバックの既定値は使わない）。
func NewJWTService() *JWTService {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET environment variable not set")
	}
	return &JWTService{secret: []byte(secret)}
}

// NewJWTServiceWithSecret はテスト用にシークレットを直接指定してJWTServiceを作成します。
func NewJWTServiceWithSecret(secret string) *JWTService {
	return &JWTService{secret: []byte(secret)}
}

// GenerateSessionToken はセッショントークン（7日間有効）を生成します。
func (s *JWTService) GenerateSessionToken(userID int) (string, error) {
	return s.generate(userID, SessionTokenTTL)
}

// GenerateResetToken はパスワードリセットトークン（1時間有効）を生成します。
func (s *JWTService) GenerateResetToken(userID int) (string, error) {
	return s.generate(userID, ResetTokenTTL)
}

func (s *JWTService) generate(userID int, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return tokenString, nil
}

// ValidateSessionToken はセッショントークンを検証し、ユーザーIDを返します。
func (s *JWTService) ValidateSessionToken(tokenString string) (int, error) {
	userID, err := s.parse(tokenString)
	if err != nil {
		return 0, ErrInvalidSession
	}
	return userID, nil
}

// ValidateResetToken はリセットトークンの署名と有効期限を検証し、ユーザーIDを返します。
// DB上のトークン照合・使用済みチェックは呼び出し側（AuthService）が行います。
func (s *JWTService) ValidateResetToken(tokenString string) (int, error) {
	userID, err := s.parse(tokenString)
	if err != nil {
		return 0, ErrInvalidResetToken
	}
	return userID, nil
}

func (s *JWTService) parse(tokenString string) (int, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// alg差し替え攻撃を防ぐためHMAC以外は拒否
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return 0, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("invalid token claims")
	}
	return claims.UserID, nil
}
