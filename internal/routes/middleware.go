package routes

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"go-next-lms/backend/internal/repositories"
	"go-next-lms/backend/internal/services"
)

// AuthMiddleware はセッションCookieのJWTを検証し、ユーザー情報をコンテキストに設定するミドルウェアです。
// Cookieが無い・無効・ユーザーが見つからない場合は401で/loginへの遷移を促します。
func AuthMiddleware(jwtService *services.JWTService, userRepo repositories.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie("token")
		if err != nil || tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "redirect": "/login"})
			c.Abort()
			return
		}

		userID, err := jwtService.ValidateSessionToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "redirect": "/login"})
			c.Abort()
			return
		}

		// ロールはトークンに載せず、毎回DBの現在値を読む
		user, err := userRepo.FindByID(userID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "redirect": "/login"})
			c.Abort()
			return
		}

		c.Set("user_id", user.ID)
		c.Set("user_email", user.Email)
		c.Set("user_role", user.Role)
		c.Next()
	}
}

// RequireRole は許可ロールを限定するミドルウェアです。AuthMiddlewareの後に使います。
// 例: RequireRole(models.RoleAdmin) / RequireRole(models.RoleTeacher, models.RoleAdmin)
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[strings.ToUpper(strings.TrimSpace(r))] = struct{}{}
	}
	return func(c *gin.Context) {
		roleVal, _ := c.Get("user_role")
		role, _ := roleVal.(string)
		if _, ok := allowed[strings.ToUpper(role)]; !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			c.Abort()
			return
		}
		c.Next()
	}
}
