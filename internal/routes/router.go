// Package routesはroutingを行います。
package routes

import (
	"database/sql"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"go-next-lms/backend/internal/handlers"
	"go-next-lms/backend/internal/models"
	"go-next-lms/backend/internal/repositories"
	"go-next-lms/backend/internal/services"
)

// SetupRouter はGinルーターをセットアップし、すべてのエンドポイントを登録します。
func SetupRouter(db *sql.DB) *gin.Engine {
	// リポジトリ
	userRepo := repositories.NewUserRepository(db)
	courseRepo := repositories.NewCourseRepository(db)

	// サービス
	jwtService := services.NewJWTService()
	mailer := services.NewSMTPMailer()
	authService := services.NewAuthService(userRepo, jwtService, mailer)
	courseService := services.NewCourseService(courseRepo)

	r := NewRouter(db, userRepo, jwtService, authService, courseService)
	return r
}

// NewRouter は依存を注入してルーターを構築します。テストからも使います。
func NewRouter(db *sql.DB, userRepo repositories.UserStore, jwtService *services.JWTService, authService *services.AuthService, courseService *services.CourseService) *gin.Engine {
	r := gin.Default()

	// CORS対策。セッションCookieを通すためAllowCredentialsを有効にする。
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"http://localhost:3000"}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	config.AllowCredentials = true
	r.Use(cors.New(config))

	// ハンドラー
	authHandler := handlers.NewAuthHandler(authService)
	courseHandler := handlers.NewCourseHandler(courseService)

	// ルーティング
	r.GET("/api/hello", HelloHandler)
	r.GET("/api/dbcheck", func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "Database not configured"})
			return
		}
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database connection failed", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Database connection is healthy"})
	})
	r.POST("/api/register", authHandler.RegisterHandler)
	r.POST("/api/login", authHandler.LoginHandler)
	r.POST("/api/logout", authHandler.LogoutHandler)
	r.POST("/api/forgot-password", authHandler.ForgotPasswordHandler)
	r.POST("/api/auth/reset", authHandler.ResetHandler)

	authorized := r.Group("/")
	authorized.Use(AuthMiddleware(jwtService, userRepo))
	{
		authorized.GET("/api/me", authHandler.MeHandler)
		authorized.GET("/api/dashboard", authHandler.DashboardHandler)

		authorized.GET("/api/courses", courseHandler.GetCoursesHandler)
		authorized.GET("/api/courses/:id", courseHandler.GetCourseByIDHandler)
		authorized.POST("/api/courses", courseHandler.CreateCourseHandler)
		authorized.PUT("/api/courses/:id", courseHandler.UpdateCourseHandler)
		authorized.DELETE("/api/courses/:id", courseHandler.DeleteCourseHandler)

		admin := authorized.Group("/api/admin")
		admin.Use(RequireRole(models.RoleAdmin))
		{
			admin.GET("/dashboard", authHandler.DashboardHandler)
		}

		teacher := authorized.Group("/api/teacher")
		teacher.Use(RequireRole(models.RoleTeacher, models.RoleAdmin))
		{
			teacher.GET("/dashboard", authHandler.DashboardHandler)
		}
	}

	return r
}

func HelloHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Hello from Go Backend!"})
}
