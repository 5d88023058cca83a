package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"go-next-lms/backend/internal/models"
	"go-next-lms/backend/internal/repositories"
	"go-next-lms/backend/internal/services"
)

// CourseHandler はコース関連のハンドラーを管理します。
type CourseHandler struct {
	courseService *services.CourseService
}

// NewCourseHandler は新しいCourseHandlerを作成します。
func NewCourseHandler(courseService *services.CourseService) *CourseHandler {
	return &CourseHandler{courseService: courseService}
}

// requestUser はミドルウェアがコンテキストに設定したユーザーID・ロールを取り出します。
func requestUser(c *gin.Context) (int, string, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return 0, "", false
	}
	userID, ok := userIDVal.(int)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID type in context"})
		return 0, "", false
	}
	userRoleVal, exists := c.Get("user_role")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User role not found in context"})
		return 0, "", false
	}
	userRole, ok := userRoleVal.(string)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user role type in context"})
		return 0, "", false
	}
	return userID, userRole, true
}

// CreateCourseHandler は新しいコースを作成します。
func (h *CourseHandler) CreateCourseHandler(c *gin.Context) {
	userID, userRole, ok := requestUser(c)
	if !ok {
		return
	}

	var newCourse models.Course
	if err := c.ShouldBindJSON(&newCourse); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	createdCourse, err := h.courseService.CreateCourse(&newCourse, userID, userRole)
	if err != nil {
		if errors.Is(err, services.ErrCourseAccessDenied) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		log.Printf("Failed to create course: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create course"})
		return
	}
	c.JSON(http.StatusCreated, createdCourse)
}

// GetCoursesHandler はロールに応じたコース一覧を返します。
func (h *CourseHandler) GetCoursesHandler(c *gin.Context) {
	userID, userRole, ok := requestUser(c)
	if !ok {
		return
	}

	courses, err := h.courseService.GetCourses(userID, userRole)
	if err != nil {
		log.Printf("Failed to fetch courses: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch courses"})
		return
	}
	c.JSON(http.StatusOK, courses)
}

// GetCourseByIDHandler は指定IDのコースを返します。
func (h *CourseHandler) GetCourseByIDHandler(c *gin.Context) {
	userID, userRole, ok := requestUser(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	course, err := h.courseService.GetCourseByID(id, userID, userRole)
	if err != nil {
		if errors.Is(err, repositories.ErrCourseNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
			return
		}
		log.Printf("Failed to fetch course: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch course"})
		return
	}
	c.JSON(http.StatusOK, course)
}

// UpdateCourseHandler は指定IDのコースを更新します。
func (h *CourseHandler) UpdateCourseHandler(c *gin.Context) {
	userID, userRole, ok := requestUser(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var updateCourse models.Course
	if err := c.ShouldBindJSON(&updateCourse); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	updatedCourse, err := h.courseService.UpdateCourse(id, &updateCourse, userID, userRole)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrCourseNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		case errors.Is(err, services.ErrCourseAccessDenied):
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		default:
			log.Printf("Failed to update course: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update course"})
		}
		return
	}
	c.JSON(http.StatusOK, updatedCourse)
}

// DeleteCourseHandler は指定IDのコースを削除します。
func (h *CourseHandler) DeleteCourseHandler(c *gin.Context) {
	userID, userRole, ok := requestUser(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	if err := h.courseService.DeleteCourse(id, userID, userRole); err != nil {
		switch {
		case errors.Is(err, repositories.ErrCourseNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		case errors.Is(err, services.ErrCourseAccessDenied):
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		default:
			log.Printf("Failed to delete course: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete course"})
		}
		return
	}
	c.Status(http.StatusNoContent)
}
