// Package repositories はデータベース操作を行うリポジトリを提供します。
package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"go-next-lms/backend/internal/models"
)

var ErrCourseNotFound = errors.New("course not found")

// CourseStore はコース永続化の抽象です。
type CourseStore interface {
	Create(course *models.Course) (*models.Course, error)
	FindByID(id int) (*models.Course, error)
	FindAll() ([]*models.Course, error)
	FindByTeacherID(teacherID int) ([]*models.Course, error)
	FindPublished() ([]*models.Course, error)
	Update(id int, course *models.Course) (*models.Course, error)
	Delete(id int) error
}

// CourseRepository はMySQLに対するCourseStore実装です。
type CourseRepository struct {
	DB *sql.DB
}

// NewCourseRepository は新しいCourseRepositoryインスタンスを作成します。
func NewCourseRepository(db *sql.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

// Create は新しいコースをデータベースに挿入します。
func (r *CourseRepository) Create(course *models.Course) (*models.Course, error) {
	query := "INSERT INTO courses (teacher_id, title, description, published) VALUES (?, ?, ?, ?)"
	result, err := r.DB.Exec(query, course.TeacherID, course.Title, course.Description, course.Published)
	if err != nil {
		log.Printf("Failed to insert course: %v", err)
		return nil, fmt.Errorf("could not insert course: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("could not get last insert ID: %w", err)
	}
	course.ID = int(id)
	return course, nil
}

// FindByID は指定IDのコースを取得します。
func (r *CourseRepository) FindByID(id int) (*models.Course, error) {
	query := "SELECT id, teacher_id, title, description, published, created_at, updated_at FROM courses WHERE id = ?"
	var c models.Course
	err := r.DB.QueryRow(query, id).Scan(
		&c.ID, &c.TeacherID, &c.Title, &c.Description, &c.Published, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCourseNotFound
		}
		log.Printf("Failed to query course: %v", err)
		return nil, fmt.Errorf("could not query course: %w", err)
	}
	return &c, nil
}

// FindAll はすべてのコースを取得します（管理者用）。
func (r *CourseRepository) FindAll() ([]*models.Course, error) {
	return r.queryCourses("SELECT id, teacher_id, title, description, published, created_at, updated_at FROM courses ORDER BY id")
}

// FindByTeacherID は指定した教師が作成したコースを取得します。
func (r *CourseRepository) FindByTeacherID(teacherID int) ([]*models.Course, error) {
	return r.queryCourses("SELECT id, teacher_id, title, description, published, created_at, updated_at FROM courses WHERE teacher_id = ? ORDER BY id", teacherID)
}

// FindPublished は公開済みコースを取得します（受講者用）。
func (r *CourseRepository) FindPublished() ([]*models.Course, error) {
	return r.queryCourses("SELECT id, teacher_id, title, description, published, created_at, updated_at FROM courses WHERE published = TRUE ORDER BY id")
}

func (r *CourseRepository) queryCourses(query string, args ...interface{}) ([]*models.Course, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		log.Printf("Failed to query courses: %v", err)
		return nil, fmt.Errorf("could not query courses: %w", err)
	}
	defer rows.Close()

	var courses []*models.Course
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.ID, &c.TeacherID, &c.Title, &c.Description, &c.Published, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("could not scan course: %w", err)
		}
		courses = append(courses, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return courses, nil
}

// Update は指定IDのコースを更新します。
func (r *CourseRepository) Update(id int, course *models.Course) (*models.Course, error) {
	query := "UPDATE courses SET title = ?, description = ?, published = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	// 値が変わらない更新でもMySQLは affected=0 を返すため、行数チェックはしない
	if _, err := r.DB.Exec(query, course.Title, course.Description, course.Published, id); err != nil {
		log.Printf("Failed to update course: %v", err)
		return nil, fmt.Errorf("could not update course: %w", err)
	}
	return r.FindByID(id)
}

// Delete は指定IDのコースを削除します。
func (r *CourseRepository) Delete(id int) error {
	res, err := r.DB.Exec("DELETE FROM courses WHERE id = ?", id)
	if err != nil {
		log.Printf("Failed to delete course: %v", err)
		return fmt.Errorf("could not delete course: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCourseNotFound
	}
	return nil
}
