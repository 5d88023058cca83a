package services

import (
	"errors"

	"go-next-lms/backend/internal/models"
	"go-next-lms/backend/internal/repositories"
)

var ErrCourseAccessDenied = errors.New("course access denied")

// CourseService はコース関連のビジネスロジックを扱います。
type CourseService struct {
	courseRepo repositories.CourseStore
}

// NewCourseService は新しいCourseServiceを作成します。
func NewCourseService(courseRepo repositories.CourseStore) *CourseService {
	return &CourseService{courseRepo: courseRepo}
}

// CreateCourse は新しいコースを作成します。TEACHERまたはADMINのみ。
func (s *CourseService) CreateCourse(course *models.Course, userID int, userRole string) (*models.Course, error) {
	if userRole != models.RoleTeacher && userRole != models.RoleAdmin {
		return nil, ErrCourseAccessDenied
	}
	course.TeacherID = userID
	return s.courseRepo.Create(course)
}

// GetCourses はロールに応じたコース一覧を返します。
// ADMIN: 全件 / TEACHER: 自分の作成分 / USER: 公開済みのみ
func (s *CourseService) GetCourses(userID int, userRole string) ([]*models.Course, error) {
	switch userRole {
	case models.RoleAdmin:
		return s.courseRepo.FindAll()
	case models.RoleTeacher:
		return s.courseRepo.FindByTeacherID(userID)
	default:
		return s.courseRepo.FindPublished()
	}
}

// GetCourseByID は指定IDのコースを取得し、閲覧可否をチェックします。
// 非公開コースは作成者とADMINのみ閲覧できます。
func (s *CourseService) GetCourseByID(id, userID int, userRole string) (*models.Course, error) {
	course, err := s.courseRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if !course.Published && course.TeacherID != userID && userRole != models.RoleAdmin {
		return nil, repositories.ErrCourseNotFound // 存在も秘匿する
	}
	return course, nil
}

// UpdateCourse はコースを更新します。作成者本人かADMINのみ。
func (s *CourseService) UpdateCourse(id int, update *models.Course, userID int, userRole string) (*models.Course, error) {
	existing, err := s.courseRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if existing.TeacherID != userID && userRole != models.RoleAdmin {
		return nil, ErrCourseAccessDenied
	}
	update.TeacherID = existing.TeacherID // 所有者は変更させない
	return s.courseRepo.Update(id, update)
}

// DeleteCourse はコースを削除します。作成者本人かADMINのみ。
func (s *CourseService) DeleteCourse(id, userID int, userRole string) error {
	existing, err := s.courseRepo.FindByID(id)
	if err != nil {
		return err
	}
	if existing.TeacherID != userID && userRole != models.RoleAdmin {
		return ErrCourseAccessDenied
	}
	return s.courseRepo.Delete(id)
}
