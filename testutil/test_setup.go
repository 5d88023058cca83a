// Package testutil はテスト用のフェイク実装とルーターセットアップを提供します。
// 実DBやSMTPを使わずに、リポジトリ・メーラーのインターフェースを満たします。
package testutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"go-next-lms/backend/internal/models"
	"go-next-lms/backend/internal/repositories"
	"go-next-lms/backend/internal/routes"
	"go-next-lms/backend/internal/services"
)

// TestJWTSecret はテスト用の署名シークレットです。
const TestJWTSecret = "test-secret-key"

// FakeUserStore はインメモリのUserStore実装です。
type FakeUserStore struct {
	mu     sync.Mutex
	nextID int
	users  map[int]*models.User
}

func NewFakeUserStore() *FakeUserStore {
	return &FakeUserStore{nextID: 1, users: make(map[int]*models.User)}
}

func copyUser(u *models.User) *models.User {
	cp := *u
	if u.ResetToken != nil {
		token := *u.ResetToken
		cp.ResetToken = &token
	}
	return &cp
}

func (s *FakeUserStore) Create(u *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return nil, repositories.ErrDuplicateEmail
		}
	}
	stored := copyUser(u)
	stored.ID = s.nextID
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	s.users[stored.ID] = stored
	s.nextID++
	return copyUser(stored), nil
}

func (s *FakeUserStore) FindByEmail(email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email { // 大文字小文字は区別する
			return copyUser(u), nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (s *FakeUserStore) FindByID(id int) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (s *FakeUserStore) SetResetToken(userID int, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	t := token
	u.ResetToken = &t
	u.ResetTokenUsed = false
	u.UpdatedAt = time.Now()
	return nil
}

// ConsumeResetToken はMySQL実装の条件付きUPDATEと同じセマンティクスを持ちます。
func (s *FakeUserStore) ConsumeResetToken(userID int, token, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return repositories.ErrResetTokenMismatch
	}
	if u.ResetToken == nil || *u.ResetToken != token || u.ResetTokenUsed {
		return repositories.ErrResetTokenMismatch
	}
	u.PasswordHash = newHash
	u.ResetTokenUsed = true
	u.ResetToken = nil
	u.UpdatedAt = time.Now()
	return nil
}

// SentMail は送信されたメールの記録です。
type SentMail struct {
	To      string
	Subject string
	Body    string
}

// FakeMailer は送信内容を記録するMailer実装です。
// FailNext をtrueにすると次の1回の送信を失敗させます。
type FakeMailer struct {
	mu       sync.Mutex
	Sent     []SentMail
	FailNext bool
}

func (m *FakeMailer) Send(to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNext {
		m.FailNext = false
		return errors.New("smtp: connection refused")
	}
	m.Sent = append(m.Sent, SentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

// FakeCourseStore はインメモリのCourseStore実装です。
type FakeCourseStore struct {
	mu      sync.Mutex
	nextID  int
	courses map[int]*models.Course
}

func NewFakeCourseStore() *FakeCourseStore {
	return &FakeCourseStore{nextID: 1, courses: make(map[int]*models.Course)}
}

func (s *FakeCourseStore) Create(course *models.Course) (*models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *course
	cp.ID = s.nextID
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	s.courses[cp.ID] = &cp
	s.nextID++
	result := cp
	return &result, nil
}

func (s *FakeCourseStore) FindByID(id int) (*models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, repositories.ErrCourseNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *FakeCourseStore) FindAll() ([]*models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*models.Course
	for i := 1; i < s.nextID; i++ {
		if c, ok := s.courses[i]; ok {
			cp := *c
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *FakeCourseStore) FindByTeacherID(teacherID int) ([]*models.Course, error) {
	all, _ := s.FindAll()
	var result []*models.Course
	for _, c := range all {
		if c.TeacherID == teacherID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (s *FakeCourseStore) FindPublished() ([]*models.Course, error) {
	all, _ := s.FindAll()
	var result []*models.Course
	for _, c := range all {
		if c.Published {
			result = append(result, c)
		}
	}
	return result, nil
}

func (s *FakeCourseStore) Update(id int, course *models.Course) (*models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.courses[id]
	if !ok {
		return nil, repositories.ErrCourseNotFound
	}
	existing.Title = course.Title
	existing.Description = course.Description
	existing.Published = course.Published
	existing.UpdatedAt = time.Now()
	cp := *existing
	return &cp, nil
}

func (s *FakeCourseStore) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[id]; !ok {
		return repositories.ErrCourseNotFound
	}
	delete(s.courses, id)
	return nil
}

// TestEnv はテスト用ルーターとフェイク群をまとめたものです。
type TestEnv struct {
	Router      *gin.Engine
	UserStore   *FakeUserStore
	CourseStore *FakeCourseStore
	Mailer      *FakeMailer
	JWTService  *services.JWTService
	AuthService *services.AuthService
}

// SetupTestRouter はフェイクを注入したテスト用ルーターをセットアップします。
func SetupTestRouter(t *testing.T) *TestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	userStore := NewFakeUserStore()
	courseStore := NewFakeCourseStore()
	mailer := &FakeMailer{}
	jwtService := services.NewJWTServiceWithSecret(TestJWTSecret)
	authService := services.NewAuthService(userStore, jwtService, mailer)
	courseService := services.NewCourseService(courseStore)

	router := routes.NewRouter(nil, userStore, jwtService, authService, courseService)

	return &TestEnv{
		Router:      router,
		UserStore:   userStore,
		CourseStore: courseStore,
		Mailer:      mailer,
		JWTService:  jwtService,
		AuthService: authService,
	}
}

// CreateTestUser はテスト用ユーザーを作成してストアに保存します。
func CreateTestUser(t *testing.T, store *FakeUserStore, email, password, role string) *models.User {
	t.Helper()
	hashedPassword, err := repositories.HashPassword(password)
	require.NoError(t, err)

	createdUser, err := store.Create(&models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         role,
	})
	require.NoError(t, err)
	require.NotEqual(t, 0, createdUser.ID)
	return createdUser
}

// DoJSON はJSONボディ付きのリクエストを実行してレコーダーを返します。
func DoJSON(t *testing.T, router *gin.Engine, method, path string, payload interface{}, cookie string) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "token", Value: cookie})
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// LoginAndGetToken はログインしてセッションCookieの値を取り出します。
func LoginAndGetToken(t *testing.T, router *gin.Engine, email, password string) (string, error) {
	t.Helper()
	w := DoJSON(t, router, http.MethodPost, "/api/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")

	if w.Code != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d: %s", w.Code, w.Body.String())
	}

	for _, c := range w.Result().Cookies() {
		if c.Name == "token" && c.Value != "" {
			return c.Value, nil
		}
	}
	return "", errors.New("session cookie not found in login response")
}
