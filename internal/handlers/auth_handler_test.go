package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-next-lms/backend/internal/models"
	"go-next-lms/backend/internal/services"
	"go-next-lms/backend/testutil"
)

func TestRegisterHandler_Success(t *testing.T) {
	env := testutil.SetupTestRouter(t)

	w := testutil.DoJSON(t, env.Router, http.MethodPost, "/api/register", map[string]string{
		"email":            "newuser@example.com",
		"password":         "newpassword",
		"confirm_password": "newpassword",
	}, "")

	assert.Equal(t, http.StatusCreated, w.Code, "Expected HTTP Status Code 201 Created")
	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "/login", response["redirect"], "Registration must point to the login page, not auto-login")
	assert.Empty(t, w.Result().Cookies(), "Registration must not set a session cookie")
}

func TestRegisterHandler_PasswordMismatch(t *testing.T) {
	env := testutil.SetupTestRouter(t)

	w := testutil.DoJSON(t, env.Router, http.MethodPost, "/api/register", map[string]string{
		"email":            "newuser@example.com",
		"password":         "newpassword",
		"confirm_password": "different",
	}, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Passwords do not match", response["error"])
}

func TestRegisterHandler_PasswordTooShort(t *testing.T) {
	env := testutil.SetupTestRouter(t)

	w := testutil.DoJSON(t, env.Router, http.MethodPost, "/api/register", map[string]string{
		"email":            "newuser@example.com",
		"password":         "12345",
		"confirm_password": "12345",
	}, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Password must be at least 6 characters long", response["error"])
}

func TestRegisterHandler_DuplicateEmail(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	testutil.CreateTestUser(t, env.UserStore, "duplicate@example.com", "password123", models.RoleUser)

	w := testutil.DoJSON(t, env.Router, http.MethodPost, "/api/register", map[string]string{
		"email":            "duplicate@example.com",
		"password":         "somepassword",
		"confirm_password": "somepassword",
	}, "")

	assert.Equal(t, http.StatusConflict, w.Code, "Expected HTTP Status Code 409 Conflict for duplicate email")
	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Email already registered", response["error"])
}

func TestLoginHandler_SetsSessionCookie(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	created := testutil.CreateTestUser(t, env.UserStore, "normal_user@example.com", "password123", models.RoleUser)

	w := testutil.DoJSON(t, env.Router, http.MethodPost, "/api/login", map[string]string{
		"email":    "normal_user@example.com",
		"password": "password123",
	}, "")

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "/user", response["redirect"])
	assert.Equal(t, models.RoleUser, response["role"])

	// Cookie属性: token / HttpOnly / SameSite=Strict / Path=/ / 7日
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, "token", cookie.Name)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 604800, cookie.MaxAge)
	assert.False(t, cookie.Secure, "Secure is off outside production")

	// Cookieの値はセッショントークンとして検証できる
	userID, err := env.JWTService.ValidateSessionToken(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, created.ID, userID)
}

func TestLoginHandler_RoleRedirects(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	testutil.CreateTestUser(t, env.UserStore, "admin@example.com", "adminpass", models.RoleAdmin)
	testutil.CreateTestUser(t, env.UserStore, "teacher@example.com", "teacherpass", models.RoleTeacher)

	cases := []struct {
		email    string
		password string
		redirect string
	}{
		{"admin@example.com", "adminpass", "/admin"},
		{"teacher@example.com", "teacherpass", "/teacher"},
	}
	for _, tc := range cases {
		w := testutil.DoJSON(t, env.Router, http.MethodPost, "/api/login", map[string]string{
			"email":    tc.email,
			"password": tc.password,
		}, "")
		assert.Equal(t, http.StatusOK, w.Code)
		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, tc.redirect, response["redirect"], "Expected role-specific redirect for %s", tc.email)
	}
}

func TestLoginHandler_GenericErrorPayload(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	testutil.CreateTestUser(t, env.UserStore, "normal_user@example.com", "password123", models.RoleUser)

	wrongPass := testutil.DoJSON(t, env.Router, http.MethodPost, "/api/login", map[string]string{
		"email":    "normal_user@example.com",
		"password": "wrongpassword",
	}, "")
	unknownEmail := testutil.DoJSON(t, env.Router, http.MethodPost, "/api/login", map[string]string{
		"email":    "nonexistent@example.com",
		"password": "password123",
	}, "")

	assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	// 列挙攻撃対策: レスポンスはバイト単位で同一であること
	assert.Equal(t, wrongPass.Body.String(), unknownEmail.Body.String())
}

func TestLogoutHandler_ClearsCookie(t *testing.T) {
	env := testutil.SetupTestRouter(t)

	w := testutil.DoJSON(t, env.Router, http.MethodPost, "/api/logout", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0, "Expected the cookie to be expired")

	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "/login", response["redirect"])
}

func TestForgotPasswordHandler(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	testutil.CreateTestUser(t, env.UserStore, "normal_user@example.com", "password123", models.RoleUser)

	known := testutil.DoJSON(t, env.Router, http.MethodPost, "/api/forgot-password", map[string]string{
		"email": "normal_user@example.com",
	}, "")
	unknown := testutil.DoJSON(t, env.Router, http.MethodPost, "/api/forgot-password", map[string]string{
		"email": "nobody@example.com",
	}, "")

	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, http.StatusOK, unknown.Code)
	// 登録済み・未登録で同じレスポンスを返す
	assert.Equal(t, known.Body.String(), unknown.Body.String())
	assert.Len(t, env.Mailer.Sent, 1, "Mail goes out only for the registered address")
}

func TestForgotPasswordHandler_InvalidEmail(t *testing.T) {
	env := testutil.SetupTestRouter(t)

	w := testutil.DoJSON(t, env.Router, http.MethodPost, "/api/forgot-password", map[string]string{
		"email": "not-an-email",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResetHandler_WireContract(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	created := testutil.CreateTestUser(t, env.UserStore, "normal_user@example.com", "password123", models.RoleUser)

	// forgot-passwordでトークンを発行
	testutil.DoJSON(t, env.Router, http.MethodPost, "/api/forgot-password", map[string]string{
		"email": "normal_user@example.com",
	}, "")
	stored, err := env.UserStore.FindByID(created.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResetToken)
	token := *stored.ResetToken

	// type=validate → {valid, user_id}
	w := testutil.DoJSON(t, env.Router, http.MethodPost, "/api/auth/reset", map[string]string{
		"type":  "validate",
		"token": token,
	}, "")
	assert.Equal(t, http.StatusOK, w.Code)
	var validation models.ResetTokenValidation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &validation))
	assert.True(t, validation.Valid)
	assert.Equal(t, created.ID, validation.UserID)

	// type=reset → {message}
	w = testutil.DoJSON(t, env.Router, http.MethodPost, "/api/auth/reset", map[string]string{
		"type":     "reset",
		"token":    token,
		"password": "newpass1",
	}, "")
	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, services.MsgResetSuccess, response["message"])

	// 使用済みトークンのvalidateは失敗する
	w = testutil.DoJSON(t, env.Router, http.MethodPost, "/api/auth/reset", map[string]string{
		"type":  "validate",
		"token": token,
	}, "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &validation))
	assert.False(t, validation.Valid)
	assert.Equal(t, services.MsgInvalidToken, validation.Message)

	// 未知のtypeは400
	w = testutil.DoJSON(t, env.Router, http.MethodPost, "/api/auth/reset", map[string]string{
		"type": "unknown",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Invalid request", response["message"])
}

func TestMeHandler(t *testing.T) {
	env := testutil.SetupTestRouter(t)
	created := testutil.CreateTestUser(t, env.UserStore, "normal_user@example.com", "password123", models.RoleUser)

	token, err := testutil.LoginAndGetToken(t, env.Router, "normal_user@example.com", "password123")
	require.NoError(t, err)

	w := testutil.DoJSON(t, env.Router, http.MethodGet, "/api/me", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(created.ID), response["id"])
	assert.Equal(t, "normal_user@example.com", response["email"])
	assert.Equal(t, models.RoleUser, response["role"])
}
