package handler_test

import (
	"net/http"
	"testing"

	"github.com/lify-app/lify-backend/internal/middleware"
	"github.com/lify-app/lify-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// AuthHandlerIntegrationTestSuite defines test suite
type AuthHandlerIntegrationTestSuite struct {
	suite.Suite
	app *testApp
}

// SetupTest runs before each test with a fresh database
func (s *AuthHandlerIntegrationTestSuite) SetupTest() {
	s.app = newTestApp(s.T(), testutil.NewRecordingEmitter())
}

func tokenCookie(w interface{ Result() *http.Response }) *http.Cookie {
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == middleware.AuthCookieName {
			return cookie
		}
	}
	return nil
}

// TestRegisterSuccess tests successful user registration
func (s *AuthHandlerIntegrationTestSuite) TestRegisterSuccess() {
	w := s.app.do(http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"username":  "newuser",
		"email":     "newuser@example.com",
		"password":  "SecurePass123",
		"isPrivate": true,
	})

	require.Equal(s.T(), http.StatusCreated, w.Code, w.Body.String())
	body := decode(s.T(), w)
	assert.NotEmpty(s.T(), body["token"])

	user := body["user"].(map[string]interface{})
	assert.Equal(s.T(), "newuser", user["username"])
	assert.Equal(s.T(), true, user["isPrivate"])
	assert.NotContains(s.T(), user, "email")
	assert.NotContains(s.T(), user, "passwordHash")

	cookie := tokenCookie(w)
	require.NotNil(s.T(), cookie)
	assert.True(s.T(), cookie.HttpOnly)
	assert.Equal(s.T(), http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(s.T(), body["token"], cookie.Value)
}

// TestRegisterDuplicateEmail tests that a taken email is a conflict
func (s *AuthHandlerIntegrationTestSuite) TestRegisterDuplicateEmail() {
	s.app.user("existing", false)

	w := s.app.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "another",
		"email":    "existing@example.com",
		"password": "SecurePass123",
	})

	assert.Equal(s.T(), http.StatusConflict, w.Code)
	assert.Equal(s.T(), "email already exists", decode(s.T(), w)["error"])
}

// TestRegisterInvalidInput tests validation failures
func (s *AuthHandlerIntegrationTestSuite) TestRegisterInvalidInput() {
	testCases := []struct {
		name string
		body map[string]string
	}{
		{"missing password", map[string]string{"username": "user", "email": "user@example.com"}},
		{"short username", map[string]string{"username": "ab", "email": "ab@example.com", "password": "SecurePass123"}},
		{"invalid email", map[string]string{"username": "user", "email": "invalid", "password": "SecurePass123"}},
		{"short password", map[string]string{"username": "user", "email": "user@example.com", "password": "short"}},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			w := s.app.do(http.MethodPost, "/api/auth/register", "", tc.body)
			assert.Equal(s.T(), http.StatusBadRequest, w.Code)
			assert.NotEmpty(s.T(), decode(s.T(), w)["error"])
		})
	}
}

// TestLoginSuccess tests successful login
func (s *AuthHandlerIntegrationTestSuite) TestLoginSuccess() {
	s.app.user("loginuser", false)

	w := s.app.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "loginuser@example.com",
		"password": testutil.DefaultPassword,
	})

	require.Equal(s.T(), http.StatusOK, w.Code, w.Body.String())
	body := decode(s.T(), w)
	assert.NotEmpty(s.T(), body["token"])
	assert.NotNil(s.T(), tokenCookie(w))

	// the issued token opens protected routes
	me := s.app.do(http.MethodGet, "/api/users/me", body["token"].(string), nil)
	assert.Equal(s.T(), http.StatusOK, me.Code)
}

// TestLoginInvalidCredentials tests wrong password and unknown user
func (s *AuthHandlerIntegrationTestSuite) TestLoginInvalidCredentials() {
	s.app.user("loginuser", false)

	w := s.app.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "loginuser@example.com",
		"password": "WrongPassword",
	})
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
	assert.Equal(s.T(), "invalid credentials", decode(s.T(), w)["error"])

	w = s.app.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "WrongPassword",
	})
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

// TestProtectedRoutesRequireToken tests the auth middleware
func (s *AuthHandlerIntegrationTestSuite) TestProtectedRoutesRequireToken() {
	assert.Equal(s.T(), http.StatusUnauthorized, s.app.do(http.MethodGet, "/api/conversations", "", nil).Code)
	assert.Equal(s.T(), http.StatusUnauthorized, s.app.do(http.MethodGet, "/api/conversations", "garbage", nil).Code)
}

func TestAuthHandlerIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerIntegrationTestSuite))
}
