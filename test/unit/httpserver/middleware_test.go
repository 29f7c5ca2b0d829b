package httpserver_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/credential-management/internal/infrastructure/httpserver/helpers"
	"github.com/avatarctic/credential-management/internal/infrastructure/httpserver/middleware"
)

const testSecret = "jwt-secret"

func signToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestOptionalJWT_MissingTokenProceedsUnauthenticated(t *testing.T) {
	e := echo.New()
	m := middleware.NewJWTMiddleware(testSecret, logrus.New())
	handler := m.OptionalJWT()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, handler(c))
	require.Nil(t, helpers.AuthUserID(c))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestOptionalJWT_InvalidTokenIsIgnored(t *testing.T) {
	e := echo.New()
	m := middleware.NewJWTMiddleware(testSecret, logrus.New())
	handler := m.OptionalJWT()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, handler(c))
	require.Nil(t, helpers.AuthUserID(c))
}

func TestOptionalJWT_ValidTokenSetsCallerIdentity(t *testing.T) {
	e := echo.New()
	userID := uuid.New()
	m := middleware.NewJWTMiddleware(testSecret, logrus.New())
	handler := m.OptionalJWT()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, userID))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, handler(c))
	got := helpers.AuthUserID(c)
	require.NotNil(t, got)
	require.Equal(t, userID, *got)
}

func TestOptionalJWT_WrongSecretIsIgnored(t *testing.T) {
	e := echo.New()
	m := middleware.NewJWTMiddleware("different-secret", logrus.New())
	handler := m.OptionalJWT()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, uuid.New()))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, handler(c))
	require.Nil(t, helpers.AuthUserID(c))
}
