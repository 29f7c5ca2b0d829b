package middleware

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/credential-management/internal/infrastructure/httpserver/helpers"
)

type JWTMiddleware struct {
	secret []byte
	logger *logrus.Logger
}

func NewJWTMiddleware(jwtSecret string, logger *logrus.Logger) *JWTMiddleware {
	return &JWTMiddleware{secret: []byte(jwtSecret), logger: logger}
}

// OptionalJWT creates middleware that sets the caller's identity from a
// bearer token when one is present and valid. Requests without credentials
// proceed unauthenticated; the workflow engine decides per action whether
// that is acceptable.
func (m *JWTMiddleware) OptionalJWT() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(m.secret) == 0 {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				return next(c)
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return m.secret, nil
			})
			if err != nil || !token.Valid {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "path": c.Request().URL.Path}).Debug("ignoring invalid bearer token")
				}
				return next(c)
			}

			if raw, ok := claims["user_id"].(string); ok {
				if id, err := uuid.Parse(raw); err == nil {
					helpers.SetUserID(c, id)
					if m.logger != nil {
						m.logger.WithFields(logrus.Fields{"user_id": id}).Debug("jwt validated and user context set")
					}
				}
			}

			return next(c)
		}
	}
}
