package helpers

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// AuthUserID returns the authenticated caller's id, or nil when the request
// carried no valid credentials.
func AuthUserID(c echo.Context) *uuid.UUID {
	if id, ok := GetUserIDRaw(c); ok {
		return &id
	}
	return nil
}
