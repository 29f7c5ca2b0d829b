package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/credential-management/internal/core/domain/account"
	"github.com/avatarctic/credential-management/internal/infrastructure/httpserver/helpers"
)

// managementAction is the single dispatch endpoint: the request body names
// the action and carries its value payload.
func (s *Server) managementAction(c echo.Context) error {
	var req account.Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"code":  string(account.CodeInvalidParams),
			"error": "malformed request body",
		})
	}

	call := account.CallContext{
		Origin:     account.OriginExternal,
		AuthUserID: helpers.AuthUserID(c),
	}

	u, err := s.managementSvc.Dispatch(c.Request().Context(), call, &req)

	code := "ok"
	if err != nil {
		code = string(account.CodeOf(err))
	}
	GetManagementActionsTotal().WithLabelValues(req.Action, code).Inc()

	if err != nil {
		return s.managementError(c, call, err)
	}
	return c.JSON(http.StatusOK, u)
}

// managementError translates the typed workflow errors into HTTP responses.
// Unauthenticated callers hitting a protected action get 401 rather than 403
// so clients know to obtain credentials first.
func (s *Server) managementError(c echo.Context, call account.CallContext, err error) error {
	var mgmtErr *account.Error
	if !errors.As(err, &mgmtErr) {
		if s.logger != nil {
			s.logger.WithError(err).Error("management action failed")
		}
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "internal server error",
		})
	}

	status := http.StatusBadRequest
	switch mgmtErr.Code {
	case account.CodeForbidden:
		status = http.StatusForbidden
		if call.AuthUserID == nil {
			status = http.StatusUnauthorized
		}
	case account.CodeGeneration:
		status = http.StatusInternalServerError
	}

	body := map[string]interface{}{
		"code":  string(mgmtErr.Code),
		"error": mgmtErr.Message,
	}
	if len(mgmtErr.Details) > 0 {
		body["details"] = mgmtErr.Details
	}
	return c.JSON(status, body)
}
