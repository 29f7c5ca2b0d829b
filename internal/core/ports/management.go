package ports

import (
	"context"

	"github.com/avatarctic/credential-management/internal/core/domain/account"
	"github.com/google/uuid"
)

// ManagementService is the credential-change workflow engine. Every
// operation carries the call context so networked and server-originated
// invocations are distinguished explicitly.
type ManagementService interface {
	// Dispatch routes an {action, value} request to the matching workflow.
	// It returns the sanitized user record, or nil for checkUnique success.
	Dispatch(ctx context.Context, call account.CallContext, req *account.Request) (*account.User, error)

	// CheckUnique fails when any of the given identity field values is
	// already taken by a record other than ownID; nil means no conflict.
	CheckUnique(ctx context.Context, fields map[string]string, ownID *uuid.UUID) error

	// ResendVerifySignup issues a fresh verify token triple for an
	// unverified user.
	ResendVerifySignup(ctx context.Context, call account.CallContext, identify map[string]string, notifierOptions map[string]interface{}) (*account.User, error)

	// VerifySignupLong completes signup verification with a long token.
	VerifySignupLong(ctx context.Context, call account.CallContext, token string) (*account.User, error)

	// VerifySignupShort completes signup verification with a short token
	// plus identity fields naming the same record.
	VerifySignupShort(ctx context.Context, call account.CallContext, token string, identify map[string]string) (*account.User, error)

	// SendResetPwd issues a fresh reset token triple for a verified user.
	SendResetPwd(ctx context.Context, call account.CallContext, identify map[string]string, notifierOptions map[string]interface{}) (*account.User, error)

	// ResetPwdLong sets a new password using a long reset token.
	ResetPwdLong(ctx context.Context, call account.CallContext, token, password string) (*account.User, error)

	// ResetPwdShort sets a new password using a short reset token plus
	// identity fields naming the same record.
	ResetPwdShort(ctx context.Context, call account.CallContext, token, password string, identify map[string]string) (*account.User, error)

	// PasswordChange replaces the password after verifying the old one.
	PasswordChange(ctx context.Context, call account.CallContext, identify map[string]string, oldPassword, newPassword string) (*account.User, error)

	// IdentityChange stores pending identity-field changes behind a fresh
	// verify token; the changes apply only on subsequent verification.
	IdentityChange(ctx context.Context, call account.CallContext, identify map[string]string, password string, changes map[string]string) (*account.User, error)
}
